package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.vocdoni.io/dvote/log"

	"github.com/quantegrity/quantegrity/authority"
	"github.com/quantegrity/quantegrity/bboard"
	"github.com/quantegrity/quantegrity/keychain"
	"github.com/quantegrity/quantegrity/mixnet"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// writeErr maps a domain error onto its API error and writes it.
func writeErr(w http.ResponseWriter, err error) {
	toAPIError(err).Write(w)
}

// toAPIError maps domain sentinel errors onto API errors with stable codes.
// Unrecognized errors become a generic 500.
func toAPIError(err error) Error {
	switch {
	case errors.Is(err, authority.ErrUnknownVoter):
		return ErrVoterNotFound
	case errors.Is(err, authority.ErrInvalidLifecyclePhase):
		return ErrInvalidLifecyclePhase
	case errors.Is(err, authority.ErrDuplicateVoter),
		errors.Is(err, keychain.ErrDuplicateVoter):
		return ErrDuplicateVoter
	case errors.Is(err, authority.ErrBallotNotIssued):
		return ErrBallotNotIssued
	case errors.Is(err, keychain.ErrDeviceVerificationFailed),
		errors.Is(err, keychain.ErrAuthenticationFailed):
		return ErrVerificationFailed.WithErr(err)
	case errors.Is(err, keychain.ErrKeyAlreadyConsumed):
		return ErrVotingKeyConsumed
	case errors.Is(err, keychain.ErrInvalidStage):
		return ErrVerificationFailed.WithErr(err)
	case errors.Is(err, mixnet.ErrInvalidConfiguration):
		return ErrMalformedBody.WithErr(err)
	case errors.Is(err, mixnet.ErrPoolExhausted):
		return ErrBallotPoolExhausted
	case errors.Is(err, mixnet.ErrUnknownBallot):
		return ErrResourceNotFound.With("unknown ballot serial")
	case errors.Is(err, mixnet.ErrInvalidCandidate):
		return ErrInvalidCandidate
	case errors.Is(err, mixnet.ErrBallotNotAvailable):
		return ErrBallotNotAvailable
	case errors.Is(err, mixnet.ErrSealed), errors.Is(err, bboard.ErrSealed):
		return ErrElectionSealed
	case errors.Is(err, mixnet.ErrBusy):
		return ErrServerBusy
	case errors.Is(err, mixnet.ErrTallyIntegrity):
		return ErrTallyIntegrity.WithErr(err)
	case errors.Is(err, bboard.ErrNotFound):
		return ErrResourceNotFound.With("board entry not found")
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}
