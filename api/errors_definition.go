//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 401, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap (say, error code 40010, 40011 and 40013 exist, 40012 is missing) DON'T fill in
// the gap, that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound      = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody         = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedParam        = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed URL parameter")}
	ErrVoterNotFound         = Error{Code: 40006, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("voter not found")}
	ErrInvalidLifecyclePhase = Error{Code: 40007, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("operation not allowed in current lifecycle phase")}
	ErrDuplicateVoter        = Error{Code: 40008, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("voter already registered")}
	ErrVerificationFailed    = Error{Code: 40009, HTTPstatus: http.StatusUnauthorized, Err: fmt.Errorf("verification failed")}
	ErrBallotNotAvailable    = Error{Code: 40010, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ballot not available")}
	ErrBallotPoolExhausted   = Error{Code: 40011, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ballot pool exhausted")}
	ErrInvalidCandidate      = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid candidate")}
	ErrVotingKeyConsumed     = Error{Code: 40013, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("voting key already consumed")}
	ErrElectionSealed        = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("election is sealed")}
	ErrBallotNotIssued       = Error{Code: 40015, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("ballot not issued to voter")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrTallyIntegrity             = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("tally integrity violation")}
	ErrServerBusy                 = Error{Code: 50004, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("server busy, try again")}
)
