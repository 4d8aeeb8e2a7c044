package api

import (
	"encoding/json"
	"net/http"

	"go.vocdoni.io/dvote/log"

	"github.com/quantegrity/quantegrity/types"
)

// issueBallot enters the voter's voting session and reserves a ballot
// POST /voters/{voterId}/ballot
func (a *API) issueBallot(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamHex(w, r, VoterURLParam)
	if !ok {
		return
	}
	serial, err := a.authority.IssueBallot(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &IssueResponse{Serial: serial})
}

// castVote casts the voter's ballot for a candidate
// POST /votes
func (a *API) castVote(w http.ResponseWriter, r *http.Request) {
	req := &CastRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	code, receipt, err := a.authority.CastVote(req.VoterID, req.Serial, req.CandidateID)
	if err != nil {
		writeErr(w, err)
		return
	}
	log.Infow("vote accepted", "candidate", req.CandidateID)
	httpWriteJSON(w, &CastResponse{Code: code, Receipt: receipt})
}

// auditBallot spoils a ballot and reveals its full code row
// POST /ballots/{serial}/audit
func (a *API) auditBallot(w http.ResponseWriter, r *http.Request) {
	serial, ok := urlParamHex(w, r, SerialURLParam)
	if !ok {
		return
	}
	row, err := a.authority.AuditBallot(serial)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &types.AuditPayload{Serial: row.Serial, Codes: row.Codes})
}
