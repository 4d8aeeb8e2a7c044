package api

import (
	"encoding/json"
	"net/http"

	"go.vocdoni.io/dvote/log"
)

// electionInfo returns the election phase, candidates and board key
// GET /election
func (a *API) electionInfo(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, &ElectionInfo{
		Phase:      a.authority.Phase(),
		Candidates: a.authority.Candidates(),
		BoardKey:   a.authority.Board().PublicKey(),
	})
}

// electionSetup configures the candidate list and the ballot pool
// POST /election/setup
func (a *API) electionSetup(w http.ResponseWriter, r *http.Request) {
	req := &SetupRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.authority.Setup(req.Candidates, req.BallotCount); err != nil {
		writeErr(w, err)
		return
	}
	// The commitment root was just published as the board's setup entry;
	// return it from the tables for convenience.
	root, err := a.authority.CommitmentRoot()
	if err != nil {
		writeErr(w, err)
		return
	}
	log.Infow("election configured", "candidates", len(req.Candidates), "ballots", req.BallotCount)
	httpWriteJSON(w, &SetupResponse{CommitmentRoot: root})
}

// electionOpen opens the election for voting
// POST /election/open
func (a *API) electionOpen(w http.ResponseWriter, _ *http.Request) {
	if err := a.authority.OpenElection(); err != nil {
		writeErr(w, err)
		return
	}
	httpWriteOK(w)
}

// electionClose closes the election
// POST /election/close
func (a *API) electionClose(w http.ResponseWriter, _ *http.Request) {
	if err := a.authority.CloseElection(); err != nil {
		writeErr(w, err)
		return
	}
	httpWriteOK(w)
}

// electionSeal publishes the final tally and makes the election read-only
// POST /election/seal
func (a *API) electionSeal(w http.ResponseWriter, _ *http.Request) {
	tally, err := a.authority.SealElection()
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &TallyResponse{Tally: tally})
}

// electionTally returns the tally of a closed or sealed election
// GET /election/tally
func (a *API) electionTally(w http.ResponseWriter, _ *http.Request) {
	tally, err := a.authority.Tally()
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &TallyResponse{Tally: tally})
}
