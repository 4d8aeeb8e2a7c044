package authority

import (
	"github.com/quantegrity/quantegrity/keychain"
	"github.com/quantegrity/quantegrity/mixnet"
	"github.com/quantegrity/quantegrity/types"
	"go.vocdoni.io/dvote/log"
)

// IssueBallot enters the voter's voting session (deriving VQ_K1 from
// AQ_K1, which invalidates AQ_K1) and reserves the first available ballot
// for the voter. Calling it again before the ballot is resolved returns the
// same serial.
func (a *Authority) IssueBallot(voterID types.HexBytes) (types.HexBytes, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseOpen {
		return nil, ErrInvalidLifecyclePhase
	}
	record, err := a.voter(voterID)
	if err != nil {
		return nil, err
	}
	// The key chain gates issuance: a voter holds a ballot only with a
	// voting key derived or derivable. After an audit the chain is already
	// VotingReady and only a new serial is needed.
	switch record.chain.Stage() {
	case keychain.StageAuthenticated, keychain.StageVotingReady:
	default:
		return nil, keychain.ErrInvalidStage
	}
	if record.serial != nil {
		return record.serial, nil
	}
	if record.chain.Stage() == keychain.StageAuthenticated {
		if err := record.chain.EnterVotingSession(); err != nil {
			return nil, err
		}
		if _, err := a.board.Append(types.KindKeyExchange, &types.KeyExchangePayload{
			VoterID:        voterID,
			Stage:          "VQ_K1",
			KeyFingerprint: record.chain.VoteKeyFingerprint(),
		}); err != nil {
			return nil, err
		}
	}
	serial, err := a.tables.Issue()
	if err != nil {
		return nil, err
	}
	record.serial = serial
	a.issuedBy[serial.String()] = voterID.String()
	log.Infow("ballot issued", "voterId", voterID.String(), "serial", serial.String())
	return serial, nil
}

// CastVote consumes the voter's single-use voting key, flags the chosen
// candidate's confirmation code in the mixnet and appends the reveal to the
// board under the ballot pseudonym. It returns the code in the clear plus
// the voter's receipt, the code encrypted under VQ_K1.
func (a *Authority) CastVote(voterID, serial types.HexBytes, candidateID string) (code, receipt types.HexBytes, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseOpen {
		return nil, nil, ErrInvalidLifecyclePhase
	}
	record, err := a.voter(voterID)
	if err != nil {
		return nil, nil, err
	}
	if !record.serial.Equal(serial) {
		return nil, nil, ErrBallotNotIssued
	}
	// Validate the choice before touching the key chain: a mistyped
	// candidate must not burn the single-use voting key.
	if !a.validCandidate(candidateID) {
		return nil, nil, mixnet.ErrInvalidCandidate
	}
	voteKey, err := record.chain.ConsumeVotingKey()
	if err != nil {
		return nil, nil, err
	}
	code, err = a.tables.Cast(serial, candidateID)
	if err != nil {
		return nil, nil, err
	}
	receipt = keychain.XOR(code, voteKey)
	if _, err := a.board.Append(types.KindCast, &types.CastPayload{
		Pseudonym: a.tables.Pseudonym(serial),
		Code:      code,
	}); err != nil {
		return nil, nil, err
	}
	record.status = types.VoterVoted
	log.Infow("vote cast", "voterId", voterID.String(), "code", code.String())
	return code, receipt, nil
}

// AuditBallot spoils an issued ballot: every confirmation code on it is
// revealed on the board, the ballot leaves the castable pool for good and
// the owning voter may have a fresh ballot issued.
func (a *Authority) AuditBallot(serial types.HexBytes) (types.BallotRow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseOpen {
		return types.BallotRow{}, ErrInvalidLifecyclePhase
	}
	row, err := a.tables.Audit(serial)
	if err != nil {
		return types.BallotRow{}, err
	}
	if _, err := a.board.Append(types.KindAudit, &types.AuditPayload{
		Serial: row.Serial,
		Codes:  row.Codes,
	}); err != nil {
		return types.BallotRow{}, err
	}
	if ownerID, ok := a.issuedBy[serial.String()]; ok {
		if record := a.voters[ownerID]; record != nil && record.serial.Equal(serial) {
			record.serial = nil
		}
		delete(a.issuedBy, serial.String())
	}
	log.Infow("ballot audited", "serial", serial.String())
	return row, nil
}

// validCandidate reports whether the id is on the candidate list fixed at
// setup. Caller holds a.mu.
func (a *Authority) validCandidate(candidateID string) bool {
	for _, cand := range a.candidates {
		if cand.ID == candidateID {
			return true
		}
	}
	return false
}
