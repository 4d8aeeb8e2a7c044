package types

import "time"

// BallotState is the state of a single ballot. A ballot starts Unused and
// moves exactly once, to Cast or to Audited. Both are terminal.
type BallotState uint8

const (
	BallotUnused BallotState = iota
	BallotCast
	BallotAudited
)

func (s BallotState) String() string {
	switch s {
	case BallotUnused:
		return "unused"
	case BallotCast:
		return "cast"
	case BallotAudited:
		return "audited"
	}
	return "unknown"
}

// CandidateCode binds one candidate to the confirmation code printed for it
// on a single ballot.
type CandidateCode struct {
	Candidate string   `json:"candidate" cbor:"0,keyasint"`
	Code      HexBytes `json:"code"      cbor:"1,keyasint"`
}

// BallotRow is one row of table P: a ballot serial with its ordered
// (candidate, confirmation code) pairs. The codes stay secret until the
// ballot is cast (one code) or audited (all of them).
type BallotRow struct {
	Serial HexBytes        `json:"serial" cbor:"0,keyasint"`
	Codes  []CandidateCode `json:"codes"  cbor:"1,keyasint"`
}

// Code returns the confirmation code for the given candidate ID, or nil if
// the candidate is not on the ballot.
func (r *BallotRow) Code(candidateID string) HexBytes {
	for _, cc := range r.Codes {
		if cc.Candidate == candidateID {
			return cc.Code
		}
	}
	return nil
}

// Reveal is one row of table R: a confirmation code revealed under a ballot
// pseudonym, with the time of the reveal.
type Reveal struct {
	Pseudonym  HexBytes  `json:"pseudonym"  cbor:"0,keyasint"`
	Code       HexBytes  `json:"code"       cbor:"1,keyasint"`
	RevealedAt time.Time `json:"revealedAt" cbor:"2,keyasint"`
}
