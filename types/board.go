package types

import (
	"encoding/json"
	"time"
)

// EntryKind classifies bulletin board entries.
type EntryKind uint8

const (
	KindSetup EntryKind = iota
	KindKeyExchange
	KindCast
	KindAudit
	KindSeal
)

func (k EntryKind) String() string {
	switch k {
	case KindSetup:
		return "setup"
	case KindKeyExchange:
		return "keyExchange"
	case KindCast:
		return "cast"
	case KindAudit:
		return "audit"
	case KindSeal:
		return "seal"
	}
	return "unknown"
}

func (k EntryKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// BulletinEntry is one immutable, signed entry of the public bulletin board.
// Sequence numbers are strictly increasing with no gaps.
type BulletinEntry struct {
	Seq       uint64    `json:"seq"       cbor:"0,keyasint"`
	Kind      EntryKind `json:"kind"      cbor:"1,keyasint"`
	Payload   HexBytes  `json:"payload"   cbor:"2,keyasint"`
	Timestamp time.Time `json:"timestamp" cbor:"3,keyasint"`
	Signature HexBytes  `json:"signature" cbor:"4,keyasint"`
}

// SetupPayload announces the election parameters and the commitment root of
// the ballot pool, so later reveals can be checked against it.
type SetupPayload struct {
	Candidates     []Candidate `json:"candidates"     cbor:"0,keyasint"`
	BallotCount    int         `json:"ballotCount"    cbor:"1,keyasint"`
	CommitmentRoot HexBytes    `json:"commitmentRoot" cbor:"2,keyasint"`
}

// KeyExchangePayload records a successful key derivation. Only fingerprints
// are published, never key material.
type KeyExchangePayload struct {
	VoterID        HexBytes `json:"voterId"        cbor:"0,keyasint"`
	Stage          string   `json:"stage"          cbor:"1,keyasint"`
	KeyFingerprint HexBytes `json:"keyFingerprint" cbor:"2,keyasint"`
}

// CastPayload records a cast vote: the ballot pseudonym and the revealed
// confirmation code. The serial and the candidate never appear.
type CastPayload struct {
	Pseudonym HexBytes `json:"pseudonym" cbor:"0,keyasint"`
	Code      HexBytes `json:"code"      cbor:"1,keyasint"`
}

// AuditPayload records an audited ballot with its full P row revealed.
type AuditPayload struct {
	Serial HexBytes        `json:"serial" cbor:"0,keyasint"`
	Codes  []CandidateCode `json:"codes"  cbor:"1,keyasint"`
}

// SealPayload records the final tally when the election is sealed.
type SealPayload struct {
	Tally Tally `json:"tally" cbor:"0,keyasint"`
}
