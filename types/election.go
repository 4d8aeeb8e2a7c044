package types

import "encoding/json"

// LifecyclePhase is the phase of the single election instance. Transitions
// only move forward: Setup -> Open -> Closed -> Sealed.
type LifecyclePhase uint8

const (
	PhaseSetup LifecyclePhase = iota
	PhaseOpen
	PhaseClosed
	PhaseSealed
)

func (p LifecyclePhase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseOpen:
		return "open"
	case PhaseClosed:
		return "closed"
	case PhaseSealed:
		return "sealed"
	}
	return "unknown"
}

func (p LifecyclePhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Candidate is fixed at election setup. ID is the opaque identifier used on
// the wire, Name the display name.
type Candidate struct {
	ID   string `json:"id"   cbor:"0,keyasint"`
	Name string `json:"name" cbor:"1,keyasint,omitempty"`
}

// VoterInfo is the registration data supplied by the voter.
type VoterInfo struct {
	Name       string `json:"name"       cbor:"0,keyasint,omitempty"`
	NationalID string `json:"nationalId" cbor:"1,keyasint,omitempty"`
}

// VoterStatus tracks how far a voter has progressed through the protocol.
type VoterStatus uint8

const (
	VoterRegistered VoterStatus = iota
	VoterDeviceVerified
	VoterAuthenticated
	VoterVoted
)

func (s VoterStatus) String() string {
	switch s {
	case VoterRegistered:
		return "registered"
	case VoterDeviceVerified:
		return "deviceVerified"
	case VoterAuthenticated:
		return "authenticated"
	case VoterVoted:
		return "voted"
	}
	return "unknown"
}

func (s VoterStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Tally maps candidate ID to vote count.
type Tally map[string]int
