package api

import (
	"github.com/quantegrity/quantegrity/types"
)

// ElectionInfo is the public description of the election.
type ElectionInfo struct {
	Phase      types.LifecyclePhase `json:"phase"`
	Candidates []types.Candidate    `json:"candidates,omitempty"`
	BoardKey   types.HexBytes       `json:"boardKey"`
}

// SetupRequest configures the election: the candidate list and the size of
// the pre-generated ballot pool.
type SetupRequest struct {
	Candidates  []types.Candidate `json:"candidates"`
	BallotCount int               `json:"ballotCount"`
}

// SetupResponse returns the commitment root of the generated ballot pool.
type SetupResponse struct {
	CommitmentRoot types.HexBytes `json:"commitmentRoot"`
}

// RegisterResponse returns the new voter id together with the enrollment
// secrets, which are handed to the voter once and never again.
type RegisterResponse struct {
	VoterID   types.HexBytes `json:"voterId"`
	DeviceKey types.HexBytes `json:"deviceKey"`
	Biometric types.HexBytes `json:"biometric"`
}

// DeviceChallenge carries the OTP encrypted under the voter's device key.
type DeviceChallenge struct {
	EncryptedOTP types.HexBytes `json:"encryptedOtp"`
}

// DeviceResponse carries the decrypted OTP echoed back by the device.
type DeviceResponse struct {
	OTP types.HexBytes `json:"otp"`
}

// AuthRequest carries the biometric sample presented at authentication.
type AuthRequest struct {
	Biometric types.HexBytes `json:"biometric"`
}

// VoterStatusResponse is the protocol status of a voter.
type VoterStatusResponse struct {
	VoterID types.HexBytes    `json:"voterId"`
	Status  types.VoterStatus `json:"status"`
}

// IssueResponse returns the serial of the ballot issued to the voter.
type IssueResponse struct {
	Serial types.HexBytes `json:"serial"`
}

// CastRequest casts the ballot identified by serial for the candidate.
type CastRequest struct {
	VoterID     types.HexBytes `json:"voterId"`
	Serial      types.HexBytes `json:"serial"`
	CandidateID string         `json:"candidateId"`
}

// CastResponse returns the revealed confirmation code and the voter's
// receipt, the code encrypted under the voter's voting key.
type CastResponse struct {
	Code    types.HexBytes `json:"code"`
	Receipt types.HexBytes `json:"receipt"`
}

// TallyResponse is the per-candidate vote count.
type TallyResponse struct {
	Tally types.Tally `json:"tally"`
}
