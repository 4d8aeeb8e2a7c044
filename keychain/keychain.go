// Package keychain implements the per-voter key derivation chain that gates
// ballot issuance and vote casting. Each voter walks a fixed sequence of
// stages, deriving a fresh key at each step:
//
//	Unregistered -> Registered        Q_K1, Q_K2, biometric drawn
//	            -> DeviceVerified    OTP echoed back under Q_K2
//	            -> Authenticated     AQ_K1 = agree(Q_K1, Q_K1)
//	            -> VotingReady       VQ_K1 = agree(AQ_K1, AQ_K1)
//	            -> Consumed          VQ_K1 handed out exactly once
//
// Derived keys are single use: entering the voting session invalidates
// AQ_K1, and consuming the voting key invalidates VQ_K1. Reuse requires
// re-running the agreement with fresh randomness from the prior stage.
package keychain

import (
	"crypto/subtle"
	"errors"

	"github.com/quantegrity/quantegrity/crypto/qrng"
	"github.com/quantegrity/quantegrity/crypto/sedjo"
	"github.com/quantegrity/quantegrity/types"
)

var (
	// ErrDuplicateVoter means Register was called on an already
	// registered chain.
	ErrDuplicateVoter = errors.New("keychain: voter already registered")
	// ErrDeviceVerificationFailed means the echoed OTP did not match.
	// The chain stays in its current stage; the voter may retry.
	ErrDeviceVerificationFailed = errors.New("keychain: device verification failed")
	// ErrAuthenticationFailed means the biometric sample did not recover
	// the long-term key on record.
	ErrAuthenticationFailed = errors.New("keychain: biometric authentication failed")
	// ErrKeyAlreadyConsumed means the voting key was already handed out.
	ErrKeyAlreadyConsumed = errors.New("keychain: voting key already consumed")
	// ErrInvalidStage means the operation is not allowed in the chain's
	// current stage.
	ErrInvalidStage = errors.New("keychain: operation not allowed in current stage")
)

// Stage identifies a position in the derivation chain.
type Stage uint8

const (
	StageUnregistered Stage = iota
	StageRegistered
	StageDeviceVerified
	StageAuthenticated
	StageVotingReady
	StageConsumed
)

func (s Stage) String() string {
	switch s {
	case StageUnregistered:
		return "unregistered"
	case StageRegistered:
		return "registered"
	case StageDeviceVerified:
		return "deviceVerified"
	case StageAuthenticated:
		return "authenticated"
	case StageVotingReady:
		return "votingReady"
	case StageConsumed:
		return "consumed"
	}
	return "unknown"
}

// Enrollment is the secret material handed to the voter out of band at
// registration: the device key Q_K2 and the enrolled biometric signature.
// The long-term key Q_K1 never leaves the authority; it is stored encrypted
// under the biometric and recovered only during authentication.
type Enrollment struct {
	DeviceKey types.HexBytes `json:"deviceKey"`
	Biometric types.HexBytes `json:"biometric"`
}

// Chain is the key state machine for one voter. It is not safe for
// concurrent use; the election authority serializes access per voter.
type Chain struct {
	rnd    qrng.Source
	oracle sedjo.Oracle

	stage      Stage
	qk1        []byte // long-term key, kept only for the equality check
	qk2        []byte // device key
	encQK1     []byte // Q_K1 XOR biometric, the at-rest form
	pendingOTP []byte
	authKey    []byte // AQ_K1, invalidated on session entry
	voteKey    []byte // VQ_K1, invalidated on consumption
}

// New returns an empty chain in StageUnregistered.
func New(rnd qrng.Source, oracle sedjo.Oracle) *Chain {
	return &Chain{rnd: rnd, oracle: oracle}
}

// Stage returns the chain's current stage.
func (ch *Chain) Stage() Stage {
	return ch.stage
}

// Register draws Q_K1, Q_K2 and the biometric signature independently,
// stores Q_K2 and the biometric-encrypted Q_K1, and returns the enrollment
// secrets for the voter.
func (ch *Chain) Register() (*Enrollment, error) {
	if ch.stage != StageUnregistered {
		return nil, ErrDuplicateVoter
	}
	qk1 := ch.rnd.Draw(types.KeyBytes)
	qk2 := ch.rnd.Draw(types.KeyBytes)
	biometric := ch.rnd.Draw(types.KeyBytes)

	ch.qk1 = qk1
	ch.qk2 = qk2
	ch.encQK1 = XOR(qk1, biometric)
	ch.stage = StageRegistered
	return &Enrollment{DeviceKey: qk2, Biometric: biometric}, nil
}

// IssueDeviceOTP draws a fresh OTP and returns it encrypted under Q_K2. The
// voter's device decrypts it and echoes the plaintext back through
// VerifyDevice. Issuing again replaces any pending OTP.
func (ch *Chain) IssueDeviceOTP() (types.HexBytes, error) {
	if ch.stage != StageRegistered {
		return nil, ErrInvalidStage
	}
	ch.pendingOTP = ch.rnd.Draw(types.OTPBytes)
	return XOR(ch.pendingOTP, ch.qk2[:types.OTPBytes]), nil
}

// VerifyDevice checks the echoed OTP against the pending one. On mismatch
// the stage does not advance and the voter may request a new OTP.
func (ch *Chain) VerifyDevice(otp []byte) error {
	if ch.stage != StageRegistered || ch.pendingOTP == nil {
		return ErrInvalidStage
	}
	if subtle.ConstantTimeCompare(otp, ch.pendingOTP) != 1 {
		return ErrDeviceVerificationFailed
	}
	ch.pendingOTP = nil
	ch.stage = StageDeviceVerified
	return nil
}

// Authenticate recovers Q_K1 from its encrypted form using the presented
// biometric sample and, if it matches the key on record, derives AQ_K1
// through the agreement oracle. A failed agreement leaves the chain in
// DeviceVerified with no partial state.
func (ch *Chain) Authenticate(biometricSample []byte) error {
	if ch.stage != StageDeviceVerified {
		return ErrInvalidStage
	}
	recovered := XOR(ch.encQK1, biometricSample)
	// Equality check only: the key is never re-derived independently, so
	// a recovery error is indistinguishable from a bad sample.
	if subtle.ConstantTimeCompare(recovered, ch.qk1) != 1 {
		return ErrAuthenticationFailed
	}
	outA, outB, err := ch.oracle.Agree(recovered, recovered)
	if err != nil {
		return err
	}
	if !types.HexBytes(outA).Equal(outB) {
		return ErrAuthenticationFailed
	}
	ch.authKey = outA
	ch.stage = StageAuthenticated
	return nil
}

// EnterVotingSession derives VQ_K1 from AQ_K1 and invalidates AQ_K1, so the
// authentication key can never be replayed into a second session.
func (ch *Chain) EnterVotingSession() error {
	if ch.stage != StageAuthenticated {
		return ErrInvalidStage
	}
	outA, _, err := ch.oracle.Agree(ch.authKey, ch.authKey)
	if err != nil {
		return err
	}
	zero(ch.authKey)
	ch.authKey = nil
	ch.voteKey = outA
	ch.stage = StageVotingReady
	return nil
}

// ConsumeVotingKey returns VQ_K1 exactly once. Any further call fails with
// ErrKeyAlreadyConsumed.
func (ch *Chain) ConsumeVotingKey() (types.HexBytes, error) {
	switch ch.stage {
	case StageVotingReady:
	case StageConsumed:
		return nil, ErrKeyAlreadyConsumed
	default:
		return nil, ErrInvalidStage
	}
	key := ch.voteKey
	ch.voteKey = nil
	ch.stage = StageConsumed
	return key, nil
}

// AuthKeyFingerprint returns a short fingerprint of AQ_K1 for publication,
// or nil when no authentication key is held.
func (ch *Chain) AuthKeyFingerprint() types.HexBytes {
	return fingerprint(ch.authKey)
}

// VoteKeyFingerprint returns a short fingerprint of VQ_K1 for publication,
// or nil when no voting key is held.
func (ch *Chain) VoteKeyFingerprint() types.HexBytes {
	return fingerprint(ch.voteKey)
}

// XOR returns a XOR b, truncated to the shorter input. It is the cipher of
// the protocol: every encrypted artifact (Q_K1 at rest, OTPs, vote
// receipts) is a one-time-pad under a derived key.
func XOR(a, b []byte) []byte {
	n := min(len(a), len(b))
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] ^ b[i]
	}
	return out
}
