package authority

import (
	"github.com/quantegrity/quantegrity/keychain"
	"github.com/quantegrity/quantegrity/types"
	"go.vocdoni.io/dvote/log"
)

// RegisterVoter draws a fresh voter id and registers a key chain for it.
// The returned enrollment (device key and biometric signature) is handed to
// the voter out of band and never stored in plain form again. Registration
// is open during Setup and Open.
func (a *Authority) RegisterVoter(info types.VoterInfo) (types.HexBytes, *keychain.Enrollment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseSetup && a.phase != types.PhaseOpen {
		return nil, nil, ErrInvalidLifecyclePhase
	}
	if info.NationalID != "" && a.nationalIDs[info.NationalID] {
		return nil, nil, ErrDuplicateVoter
	}
	id := types.HexBytes(a.rndVoters.Draw(types.VoterIDBytes))
	chain := keychain.New(a.rndKeys, a.oracle)
	enrollment, err := chain.Register()
	if err != nil {
		return nil, nil, err
	}
	a.voters[id.String()] = &voterRecord{
		id:     id,
		info:   info,
		status: types.VoterRegistered,
		chain:  chain,
	}
	if info.NationalID != "" {
		a.nationalIDs[info.NationalID] = true
	}
	log.Infow("voter registered", "voterId", id.String())
	return id, enrollment, nil
}

// RequestDeviceVerification draws a device OTP and returns it encrypted
// under the voter's Q_K2. The voter decrypts on-device and echoes the
// plaintext back through ApproveDeviceVerification.
func (a *Authority) RequestDeviceVerification(voterID types.HexBytes) (types.HexBytes, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, err := a.voter(voterID)
	if err != nil {
		return nil, err
	}
	return record.chain.IssueDeviceOTP()
}

// ApproveDeviceVerification checks the echoed OTP. On success the voter
// moves to DeviceVerified; on mismatch the state does not change and the
// voter may request a fresh OTP.
func (a *Authority) ApproveDeviceVerification(voterID types.HexBytes, otpResponse []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, err := a.voter(voterID)
	if err != nil {
		return err
	}
	if err := record.chain.VerifyDevice(otpResponse); err != nil {
		return err
	}
	record.status = types.VoterDeviceVerified
	log.Infow("device verified", "voterId", voterID.String())
	return nil
}

// Authenticate verifies the biometric sample and derives the voter's
// authentication key AQ_K1. The derivation is logged on the board as a key
// exchange, with a fingerprint only.
func (a *Authority) Authenticate(voterID types.HexBytes, biometricSample []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, err := a.voter(voterID)
	if err != nil {
		return err
	}
	if err := record.chain.Authenticate(biometricSample); err != nil {
		return err
	}
	record.status = types.VoterAuthenticated
	if _, err := a.board.Append(types.KindKeyExchange, &types.KeyExchangePayload{
		VoterID:        voterID,
		Stage:          "AQ_K1",
		KeyFingerprint: record.chain.AuthKeyFingerprint(),
	}); err != nil {
		return err
	}
	log.Infow("voter authenticated", "voterId", voterID.String())
	return nil
}

// VoterStatus returns the protocol status of a voter.
func (a *Authority) VoterStatus(voterID types.HexBytes) (types.VoterStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	record, err := a.voter(voterID)
	if err != nil {
		return 0, err
	}
	return record.status, nil
}

// voter looks up a record. Caller holds a.mu.
func (a *Authority) voter(voterID types.HexBytes) (*voterRecord, error) {
	record, ok := a.voters[voterID.String()]
	if !ok {
		return nil, ErrUnknownVoter
	}
	return record, nil
}
