package client

import (
	"fmt"

	"github.com/quantegrity/quantegrity/api"
	"github.com/quantegrity/quantegrity/keychain"
	"github.com/quantegrity/quantegrity/types"
)

// Voter drives one voter through the protocol against the API server. It
// holds the enrollment secrets returned at registration and performs the
// device-side cryptography (OTP decryption, receipt checking) locally.
type Voter struct {
	c         *HTTPclient
	ID        types.HexBytes
	deviceKey types.HexBytes
	biometric types.HexBytes
}

// Register registers a new voter and returns a handle holding its secrets.
func (c *HTTPclient) Register(info types.VoterInfo) (*Voter, error) {
	resp := &api.RegisterResponse{}
	if err := c.request(HTTPPOST, info, resp, api.VotersEndpoint); err != nil {
		return nil, err
	}
	return &Voter{
		c:         c,
		ID:        resp.VoterID,
		deviceKey: resp.DeviceKey,
		biometric: resp.Biometric,
	}, nil
}

// VerifyDevice requests a device challenge, decrypts the OTP with the device
// key and echoes it back.
func (v *Voter) VerifyDevice() error {
	challenge := &api.DeviceChallenge{}
	if err := v.c.request(HTTPPOST, nil, challenge, api.VotersEndpoint, v.ID.String(), "device"); err != nil {
		return err
	}
	otp := keychain.XOR(challenge.EncryptedOTP, v.deviceKey[:types.OTPBytes])
	return v.c.request(HTTPPOST, &api.DeviceResponse{OTP: otp}, nil,
		api.VotersEndpoint, v.ID.String(), "device", "verify")
}

// Authenticate presents the enrolled biometric signature.
func (v *Voter) Authenticate() error {
	return v.c.request(HTTPPOST, &api.AuthRequest{Biometric: v.biometric}, nil,
		api.VotersEndpoint, v.ID.String(), "authenticate")
}

// RequestBallot asks for a ballot and returns its serial.
func (v *Voter) RequestBallot() (types.HexBytes, error) {
	resp := &api.IssueResponse{}
	if err := v.c.request(HTTPPOST, nil, resp, api.VotersEndpoint, v.ID.String(), "ballot"); err != nil {
		return nil, err
	}
	return resp.Serial, nil
}

// Cast votes for the candidate on the given ballot and returns the revealed
// confirmation code together with the receipt.
func (v *Voter) Cast(serial types.HexBytes, candidateID string) (*api.CastResponse, error) {
	resp := &api.CastResponse{}
	err := v.c.request(HTTPPOST, &api.CastRequest{
		VoterID:     v.ID,
		Serial:      serial,
		CandidateID: candidateID,
	}, resp, api.VotesEndpoint)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Status returns the voter's protocol status as seen by the authority.
func (v *Voter) Status() (types.VoterStatus, error) {
	resp := &api.VoterStatusResponse{}
	if err := v.c.request(HTTPGET, nil, resp, api.VotersEndpoint, v.ID.String()); err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// Audit spoils the ballot with the given serial and returns its full row.
func (c *HTTPclient) Audit(serial types.HexBytes) (*types.AuditPayload, error) {
	row := &types.AuditPayload{}
	if err := c.request(HTTPPOST, nil, row, "/ballots", serial.String(), "audit"); err != nil {
		return nil, err
	}
	return row, nil
}

// Board returns every bulletin board entry.
func (c *HTTPclient) Board() ([]*types.BulletinEntry, error) {
	var entries []*types.BulletinEntry
	if err := c.request(HTTPGET, nil, &entries, api.BoardEndpoint); err != nil {
		return nil, err
	}
	return entries, nil
}

// Election returns the public election info.
func (c *HTTPclient) Election() (*api.ElectionInfo, error) {
	info := &api.ElectionInfo{}
	if err := c.request(HTTPGET, nil, info, api.ElectionEndpoint); err != nil {
		return nil, err
	}
	return info, nil
}

// Setup configures the election through the API.
func (c *HTTPclient) Setup(candidates []types.Candidate, ballotCount int) (types.HexBytes, error) {
	resp := &api.SetupResponse{}
	err := c.request(HTTPPOST, &api.SetupRequest{Candidates: candidates, BallotCount: ballotCount},
		resp, api.ElectionSetupEndpoint)
	if err != nil {
		return nil, err
	}
	return resp.CommitmentRoot, nil
}

// Open, Close and Seal drive the election lifecycle through the API. Seal
// returns the final tally.
func (c *HTTPclient) Open() error {
	return c.request(HTTPPOST, nil, nil, api.ElectionOpenEndpoint)
}

func (c *HTTPclient) Close() error {
	return c.request(HTTPPOST, nil, nil, api.ElectionCloseEndpoint)
}

func (c *HTTPclient) Seal() (types.Tally, error) {
	resp := &api.TallyResponse{}
	if err := c.request(HTTPPOST, nil, resp, api.ElectionSealEndpoint); err != nil {
		return nil, err
	}
	return resp.Tally, nil
}

// Tally returns the tally of a closed or sealed election.
func (c *HTTPclient) Tally() (types.Tally, error) {
	resp := &api.TallyResponse{}
	if err := c.request(HTTPGET, nil, resp, api.ElectionTallyEndpoint); err != nil {
		return nil, err
	}
	return resp.Tally, nil
}

// CheckReceipt verifies a cast receipt against the revealed code. It needs
// the voting key, which the voter only holds device-side in a deployment;
// here it is accepted as an argument for verification tooling.
func CheckReceipt(resp *api.CastResponse, voteKey types.HexBytes) error {
	if len(voteKey) < types.CodeBytes {
		return fmt.Errorf("voting key too short")
	}
	expected := keychain.XOR(resp.Code, voteKey[:types.CodeBytes])
	if !resp.Receipt.Equal(expected) {
		return fmt.Errorf("receipt does not match revealed code")
	}
	return nil
}
