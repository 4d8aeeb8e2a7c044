package authority

import (
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"
	"go.vocdoni.io/dvote/log"

	"github.com/quantegrity/quantegrity/bboard"
	"github.com/quantegrity/quantegrity/keychain"
	"github.com/quantegrity/quantegrity/mixnet"
	"github.com/quantegrity/quantegrity/types"
)

func TestMain(m *testing.M) {
	log.Init("error", "stdout", nil)
	m.Run()
}

var testCandidates = []types.Candidate{
	{ID: "alice", Name: "Alice"},
	{ID: "bob", Name: "Bob"},
}

func newTestAuthority(t *testing.T) *Authority {
	a, err := New(Options{DB: metadb.NewTest(t)})
	qt.Assert(t, err, qt.IsNil)
	return a
}

// enrollVoter walks a voter through registration, device verification and
// biometric authentication, acting as the voter's device along the way.
func enrollVoter(c *qt.C, a *Authority, info types.VoterInfo) types.HexBytes {
	id, enrollment, err := a.RegisterVoter(info)
	c.Assert(err, qt.IsNil)

	encOTP, err := a.RequestDeviceVerification(id)
	c.Assert(err, qt.IsNil)
	otp := keychain.XOR(encOTP, enrollment.DeviceKey[:types.OTPBytes])
	c.Assert(a.ApproveDeviceVerification(id, otp), qt.IsNil)

	c.Assert(a.Authenticate(id, enrollment.Biometric), qt.IsNil)
	return id
}

func TestFullElection(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)

	c.Assert(a.Setup(testCandidates, 5), qt.IsNil)
	c.Assert(a.OpenElection(), qt.IsNil)

	id := enrollVoter(c, a, types.VoterInfo{Name: "Ada", NationalID: "A-1"})
	status, err := a.VoterStatus(id)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, types.VoterAuthenticated)

	serial, err := a.IssueBallot(id)
	c.Assert(err, qt.IsNil)
	c.Assert(serial, qt.HasLen, types.SerialBytes)

	// Re-issuing before the ballot is resolved returns the same serial.
	again, err := a.IssueBallot(id)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.DeepEquals, serial)

	code, receipt, err := a.CastVote(id, serial, "alice")
	c.Assert(err, qt.IsNil)
	c.Assert(code, qt.HasLen, types.CodeBytes)
	c.Assert(receipt, qt.HasLen, types.CodeBytes)
	c.Assert(receipt, qt.Not(qt.DeepEquals), code)

	status, err = a.VoterStatus(id)
	c.Assert(err, qt.IsNil)
	c.Assert(status, qt.Equals, types.VoterVoted)

	// Board carries Setup, two key exchanges and the cast, in order.
	entries, err := a.Board().List()
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 4)
	c.Assert(entries[0].Kind, qt.Equals, types.KindSetup)
	c.Assert(entries[1].Kind, qt.Equals, types.KindKeyExchange)
	c.Assert(entries[2].Kind, qt.Equals, types.KindKeyExchange)
	c.Assert(entries[3].Kind, qt.Equals, types.KindCast)

	cast := &types.CastPayload{}
	c.Assert(bboard.DecodePayload(entries[3], cast), qt.IsNil)
	c.Assert(cast.Code, qt.DeepEquals, code)
	c.Assert(cast.Pseudonym, qt.Not(qt.DeepEquals), serial)

	c.Assert(a.CloseElection(), qt.IsNil)
	tally, err := a.Tally()
	c.Assert(err, qt.IsNil)
	c.Assert(tally, qt.DeepEquals, types.Tally{"alice": 1, "bob": 0})

	sealed, err := a.SealElection()
	c.Assert(err, qt.IsNil)
	c.Assert(sealed, qt.DeepEquals, tally)
	c.Assert(a.Phase(), qt.Equals, types.PhaseSealed)

	// Sealing is final.
	_, err = a.SealElection()
	c.Assert(err, qt.Equals, ErrInvalidLifecyclePhase)
	last, err := a.Board().Entry(a.Board().Len() - 1)
	c.Assert(err, qt.IsNil)
	c.Assert(last.Kind, qt.Equals, types.KindSeal)
}

func TestAuditAllowsReissue(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)
	c.Assert(a.Setup(testCandidates, 5), qt.IsNil)
	c.Assert(a.OpenElection(), qt.IsNil)
	id := enrollVoter(c, a, types.VoterInfo{Name: "Ben"})

	first, err := a.IssueBallot(id)
	c.Assert(err, qt.IsNil)
	row, err := a.AuditBallot(first)
	c.Assert(err, qt.IsNil)
	c.Assert(row.Codes, qt.HasLen, len(testCandidates))

	// The audited ballot is spoiled; the voter gets a different one and
	// can still cast with the voting key derived at first issuance.
	second, err := a.IssueBallot(id)
	c.Assert(err, qt.IsNil)
	c.Assert(second, qt.Not(qt.DeepEquals), first)

	_, _, err = a.CastVote(id, second, "bob")
	c.Assert(err, qt.IsNil)

	// Casting on the spoiled serial is rejected before the key is spent.
	_, _, err = a.CastVote(id, first, "bob")
	c.Assert(err, qt.Equals, ErrBallotNotIssued)
}

func TestDoubleCastConsumesKey(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)
	c.Assert(a.Setup(testCandidates, 5), qt.IsNil)
	c.Assert(a.OpenElection(), qt.IsNil)
	id := enrollVoter(c, a, types.VoterInfo{})

	serial, err := a.IssueBallot(id)
	c.Assert(err, qt.IsNil)
	_, _, err = a.CastVote(id, serial, "alice")
	c.Assert(err, qt.IsNil)
	_, _, err = a.CastVote(id, serial, "bob")
	c.Assert(err, qt.Equals, keychain.ErrKeyAlreadyConsumed)

	tally := mustTallyAfterClose(c, a)
	c.Assert(tally, qt.DeepEquals, types.Tally{"alice": 1, "bob": 0})
}

func TestIssueRequiresAuthenticatedChain(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)
	c.Assert(a.Setup(testCandidates, 5), qt.IsNil)
	c.Assert(a.OpenElection(), qt.IsNil)

	id, enrollment, err := a.RegisterVoter(types.VoterInfo{Name: "Ada"})
	c.Assert(err, qt.IsNil)

	// A merely registered voter gets no ballot and consumes nothing from
	// the pool.
	_, err = a.IssueBallot(id)
	c.Assert(err, qt.Equals, keychain.ErrInvalidStage)

	encOTP, err := a.RequestDeviceVerification(id)
	c.Assert(err, qt.IsNil)
	otp := keychain.XOR(encOTP, enrollment.DeviceKey[:types.OTPBytes])
	c.Assert(a.ApproveDeviceVerification(id, otp), qt.IsNil)

	// Device-verified is still not enough.
	_, err = a.IssueBallot(id)
	c.Assert(err, qt.Equals, keychain.ErrInvalidStage)

	// After authentication the voter gets a ballot and can cast with the
	// key derived at issuance.
	c.Assert(a.Authenticate(id, enrollment.Biometric), qt.IsNil)
	serial, err := a.IssueBallot(id)
	c.Assert(err, qt.IsNil)
	_, _, err = a.CastVote(id, serial, "alice")
	c.Assert(err, qt.IsNil)
}

func TestMistypedCandidateKeepsVotingKey(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)
	c.Assert(a.Setup(testCandidates, 5), qt.IsNil)
	c.Assert(a.OpenElection(), qt.IsNil)
	id := enrollVoter(c, a, types.VoterInfo{Name: "Ada"})

	serial, err := a.IssueBallot(id)
	c.Assert(err, qt.IsNil)

	// An invalid candidate is rejected before the single-use voting key is
	// touched, so the corrected retry still succeeds.
	_, _, err = a.CastVote(id, serial, "alicia")
	c.Assert(err, qt.Equals, mixnet.ErrInvalidCandidate)
	_, _, err = a.CastVote(id, serial, "alice")
	c.Assert(err, qt.IsNil)

	tally := mustTallyAfterClose(c, a)
	c.Assert(tally, qt.DeepEquals, types.Tally{"alice": 1, "bob": 0})
}

func TestLifecycleGuards(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)

	// Nothing but setup and registration before the pool exists.
	c.Assert(a.OpenElection(), qt.Equals, ErrInvalidLifecyclePhase)
	_, err := a.IssueBallot(types.HexBytes{0x01})
	c.Assert(err, qt.Equals, ErrInvalidLifecyclePhase)
	_, err = a.Tally()
	c.Assert(err, qt.Equals, ErrInvalidLifecyclePhase)
	_, err = a.SealElection()
	c.Assert(err, qt.Equals, ErrInvalidLifecyclePhase)

	c.Assert(a.Setup(testCandidates, 2), qt.IsNil)
	c.Assert(a.Setup(testCandidates, 2), qt.Equals, ErrInvalidLifecyclePhase)
	c.Assert(a.CloseElection(), qt.Equals, ErrInvalidLifecyclePhase)

	c.Assert(a.OpenElection(), qt.IsNil)
	c.Assert(a.OpenElection(), qt.Equals, ErrInvalidLifecyclePhase)

	c.Assert(a.CloseElection(), qt.IsNil)
	_, err = a.IssueBallot(types.HexBytes{0x01})
	c.Assert(err, qt.Equals, ErrInvalidLifecyclePhase)
	_, _, err = a.CastVote(types.HexBytes{0x01}, types.HexBytes{0x02}, "alice")
	c.Assert(err, qt.Equals, ErrInvalidLifecyclePhase)
	_, err = a.AuditBallot(types.HexBytes{0x02})
	c.Assert(err, qt.Equals, ErrInvalidLifecyclePhase)
}

func TestDuplicateRegistration(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)

	_, _, err := a.RegisterVoter(types.VoterInfo{Name: "Ada", NationalID: "A-1"})
	c.Assert(err, qt.IsNil)
	_, _, err = a.RegisterVoter(types.VoterInfo{Name: "Imposter", NationalID: "A-1"})
	c.Assert(err, qt.Equals, ErrDuplicateVoter)
}

func TestUnknownVoter(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)
	c.Assert(a.Setup(testCandidates, 2), qt.IsNil)
	c.Assert(a.OpenElection(), qt.IsNil)

	_, err := a.RequestDeviceVerification(types.HexBytes{0xaa})
	c.Assert(err, qt.Equals, ErrUnknownVoter)
	_, err = a.IssueBallot(types.HexBytes{0xaa})
	c.Assert(err, qt.Equals, ErrUnknownVoter)
}

func TestPoolExhaustion(t *testing.T) {
	c := qt.New(t)
	a := newTestAuthority(t)
	c.Assert(a.Setup(testCandidates, 1), qt.IsNil)
	c.Assert(a.OpenElection(), qt.IsNil)

	first := enrollVoter(c, a, types.VoterInfo{NationalID: "P-1"})
	second := enrollVoter(c, a, types.VoterInfo{NationalID: "P-2"})

	_, err := a.IssueBallot(first)
	c.Assert(err, qt.IsNil)
	_, err = a.IssueBallot(second)
	c.Assert(err, qt.Equals, mixnet.ErrPoolExhausted)
}

func TestSnapshotRestore(t *testing.T) {
	c := qt.New(t)
	d := metadb.NewTest(t)
	key, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)

	a, err := New(Options{DB: d, SigningKey: key})
	c.Assert(err, qt.IsNil)
	c.Assert(a.Setup(testCandidates, 3), qt.IsNil)
	c.Assert(a.OpenElection(), qt.IsNil)
	id := enrollVoter(c, a, types.VoterInfo{Name: "Ada", NationalID: "A-1"})
	serial, err := a.IssueBallot(id)
	c.Assert(err, qt.IsNil)

	snap, err := a.Snapshot()
	c.Assert(err, qt.IsNil)

	restored, err := New(Options{DB: d, SigningKey: key})
	c.Assert(err, qt.IsNil)
	c.Assert(restored.Restore(snap), qt.IsNil)
	c.Assert(restored.Phase(), qt.Equals, types.PhaseOpen)
	c.Assert(restored.Candidates(), qt.DeepEquals, testCandidates)

	// The issued ballot and the voting key survive the round trip.
	sameSerial, err := restored.IssueBallot(id)
	c.Assert(err, qt.IsNil)
	c.Assert(sameSerial, qt.DeepEquals, serial)
	_, _, err = restored.CastVote(id, serial, "alice")
	c.Assert(err, qt.IsNil)

	tally := mustTallyAfterClose(c, restored)
	c.Assert(tally, qt.DeepEquals, types.Tally{"alice": 1, "bob": 0})

	// Restoring over a used authority is rejected.
	c.Assert(restored.Restore(snap), qt.ErrorIs, ErrInvalidLifecyclePhase)
}

func mustTallyAfterClose(c *qt.C, a *Authority) types.Tally {
	c.Assert(a.CloseElection(), qt.IsNil)
	tally, err := a.Tally()
	c.Assert(err, qt.IsNil)
	return tally
}
