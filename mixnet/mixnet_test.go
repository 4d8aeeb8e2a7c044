package mixnet

import (
	"errors"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/quantegrity/quantegrity/crypto/qrng"
	"github.com/quantegrity/quantegrity/types"
)

var testCandidates = []types.Candidate{
	{ID: "alice", Name: "Alice"},
	{ID: "bob", Name: "Bob"},
}

func newTestTables(t *testing.T) *Tables {
	return New(metadb.NewTest(t), qrng.New("mixnet-test"))
}

func TestInitialize(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)

	root, err := tables.Initialize(testCandidates, 3)
	c.Assert(err, qt.IsNil)
	c.Assert(root, qt.Not(qt.IsNil))

	// 3 distinct serials, 2 distinct codes each, 6 codes pairwise
	// distinct across the pool.
	serials := map[string]bool{}
	codes := map[string]bool{}
	for i := 0; i < 3; i++ {
		serial, err := tables.Issue()
		c.Assert(err, qt.IsNil)
		serials[serial.String()] = true
		row, err := tables.Audit(serial)
		c.Assert(err, qt.IsNil)
		c.Assert(row.Codes, qt.HasLen, 2)
		for _, cc := range row.Codes {
			c.Assert(codes[cc.Code.String()], qt.IsFalse)
			codes[cc.Code.String()] = true
		}
	}
	c.Assert(serials, qt.HasLen, 3)
	c.Assert(codes, qt.HasLen, 6)
}

func TestInitializeRejectsBadConfig(t *testing.T) {
	c := qt.New(t)

	_, err := newTestTables(t).Initialize(testCandidates, 0)
	c.Assert(err, qt.ErrorIs, ErrInvalidConfiguration)

	_, err = newTestTables(t).Initialize(nil, 5)
	c.Assert(err, qt.ErrorIs, ErrInvalidConfiguration)

	dup := []types.Candidate{{ID: "alice"}, {ID: "alice"}}
	_, err = newTestTables(t).Initialize(dup, 5)
	c.Assert(err, qt.ErrorIs, ErrInvalidConfiguration)

	tables := newTestTables(t)
	_, err = tables.Initialize(testCandidates, 2)
	c.Assert(err, qt.IsNil)
	_, err = tables.Initialize(testCandidates, 2)
	c.Assert(err, qt.ErrorIs, ErrInvalidConfiguration)
}

func TestCastRevealsCommittedCode(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)
	_, err := tables.Initialize(testCandidates, 2)
	c.Assert(err, qt.IsNil)

	serial, err := tables.Issue()
	c.Assert(err, qt.IsNil)
	code, err := tables.Cast(serial, "alice")
	c.Assert(err, qt.IsNil)
	c.Assert(code, qt.HasLen, types.CodeBytes)

	ok, err := tables.CheckReveal(serial, "alice", code)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)

	// The reveal is flagged under the pseudonym, not the serial.
	reveals, err := tables.Reveals()
	c.Assert(err, qt.IsNil)
	c.Assert(reveals, qt.HasLen, 1)
	c.Assert(reveals[0].Code, qt.DeepEquals, code)
	c.Assert(reveals[0].Pseudonym, qt.DeepEquals, tables.Pseudonym(serial))
	c.Assert(reveals[0].Pseudonym, qt.Not(qt.DeepEquals), serial)
}

func TestBallotStatesAreTerminal(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)
	_, err := tables.Initialize(testCandidates, 2)
	c.Assert(err, qt.IsNil)

	s1, err := tables.Issue()
	c.Assert(err, qt.IsNil)
	_, err = tables.Cast(s1, "alice")
	c.Assert(err, qt.IsNil)
	_, err = tables.Cast(s1, "bob")
	c.Assert(err, qt.Equals, ErrBallotNotAvailable)
	_, err = tables.Audit(s1)
	c.Assert(err, qt.Equals, ErrBallotNotAvailable)

	s2, err := tables.Issue()
	c.Assert(err, qt.IsNil)
	row, err := tables.Audit(s2)
	c.Assert(err, qt.IsNil)
	c.Assert(row.Codes, qt.HasLen, 2)
	_, err = tables.Cast(s2, "alice")
	c.Assert(err, qt.Equals, ErrBallotNotAvailable)
}

func TestCastErrors(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)
	_, err := tables.Initialize(testCandidates, 1)
	c.Assert(err, qt.IsNil)

	_, err = tables.Cast(types.HexBytes{0xde, 0xad}, "alice")
	c.Assert(err, qt.Equals, ErrUnknownBallot)

	serial, err := tables.Issue()
	c.Assert(err, qt.IsNil)
	_, err = tables.Cast(serial, "nobody")
	c.Assert(err, qt.Equals, ErrInvalidCandidate)
}

func TestConcurrentIssueOnLastBallot(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)
	_, err := tables.Initialize(testCandidates, 1)
	c.Assert(err, qt.IsNil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = tables.Issue()
		}(i)
	}
	wg.Wait()

	// Exactly one succeeds, the other exhausts the pool.
	if errs[0] == nil {
		c.Assert(errs[1], qt.Equals, ErrPoolExhausted)
	} else {
		c.Assert(errs[0], qt.Equals, ErrPoolExhausted)
		c.Assert(errs[1], qt.IsNil)
	}
}

func TestBoundedWaitSurfacesBusy(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)
	_, err := tables.Initialize(testCandidates, 2)
	c.Assert(err, qt.IsNil)
	tables.acquireTimeout = 10 * time.Millisecond

	// Hold the exclusive section; waiters must give up instead of hanging.
	c.Assert(tables.acquire(), qt.IsNil)
	_, err = tables.Issue()
	c.Assert(err, qt.Equals, ErrBusy)
	_, err = tables.Cast(types.HexBytes{0x01}, "alice")
	c.Assert(err, qt.Equals, ErrBusy)
	_, err = tables.Tally()
	c.Assert(err, qt.Equals, ErrBusy)

	// Once released, the same calls proceed.
	tables.release()
	_, err = tables.Issue()
	c.Assert(err, qt.IsNil)
}

func TestTally(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)
	_, err := tables.Initialize(testCandidates, 4)
	c.Assert(err, qt.IsNil)

	for _, candidate := range []string{"alice", "alice", "bob"} {
		serial, err := tables.Issue()
		c.Assert(err, qt.IsNil)
		_, err = tables.Cast(serial, candidate)
		c.Assert(err, qt.IsNil)
	}
	// One audited ballot must not show up in the tally.
	serial, err := tables.Issue()
	c.Assert(err, qt.IsNil)
	_, err = tables.Audit(serial)
	c.Assert(err, qt.IsNil)

	tally, err := tables.Tally()
	c.Assert(err, qt.IsNil)
	c.Assert(tally, qt.DeepEquals, types.Tally{"alice": 2, "bob": 1})

	// Recomputing without intervening casts is idempotent.
	again, err := tables.Tally()
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.DeepEquals, tally)
}

func TestTallyIntegrityViolation(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)
	_, err := tables.Initialize(testCandidates, 1)
	c.Assert(err, qt.IsNil)

	serial, err := tables.Issue()
	c.Assert(err, qt.IsNil)
	_, err = tables.Cast(serial, "alice")
	c.Assert(err, qt.IsNil)

	// Forge a reveal that no cast produced.
	tables.reveals = append(tables.reveals, types.Reveal{
		Pseudonym: types.HexBytes{0x01},
		Code:      types.HexBytes{0x02},
	})
	_, err = tables.Tally()
	c.Assert(errors.Is(err, ErrTallyIntegrity), qt.IsTrue)
}

func TestSealedTablesAreReadOnly(t *testing.T) {
	c := qt.New(t)
	tables := newTestTables(t)
	_, err := tables.Initialize(testCandidates, 2)
	c.Assert(err, qt.IsNil)
	serial, err := tables.Issue()
	c.Assert(err, qt.IsNil)
	_, err = tables.Cast(serial, "alice")
	c.Assert(err, qt.IsNil)

	c.Assert(tables.Seal(), qt.IsNil)
	_, err = tables.Issue()
	c.Assert(err, qt.Equals, ErrSealed)
	_, err = tables.Cast(serial, "bob")
	c.Assert(err, qt.Equals, ErrSealed)

	// Tally still works on sealed tables.
	tally, err := tables.Tally()
	c.Assert(err, qt.IsNil)
	c.Assert(tally["alice"], qt.Equals, 1)
}

func TestStateRoundTrip(t *testing.T) {
	c := qt.New(t)
	d := metadb.NewTest(t)
	tables := New(d, qrng.New("mixnet-test"))
	root, err := tables.Initialize(testCandidates, 3)
	c.Assert(err, qt.IsNil)
	serial, err := tables.Issue()
	c.Assert(err, qt.IsNil)
	code, err := tables.Cast(serial, "bob")
	c.Assert(err, qt.IsNil)

	st, err := tables.State()
	c.Assert(err, qt.IsNil)

	restored := New(d, qrng.New("mixnet-test"))
	c.Assert(restored.Restore(st), qt.IsNil)
	c.Assert(restored.Root(), qt.DeepEquals, root)

	tally, err := restored.Tally()
	c.Assert(err, qt.IsNil)
	c.Assert(tally, qt.DeepEquals, types.Tally{"alice": 0, "bob": 1})

	ok, err := restored.CheckReveal(serial, "bob", code)
	c.Assert(err, qt.IsNil)
	c.Assert(ok, qt.IsTrue)
}
