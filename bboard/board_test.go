package bboard

import (
	"sync"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/db/metadb"

	"github.com/quantegrity/quantegrity/types"
)

func newTestBoard(t *testing.T) *Board {
	key, err := ethcrypto.GenerateKey()
	qt.Assert(t, err, qt.IsNil)
	board, err := New(metadb.NewTest(t), key)
	qt.Assert(t, err, qt.IsNil)
	return board
}

func TestAppendAndRead(t *testing.T) {
	c := qt.New(t)
	board := newTestBoard(t)

	entry, err := board.Append(types.KindCast, &types.CastPayload{
		Pseudonym: types.HexBytes{0x01, 0x02},
		Code:      types.HexBytes{0x03, 0x04},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(entry.Seq, qt.Equals, uint64(0))
	c.Assert(board.Verify(entry), qt.IsNil)

	got, err := board.Entry(0)
	c.Assert(err, qt.IsNil)
	c.Assert(got.Kind, qt.Equals, types.KindCast)
	c.Assert(board.Verify(got), qt.IsNil)

	payload := &types.CastPayload{}
	c.Assert(DecodePayload(got, payload), qt.IsNil)
	c.Assert(payload.Code, qt.DeepEquals, types.HexBytes{0x03, 0x04})

	_, err = board.Entry(42)
	c.Assert(err, qt.Equals, ErrNotFound)
}

func TestConcurrentAppendsAreGapFree(t *testing.T) {
	c := qt.New(t)
	board := newTestBoard(t)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := board.Append(types.KindKeyExchange, &types.KeyExchangePayload{Stage: "authKey"})
			c.Check(err, qt.IsNil)
		}()
	}
	wg.Wait()

	entries, err := board.List()
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, n)
	for i, entry := range entries {
		c.Assert(entry.Seq, qt.Equals, uint64(i))
	}
}

func TestSignatureTampering(t *testing.T) {
	c := qt.New(t)
	board := newTestBoard(t)

	entry, err := board.Append(types.KindAudit, &types.AuditPayload{Serial: types.HexBytes{0x09}})
	c.Assert(err, qt.IsNil)

	entry.Payload = append(entry.Payload, 0xff)
	c.Assert(board.Verify(entry), qt.Equals, ErrInvalidSignature)
}

func TestSealStopsAppends(t *testing.T) {
	c := qt.New(t)
	board := newTestBoard(t)

	_, err := board.Append(types.KindSeal, &types.SealPayload{Tally: types.Tally{"alice": 1}})
	c.Assert(err, qt.IsNil)
	board.Seal()

	_, err = board.Append(types.KindCast, &types.CastPayload{})
	c.Assert(err, qt.Equals, ErrSealed)

	// Reads still work on a sealed board.
	entries, err := board.List()
	c.Assert(err, qt.IsNil)
	c.Assert(entries, qt.HasLen, 1)
}

func TestReopenRecoversSequence(t *testing.T) {
	c := qt.New(t)
	key, err := ethcrypto.GenerateKey()
	c.Assert(err, qt.IsNil)
	d := metadb.NewTest(t)

	board, err := New(d, key)
	c.Assert(err, qt.IsNil)
	for i := 0; i < 3; i++ {
		_, err := board.Append(types.KindKeyExchange, &types.KeyExchangePayload{Stage: "voteKey"})
		c.Assert(err, qt.IsNil)
	}

	reopened, err := New(d, key)
	c.Assert(err, qt.IsNil)
	c.Assert(reopened.Len(), qt.Equals, uint64(3))

	entry, err := reopened.Append(types.KindKeyExchange, &types.KeyExchangePayload{Stage: "voteKey"})
	c.Assert(err, qt.IsNil)
	c.Assert(entry.Seq, qt.Equals, uint64(3))
}
