// Package bboard implements the append-only public bulletin board. Every
// state-changing protocol action lands here as an immutable entry with a
// strictly increasing, gap-free sequence number and a signature by the
// election authority key, so external tooling can verify the log without
// trusting the transport.
package bboard

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/fxamacker/cbor/v2"
	"github.com/quantegrity/quantegrity/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	// ErrNotFound means no entry exists with the given sequence number.
	ErrNotFound = errors.New("bboard: entry not found")
	// ErrSealed means the board is read-only.
	ErrSealed = errors.New("bboard: board is sealed")
	// ErrInvalidSignature means an entry signature does not verify
	// against the board key.
	ErrInvalidSignature = errors.New("bboard: invalid entry signature")
)

var entryPrefix = []byte("e/")

// Board is the append-only log. Appends are serialized to keep sequence
// numbers gap-free; reads are side-effect free and safe for any number of
// concurrent callers.
type Board struct {
	mu     sync.Mutex
	db     db.Database
	key    *ecdsa.PrivateKey
	pubKey []byte
	next   uint64
	sealed bool
}

// New opens the board over the given database, recovering the next sequence
// number from any entries already stored. The key signs every new entry.
func New(d db.Database, key *ecdsa.PrivateKey) (*Board, error) {
	b := &Board{
		db:     d,
		key:    key,
		pubKey: ethcrypto.CompressPubkey(&key.PublicKey),
	}
	rd := prefixeddb.NewPrefixedReader(d, entryPrefix)
	count := uint64(0)
	var maxSeq uint64
	if err := rd.Iterate(nil, func(k, _ []byte) bool {
		seq := binary.BigEndian.Uint64(k)
		if seq >= maxSeq {
			maxSeq = seq
		}
		count++
		return true
	}); err != nil {
		return nil, fmt.Errorf("scan board entries: %w", err)
	}
	if count > 0 {
		if count != maxSeq+1 {
			return nil, fmt.Errorf("board has %d entries but max sequence %d: gap in the log", count, maxSeq)
		}
		b.next = maxSeq + 1
	}
	return b, nil
}

// Append encodes the payload, signs the entry and stores it under the next
// sequence number. It fails only on a sealed board or on storage errors,
// which callers treat as fatal.
func (b *Board) Append(kind types.EntryKind, payload any) (*types.BulletinEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sealed {
		return nil, ErrSealed
	}
	data, err := encodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	entry := &types.BulletinEntry{
		Seq:       b.next,
		Kind:      kind,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}
	sig, err := ethcrypto.Sign(entryDigest(entry), b.key)
	if err != nil {
		return nil, fmt.Errorf("sign entry: %w", err)
	}
	entry.Signature = sig

	raw, err := cbor.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(b.db.WriteTx(), entryPrefix)
	if err := wTx.Set(seqKey(entry.Seq), raw); err != nil {
		wTx.Discard()
		return nil, err
	}
	if err := wTx.Commit(); err != nil {
		return nil, err
	}
	b.next++
	return entry, nil
}

// Entry returns the entry with the given sequence number.
func (b *Board) Entry(seq uint64) (*types.BulletinEntry, error) {
	rd := prefixeddb.NewPrefixedReader(b.db, entryPrefix)
	raw, err := rd.Get(seqKey(seq))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entry := &types.BulletinEntry{}
	if err := cbor.Unmarshal(raw, entry); err != nil {
		return nil, fmt.Errorf("decode entry %d: %w", seq, err)
	}
	return entry, nil
}

// List returns every entry in sequence order.
func (b *Board) List() ([]*types.BulletinEntry, error) {
	b.mu.Lock()
	count := b.next
	b.mu.Unlock()

	entries := make([]*types.BulletinEntry, 0, count)
	for seq := uint64(0); seq < count; seq++ {
		entry, err := b.Entry(seq)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Len returns the number of entries appended so far.
func (b *Board) Len() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

// Verify checks the entry signature against the board key.
func (b *Board) Verify(entry *types.BulletinEntry) error {
	if len(entry.Signature) < 64 {
		return ErrInvalidSignature
	}
	if !ethcrypto.VerifySignature(b.pubKey, entryDigest(entry), entry.Signature[:64]) {
		return ErrInvalidSignature
	}
	return nil
}

// PublicKey returns the compressed public key verifying entry signatures.
func (b *Board) PublicKey() types.HexBytes {
	return b.pubKey
}

// Seal makes the board read-only. Existing entries stay readable.
func (b *Board) Seal() {
	b.mu.Lock()
	b.sealed = true
	b.mu.Unlock()
}

// DecodePayload decodes an entry payload into out.
func DecodePayload(entry *types.BulletinEntry, out any) error {
	return cbor.Unmarshal(entry.Payload, out)
}

func encodePayload(payload any) ([]byte, error) {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(payload)
}

// entryDigest is the keccak hash signed for each entry: sequence, kind,
// payload and timestamp.
func entryDigest(e *types.BulletinEntry) []byte {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], e.Seq)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(e.Timestamp.UnixNano()))
	return ethcrypto.Keccak256(seq[:], []byte{byte(e.Kind)}, e.Payload, ts[:])
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}
