// Package mixnet implements the anonymization tables of the election:
//
//   - P: ballot serial -> ordered (candidate, confirmation code) pairs, the
//     secret ground truth, populated in bulk at setup.
//   - Q: ballot serial -> anonymous pseudonym, minted once per ballot and
//     breaking the link between voter identity and serial.
//   - R: pseudonym -> revealed confirmation codes, the public flagging layer.
//   - S: candidate -> count, always recomputed from R joined back through P,
//     never stored, so it cannot drift.
//
// A merkle tree of code commitments is built at initialization; its root is
// published so revealed codes can be checked against the pre-committed pool.
package mixnet

import (
	"errors"
	"fmt"
	"time"

	"github.com/quantegrity/quantegrity/crypto/qrng"
	"github.com/quantegrity/quantegrity/types"
	"go.vocdoni.io/dvote/db"
)

var (
	// ErrInvalidConfiguration means the setup parameters are unusable:
	// empty or duplicated candidates, a non-positive pool size, or a
	// confirmation code collision inside the generated pool.
	ErrInvalidConfiguration = errors.New("mixnet: invalid configuration")
	// ErrPoolExhausted means no unissued ballot remains.
	ErrPoolExhausted = errors.New("mixnet: ballot pool exhausted")
	// ErrUnknownBallot means the serial does not exist in table P.
	ErrUnknownBallot = errors.New("mixnet: unknown ballot serial")
	// ErrInvalidCandidate means the candidate is not on the ballot.
	ErrInvalidCandidate = errors.New("mixnet: invalid candidate")
	// ErrBallotNotAvailable means the ballot was already cast or audited.
	ErrBallotNotAvailable = errors.New("mixnet: ballot not available")
	// ErrTallyIntegrity means the reveal log and the ballot states
	// disagree. It is fatal: sealing must halt and an operator look.
	ErrTallyIntegrity = errors.New("mixnet: tally integrity violation")
	// ErrBusy means exclusive access to the tables could not be acquired
	// within the bounded wait. The operation may be retried.
	ErrBusy = errors.New("mixnet: tables busy, retry")
	// ErrSealed means the tables are read-only.
	ErrSealed = errors.New("mixnet: tables are sealed")
	// ErrNotInitialized means Initialize has not run yet.
	ErrNotInitialized = errors.New("mixnet: tables not initialized")
)

// DefaultAcquireTimeout bounds the wait for exclusive table access before an
// operation gives up with ErrBusy.
const DefaultAcquireTimeout = 5 * time.Second

// ballot is one pool entry: its P row plus issuance and flagging state.
type ballot struct {
	row       types.BallotRow
	state     types.BallotState
	issued    bool
	pseudonym types.HexBytes
}

// Tables owns P, Q and R. All exported operations take the exclusive
// section, so concurrent callers are safe; waiters time out with ErrBusy
// rather than blocking forever.
type Tables struct {
	sem            chan struct{}
	acquireTimeout time.Duration

	rnd        qrng.Source
	db         db.Database
	candidates []types.Candidate

	pool       []*ballot          // P, in pool order (issuance is first-available)
	bySerial   map[string]*ballot // serial hex -> ballot
	byPseudo   map[string]string  // pseudonym hex -> serial hex (the Q inverse)
	reveals    []types.Reveal     // R, in reveal order
	castCount  int
	sealed     bool
	commitment *commitmentTree
}

// New returns empty tables. The database backs the code commitment tree.
func New(d db.Database, rnd qrng.Source) *Tables {
	sem := make(chan struct{}, 1)
	sem <- struct{}{}
	return &Tables{
		sem:            sem,
		acquireTimeout: DefaultAcquireTimeout,
		rnd:            rnd,
		db:             d,
		bySerial:       make(map[string]*ballot),
		byPseudo:       make(map[string]string),
	}
}

func (t *Tables) acquire() error {
	select {
	case <-t.sem:
		return nil
	case <-time.After(t.acquireTimeout):
		return ErrBusy
	}
}

func (t *Tables) release() {
	t.sem <- struct{}{}
}

// Initialize builds the ballot pool: ballotCount ballots, each with a unique
// serial and one unique confirmation code per candidate. Any collision
// across the whole pool is rejected, so a revealed code always identifies
// exactly one (ballot, candidate) pair. Returns the commitment tree root.
func (t *Tables) Initialize(candidates []types.Candidate, ballotCount int) (types.HexBytes, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	if len(t.pool) > 0 {
		return nil, fmt.Errorf("%w: already initialized", ErrInvalidConfiguration)
	}
	if ballotCount < 1 {
		return nil, fmt.Errorf("%w: ballot count %d", ErrInvalidConfiguration, ballotCount)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates", ErrInvalidConfiguration)
	}
	seenCandidates := make(map[string]bool, len(candidates))
	for _, cand := range candidates {
		if cand.ID == "" || seenCandidates[cand.ID] {
			return nil, fmt.Errorf("%w: duplicate or empty candidate %q", ErrInvalidConfiguration, cand.ID)
		}
		seenCandidates[cand.ID] = true
	}

	serials := make(map[string]bool, ballotCount)
	codes := make(map[string]bool, ballotCount*len(candidates))
	pool := make([]*ballot, 0, ballotCount)
	for i := 0; i < ballotCount; i++ {
		serial := types.HexBytes(t.rnd.Draw(types.SerialBytes))
		if serials[serial.String()] {
			return nil, fmt.Errorf("%w: serial collision", ErrInvalidConfiguration)
		}
		serials[serial.String()] = true

		row := types.BallotRow{Serial: serial, Codes: make([]types.CandidateCode, 0, len(candidates))}
		for _, cand := range candidates {
			code := types.HexBytes(t.rnd.Draw(types.CodeBytes))
			if codes[code.String()] {
				return nil, fmt.Errorf("%w: confirmation code collision", ErrInvalidConfiguration)
			}
			codes[code.String()] = true
			row.Codes = append(row.Codes, types.CandidateCode{Candidate: cand.ID, Code: code})
		}
		pool = append(pool, &ballot{row: row})
	}

	commitment, err := newCommitmentTree(t.db, pool)
	if err != nil {
		return nil, fmt.Errorf("build commitment tree: %w", err)
	}

	t.candidates = candidates
	t.pool = pool
	for _, b := range pool {
		t.bySerial[b.row.Serial.String()] = b
	}
	t.commitment = commitment
	return commitment.root, nil
}

// Issue reserves and returns the serial of the first available unissued
// ballot. Issuance is deterministic by pool order, which keeps it auditable,
// and the reservation is atomic: no two calls can obtain the same serial.
func (t *Tables) Issue() (types.HexBytes, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	if t.sealed {
		return nil, ErrSealed
	}
	if len(t.pool) == 0 {
		return nil, ErrNotInitialized
	}
	for _, b := range t.pool {
		if !b.issued && b.state == types.BallotUnused {
			b.issued = true
			t.mintPseudonym(b)
			return b.row.Serial, nil
		}
	}
	return nil, ErrPoolExhausted
}

// mintPseudonym assigns the ballot its anonymous pseudonym. Exactly one
// pseudonym per serial, ever. Caller holds the exclusive section.
func (t *Tables) mintPseudonym(b *ballot) {
	if b.pseudonym != nil {
		return
	}
	b.pseudonym = t.rnd.Draw(types.PseudonymBytes)
	t.byPseudo[b.pseudonym.String()] = b.row.Serial.String()
}

// Cast flags the confirmation code of the chosen candidate under the
// ballot's pseudonym and returns it. The ballot moves to Cast, terminally.
func (t *Tables) Cast(serial types.HexBytes, candidateID string) (types.HexBytes, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	if t.sealed {
		return nil, ErrSealed
	}
	b, ok := t.bySerial[serial.String()]
	if !ok {
		return nil, ErrUnknownBallot
	}
	if b.state != types.BallotUnused {
		return nil, ErrBallotNotAvailable
	}
	code := b.row.Code(candidateID)
	if code == nil {
		return nil, ErrInvalidCandidate
	}
	t.mintPseudonym(b)
	b.state = types.BallotCast
	t.castCount++
	t.reveals = append(t.reveals, types.Reveal{
		Pseudonym:  b.pseudonym,
		Code:       code,
		RevealedAt: time.Now().UTC(),
	})
	return code, nil
}

// Audit reveals the full P row of an unused ballot and removes it from the
// issuable pool for good. An audited ballot can never be cast.
func (t *Tables) Audit(serial types.HexBytes) (types.BallotRow, error) {
	if err := t.acquire(); err != nil {
		return types.BallotRow{}, err
	}
	defer t.release()

	if t.sealed {
		return types.BallotRow{}, ErrSealed
	}
	b, ok := t.bySerial[serial.String()]
	if !ok {
		return types.BallotRow{}, ErrUnknownBallot
	}
	if b.state != types.BallotUnused {
		return types.BallotRow{}, ErrBallotNotAvailable
	}
	b.state = types.BallotAudited
	return b.row, nil
}

// Pseudonym returns the pseudonym assigned to an issued serial, or nil.
func (t *Tables) Pseudonym(serial types.HexBytes) types.HexBytes {
	if err := t.acquire(); err != nil {
		return nil
	}
	defer t.release()
	if b, ok := t.bySerial[serial.String()]; ok {
		return b.pseudonym
	}
	return nil
}

// Reveals returns a copy of table R.
func (t *Tables) Reveals() ([]types.Reveal, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()
	out := make([]types.Reveal, len(t.reveals))
	copy(out, t.reveals)
	return out, nil
}

// Root returns the commitment tree root, or nil before initialization.
func (t *Tables) Root() types.HexBytes {
	if t.commitment == nil {
		return nil
	}
	return t.commitment.root
}

// Seal makes the tables read-only. Tally remains callable.
func (t *Tables) Seal() error {
	if err := t.acquire(); err != nil {
		return err
	}
	defer t.release()
	t.sealed = true
	return nil
}
