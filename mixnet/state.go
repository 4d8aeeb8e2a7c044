package mixnet

import (
	"fmt"

	"github.com/quantegrity/quantegrity/types"
)

// BallotRecord is the serializable form of one pool entry.
type BallotRecord struct {
	Row       types.BallotRow   `cbor:"0,keyasint"`
	State     types.BallotState `cbor:"1,keyasint"`
	Issued    bool              `cbor:"2,keyasint"`
	Pseudonym types.HexBytes    `cbor:"3,keyasint,omitempty"`
}

// State is the serializable form of the tables, used by the authority's
// snapshot hooks. The commitment tree is not part of it: it lives in the
// database and is reattached on restore.
type State struct {
	Candidates []types.Candidate `cbor:"0,keyasint"`
	Pool       []BallotRecord    `cbor:"1,keyasint"`
	Reveals    []types.Reveal    `cbor:"2,keyasint"`
	CastCount  int               `cbor:"3,keyasint"`
	Sealed     bool              `cbor:"4,keyasint"`
}

// State exports the tables for a snapshot.
func (t *Tables) State() (*State, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.release()

	st := &State{
		Candidates: t.candidates,
		Pool:       make([]BallotRecord, len(t.pool)),
		Reveals:    append([]types.Reveal{}, t.reveals...),
		CastCount:  t.castCount,
		Sealed:     t.sealed,
	}
	for i, b := range t.pool {
		st.Pool[i] = BallotRecord{Row: b.row, State: b.state, Issued: b.issued, Pseudonym: b.pseudonym}
	}
	return st, nil
}

// Restore rebuilds the tables from a snapshot, including the commitment
// tree over the restored pool.
func (t *Tables) Restore(st *State) error {
	if err := t.acquire(); err != nil {
		return err
	}
	defer t.release()

	if len(t.pool) > 0 {
		return fmt.Errorf("%w: cannot restore over initialized tables", ErrInvalidConfiguration)
	}
	pool := make([]*ballot, len(st.Pool))
	bySerial := make(map[string]*ballot, len(st.Pool))
	byPseudo := make(map[string]string)
	for i, rec := range st.Pool {
		b := &ballot{row: rec.Row, state: rec.State, issued: rec.Issued, pseudonym: rec.Pseudonym}
		pool[i] = b
		bySerial[b.row.Serial.String()] = b
		if b.pseudonym != nil {
			byPseudo[b.pseudonym.String()] = b.row.Serial.String()
		}
	}
	commitment, err := newCommitmentTree(t.db, pool)
	if err != nil {
		return fmt.Errorf("rebuild commitment tree: %w", err)
	}
	t.candidates = st.Candidates
	t.pool = pool
	t.bySerial = bySerial
	t.byPseudo = byPseudo
	t.reveals = append([]types.Reveal{}, st.Reveals...)
	t.castCount = st.CastCount
	t.sealed = st.Sealed
	t.commitment = commitment
	return nil
}
