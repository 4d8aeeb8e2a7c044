package authority

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/quantegrity/quantegrity/keychain"
	"github.com/quantegrity/quantegrity/mixnet"
	"github.com/quantegrity/quantegrity/types"
)

// voterSnapshot is the serializable form of a voterRecord.
type voterSnapshot struct {
	ID     types.HexBytes    `cbor:"0,keyasint"`
	Info   types.VoterInfo   `cbor:"1,keyasint"`
	Status types.VoterStatus `cbor:"2,keyasint"`
	Chain  *keychain.State   `cbor:"3,keyasint"`
	Serial types.HexBytes    `cbor:"4,keyasint,omitempty"`
}

// snapshot is the full serializable authority state. The bulletin board is
// not part of it: it is already durable in the database and reattaches on
// New. Key chains inside carry secrets, so a snapshot must be stored with
// the same care as the database itself.
type snapshot struct {
	Phase       types.LifecyclePhase `cbor:"0,keyasint"`
	Candidates  []types.Candidate    `cbor:"1,keyasint,omitempty"`
	BallotCount int                  `cbor:"2,keyasint"`
	Voters      []voterSnapshot      `cbor:"3,keyasint,omitempty"`
	Tables      *mixnet.State        `cbor:"4,keyasint,omitempty"`
}

// Snapshot serializes the authority state with deterministic cbor.
func (a *Authority) Snapshot() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := &snapshot{
		Phase:       a.phase,
		Candidates:  a.candidates,
		BallotCount: a.ballotCount,
	}
	for _, record := range a.voters {
		snap.Voters = append(snap.Voters, voterSnapshot{
			ID:     record.id,
			Info:   record.info,
			Status: record.status,
			Chain:  record.chain.State(),
			Serial: record.serial,
		})
	}
	if a.candidates != nil {
		tables, err := a.tables.State()
		if err != nil {
			return nil, fmt.Errorf("snapshot tables: %w", err)
		}
		snap.Tables = tables
	}
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return em.Marshal(snap)
}

// Restore loads a snapshot into a freshly created authority. The secondary
// indexes (national ids, serial ownership) are rebuilt from the voter
// records rather than carried in the snapshot.
func (a *Authority) Restore(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseSetup || len(a.voters) > 0 || a.candidates != nil {
		return fmt.Errorf("%w: restore requires a fresh authority", ErrInvalidLifecyclePhase)
	}
	snap := &snapshot{}
	if err := cbor.Unmarshal(data, snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Tables != nil {
		if err := a.tables.Restore(snap.Tables); err != nil {
			return err
		}
	}
	for _, vs := range snap.Voters {
		record := &voterRecord{
			id:     vs.ID,
			info:   vs.Info,
			status: vs.Status,
			chain:  keychain.FromState(a.rndKeys, a.oracle, vs.Chain),
			serial: vs.Serial,
		}
		a.voters[vs.ID.String()] = record
		if vs.Info.NationalID != "" {
			a.nationalIDs[vs.Info.NationalID] = true
		}
		if vs.Serial != nil {
			a.issuedBy[vs.Serial.String()] = vs.ID.String()
		}
	}
	a.phase = snap.Phase
	a.candidates = snap.Candidates
	a.ballotCount = snap.BallotCount
	return nil
}
