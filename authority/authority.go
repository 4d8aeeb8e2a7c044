// Package authority implements the election authority: the single owner of
// the election lifecycle, the voter registry, the mixnet tables and the
// bulletin board. Callers never touch the tables directly; every mutation
// goes through an authority operation, which enforces the lifecycle phase,
// drives the voter's key chain and appends the action to the board.
package authority

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/quantegrity/quantegrity/bboard"
	"github.com/quantegrity/quantegrity/crypto/qrng"
	"github.com/quantegrity/quantegrity/crypto/sedjo"
	"github.com/quantegrity/quantegrity/keychain"
	"github.com/quantegrity/quantegrity/mixnet"
	"github.com/quantegrity/quantegrity/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
	"go.vocdoni.io/dvote/log"
)

var (
	// ErrInvalidLifecyclePhase means the operation is not allowed in the
	// election's current phase.
	ErrInvalidLifecyclePhase = errors.New("authority: operation not allowed in current lifecycle phase")
	// ErrUnknownVoter means no voter is registered under the given id.
	ErrUnknownVoter = errors.New("authority: unknown voter")
	// ErrDuplicateVoter means the registration data is already on file.
	ErrDuplicateVoter = errors.New("authority: voter already registered")
	// ErrBallotNotIssued means the serial was not issued to this voter.
	ErrBallotNotIssued = errors.New("authority: ballot not issued to voter")
)

var (
	boardPrefix  = []byte("bb/")
	tablesPrefix = []byte("mx/")
)

// voterRecord is the authority-side state of one voter.
type voterRecord struct {
	id     types.HexBytes
	info   types.VoterInfo
	status types.VoterStatus
	chain  *keychain.Chain
	serial types.HexBytes // currently issued ballot, nil if none
}

// Options configures a new Authority. DB is required; the oracle and the
// signing key default to a fresh simulator and a fresh secp256k1 key.
type Options struct {
	DB         db.Database
	Oracle     sedjo.Oracle
	SigningKey *ecdsa.PrivateKey
}

// Authority is the election aggregate. There is no hidden process-wide
// state: everything hangs off this handle.
type Authority struct {
	mu sync.Mutex

	phase       types.LifecyclePhase
	candidates  []types.Candidate
	ballotCount int

	voters      map[string]*voterRecord
	nationalIDs map[string]bool
	issuedBy    map[string]string // serial hex -> voter id hex

	rndVoters qrng.Source
	rndKeys   qrng.Source
	oracle    sedjo.Oracle

	tables *mixnet.Tables
	board  *bboard.Board
}

// New creates an authority in the Setup phase.
func New(opts Options) (*Authority, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("authority: missing database")
	}
	oracle := opts.Oracle
	if oracle == nil {
		oracle = sedjo.NewSimulator(qrng.New("sedjo"))
	}
	signKey := opts.SigningKey
	if signKey == nil {
		var err error
		if signKey, err = ethcrypto.GenerateKey(); err != nil {
			return nil, fmt.Errorf("generate board signing key: %w", err)
		}
	}
	board, err := bboard.New(prefixeddb.NewPrefixedDatabase(opts.DB, boardPrefix), signKey)
	if err != nil {
		return nil, fmt.Errorf("open bulletin board: %w", err)
	}
	return &Authority{
		phase:       types.PhaseSetup,
		voters:      make(map[string]*voterRecord),
		nationalIDs: make(map[string]bool),
		issuedBy:    make(map[string]string),
		rndVoters:   qrng.New("voters"),
		rndKeys:     qrng.New("keys"),
		oracle:      oracle,
		tables:      mixnet.New(prefixeddb.NewPrefixedDatabase(opts.DB, tablesPrefix), qrng.New("ballots")),
		board:       board,
	}, nil
}

// Setup creates the ballot pool and publishes the election parameters with
// the pool's commitment root. Only valid in the Setup phase, once.
func (a *Authority) Setup(candidates []types.Candidate, ballotCount int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseSetup || a.candidates != nil {
		return ErrInvalidLifecyclePhase
	}
	root, err := a.tables.Initialize(candidates, ballotCount)
	if err != nil {
		return err
	}
	a.candidates = candidates
	a.ballotCount = ballotCount
	if _, err := a.board.Append(types.KindSetup, &types.SetupPayload{
		Candidates:     candidates,
		BallotCount:    ballotCount,
		CommitmentRoot: root,
	}); err != nil {
		return fmt.Errorf("publish setup: %w", err)
	}
	log.Infow("election configured",
		"candidates", len(candidates), "ballots", ballotCount, "commitmentRoot", root.String())
	return nil
}

// OpenElection moves Setup -> Open. Requires a configured ballot pool.
func (a *Authority) OpenElection() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseSetup || a.candidates == nil {
		return ErrInvalidLifecyclePhase
	}
	a.phase = types.PhaseOpen
	log.Infow("election open")
	return nil
}

// CloseElection moves Open -> Closed and freezes issuance and casting.
func (a *Authority) CloseElection() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseOpen {
		return ErrInvalidLifecyclePhase
	}
	a.phase = types.PhaseClosed
	log.Infow("election closed")
	return nil
}

// SealElection computes the final tally, publishes it as the board's Seal
// entry and makes the tables and the board read-only. A tally integrity
// failure aborts the seal and leaves the election Closed.
func (a *Authority) SealElection() (types.Tally, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseClosed {
		return nil, ErrInvalidLifecyclePhase
	}
	tally, err := a.tables.Tally()
	if err != nil {
		log.Warnw("seal aborted", "error", err.Error())
		return nil, err
	}
	if _, err := a.board.Append(types.KindSeal, &types.SealPayload{Tally: tally}); err != nil {
		return nil, fmt.Errorf("publish seal: %w", err)
	}
	if err := a.tables.Seal(); err != nil {
		return nil, err
	}
	a.board.Seal()
	a.phase = types.PhaseSealed
	log.Infow("election sealed", "tally", fmt.Sprintf("%v", tally))
	return tally, nil
}

// Tally recomputes the current tally. Only valid once the election is
// Closed or Sealed.
func (a *Authority) Tally() (types.Tally, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.phase != types.PhaseClosed && a.phase != types.PhaseSealed {
		return nil, ErrInvalidLifecyclePhase
	}
	return a.tables.Tally()
}

// CommitmentRoot returns the commitment root of the ballot pool, as
// published in the board's setup entry.
func (a *Authority) CommitmentRoot() (types.HexBytes, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.candidates == nil {
		return nil, ErrInvalidLifecyclePhase
	}
	return a.tables.Root(), nil
}

// Phase returns the current lifecycle phase.
func (a *Authority) Phase() types.LifecyclePhase {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

// Candidates returns the candidate list fixed at setup.
func (a *Authority) Candidates() []types.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.candidates
}

// Board exposes the bulletin board for public, read-only verification.
func (a *Authority) Board() *bboard.Board {
	return a.board
}
