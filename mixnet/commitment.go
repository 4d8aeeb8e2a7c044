package mixnet

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/quantegrity/quantegrity/types"
	"github.com/vocdoni/arbo"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	// commitmentMaxLevels bounds the commitment tree depth; keys are
	// truncated keccak hashes of commitmentMaxLevels/8 bytes.
	commitmentMaxLevels = 160
	commitmentKeyLen    = commitmentMaxLevels / 8
)

var commitmentPrefix = []byte("ct/")

// commitmentTree is a merkle tree with one leaf per (serial, candidate)
// pair, committing to the confirmation code before the election opens. The
// root is published on the bulletin board at setup, so that codes revealed
// by casting or auditing can be checked against the pre-committed pool.
type commitmentTree struct {
	tree *arbo.Tree
	root types.HexBytes
}

// newCommitmentTree builds the tree over the whole pool. Leaf key is
// keccak(serial || candidate) truncated; leaf value is keccak(code), so the
// tree reveals nothing about the codes themselves.
func newCommitmentTree(d db.Database, pool []*ballot) (*commitmentTree, error) {
	tree, err := arbo.NewTree(arbo.Config{
		Database:     prefixeddb.NewPrefixedDatabase(d, commitmentPrefix),
		MaxLevels:    commitmentMaxLevels,
		HashFunction: arbo.HashFunctionSha256,
	})
	if err != nil {
		return nil, err
	}
	for _, b := range pool {
		for _, cc := range b.row.Codes {
			key := commitmentLeafKey(b.row.Serial, cc.Candidate)
			// Skip leaves that survived in the database, so a restore
			// over the original tree is a no-op.
			if _, _, err := tree.Get(key); err == nil {
				continue
			}
			if err := tree.Add(key, ethcrypto.Keccak256(cc.Code)); err != nil {
				return nil, err
			}
		}
	}
	root, err := tree.Root()
	if err != nil {
		return nil, err
	}
	return &commitmentTree{tree: tree, root: root}, nil
}

// CheckReveal verifies that a revealed code matches the commitment made at
// setup for the given (serial, candidate) pair.
func (t *Tables) CheckReveal(serial types.HexBytes, candidateID string, code types.HexBytes) (bool, error) {
	if t.commitment == nil {
		return false, ErrNotInitialized
	}
	key := commitmentLeafKey(serial, candidateID)
	_, value, err := t.commitment.tree.Get(key)
	if err != nil {
		return false, err
	}
	return types.HexBytes(value).Equal(ethcrypto.Keccak256(code)), nil
}

func commitmentLeafKey(serial types.HexBytes, candidateID string) []byte {
	h := ethcrypto.Keccak256(serial, []byte(candidateID))
	return h[:commitmentKeyLen]
}
