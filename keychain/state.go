package keychain

import (
	"crypto/sha256"

	"github.com/quantegrity/quantegrity/crypto/qrng"
	"github.com/quantegrity/quantegrity/crypto/sedjo"
	"github.com/quantegrity/quantegrity/types"
)

// State is the serializable form of a chain, used by the authority's
// snapshot hooks. It carries key material and must be treated as secret.
type State struct {
	Stage      Stage          `cbor:"0,keyasint"`
	QK1        types.HexBytes `cbor:"1,keyasint,omitempty"`
	QK2        types.HexBytes `cbor:"2,keyasint,omitempty"`
	EncQK1     types.HexBytes `cbor:"3,keyasint,omitempty"`
	PendingOTP types.HexBytes `cbor:"4,keyasint,omitempty"`
	AuthKey    types.HexBytes `cbor:"5,keyasint,omitempty"`
	VoteKey    types.HexBytes `cbor:"6,keyasint,omitempty"`
}

// State exports the chain for a snapshot.
func (ch *Chain) State() *State {
	return &State{
		Stage:      ch.stage,
		QK1:        ch.qk1,
		QK2:        ch.qk2,
		EncQK1:     ch.encQK1,
		PendingOTP: ch.pendingOTP,
		AuthKey:    ch.authKey,
		VoteKey:    ch.voteKey,
	}
}

// FromState rebuilds a chain from a snapshot.
func FromState(rnd qrng.Source, oracle sedjo.Oracle, st *State) *Chain {
	return &Chain{
		rnd:        rnd,
		oracle:     oracle,
		stage:      st.Stage,
		qk1:        st.QK1,
		qk2:        st.QK2,
		encQK1:     st.EncQK1,
		pendingOTP: st.PendingOTP,
		authKey:    st.AuthKey,
		voteKey:    st.VoteKey,
	}
}

// fingerprint is the first 8 bytes of sha256(key), safe to publish.
func fingerprint(key []byte) types.HexBytes {
	if key == nil {
		return nil
	}
	h := sha256.Sum256(key)
	return h[:8]
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
