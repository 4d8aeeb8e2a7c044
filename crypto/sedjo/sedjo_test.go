package sedjo

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/quantegrity/quantegrity/crypto/qrng"
)

func TestEqualInputsAgree(t *testing.T) {
	c := qt.New(t)
	s := NewSimulator(qrng.New("sedjo-test"))
	key := qrng.New("keys-test").Draw(16)

	outA, outB, err := s.Agree(key, key)
	c.Assert(err, qt.IsNil)
	c.Assert(outA, qt.DeepEquals, outB)
	c.Assert(outA, qt.HasLen, len(key))
	c.Assert(outA, qt.Not(qt.DeepEquals), key)
}

func TestFreshRandomnessPerExchange(t *testing.T) {
	c := qt.New(t)
	s := NewSimulator(qrng.New("sedjo-test"))
	key := qrng.New("keys-test").Draw(16)

	first, _, err := s.Agree(key, key)
	c.Assert(err, qt.IsNil)
	second, _, err := s.Agree(key, key)
	c.Assert(err, qt.IsNil)
	// Same input, two exchanges: the derived keys must differ.
	c.Assert(first, qt.Not(qt.DeepEquals), second)
}

func TestKeySizeMismatch(t *testing.T) {
	c := qt.New(t)
	s := NewSimulator(qrng.New("sedjo-test"))
	_, _, err := s.Agree(make([]byte, 16), make([]byte, 8))
	c.Assert(err, qt.Equals, ErrKeySizeMismatch)
}

func TestEavesdroppingAborts(t *testing.T) {
	c := qt.New(t)
	noisy := NewSimulator(qrng.New("sedjo-test")).WithNoise(1.0)
	key := make([]byte, 16)

	outA, outB, err := noisy.Agree(key, key)
	c.Assert(err, qt.Equals, ErrEavesdroppingDetected)
	c.Assert(outA, qt.IsNil)
	c.Assert(outB, qt.IsNil)
}

func TestLowNoisePasses(t *testing.T) {
	c := qt.New(t)
	s := NewSimulator(qrng.New("sedjo-test")).WithNoise(0.01)
	key := make([]byte, 16)
	// 1% flip probability stays well under the 11% abort threshold.
	for i := 0; i < 20; i++ {
		_, _, err := s.Agree(key, key)
		c.Assert(err, qt.IsNil)
	}
}
