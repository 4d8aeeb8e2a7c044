// Package sedjo implements the symmetric key-agreement oracle (SEDJO) used
// for every key derivation step of the voting protocol. The oracle takes two
// equal-length keys and derives two outputs that coincide whenever the
// inputs coincide, through a one-way mix of the input with randomness
// internal to the oracle. An observer without that randomness cannot predict
// the output from the input.
//
// Tampering with the exchange shows up as an elevated error rate on a
// sacrificial sample of bits. If the rate crosses the abort threshold the
// call fails with ErrEavesdroppingDetected and no key is released.
//
// Oracle is an interface so that a hardware QKD backend can replace the
// classical simulator without touching the key chain.
package sedjo

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"github.com/quantegrity/quantegrity/crypto/qrng"
)

var (
	// ErrEavesdroppingDetected means the simulated channel error rate
	// crossed the abort threshold. The key material of this exchange is
	// discarded; the caller must restart from its previous key.
	ErrEavesdroppingDetected = errors.New("sedjo: channel error rate above threshold, exchange aborted")
	// ErrKeySizeMismatch means the two input keys differ in length.
	ErrKeySizeMismatch = errors.New("sedjo: input keys must have equal length")
)

// Oracle is the two-party key agreement primitive.
type Oracle interface {
	// Agree derives one output key per party. When keyA equals keyB the
	// two outputs are equal as well.
	Agree(keyA, keyB []byte) (outA, outB []byte, err error)
}

const (
	// DefaultThreshold is the abort threshold for the observed error
	// rate, the usual 11% QBER bound.
	DefaultThreshold = 0.11
	// sampleBits is the number of sacrificial bits compared to estimate
	// the channel error rate.
	sampleBits = 64
)

// Simulator is a classical stand-in for the quantum exchange. Noise is the
// per-bit flip probability of the simulated channel; it is zero on a clean
// channel and raised by tests (or a simulated eavesdropper) to trip the
// threshold check.
type Simulator struct {
	rnd       qrng.Source
	noise     float64
	threshold float64
}

// NewSimulator returns a Simulator on a noiseless channel with the default
// abort threshold.
func NewSimulator(rnd qrng.Source) *Simulator {
	return &Simulator{rnd: rnd, threshold: DefaultThreshold}
}

// WithNoise returns a copy of the simulator with the given per-bit flip
// probability, in [0,1].
func (s *Simulator) WithNoise(noise float64) *Simulator {
	return &Simulator{rnd: s.rnd, noise: noise, threshold: s.threshold}
}

func (s *Simulator) Agree(keyA, keyB []byte) ([]byte, []byte, error) {
	if len(keyA) != len(keyB) {
		return nil, nil, ErrKeySizeMismatch
	}
	if rate := s.sampleErrorRate(); rate > s.threshold {
		return nil, nil, ErrEavesdroppingDetected
	}
	// Fresh randomness per exchange: two calls with the same input never
	// produce the same output, and the output is unpredictable without r.
	r := s.rnd.Draw(len(keyA))
	return mix(keyA, r), mix(keyB, r), nil
}

// sampleErrorRate flips each of the sacrificial bits with probability
// s.noise and returns the observed flip rate.
func (s *Simulator) sampleErrorRate() float64 {
	if s.noise <= 0 {
		return 0
	}
	cut := uint64(s.noise * (1 << 32))
	flips := 0
	sample := s.rnd.Draw(4 * sampleBits)
	for i := 0; i < sampleBits; i++ {
		v := uint64(binary.BigEndian.Uint32(sample[4*i:]))
		if v < cut {
			flips++
		}
	}
	return float64(flips) / sampleBits
}

// mix derives an output key of len(key) bytes from the input key and the
// exchange randomness, via a one-way sha256 expansion.
func mix(key, r []byte) []byte {
	out := make([]byte, 0, len(key))
	var counter [4]byte
	for block := uint32(0); len(out) < len(key); block++ {
		binary.BigEndian.PutUint32(counter[:], block)
		h := sha256.New()
		h.Write([]byte("sedjo/v1"))
		h.Write(counter[:])
		h.Write(key)
		h.Write(r)
		out = append(out, h.Sum(nil)...)
	}
	return out[:len(key)]
}
