// Package qrng provides the random source backing every key, serial and
// confirmation code in the system. The contract is the one of a quantum
// random number generator: fixed-length unbiased output, not reproducible
// from prior outputs, no observable correlation between calls.
//
// The provided implementation is a CSPRNG seeded once from the operating
// system entropy pool. Distinct logical purposes (ballots, voter ids, keys)
// must use distinct domains so that draws for one purpose can never
// correlate with draws for another.
package qrng

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"sync"
)

// Source produces unbiased random byte strings. Implementations are safe
// for concurrent use and never fail: entropy exhaustion is not an
// observable condition.
type Source interface {
	// Draw returns n fresh random bytes.
	Draw(n int) []byte
}

// New returns a Source for the given domain. Two sources with different
// domains produce independent streams even within the same process.
func New(domain string) Source {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		panic(err)
	}
	key := sha256.Sum256(append([]byte("qrng/"+domain+"/"), seed...))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		panic(err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		panic(err)
	}
	return &ctrSource{stream: cipher.NewCTR(block, iv)}
}

type ctrSource struct {
	mu     sync.Mutex
	stream cipher.Stream
}

func (s *ctrSource) Draw(n int) []byte {
	b := make([]byte, n)
	s.mu.Lock()
	s.stream.XORKeyStream(b, b)
	s.mu.Unlock()
	return b
}
