package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator synthesizes identifiers for catalog entities.
type Generator interface {
	// ShortID returns an opaque alphanumeric id of n characters (option, value, variant ids and SKUs).
	ShortID(n int) string
	// Token returns a globally unique token (docId, transactionId, userRequestId).
	Token() string
}

type randomGenerator struct{}

// NewRandom returns a Generator backed by crypto/rand and UUIDv4. Safe for concurrent use.
func NewRandom() Generator {
	return randomGenerator{}
}

var alphabetLen = big.NewInt(int64(len(alphabet)))

func (randomGenerator) ShortID(n int) string {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			panic(fmt.Sprintf("identity: crypto/rand failed: %v", err))
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}

func (randomGenerator) Token() string {
	return uuid.New().String()
}

// Sequence is a deterministic Generator for tests: ids are a prefix plus a counter,
// padded or truncated to the requested length.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

func (s *Sequence) ShortID(n int) string {
	id := fmt.Sprintf("%s%0*d", s.prefix, n, s.next())
	return id[len(id)-n:]
}

func (s *Sequence) Token() string {
	return fmt.Sprintf("%s-token-%d", s.prefix, s.next())
}
