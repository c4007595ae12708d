package identity

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomShortID(t *testing.T) {
	g := NewRandom()

	for _, n := range []int{1, 6, 12, 32} {
		id := g.ShortID(n)
		require.Len(t, id, n)
		for _, r := range id {
			assert.Contains(t, alphabet, string(r))
		}
	}
}

func TestRandomIDsDoNotRepeatUnderConcurrency(t *testing.T) {
	g := NewRandom()

	const workers, perWorker = 8, 500
	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, workers*perWorker*2)
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				short, token := g.ShortID(12), g.Token()
				mu.Lock()
				seen[short] = struct{}{}
				seen[token] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker*2)
}

func TestSequence(t *testing.T) {
	s := NewSequence("t")

	assert.Equal(t, "000001", s.ShortID(6))
	assert.Equal(t, "000002", s.ShortID(6))
	assert.Equal(t, "t-token-3", s.Token())
	assert.Len(t, s.ShortID(12), 12)
}
