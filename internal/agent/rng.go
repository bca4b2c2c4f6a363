package agent

import (
	"math/rand"
	"sync"
)

// NewLockedRand returns a rand.Rand that may be shared across
// goroutines. An agent draws randomness from the debate loop, the
// autonomy poller, and API requests at the same time, and a plain
// rand.Rand is single-goroutine only. The returned Rand's Read method
// is not synchronized.
func NewLockedRand(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})
}

type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}
