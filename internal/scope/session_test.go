package scope

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_NonceSingleUse(t *testing.T) {
	s := NewSession(60*time.Second, testNow)
	nonce := s.IssueNonce()

	require.NoError(t, s.ConsumeNonce(nonce, testNow))
	assert.ErrorIs(t, s.ConsumeNonce(nonce, testNow), ErrNonceReplayed)
	assert.Equal(t, 1, s.ConsumedCount())
}

func TestSession_DistinctNoncesIndependent(t *testing.T) {
	s := NewSession(60*time.Second, testNow)

	a := s.IssueNonce()
	b := s.IssueNonce()
	require.NotEqual(t, a, b)

	require.NoError(t, s.ConsumeNonce(a, testNow))
	require.NoError(t, s.ConsumeNonce(b, testNow))
	assert.Equal(t, 2, s.ConsumedCount())
}

func TestSession_ExpiredRejectsConsumption(t *testing.T) {
	s := NewSession(60*time.Second, testNow)
	nonce := s.IssueNonce()

	err := s.ConsumeNonce(nonce, testNow+61)
	assert.ErrorIs(t, err, ErrSessionNotActive)
	assert.Equal(t, 0, s.ConsumedCount(), "nothing consumed outside the window")
}

func TestSession_ConcurrentReplayExactlyOneWinner(t *testing.T) {
	s := NewSession(60*time.Second, testNow)
	nonce := s.IssueNonce()

	const goroutines = 64
	var wg sync.WaitGroup
	successes := make(chan struct{}, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ConsumeNonce(nonce, testNow); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 1, count, "check-and-insert must admit exactly one consumer")
}
