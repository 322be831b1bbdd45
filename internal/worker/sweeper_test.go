package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExpirer returns a scripted sequence of (count, err) results.
type stubExpirer struct {
	mu      sync.Mutex
	results []int
	errs    []error
	calls   int
}

func (s *stubExpirer) ReleaseExpired(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	n, err := 0, error(nil)
	if i < len(s.results) {
		n = s.results[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return n, err
}

func (s *stubExpirer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestSweeperAccumulatesStats(t *testing.T) {
	exp := &stubExpirer{results: []int{3, 0, 2}}
	s := NewSweeper(exp, 10*time.Millisecond)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return exp.callCount() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	stats := s.Stats()
	assert.GreaterOrEqual(t, stats.TotalExpired, 5)
	assert.False(t, stats.LastSweep.IsZero())
}

func TestSweeperSurvivesErrors(t *testing.T) {
	exp := &stubExpirer{errs: []error{errors.New("db down"), nil}}
	s := NewSweeper(exp, 10*time.Millisecond)

	s.Start(context.Background())
	require.Eventually(t, func() bool { return exp.callCount() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()

	// A failed sweep is logged and does not stop the loop.
	assert.GreaterOrEqual(t, exp.callCount(), 2)
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	exp := &stubExpirer{}
	s := NewSweeper(exp, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not exit on context cancel")
	}
}
