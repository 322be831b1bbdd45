package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

// Expirer releases expired pending reservations and reports how many
// were cancelled.  Implemented by the reservation service.
type Expirer interface {
	ReleaseExpired(ctx context.Context) (int, error)
}

// Sweeper periodically cancels pending reservations that outlived their
// payment window, returning their tickets to the event pool.  Each sweep
// is idempotent: a reservation that was paid or cancelled between being
// listed and being locked is skipped.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration

	mu           sync.Mutex
	totalExpired int
	lastSweep    time.Time
	lastCount    int

	stop chan struct{}
	done chan struct{}
}

// SweeperStats is a snapshot of the sweeper's counters.
type SweeperStats struct {
	TotalExpired int       `json:"total_expired"`
	LastSweep    time.Time `json:"last_sweep"`
	LastCount    int       `json:"last_count"`
}

// NewSweeper returns a Sweeper that runs ReleaseExpired every interval.
func NewSweeper(expirer Expirer, interval time.Duration) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.  The loop runs
// until Stop is called or the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Printf("sweeper: started (interval %s)", s.interval)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for the in-flight sweep to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

// Stats returns a copy of the sweeper's counters.
func (s *Sweeper) Stats() SweeperStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SweeperStats{
		TotalExpired: s.totalExpired,
		LastSweep:    s.lastSweep,
		LastCount:    s.lastCount,
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.expirer.ReleaseExpired(ctx)
	if err != nil {
		log.Printf("sweeper: sweep failed: %v", err)
	}
	s.mu.Lock()
	s.totalExpired += n
	s.lastSweep = time.Now().UTC()
	s.lastCount = n
	s.mu.Unlock()
	if n > 0 {
		log.Printf("sweeper: released %d expired reservation(s)", n)
	}
}
