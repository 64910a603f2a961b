package service

import (
	"context"
	"fmt"
	"log"
	"time"
)

// StartExpirySweep starts deactivating expired links in bulk at the given interval
func (s *linkService) StartExpirySweep(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got: %s", interval)
	}

	s.sweepMutex.Lock()
	defer s.sweepMutex.Unlock()

	if s.sweepStop != nil {
		return nil // Already running
	}

	s.sweepStop = make(chan struct{})
	s.sweepDone = make(chan struct{})
	go s.sweepLoop(ctx, interval, s.sweepStop, s.sweepDone)
	return nil
}

// StopExpirySweep stops the sweep and waits for an in-flight pass to finish
func (s *linkService) StopExpirySweep() error {
	s.sweepMutex.Lock()
	defer s.sweepMutex.Unlock()

	if s.sweepStop == nil {
		return nil
	}

	close(s.sweepStop)
	<-s.sweepDone
	s.sweepStop = nil
	s.sweepDone = nil
	return nil
}

// sweepLoop runs the sweep until stopped
func (s *linkService) sweepLoop(ctx context.Context, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweepExpired(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// sweepExpired deactivates every link whose expiration date has passed
func (s *linkService) sweepExpired(ctx context.Context) int64 {
	count, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		log.Printf("[ERROR] Expiry sweep failed: %v", err)
		return 0
	}

	if count > 0 {
		s.metrics.LinksExpired(count)
		log.Printf("Expiry sweep deactivated %d links", count)
	}
	return count
}
