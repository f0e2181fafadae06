// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostkit

import (
	"sync"
	"time"

	"github.com/Sophic-Technical-Solutions/kismet/bridge"
)

// TickerTimerService runs scheduled callbacks on per-timer
// time.Ticker goroutines. Construct with NewTickerTimerService and
// Close it after every endpoint using it has been closed.
type TickerTimerService struct {
	mu         sync.Mutex
	nextHandle bridge.TimerHandle
	stops      map[bridge.TimerHandle]chan struct{}
	wg         sync.WaitGroup
}

// NewTickerTimerService returns a ready-to-use timer service.
func NewTickerTimerService() *TickerTimerService {
	return &TickerTimerService{stops: make(map[bridge.TimerHandle]chan struct{})}
}

// Schedule implements bridge.TimerService: fn runs every interval on
// its own goroutine until it returns false or Cancel is called with
// the returned handle.
func (s *TickerTimerService) Schedule(interval time.Duration, fn func() bool) bridge.TimerHandle {
	s.mu.Lock()
	s.nextHandle++
	handle := s.nextHandle
	stop := make(chan struct{})
	s.stops[handle] = stop
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !fn() {
					s.drop(handle)
					return
				}
			}
		}
	}()

	return handle
}

// Cancel implements bridge.TimerService. Cancelling an unknown or
// already-finished handle is a no-op.
func (s *TickerTimerService) Cancel(handle bridge.TimerHandle) {
	s.mu.Lock()
	stop, ok := s.stops[handle]
	if ok {
		delete(s.stops, handle)
	}
	s.mu.Unlock()
	if ok {
		close(stop)
	}
}

// drop removes a self-cancelled timer's bookkeeping.
func (s *TickerTimerService) drop(handle bridge.TimerHandle) {
	s.mu.Lock()
	delete(s.stops, handle)
	s.mu.Unlock()
}

// Close cancels every outstanding timer and waits for their goroutines
// to finish.
func (s *TickerTimerService) Close() {
	s.mu.Lock()
	stops := s.stops
	s.stops = make(map[bridge.TimerHandle]chan struct{})
	s.mu.Unlock()
	for _, stop := range stops {
		close(stop)
	}
	s.wg.Wait()
}
