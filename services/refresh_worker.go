package services

import (
	"context"
	"log"
	"sync"
	"time"

	"millionMetersAPI/internal/esttime"
)

// RefreshWorker sweeps all users through badge reconciliation once per
// challenge day. The day boundary is the challenge's fixed UTC-5 clock, so
// real-time badges like the daily distance badge reset when the challenge
// day rolls over, not at server midnight.
type RefreshWorker struct {
	badges    *BadgeService
	interval  time.Duration
	lastSweep string

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewRefreshWorker(badges *BadgeService, interval time.Duration) *RefreshWorker {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &RefreshWorker{
		badges:   badges,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

func (w *RefreshWorker) Start() {
	w.wg.Add(1)
	go w.run()
	log.Printf("Badge refresh worker started (check interval %s)", w.interval)
}

func (w *RefreshWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
	log.Println("Badge refresh worker stopped")
}

func (w *RefreshWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Seed with the current day so a restart mid-day does not trigger an
	// immediate sweep.
	w.lastSweep = esttime.DateKey(time.Now())

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			today := esttime.DateKey(time.Now())
			if today == w.lastSweep {
				continue
			}
			w.lastSweep = today

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			processed, failed, err := w.badges.ReconcileAll(ctx)
			cancel()
			if err != nil {
				log.Printf("Daily badge sweep failed: %v", err)
				continue
			}
			log.Printf("Daily badge sweep for %s: %d users, %d failures", today, processed, failed)
		}
	}
}
