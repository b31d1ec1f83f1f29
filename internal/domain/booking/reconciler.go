package booking

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const reconcileBatchSize = 100

// Reconciler repairs quotes that produced a booking but were never moved to
// upcommingBookings. Conversions are transactional, so this only finds rows
// written before that was the case or edited by hand.
type Reconciler struct {
	repo     Repository
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewReconciler creates a new reconciliation worker
func NewReconciler(repo Repository, interval time.Duration) *Reconciler {
	if interval == 0 {
		interval = 10 * time.Minute
	}
	return &Reconciler{
		repo:     repo,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Reconciler) Start() {
	log.Info().Dur("interval", w.interval).Msg("Starting booking reconciler")
	go w.loop()
}

// Stop stops the worker and waits for an in-flight pass to finish
func (w *Reconciler) Stop() {
	log.Info().Msg("Stopping booking reconciler")
	close(w.stopCh)
	<-w.doneCh
}

func (w *Reconciler) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			w.RunOnce(context.Background())
		case <-w.stopCh:
			return
		}
	}
}

// RunOnce performs one repair pass and returns how many quotes were flipped
func (w *Reconciler) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ids, err := w.repo.UnflippedQuoteIDs(ctx, reconcileBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list unflipped quotes")
		return 0
	}

	repaired := 0
	for _, id := range ids {
		ok, err := w.repo.MarkQuoteBooked(ctx, id)
		if err != nil {
			log.Error().Err(err).Str("quote_id", id.String()).Msg("Failed to flip converted quote")
			continue
		}
		if ok {
			repaired++
			log.Warn().Str("quote_id", id.String()).Msg("Repaired quote left in yourQuotes after conversion")
		}
	}

	return repaired
}
