package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"relay-server/services/response-orchestrator/internal/domain/conversation"
	"relay-server/services/response-orchestrator/internal/infrastructure/metrics"
)

const (
	// DefaultCleanupIntervalMinutes applies when configuration leaves the
	// interval unset.
	DefaultCleanupIntervalMinutes = 10

	jobTimeout  = 5 * time.Minute
	stopTimeout = 30 * time.Second
)

// CleanupWorker periodically removes expired conversations from the store.
// It is the only background goroutine owner in the service host.
type CleanupWorker struct {
	store           conversation.Store
	intervalMinutes int
	ctab            *crontab.Crontab
	log             zerolog.Logger
	wg              sync.WaitGroup
	stopChan        chan struct{}
}

// NewCleanupWorker creates a cleanup worker over the given store.
func NewCleanupWorker(store conversation.Store, intervalMinutes int, log zerolog.Logger) *CleanupWorker {
	if intervalMinutes <= 0 {
		intervalMinutes = DefaultCleanupIntervalMinutes
	}
	return &CleanupWorker{
		store:           store,
		intervalMinutes: intervalMinutes,
		ctab:            crontab.New(),
		log:             log.With().Str("component", "cleanup-worker").Logger(),
		stopChan:        make(chan struct{}),
	}
}

// Start runs one cleanup pass immediately, then schedules recurring passes.
// It returns after scheduling; the crontab owns the recurring goroutine.
func (w *CleanupWorker) Start(ctx context.Context) error {
	w.runCleanup(ctx)

	cronExpr := fmt.Sprintf("*/%d * * * *", w.intervalMinutes)
	if err := w.ctab.AddJob(cronExpr, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		w.runCleanup(jobCtx)
	}); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-w.stopChan:
		}
		w.ctab.Shutdown()
	}()

	w.log.Info().Int("interval_minutes", w.intervalMinutes).Msg("cleanup worker started")
	return nil
}

// Stop shuts the worker down, waiting up to a bounded timeout for any
// in-flight pass to finish.
func (w *CleanupWorker) Stop() {
	close(w.stopChan)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.log.Info().Msg("cleanup worker stopped")
	case <-time.After(stopTimeout):
		w.log.Warn().Msg("cleanup worker shutdown timed out")
	}
}

func (w *CleanupWorker) runCleanup(ctx context.Context) {
	removed, err := w.store.CleanupExpiredConversations(ctx)
	if err != nil {
		metrics.RecordBackgroundJob("conversation_cleanup", "error")
		w.log.Error().Err(err).Msg("conversation cleanup failed")
		return
	}

	metrics.RecordBackgroundJob("conversation_cleanup", "ok")
	if removed > 0 {
		metrics.RecordConversationsExpiredDeleted(int64(removed))
		w.log.Info().Int("removed", removed).Msg("conversation cleanup pass complete")
	}
}
