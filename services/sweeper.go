package services

import (
	"context"
	"errors"
	"time"

	"knowledge-base-platform/internal/config"
	"knowledge-base-platform/internal/logger"

	"github.com/go-co-op/gocron"
)

const sweepBatchLimit = 50

// SweepStore is the store surface the sweeper needs on top of the pipeline
// collaborators.
type SweepStore interface {
	DocumentStore
	FindSweepCandidates(ctx context.Context, maxAge time.Duration, limit int64) ([]string, error)
}

// Sweeper periodically picks up documents that asked for reprocessing and
// documents stuck in the processing state past the configured age, and
// reruns the pipeline for them.
type Sweeper struct {
	cfg       *config.Config
	store     SweepStore
	ingest    *IngestService
	scheduler *gocron.Scheduler
}

func NewSweeper(cfg *config.Config, store SweepStore, ingest *IngestService) *Sweeper {
	return &Sweeper{
		cfg:       cfg,
		store:     store,
		ingest:    ingest,
		scheduler: gocron.NewScheduler(time.UTC),
	}
}

// Start registers the sweep on the configured cron expression and runs the
// scheduler in the background.
func (s *Sweeper) Start() error {
	if _, err := s.scheduler.Cron(s.cfg.SweepCron).Tag("document-sweep").Do(s.Sweep); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	logger.Info("document sweep scheduled", "cron", s.cfg.SweepCron)
	return nil
}

func (s *Sweeper) Stop() {
	s.scheduler.Stop()
}

// Sweep runs one pass. Conflicts are skipped silently since a live run
// already owns those documents; other failures are logged and do not stop
// the pass.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ids, err := s.store.FindSweepCandidates(ctx, s.cfg.StuckProcessingAge, sweepBatchLimit)
	if err != nil {
		logger.Error("sweep candidate query failed", "error", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	logger.Info("sweeping documents", "count", len(ids))

	for _, id := range ids {
		doc, err := s.store.GetDocument(ctx, id)
		if err != nil {
			logger.Warn("sweep skipping document", "document_id", id, "error", err)
			continue
		}
		_, err = s.ingest.ProcessDocument(ctx, doc.UserID.Hex(), doc.KnowledgeBaseID.Hex(), id)
		if err != nil && !errors.Is(err, ErrProcessingConflict) {
			logger.Warn("sweep reprocess failed", "document_id", id, "error", err)
		}
	}
}
