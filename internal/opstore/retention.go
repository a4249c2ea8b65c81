package opstore

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tiko09/ledctrl/internal/logger"
)

// RetentionScheduler runs a periodic job that prunes samples older
// than a configured age, so a long-lived deployment's operational
// history doesn't grow without bound.
type RetentionScheduler struct {
	cron    *cron.Cron
	store   Store
	maxAge  time.Duration
	entryID cron.EntryID
}

// NewRetentionScheduler builds a scheduler that deletes samples older
// than maxAge whenever cronExpr fires, e.g. "0 3 * * *" for daily at
// 03:00.
func NewRetentionScheduler(store Store, cronExpr string, maxAge time.Duration) (*RetentionScheduler, error) {
	s := &RetentionScheduler{
		cron:   cron.New(),
		store:  store,
		maxAge: maxAge,
	}

	entryID, err := s.cron.AddFunc(cronExpr, s.runPrune)
	if err != nil {
		return nil, fmt.Errorf("opstore: schedule retention job: %w", err)
	}
	s.entryID = entryID
	return s, nil
}

// Start begins running the retention job on its schedule.
func (s *RetentionScheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (s *RetentionScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *RetentionScheduler) runPrune() {
	cutoff := time.Now().Add(-s.maxAge)
	if err := s.store.Prune(cutoff); err != nil {
		logger.WithComponent("opstore").Error("retention prune failed", zap.Error(err))
		return
	}
	logger.WithComponent("opstore").Info("pruned operational samples older than retention window")
}
