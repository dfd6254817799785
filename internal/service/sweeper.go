package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bcnelson/dyndns/internal/storage"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically reports hosts that have not checked in within
// staleAfter. It never modifies the store.
type Sweeper struct {
	store      storage.Storage
	staleAfter time.Duration
	logger     *logrus.Entry
	now        func() time.Time
	cron       *cron.Cron
}

// NewSweeper creates a new Sweeper.
func NewSweeper(store storage.Storage, staleAfter time.Duration, logger *logrus.Entry) *Sweeper {
	return &Sweeper{
		store:      store,
		staleAfter: staleAfter,
		logger:     logger,
		now:        time.Now,
		cron:       cron.New(),
	}
}

// Sweep counts stale hosts, updates the stale gauge and returns their names.
func (s *Sweeper) Sweep(ctx context.Context) ([]string, error) {
	hosts, err := s.store.ListHosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing hosts: %w", err)
	}

	cutoff := s.now().Add(-s.staleAfter)
	var stale []string
	for _, h := range hosts {
		if h.LastTouched.Before(cutoff) {
			stale = append(stale, h.Name)
			s.logger.WithFields(logrus.Fields{
				"hostname":     h.Name,
				"address":      h.Address,
				"last_touched": h.LastTouched,
			}).Warn("host is stale")
		}
	}

	staleGauge.Set(float64(len(stale)))
	return stale, nil
}

// Start runs Sweep on schedule (a cron expression or descriptor such as "@every 15m").
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.task); err != nil {
		return fmt.Errorf("scheduling stale host sweep: %w", err)
	}
	s.cron.Start()
	s.logger.WithField("schedule", schedule).Info("stale host sweeper started")
	return nil
}

// Stop stops the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) task() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.WithError(err).Error("stale host sweep failed")
	}
}
