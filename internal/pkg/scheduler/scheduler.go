// Package scheduler owns the configured hardware units and drives the worker
// pool from a single periodic control loop.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/queue"
)

const defaultInterval = time.Second

type hardwareRepository interface {
	ListHardware(ctx context.Context) ([]model.HardwareUnit, error)
}

type workerPool interface {
	Ensure(ctx context.Context, units []model.HardwareUnit)
	SendValue(ctx context.Context, device *model.Device, command string, value *int) error
	UpdateValue(ctx context.Context, device *model.Device, value *int) error
	Stop()
}

type Scheduler struct {
	hardware hardwareRepository
	pool     workerPool
	queue    *queue.Queue
	interval time.Duration
	logger   *zap.Logger

	mu    sync.RWMutex
	units []model.HardwareUnit

	lifecycle sync.Mutex
	cron      *cron.Cron
}

func New(hardware hardwareRepository, pool workerPool, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		hardware: hardware,
		pool:     pool,
		queue:    queue.New(),
		interval: interval,
		logger:   zap.L(), // returns the global logger.
	}
}

// Start loads the hardware units and starts the control loop. Calling Start
// on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.cron != nil {
		return nil
	}

	units, err := s.hardware.ListHardware(ctx)
	if err != nil {
		return fmt.Errorf("loading hardware: %w", err)
	}
	s.mu.Lock()
	s.units = units
	s.mu.Unlock()

	logger := newCronLogger(s.logger)
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.tick(ctx)
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info("scheduler started", zap.Int("hardware", len(units)), zap.Duration("interval", s.interval))
	return nil
}

// Stop waits for a running tick to finish, then stops every worker.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	c := s.cron
	s.cron = nil
	s.lifecycle.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	s.pool.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	s.pool.Ensure(ctx, s.Units())

	msg, ok := s.queue.Dequeue()
	if !ok {
		return
	}
	var err error
	switch msg.Kind() {
	case model.SendValue:
		err = s.pool.SendValue(ctx, msg.Device(), msg.Command(), msg.Value())
	case model.UpdateValue:
		err = s.pool.UpdateValue(ctx, msg.Device(), msg.Value())
	}
	if err != nil {
		s.logger.Warn("failed to route message", zap.Stringer("kind", msg.Kind()), zap.Error(err))
	}
}

// Units returns a copy of the current hardware units.
func (s *Scheduler) Units() []model.HardwareUnit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.HardwareUnit, len(s.units))
	copy(out, s.units)
	return out
}

func (s *Scheduler) AddHardware(unit model.HardwareUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = append(s.units, unit)
}

// UpdateHardware replaces the mutable fields of the unit with the same id.
// Unknown ids are ignored.
func (s *Scheduler) UpdateHardware(unit model.HardwareUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, i, ok := lo.FindIndexOf(s.units, func(u model.HardwareUnit) bool { return u.ID == unit.ID })
	if !ok {
		return
	}
	updated := s.units[i]
	updated.Name = unit.Name
	updated.Enabled = unit.Enabled
	updated.LogLevel = unit.LogLevel
	updated.Configuration = unit.Configuration
	updated.Order = unit.Order
	updated.LastUpdate = unit.LastUpdate
	s.units[i] = updated
}

func (s *Scheduler) DeleteHardware(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = lo.Reject(s.units, func(u model.HardwareUnit, _ int) bool { return u.ID == id })
}

// Enqueue hands a message to the control loop, which forwards one message per tick.
func (s *Scheduler) Enqueue(msg model.Message) {
	s.queue.Enqueue(msg)
}

func (s *Scheduler) SendValue(device *model.Device, command string, value *int) {
	s.Enqueue(model.NewSendValue(device, command, value))
}

func (s *Scheduler) UpdateValue(device *model.Device, value *int) {
	s.Enqueue(model.NewUpdateValue(device, value))
}
