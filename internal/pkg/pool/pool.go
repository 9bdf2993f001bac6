package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/worker"
)

var ErrHardwareNotFound = errors.New("hardware not found")

const (
	defaultPollInterval  = time.Second
	defaultShutdownGrace = 2 * time.Second
)

type hardwareRepository interface {
	GetHardware(ctx context.Context, id int) (*model.HardwareUnit, error)
}

type deviceRepository interface {
	CreateDevice(ctx context.Context, device *model.Device) (*model.Device, error)
	UpdateDevice(ctx context.Context, device *model.Device) (bool, error)
	GetDevice(ctx context.Context, id int) (*model.Device, error)
	ListDevices(ctx context.Context, hardwareID int) ([]model.Device, error)
}

type entry struct {
	worker *worker.Worker
	cancel context.CancelFunc
}

// Pool runs at most one worker per hardware unit name.
type Pool struct {
	hardware     hardwareRepository
	devices      deviceRepository
	factory      worker.HandlerFactory
	logger       *zap.Logger
	pollInterval time.Duration
	grace        time.Duration

	mu      sync.Mutex
	workers map[string]entry
	// units whose transport could not be built, retried once the unit changes.
	rejected map[string]model.HardwareUnit
}

func New(hardware hardwareRepository, devices deviceRepository, opts ...Option) *Pool {
	p := &Pool{
		hardware:     hardware,
		devices:      devices,
		factory:      Build,
		logger:       zap.L(), // returns the global logger.
		pollInterval: defaultPollInterval,
		grace:        defaultShutdownGrace,
		workers:      make(map[string]entry),
		rejected:     make(map[string]model.HardwareUnit),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ensure brings the running workers in line with units. Finished workers are
// forgotten, workers of disabled or removed units are stopped, workers whose
// unit changed are restarted, and enabled units without a worker get one.
// A unit never gets a second worker while its previous one is still running.
func (p *Pool) Ensure(ctx context.Context, units []model.HardwareUnit) {
	p.mu.Lock()
	defer p.mu.Unlock()

	enabled := lo.KeyBy(lo.Filter(units, func(u model.HardwareUnit, _ int) bool {
		return u.Enabled
	}), func(u model.HardwareUnit) string {
		return u.Name
	})

	for name, e := range p.workers {
		select {
		case <-e.worker.Done():
			e.cancel()
			delete(p.workers, name)
			p.logger.Debug("worker finished", zap.String("hardware", name), zap.Bool("restart", e.worker.IsRestartRequested()))
			continue
		default:
		}
		unit, ok := enabled[name]
		switch {
		case !ok:
			e.worker.Stop()
		case changed(e.worker.Unit(), unit):
			e.worker.Restart()
		}
	}

	for _, unit := range units {
		if !unit.Enabled {
			continue
		}
		if _, ok := p.workers[unit.Name]; ok {
			continue
		}
		if prev, ok := p.rejected[unit.Name]; ok && !changed(prev, unit) {
			continue
		}
		w, err := worker.New(unit, p.devices, p.factory, worker.WithPollInterval(p.pollInterval))
		if err != nil {
			p.rejected[unit.Name] = unit
			p.logger.Warn("cannot start hardware", zap.String("hardware", unit.Name), zap.Stringer("type", unit.Type), zap.Error(err))
			continue
		}
		delete(p.rejected, unit.Name)

		wctx, cancel := context.WithCancel(ctx)
		p.workers[unit.Name] = entry{worker: w, cancel: cancel}
		go w.Run(wctx)
		p.logger.Info("worker launched", zap.String("hardware", unit.Name), zap.Stringer("type", unit.Type))
	}
}

func changed(a, b model.HardwareUnit) bool {
	return a.ID != b.ID ||
		a.Type != b.Type ||
		a.LogLevel != b.LogLevel ||
		a.Configuration != b.Configuration
}

// SendValue routes a command to the worker of the device's hardware unit.
// Only an unknown hardware unit is reported as an error.
func (p *Pool) SendValue(ctx context.Context, device *model.Device, command string, value *int) error {
	w, err := p.route(ctx, device)
	if err != nil || w == nil {
		return err
	}
	w.SendValue(device, command, value)
	return nil
}

func (p *Pool) UpdateValue(ctx context.Context, device *model.Device, value *int) error {
	w, err := p.route(ctx, device)
	if err != nil || w == nil {
		return err
	}
	w.UpdateValue(device, value)
	return nil
}

func (p *Pool) route(ctx context.Context, device *model.Device) (*worker.Worker, error) {
	if device == nil {
		return nil, nil
	}
	unit, err := p.hardware.GetHardware(ctx, device.HardwareID)
	if err != nil {
		return nil, err
	}
	if unit == nil {
		return nil, fmt.Errorf("%w: %d", ErrHardwareNotFound, device.HardwareID)
	}
	if !unit.Enabled || !device.Active {
		return nil, nil
	}

	p.mu.Lock()
	e, ok := p.workers[unit.Name]
	p.mu.Unlock()
	if !ok {
		p.logger.Debug("no worker for hardware", zap.String("hardware", unit.Name), zap.Int("device_id", device.ID))
		return nil, nil
	}
	return e.worker, nil
}

// Worker returns the registered worker for a hardware unit name.
func (p *Pool) Worker(name string) (*worker.Worker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.workers[name]
	return e.worker, ok
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// Stop stops every worker and waits for all of them concurrently. A worker
// that has not left its loop within one poll interval plus the grace period
// has its context cancelled.
func (p *Pool) Stop() {
	p.mu.Lock()
	entries := lo.Values(p.workers)
	p.workers = make(map[string]entry)
	p.mu.Unlock()

	timeout := p.pollInterval + p.grace
	g := errgroup.Group{}
	for _, e := range entries {
		e.worker.Stop()
		g.Go(func() error {
			defer e.cancel()
			select {
			case <-e.worker.Done():
				return nil
			case <-time.After(timeout):
				return fmt.Errorf("worker %s still running after %v", e.worker.Unit().Name, timeout)
			}
		})
	}
	if err := g.Wait(); err != nil {
		p.logger.Warn("workers did not stop in time", zap.Error(err))
	}
	p.logger.Info("worker pool stopped", zap.Int("workers", len(entries)))
}
