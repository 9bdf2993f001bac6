package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/metrics"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/protocol"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/queue"
)

var ErrUnsupportedHardware = errors.New("unsupported hardware type")

const (
	defaultPollInterval = time.Second
	repositoryTimeout   = 5 * time.Second
	disconnectTimeout   = 5 * time.Second
)

type deviceRepository interface {
	CreateDevice(ctx context.Context, device *model.Device) (*model.Device, error)
	UpdateDevice(ctx context.Context, device *model.Device) (bool, error)
	GetDevice(ctx context.Context, id int) (*model.Device, error)
	ListDevices(ctx context.Context, hardwareID int) ([]model.Device, error)
}

// HandlerFactory builds the transport for unit. A nil handler without error
// means the hardware type has no transport.
type HandlerFactory func(unit model.HardwareUnit, sink protocol.Sink) (protocol.Handler, error)

var _ protocol.Sink = (*Worker)(nil)

// Worker runs the connect, poll, disconnect lifecycle of one hardware unit.
type Worker struct {
	unit         model.HardwareUnit
	handler      protocol.Handler
	devices      deviceRepository
	queue        *queue.Queue
	logger       *zap.Logger
	pollInterval time.Duration

	mu               sync.Mutex
	started          bool
	stopRequested    bool
	restartRequested bool

	wake    chan struct{}
	done    chan struct{}
	runOnce sync.Once
}

func New(unit model.HardwareUnit, devices deviceRepository, factory HandlerFactory, opts ...Option) (*Worker, error) {
	w := &Worker{
		unit:         unit,
		devices:      devices,
		queue:        queue.New(),
		logger:       zap.L(), // returns the global logger.
		pollInterval: defaultPollInterval,
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	w.logger = unitLogger(w.logger, unit)

	handler, err := factory(unit, w)
	if err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHardware, unit.Type)
	}
	w.handler = handler
	return w, nil
}

func unitLogger(base *zap.Logger, unit model.HardwareUnit) *zap.Logger {
	logger := base.With(zap.String("hardware", unit.Name), zap.Int("hardware_id", unit.ID))
	if lvl := unit.LogLevel.ZapLevel(); lvl > zapcore.LevelOf(logger.Core()) {
		logger = logger.WithOptions(zap.IncreaseLevel(lvl))
	}
	return logger
}

func (w *Worker) Unit() model.HardwareUnit { return w.unit }

// Done is closed once Run has returned.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Run blocks until the worker is stopped or ctx is cancelled. Only the first call does anything.
func (w *Worker) Run(ctx context.Context) {
	w.runOnce.Do(func() {
		defer close(w.done)
		w.run(ctx)
	})
}

func (w *Worker) run(ctx context.Context) {
	if !w.unit.Enabled {
		w.logger.Debug("hardware disabled, worker not started")
		return
	}

	if err := w.handler.Connect(ctx); err != nil {
		w.logger.Error("failed to connect", zap.Error(err))
	}
	w.setStarted(true)
	metrics.WorkersRunning.Inc()
	w.logger.Info("worker started")

	for !w.IsStopRequested() && ctx.Err() == nil {
		w.processNext(ctx)
		w.wait(ctx)
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()
	if err := w.handler.Disconnect(dctx); err != nil {
		w.logger.Warn("failed to disconnect", zap.Error(err))
	}
	w.setStarted(false)
	metrics.WorkersRunning.Dec()
	w.logger.Info("worker stopped", zap.Bool("restart_requested", w.IsRestartRequested()))
}

func (w *Worker) processNext(ctx context.Context) {
	msg, ok := w.queue.Dequeue()
	if !ok {
		return
	}
	var err error
	switch msg.Kind() {
	case model.SendValue:
		err = w.handler.Send(ctx, msg.Device(), msg.Command(), msg.Value())
	case model.UpdateValue:
		err = w.handler.UpdateLocal(ctx, msg.Device(), msg.Value())
	}
	metrics.MessagesProcessed.WithLabelValues(w.unit.Name, msg.Kind().String()).Inc()
	if err != nil {
		fields := []zap.Field{zap.Stringer("kind", msg.Kind()), zap.Error(err)}
		if d := msg.Device(); d != nil {
			fields = append(fields, zap.Int("device_id", d.ID))
		}
		w.logger.Warn("failed to process message", fields...)
	}
}

func (w *Worker) wait(ctx context.Context) {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-w.wake:
	case <-ctx.Done():
	}
}

func (w *Worker) setStarted(started bool) {
	w.mu.Lock()
	w.started = started
	w.mu.Unlock()
}

func (w *Worker) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

// IsStopRequested is always false while the worker is not started.
func (w *Worker) IsStopRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return false
	}
	return w.stopRequested || w.restartRequested
}

func (w *Worker) IsRestartRequested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.restartRequested
}

// Stop asks a started worker to leave its loop after the current iteration.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started || w.stopRequested {
		return
	}
	w.stopRequested = true
	w.signal()
}

// Restart stops the worker and flags it for replacement. The flag is sticky.
func (w *Worker) Restart() {
	w.Stop()
	w.mu.Lock()
	w.restartRequested = true
	w.signal()
	w.mu.Unlock()
}

func (w *Worker) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) Enqueue(msg model.Message) {
	w.queue.Enqueue(msg)
	metrics.MessagesEnqueued.WithLabelValues(w.unit.Name, msg.Kind().String()).Inc()
}

func (w *Worker) Dequeue() (model.Message, bool) {
	return w.queue.Dequeue()
}

// SendValue queues a command for device unless the unit is disabled or the device inactive.
func (w *Worker) SendValue(device *model.Device, command string, value *int) {
	if !w.accepts(device) {
		return
	}
	w.Enqueue(model.NewSendValue(device, command, value))
}

// UpdateValue queues a local value update under the same rules as SendValue.
func (w *Worker) UpdateValue(device *model.Device, value *int) {
	if !w.accepts(device) {
		return
	}
	w.Enqueue(model.NewUpdateValue(device, value))
}

func (w *Worker) accepts(device *model.Device) bool {
	return w.unit.Enabled && device != nil && device.Active
}

func (w *Worker) Devices(ctx context.Context) ([]model.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()
	devices, err := w.devices.ListDevices(ctx, w.unit.ID)
	if err != nil {
		return nil, err
	}
	unit := w.unit
	for i := range devices {
		devices[i].Hardware = &unit
	}
	return devices, nil
}

func (w *Worker) CreateDevice(ctx context.Context, device *model.Device) {
	if device.HardwareID == 0 {
		device.HardwareID = w.unit.ID
	}
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()
	created, err := w.devices.CreateDevice(ctx, device)
	if err != nil {
		w.logger.Warn("failed to create device", zap.String("device", device.DeviceID), zap.Error(err))
		return
	}
	if created == nil {
		return
	}
	device.ID = created.ID
	w.logger.Info("device created", zap.Int("device_id", device.ID), zap.String("name", device.Name))
}

func (w *Worker) UpdateDevice(ctx context.Context, device *model.Device) {
	ctx, cancel := context.WithTimeout(ctx, repositoryTimeout)
	defer cancel()
	stored, err := w.devices.GetDevice(ctx, device.ID)
	if err != nil {
		w.logger.Warn("failed to load device", zap.Int("device_id", device.ID), zap.Error(err))
		return
	}
	if stored == nil {
		return
	}
	if _, err := w.devices.UpdateDevice(ctx, device); err != nil {
		w.logger.Warn("failed to update device", zap.Int("device_id", device.ID), zap.Error(err))
		return
	}
	w.logger.Debug("device updated", zap.Int("device_id", device.ID), zap.Float64("value", device.Value))
}
