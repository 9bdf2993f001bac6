// Package tasmota turns the broker traffic of Tasmota devices into device
// records: discovery payloads create or refresh devices, telemetry updates
// their values.
package tasmota

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/config"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/metrics"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/protocol"
)

var _ protocol.Dispatcher = (*service)(nil)

// service is only used from the goroutine delivering the unit's broker
// messages, after Start has returned, so handlers needs no lock.
type service struct {
	unit      model.HardwareUnit
	discovery string
	sink      protocol.Sink
	handlers  []*deviceHandler
	logger    *zap.Logger
}

func New(unit model.HardwareUnit, cfg config.TasmotaConfig, sink protocol.Sink) *service {
	discovery := strings.TrimSuffix(cfg.DiscoveryTopic, "/")
	if discovery == "" {
		discovery = config.DefaultDiscoveryTopic
	}
	return &service{
		unit:      unit,
		discovery: discovery,
		sink:      sink,
		logger:    zap.L().With(zap.String("hardware", unit.Name), zap.Int("hardware_id", unit.ID)),
	}
}

// Start loads the devices already known for the unit.
func (s *service) Start(ctx context.Context) error {
	devices, err := s.sink.Devices(ctx)
	if err != nil {
		return err
	}
	s.handlers = make([]*deviceHandler, 0, len(devices))
	for i := range devices {
		s.handlers = append(s.handlers, newDeviceHandler(s.unit.Name, &devices[i], s.sink, s.logger))
	}
	s.logger.Debug("known devices loaded", zap.Int("count", len(s.handlers)))
	return nil
}

func (s *service) Handle(ctx context.Context, topic string, payload []byte) bool {
	if rest, ok := strings.CutPrefix(topic, s.discovery+"/"); ok {
		if !strings.HasSuffix(rest, "/config") {
			return false
		}
		return s.discover(ctx, payload)
	}

	// every device of the physical unit that first handled the message gets it too.
	var first *deviceHandler
	for _, h := range s.handlers {
		if first != nil && !h.sameUnit(first) {
			continue
		}
		if h.handle(ctx, topic, payload) && first == nil {
			first = h
		}
	}
	if first == nil {
		s.logger.Debug("message not handled", zap.String("topic", topic))
	}
	return first != nil
}

func (s *service) discover(ctx context.Context, raw []byte) bool {
	p, err := parseDiscovery(raw)
	if err != nil {
		s.logger.Warn("ignoring discovery payload", zap.Error(err))
		return false
	}
	for _, candidate := range candidates(s.unit, p, raw) {
		s.reconcile(ctx, candidate)
	}
	return true
}

func (s *service) reconcile(ctx context.Context, candidate model.Device) {
	current, i, found := lo.FindIndexOf(s.handlers, func(h *deviceHandler) bool {
		return h.device.DeviceID == candidate.DeviceID && h.device.Name == candidate.Name
	})

	if !found {
		device := candidate
		s.sink.CreateDevice(ctx, &device)
		s.handlers = append(s.handlers, newDeviceHandler(s.unit.Name, &device, s.sink, s.logger))
		s.count("create")
		s.logger.Info("device discovered", zap.String("device", device.DeviceID), zap.String("name", device.Name))
		return
	}

	if !current.device.Active {
		s.count("ignore")
		return
	}

	device := inherit(candidate, current.device)
	next := newDeviceHandler(s.unit.Name, &device, s.sink, s.logger)
	if !current.differs(next) {
		s.count("unchanged")
		return
	}
	s.sink.UpdateDevice(ctx, &device)
	s.handlers[i] = next
	s.count("update")
	s.logger.Info("device rediscovered", zap.String("device", device.DeviceID), zap.String("name", device.Name))
}

// inherit keeps everything on the stored device that discovery does not describe.
func inherit(candidate model.Device, stored *model.Device) model.Device {
	candidate.ID = stored.ID
	candidate.HardwareID = stored.HardwareID
	candidate.Active = stored.Active
	candidate.Favorite = stored.Favorite
	candidate.Order = stored.Order
	candidate.Protected = stored.Protected
	candidate.SignalLevel = stored.SignalLevel
	candidate.BatteryLevel = stored.BatteryLevel
	candidate.Value = stored.Value
	candidate.Hardware = stored.Hardware
	return candidate
}

func (s *service) count(action string) {
	metrics.DiscoveryActions.WithLabelValues(s.unit.Name, action).Inc()
}
