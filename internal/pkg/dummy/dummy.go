// Package dummy is a transport that talks to nothing. It keeps the in-memory
// device values so that the rest of the hub can be exercised without hardware.
package dummy

import (
	"context"

	"go.uber.org/zap"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/protocol"
)

var _ protocol.Handler = (*service)(nil)

type service struct {
	unit   model.HardwareUnit
	logger *zap.Logger
}

func New(unit model.HardwareUnit) *service {
	return &service{
		unit:   unit,
		logger: zap.L().With(zap.String("hardware", unit.Name)),
	}
}

func (s *service) Connect(context.Context) error {
	s.logger.Debug("dummy connected")
	return nil
}

func (s *service) Disconnect(context.Context) error {
	s.logger.Debug("dummy disconnected")
	return nil
}

func (s *service) Send(_ context.Context, device *model.Device, command string, value *int) error {
	s.logger.Debug("dummy send", zap.Int("device_id", device.ID), zap.String("command", command), zap.Intp("value", value))
	return nil
}

func (s *service) UpdateLocal(_ context.Context, device *model.Device, value *int) error {
	if value != nil {
		device.Value = float64(*value)
	}
	return nil
}
