package tasmota

import (
	"context"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

// MockSink records what the dispatcher asks its worker to do.
type MockSink struct {
	devices []model.Device
	nextID  int

	Created []model.Device
	Updated []model.Device
	Values  []int

	DevicesFunc func(ctx context.Context) ([]model.Device, error)
}

func NewMockSink(devices ...model.Device) *MockSink {
	return &MockSink{devices: devices, nextID: 100}
}

func (m *MockSink) Devices(ctx context.Context) ([]model.Device, error) {
	if m.DevicesFunc != nil {
		return m.DevicesFunc(ctx)
	}
	out := make([]model.Device, len(m.devices))
	copy(out, m.devices)
	return out, nil
}

func (m *MockSink) CreateDevice(_ context.Context, device *model.Device) {
	m.nextID++
	device.ID = m.nextID
	m.Created = append(m.Created, *device)
}

func (m *MockSink) UpdateDevice(_ context.Context, device *model.Device) {
	m.Updated = append(m.Updated, *device)
}

func (m *MockSink) SendValue(*model.Device, string, *int) {}

func (m *MockSink) UpdateValue(_ *model.Device, value *int) {
	if value != nil {
		m.Values = append(m.Values, *value)
	}
}
