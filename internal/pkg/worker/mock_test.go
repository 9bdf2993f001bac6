package worker

import (
	"context"
	"sync"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

// MockDeviceRepository is an in-memory deviceRepository counting write calls.
type MockDeviceRepository struct {
	mu          sync.Mutex
	devices     map[int]model.Device
	nextID      int
	CreateCalls int
	UpdateCalls int

	CreateDeviceFunc func(ctx context.Context, device *model.Device) (*model.Device, error)
}

func NewMockDeviceRepository(devices ...model.Device) *MockDeviceRepository {
	m := &MockDeviceRepository{devices: make(map[int]model.Device), nextID: 1}
	for _, d := range devices {
		m.devices[d.ID] = d
		if d.ID >= m.nextID {
			m.nextID = d.ID + 1
		}
	}
	return m
}

func (m *MockDeviceRepository) CreateDevice(ctx context.Context, device *model.Device) (*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateDeviceFunc != nil {
		return m.CreateDeviceFunc(ctx, device)
	}
	created := *device
	created.ID = m.nextID
	m.nextID++
	m.devices[created.ID] = created
	return &created, nil
}

func (m *MockDeviceRepository) UpdateDevice(_ context.Context, device *model.Device) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if _, ok := m.devices[device.ID]; !ok {
		return false, nil
	}
	m.devices[device.ID] = *device
	return true, nil
}

func (m *MockDeviceRepository) GetDevice(_ context.Context, id int) (*model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *MockDeviceRepository) ListDevices(_ context.Context, hardwareID int) ([]model.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Device
	for _, d := range m.devices {
		if d.HardwareID == hardwareID {
			out = append(out, d)
		}
	}
	return out, nil
}

type sentValue struct {
	deviceID int
	command  string
	value    *int
}

// mockHandler records every transport call.
type mockHandler struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	sent        []sentValue
	updated     []sentValue
	ConnectFunc func(ctx context.Context) error
}

func (h *mockHandler) Connect(ctx context.Context) error {
	h.mu.Lock()
	h.connects++
	fn := h.ConnectFunc
	h.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (h *mockHandler) Disconnect(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnects++
	return nil
}

func (h *mockHandler) Send(_ context.Context, device *model.Device, command string, value *int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, sentValue{deviceID: device.ID, command: command, value: value})
	return nil
}

func (h *mockHandler) UpdateLocal(_ context.Context, device *model.Device, value *int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updated = append(h.updated, sentValue{deviceID: device.ID, value: value})
	return nil
}

func (h *mockHandler) counts() (connects, disconnects, sent, updated int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connects, h.disconnects, len(h.sent), len(h.updated)
}
