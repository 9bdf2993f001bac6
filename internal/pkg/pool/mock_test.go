package pool

import (
	"context"
	"sync"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/protocol"
)

type MockHardwareRepository struct {
	units map[int]model.HardwareUnit

	GetHardwareFunc func(ctx context.Context, id int) (*model.HardwareUnit, error)
}

func (m *MockHardwareRepository) GetHardware(ctx context.Context, id int) (*model.HardwareUnit, error) {
	if m.GetHardwareFunc != nil {
		return m.GetHardwareFunc(ctx, id)
	}
	u, ok := m.units[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type MockDeviceRepository struct{}

func (MockDeviceRepository) CreateDevice(_ context.Context, d *model.Device) (*model.Device, error) {
	return d, nil
}

func (MockDeviceRepository) UpdateDevice(context.Context, *model.Device) (bool, error) {
	return true, nil
}

func (MockDeviceRepository) GetDevice(context.Context, int) (*model.Device, error) {
	return nil, nil
}

func (MockDeviceRepository) ListDevices(context.Context, int) ([]model.Device, error) {
	return nil, nil
}

type mockHandler struct {
	mu      sync.Mutex
	sent    []string
	updated []int
}

func (h *mockHandler) Connect(context.Context) error    { return nil }
func (h *mockHandler) Disconnect(context.Context) error { return nil }

func (h *mockHandler) Send(_ context.Context, _ *model.Device, command string, _ *int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, command)
	return nil
}

func (h *mockHandler) UpdateLocal(_ context.Context, _ *model.Device, value *int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if value != nil {
		h.updated = append(h.updated, *value)
	}
	return nil
}

func (h *mockHandler) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sent), len(h.updated)
}

// mockFactory builds one mockHandler per call and counts calls per unit name.
type mockFactory struct {
	mu       sync.Mutex
	calls    map[string]int
	handlers map[string]*mockHandler
	err      error
}

func newMockFactory() *mockFactory {
	return &mockFactory{calls: make(map[string]int), handlers: make(map[string]*mockHandler)}
}

func (f *mockFactory) build(unit model.HardwareUnit, _ protocol.Sink) (protocol.Handler, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[unit.Name]++
	if f.err != nil {
		return nil, f.err
	}
	h := &mockHandler{}
	f.handlers[unit.Name] = h
	return h, nil
}

func (f *mockFactory) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *mockFactory) handler(name string) *mockHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handlers[name]
}
