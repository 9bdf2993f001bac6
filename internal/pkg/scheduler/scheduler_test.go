package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

type MockHardwareRepository struct {
	mu    sync.Mutex
	calls int

	ListHardwareFunc func(ctx context.Context) ([]model.HardwareUnit, error)
}

func (m *MockHardwareRepository) ListHardware(ctx context.Context) ([]model.HardwareUnit, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.ListHardwareFunc(ctx)
}

type routed struct {
	kind    model.MessageKind
	command string
	value   *int
}

type MockPool struct {
	mu      sync.Mutex
	ensured [][]model.HardwareUnit
	routed  []routed
	stops   int

	RouteErr error
}

func (m *MockPool) Ensure(_ context.Context, units []model.HardwareUnit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured = append(m.ensured, units)
}

func (m *MockPool) SendValue(_ context.Context, _ *model.Device, command string, value *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routed = append(m.routed, routed{kind: model.SendValue, command: command, value: value})
	return m.RouteErr
}

func (m *MockPool) UpdateValue(_ context.Context, _ *model.Device, value *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routed = append(m.routed, routed{kind: model.UpdateValue, value: value})
	return m.RouteErr
}

func (m *MockPool) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stops++
}

func (m *MockPool) ensureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ensured)
}

func units() []model.HardwareUnit {
	return []model.HardwareUnit{
		{ID: 1, Name: "dummy", Enabled: true, Type: model.HardwareTypeDummy},
		{ID: 2, Name: "broker", Enabled: false, Type: model.HardwareTypeMQTT, Configuration: `{"address":"a"}`},
	}
}

func newTestScheduler(pool *MockPool) (*Scheduler, *MockHardwareRepository) {
	repo := &MockHardwareRepository{ListHardwareFunc: func(context.Context) ([]model.HardwareUnit, error) {
		return units(), nil
	}}
	return New(repo, pool, 0), repo
}

func TestStart_Idempotent(t *testing.T) {
	pool := &MockPool{}
	s, repo := newTestScheduler(pool)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, units(), s.Units())

	require.Eventually(t, func() bool { return pool.ensureCount() > 0 }, 3*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.Equal(t, 1, pool.stops)
}

func TestStart_HardwareError(t *testing.T) {
	repo := &MockHardwareRepository{ListHardwareFunc: func(context.Context) ([]model.HardwareUnit, error) {
		return nil, errors.New("relation hardware does not exist")
	}}
	s := New(repo, &MockPool{}, time.Second)

	assert.Error(t, s.Start(context.Background()))
	assert.Nil(t, s.cron)
}

func TestTick_ForwardsOneMessage(t *testing.T) {
	pool := &MockPool{}
	s, _ := newTestScheduler(pool)
	s.units = units()
	device := &model.Device{ID: 1, HardwareID: 1, Active: true}
	v := 100

	s.SendValue(device, "Power", &v)
	s.UpdateValue(device, nil)

	s.tick(context.Background())
	require.Len(t, pool.routed, 1)
	assert.Equal(t, model.SendValue, pool.routed[0].kind)
	assert.Equal(t, "Power", pool.routed[0].command)
	assert.Equal(t, 100, *pool.routed[0].value)

	s.tick(context.Background())
	require.Len(t, pool.routed, 2)
	assert.Equal(t, model.UpdateValue, pool.routed[1].kind)
	assert.Nil(t, pool.routed[1].value)

	s.tick(context.Background())
	assert.Len(t, pool.routed, 2)
	assert.Len(t, pool.ensured, 3)
	assert.Equal(t, units(), pool.ensured[0])
}

func TestTick_RouteErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	pool := &MockPool{RouteErr: errors.New("hardware not found")}
	s, _ := newTestScheduler(pool)
	s.logger = zap.New(core)

	s.SendValue(&model.Device{HardwareID: 42, Active: true}, "Power", nil)
	s.tick(context.Background())

	require.Equal(t, 1, logs.FilterMessage("failed to route message").Len())
	assert.Len(t, pool.routed, 1)
}

func TestHardwareMutations(t *testing.T) {
	tests := map[string]struct {
		mutate func(s *Scheduler)
		want   []model.HardwareUnit
	}{
		"add": {
			mutate: func(s *Scheduler) {
				s.AddHardware(model.HardwareUnit{ID: 3, Name: "new", Enabled: true})
			},
			want: append(units(), model.HardwareUnit{ID: 3, Name: "new", Enabled: true}),
		},
		"update": {
			mutate: func(s *Scheduler) {
				s.UpdateHardware(model.HardwareUnit{
					ID:            2,
					Name:          "renamed",
					Enabled:       true,
					Type:          model.HardwareTypeDummy,
					LogLevel:      model.LogLevelError,
					Order:         4,
					Configuration: `{"address":"b"}`,
				})
			},
			want: []model.HardwareUnit{
				units()[0],
				{ID: 2, Name: "renamed", Enabled: true, Type: model.HardwareTypeMQTT, LogLevel: model.LogLevelError, Order: 4, Configuration: `{"address":"b"}`},
			},
		},
		"update unknown": {
			mutate: func(s *Scheduler) {
				s.UpdateHardware(model.HardwareUnit{ID: 99, Name: "ghost"})
			},
			want: units(),
		},
		"delete": {
			mutate: func(s *Scheduler) {
				s.DeleteHardware(1)
			},
			want: units()[1:],
		},
		"delete unknown": {
			mutate: func(s *Scheduler) {
				s.DeleteHardware(99)
			},
			want: units(),
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestScheduler(&MockPool{})
			s.units = units()

			test.mutate(s)
			assert.Equal(t, test.want, s.Units())
		})
	}
}

func TestUpdateHardware_LeavesSnapshotsAlone(t *testing.T) {
	s, _ := newTestScheduler(&MockPool{})
	s.units = units()
	before := s.Units()

	s.UpdateHardware(model.HardwareUnit{ID: 1, Name: "changed"})
	assert.Equal(t, "dummy", before[0].Name)
	assert.Equal(t, "changed", s.Units()[0].Name)
}

func TestStop_WithoutStart(t *testing.T) {
	pool := &MockPool{}
	s, _ := newTestScheduler(pool)

	s.Stop()
	assert.Equal(t, 1, pool.stops)
}
