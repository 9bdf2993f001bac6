package mqtt

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/config"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/contxt"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/protocol"
)

var _ protocol.Handler = (*service)(nil)

// NoopDispatcher leaves every message unhandled. Plain MQTT units use it.
type NoopDispatcher struct{}

func (NoopDispatcher) Start(context.Context) error                  { return nil }
func (NoopDispatcher) Handle(context.Context, string, []byte) bool { return false }

// service holds two managed broker connections: "in" subscribes and receives,
// "out" only publishes and exists when outbound topics are configured.
type service struct {
	unit       model.HardwareUnit
	cfg        config.MQTTConfig
	dispatcher protocol.Dispatcher
	newClient  clientFactory
	tlsConfig  *tls.Config
	timeout    time.Duration
	logger     *zap.Logger

	in       paho_mqtt.Client
	out      paho_mqtt.Client
	attached atomic.Bool
}

func New(unit model.HardwareUnit, cfg config.MQTTConfig, dispatcher protocol.Dispatcher, opts ...Option) (*service, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("%w: %d", config.ErrInvalidPort, cfg.Port)
	}
	if dispatcher == nil {
		dispatcher = NoopDispatcher{}
	}
	s := &service{
		unit:       unit,
		cfg:        cfg,
		dispatcher: dispatcher,
		newClient:  paho_mqtt.NewClient,
		timeout:    defaultTimeout,
		logger:     zap.L().With(zap.String("hardware", unit.Name)),
	}
	for _, o := range opts {
		o(s)
	}
	if cfg.UseTLS {
		tlsCfg, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		s.tlsConfig = tlsCfg
	}
	return s, nil
}

func (s *service) Connect(ctx context.Context) error {
	if err := s.dispatcher.Start(ctx); err != nil {
		s.logger.Warn("failed to start dispatcher", zap.Error(err))
	}
	s.attached.Store(true)

	s.in = s.newClient(s.clientOptions("in", s.onConnectIn))
	if err := s.connect(s.in, "in"); err != nil {
		return err
	}
	if len(s.cfg.SubscriptionsOut) == 0 {
		return nil
	}
	s.out = s.newClient(s.clientOptions("out", nil))
	return s.connect(s.out, "out")
}

func (s *service) connect(client paho_mqtt.Client, role string) error {
	token := client.Connect()
	if !token.WaitTimeout(s.timeout) {
		// the client keeps retrying on its own.
		s.logger.Warn("broker not reachable yet", zap.String("role", role), zap.String("address", s.cfg.Address))
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	s.logger.Info("connected to broker", zap.String("role", role), zap.String("address", s.cfg.Address))
	return nil
}

// onConnectIn (re)subscribes after every successful connection of the "in" client.
func (s *service) onConnectIn(client paho_mqtt.Client) {
	for _, topic := range s.inboundTopics() {
		token := client.Subscribe(topic, s.cfg.QoS, s.onMessage)
		if !token.WaitTimeout(s.timeout) {
			s.logger.Warn("subscribe timed out", zap.String("topic", topic))
			continue
		}
		if err := token.Error(); err != nil {
			s.logger.Error("failed to subscribe", zap.String("topic", topic), zap.Error(fmt.Errorf("%w: %w", ErrSubscribeFailed, err)))
			continue
		}
		s.logger.Debug("subscribed", zap.String("topic", topic))
	}
}

func (s *service) inboundTopics() []string {
	topics := make([]string, 0, len(s.cfg.SubscriptionsIn))
	for _, t := range s.cfg.SubscriptionsIn {
		topics = append(topics, strings.TrimSuffix(t, "/")+"/#")
	}
	return topics
}

func (s *service) onConnectionLost(_ paho_mqtt.Client, err error) {
	if !s.attached.Load() {
		return
	}
	s.logger.Error("connection to broker lost", zap.Error(err))
}

func (s *service) onMessage(_ paho_mqtt.Client, msg paho_mqtt.Message) {
	if !s.attached.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("message handler panic recovered", zap.String("topic", msg.Topic()), zap.Any("panic", r))
		}
	}()

	ctx, cancel := contxt.NewContext(dispatchTimeout)
	defer cancel()
	if s.dispatcher.Handle(ctx, msg.Topic(), msg.Payload()) {
		msg.Ack()
	}
}

func (s *service) Disconnect(context.Context) error {
	s.attached.Store(false)
	if s.in != nil {
		if topics := s.inboundTopics(); len(topics) > 0 && s.in.IsConnected() {
			s.in.Unsubscribe(topics...).WaitTimeout(s.timeout)
		}
		s.in.Disconnect(disconnectQuiesce)
		s.in = nil
	}
	if s.out != nil {
		s.out.Disconnect(disconnectQuiesce)
		s.out = nil
	}
	s.logger.Info("disconnected from broker")
	return nil
}

// Send publishes the value on {topic}/{command} for every outbound topic.
func (s *service) Send(_ context.Context, device *model.Device, command string, value *int) error {
	if s.out == nil {
		return nil
	}
	payload := ""
	if value != nil {
		payload = strconv.Itoa(*value)
	}
	var errs []error
	for _, topic := range s.cfg.SubscriptionsOut {
		t := fmt.Sprintf("%s/%s", topic, command)
		token := s.out.Publish(t, s.cfg.QoS, false, payload)
		if !token.WaitTimeout(s.timeout) {
			errs = append(errs, fmt.Errorf("%w: timeout after %v on %s", ErrPublishFailed, s.timeout, t))
			continue
		}
		if err := token.Error(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %w", ErrPublishFailed, err))
			continue
		}
		s.logger.Debug("published", zap.String("topic", t), zap.String("payload", payload), zap.Int("device_id", device.ID))
	}
	return errors.Join(errs...)
}

func (s *service) UpdateLocal(_ context.Context, device *model.Device, value *int) error {
	if value != nil {
		device.Value = float64(*value)
	}
	return nil
}
