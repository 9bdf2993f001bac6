package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/config"
)

const (
	defaultTimeout       = 5 * time.Second
	dispatchTimeout      = 10 * time.Second
	connectRetryInterval = 5 * time.Second
	maxReconnectInterval = 2 * time.Minute
	defaultKeepAlive     = 60 * time.Second
	disconnectQuiesce    = 250 // milliseconds
)

type clientFactory func(opts *paho_mqtt.ClientOptions) paho_mqtt.Client

type Option func(*service)

// WithClientFactory replaces paho_mqtt.NewClient.
func WithClientFactory(f clientFactory) Option {
	return func(s *service) {
		s.newClient = f
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *service) {
		s.timeout = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

func clientID(unitName, role string) string {
	return fmt.Sprintf("domosharp-%s-%s", slug.Make(unitName), role)
}

func (s *service) clientOptions(role string, onConnect paho_mqtt.OnConnectHandler) *paho_mqtt.ClientOptions {
	opts := paho_mqtt.NewClientOptions()

	scheme := "tcp"
	if s.cfg.UseTLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, s.cfg.Address, s.cfg.Port))
	opts.SetClientID(clientID(s.unit.Name, role))
	if s.cfg.Username != "" {
		opts.SetUsername(s.cfg.Username)
		opts.SetPassword(s.cfg.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(connectRetryInterval)
	opts.SetMaxReconnectInterval(maxReconnectInterval)
	opts.SetConnectTimeout(s.timeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetAutoAckDisabled(true)

	opts.SetConnectionLostHandler(s.onConnectionLost)
	opts.SetReconnectingHandler(func(_ paho_mqtt.Client, _ *paho_mqtt.ClientOptions) {
		s.logger.Debug("reconnecting to broker", zap.String("role", role))
	})
	if onConnect != nil {
		opts.SetOnConnectHandler(onConnect)
	}
	if s.tlsConfig != nil {
		opts.SetTLSConfig(s.tlsConfig)
	}
	return opts
}

// buildTLSConfig accepts whatever certificate the broker presents and
// optionally presents a client certificate.
func buildTLSConfig(cfg config.MQTTConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // trust on first use.
	}
	if cfg.ClientCertificatePath == "" {
		return tlsCfg, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertificatePath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: client certificate: %w", config.ErrInvalidConfiguration, err)
	}
	tlsCfg.Certificates = []tls.Certificate{cert}
	return tlsCfg, nil
}
