package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

var (
	ErrInvalidConfiguration = errors.New("invalid hardware configuration")
	ErrInvalidPort          = errors.New("port out of range")
)

const (
	defaultMQTTPort        = 1883
	defaultMQTTTLSPort     = 8883
	DefaultDiscoveryTopic  = "tasmota/discovery"
	maxPort                = 65535
	defaultTasmotaTelePref = "tele"
	defaultTasmotaStatPref = "stat"
)

type MQTTConfig struct {
	Address               string   `json:"address"`
	Port                  int      `json:"port"`
	Username              string   `json:"username"`
	Password              string   `json:"password"`
	UseTLS                bool     `json:"useTLS"`
	ClientCertificatePath string   `json:"clientCertificatePath"`
	ClientKeyPath         string   `json:"clientKeyPath"`
	SubscriptionsIn       []string `json:"subscriptionsIn"`
	SubscriptionsOut      []string `json:"subscriptionsOut"`
	QoS                   byte     `json:"qos"`
}

type TasmotaConfig struct {
	MQTTConfig
	DiscoveryTopic string `json:"discoveryTopic"`
}

// Transport is the parsed form of a unit's configuration blob:
// one of DummyTransport, MQTTTransport or TasmotaTransport.
type Transport interface {
	transport()
}

type DummyTransport struct{}

type MQTTTransport struct {
	MQTT MQTTConfig
}

type TasmotaTransport struct {
	Tasmota TasmotaConfig
}

func (DummyTransport) transport()   {}
func (MQTTTransport) transport()    {}
func (TasmotaTransport) transport() {}

// ParseTransport decodes the unit's configuration for its hardware type.
// Unsupported hardware types yield a nil Transport and no error.
func ParseTransport(unit model.HardwareUnit) (Transport, error) {
	switch unit.Type {
	case model.HardwareTypeDummy:
		return DummyTransport{}, nil
	case model.HardwareTypeMQTT:
		cfg := MQTTConfig{}
		if err := decode(unit.Configuration, &cfg); err != nil {
			return nil, err
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return MQTTTransport{MQTT: cfg}, nil
	case model.HardwareTypeMQTTTasmota:
		cfg := TasmotaConfig{}
		if err := decode(unit.Configuration, &cfg); err != nil {
			return nil, err
		}
		if cfg.DiscoveryTopic == "" {
			cfg.DiscoveryTopic = DefaultDiscoveryTopic
		}
		if len(cfg.SubscriptionsIn) == 0 {
			cfg.SubscriptionsIn = []string{cfg.DiscoveryTopic, defaultTasmotaTelePref, defaultTasmotaStatPref}
		}
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return TasmotaTransport{Tasmota: cfg}, nil
	}
	return nil, nil
}

func decode(raw string, out any) error {
	if raw == "" {
		return fmt.Errorf("%w: empty configuration", ErrInvalidConfiguration)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	return nil
}

func (c *MQTTConfig) validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidConfiguration)
	}
	if c.Port == 0 {
		c.Port = defaultMQTTPort
		if c.UseTLS {
			c.Port = defaultMQTTTLSPort
		}
	}
	if c.Port < 0 || c.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if c.QoS > 2 {
		return fmt.Errorf("%w: qos %d", ErrInvalidConfiguration, c.QoS)
	}
	if c.ClientCertificatePath != "" && c.ClientKeyPath == "" {
		return fmt.Errorf("%w: client key path is required with a client certificate", ErrInvalidConfiguration)
	}
	return nil
}
