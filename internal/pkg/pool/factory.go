package pool

import (
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/config"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/dummy"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/mqtt"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/protocol"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/tasmota"
)

// Build is the default worker.HandlerFactory. It returns a nil handler for
// hardware types that have no transport.
func Build(unit model.HardwareUnit, sink protocol.Sink) (protocol.Handler, error) {
	transport, err := config.ParseTransport(unit)
	if err != nil {
		return nil, err
	}
	switch t := transport.(type) {
	case config.DummyTransport:
		return dummy.New(unit), nil
	case config.MQTTTransport:
		h, err := mqtt.New(unit, t.MQTT, mqtt.NoopDispatcher{})
		if err != nil {
			return nil, err
		}
		return h, nil
	case config.TasmotaTransport:
		h, err := mqtt.New(unit, t.Tasmota.MQTTConfig, tasmota.New(unit, t.Tasmota, sink))
		if err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, nil
}
