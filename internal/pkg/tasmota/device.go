package tasmota

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/metrics"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/protocol"
)

const (
	suffixState  = "STATE"
	suffixSensor = "SENSOR"
	suffixResult = "RESULT"

	valueOff = 0
	valueOn  = 100
)

// deviceHandler interprets the telemetry of one known device.
// discovery is nil for devices whose stored parameters are not a discovery payload.
type deviceHandler struct {
	device    *model.Device
	discovery *DiscoveryPayload
	command   string
	stat      string
	tele      string

	hardware string
	sink     protocol.Sink
	logger   *zap.Logger
}

func newDeviceHandler(hardware string, device *model.Device, sink protocol.Sink, logger *zap.Logger) *deviceHandler {
	h := &deviceHandler{
		device:   device,
		hardware: hardware,
		sink:     sink,
		logger: logger.With(zap.Int("device_id", device.ID), zap.String("device", device.DeviceID)),
	}
	if device.SpecificParameters == "" {
		return h
	}
	p, err := parseDiscovery([]byte(device.SpecificParameters))
	if err != nil {
		h.logger.Debug("device has no discovery parameters", zap.Error(err))
		return h
	}
	h.discovery = p
	h.command = p.topic(roleCommand)
	h.stat = p.topic(roleStat)
	h.tele = p.topic(roleTele)
	return h
}

// differs reports whether a rediscovered device must replace h.
func (h *deviceHandler) differs(o *deviceHandler) bool {
	return h.device.SpecificParameters != o.device.SpecificParameters ||
		h.device.SignalLevel != o.device.SignalLevel ||
		h.device.BatteryLevel != o.device.BatteryLevel ||
		h.device.Type != o.device.Type ||
		h.command != o.command ||
		h.stat != o.stat ||
		h.tele != o.tele
}

// sameUnit reports whether both handlers belong to the same physical unit.
func (h *deviceHandler) sameUnit(o *deviceHandler) bool {
	return h.discovery != nil && o.discovery != nil && h.tele == o.tele
}

func (h *deviceHandler) handle(ctx context.Context, topic string, payload []byte) bool {
	if h.discovery == nil || !h.device.Active {
		return false
	}
	switch topic {
	case h.tele + "/" + suffixState:
		return h.handleState(ctx, payload)
	case h.tele + "/" + suffixSensor:
		return h.handleSensor(ctx, payload)
	case h.stat + "/" + suffixResult:
		if h.device.Type != model.DeviceTypeBlinds {
			return false
		}
		return h.settle(ctx, payload, "result")
	}
	return false
}

type wifiState struct {
	Signal *int `json:"Signal"`
}

func (h *deviceHandler) handleState(ctx context.Context, payload []byte) bool {
	var state map[string]json.RawMessage
	if err := json.Unmarshal(payload, &state); err != nil {
		h.logger.Debug("malformed state payload", zap.Error(err))
		return false
	}

	persist := false
	previous := h.device.Value
	if h.device.Type == model.DeviceTypeLightSwitch {
		if v, ok := h.power(state); ok {
			h.device.Value = v
			persist = true
		}
	}
	if raw, ok := state["Wifi"]; ok {
		var wifi wifiState
		if err := json.Unmarshal(raw, &wifi); err == nil && wifi.Signal != nil {
			h.device.SignalLevel = *wifi.Signal
			persist = true
		}
	}
	if !persist {
		return false
	}

	metrics.TelemetryMessages.WithLabelValues(h.hardware, "state").Inc()
	h.sink.UpdateDevice(ctx, h.device)
	h.writeBack(previous)
	return true
}

// power maps the POWER (or POWER{index}) entry onto a switch value using the
// unit's state vocabulary.
func (h *deviceHandler) power(state map[string]json.RawMessage) (float64, bool) {
	key := "POWER"
	if h.device.Index != nil {
		key = fmt.Sprintf("POWER%d", *h.device.Index)
	}
	raw, ok := state[key]
	if !ok {
		return 0, false
	}
	var power string
	if err := json.Unmarshal(raw, &power); err != nil {
		return 0, false
	}
	vocabulary := h.discovery.States
	switch power {
	case vocabulary[0]:
		return valueOff, true
	case vocabulary[1]:
		return valueOn, true
	case vocabulary[2]:
		if h.device.Value == valueOff {
			return valueOn, true
		}
		return valueOff, true
	}
	return 0, false
}

func (h *deviceHandler) handleSensor(ctx context.Context, payload []byte) bool {
	switch h.device.Type {
	case model.DeviceTypeBlinds:
		return h.settle(ctx, payload, "sensor")
	case model.DeviceTypeSensor:
		return h.temperature(ctx, payload)
	}
	return false
}

type shutterState struct {
	Position *int `json:"Position"`
	Target   *int `json:"Target"`
	Tilt     *int `json:"Tilt"`
}

// settle accepts a blind position only once it has reached its target.
func (h *deviceHandler) settle(ctx context.Context, payload []byte, kind string) bool {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		h.logger.Debug("malformed shutter payload", zap.Error(err))
		return false
	}
	index := 1
	if h.device.Index != nil {
		index = *h.device.Index
	}
	raw, ok := body[fmt.Sprintf("Shutter%d", index)]
	if !ok {
		return false
	}
	var shutter shutterState
	if err := json.Unmarshal(raw, &shutter); err != nil || shutter.Position == nil || shutter.Target == nil {
		return false
	}
	if *shutter.Position != *shutter.Target {
		return true
	}

	metrics.TelemetryMessages.WithLabelValues(h.hardware, kind).Inc()
	previous := h.device.Value
	h.device.Value = float64(*shutter.Position)
	h.sink.UpdateDevice(ctx, h.device)
	h.writeBack(previous)
	return true
}

// temperature reads ESP32.Temperature, or the first sensor object carrying a Temperature.
func (h *deviceHandler) temperature(ctx context.Context, payload []byte) bool {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		h.logger.Debug("malformed sensor payload", zap.Error(err))
		return false
	}
	var reading struct {
		Temperature *float64 `json:"Temperature"`
	}
	found := false
	if raw, ok := body["ESP32"]; ok {
		found = json.Unmarshal(raw, &reading) == nil && reading.Temperature != nil
	}
	if !found {
		for _, raw := range body {
			if json.Unmarshal(raw, &reading) == nil && reading.Temperature != nil {
				found = true
				break
			}
		}
	}
	if !found {
		return false
	}

	metrics.TelemetryMessages.WithLabelValues(h.hardware, "sensor").Inc()
	h.device.Value = *reading.Temperature
	h.sink.UpdateDevice(ctx, h.device)
	return true
}

func (h *deviceHandler) writeBack(previous float64) {
	if h.device.Value == previous {
		return
	}
	v := int(h.device.Value)
	h.sink.UpdateValue(h.device.Clone(), &v)
}
