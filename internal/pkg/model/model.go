package model

import "time"

type HardwareUnit struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Enabled       bool         `json:"enabled"`
	Type          HardwareType `json:"type"`
	LogLevel      LogLevel     `json:"log_level"`
	Order         int          `json:"order"`
	Configuration string       `json:"configuration"` // protocol specific JSON.
	LastUpdate    time.Time    `json:"last_update"`
}

type Device struct {
	ID                 int           `json:"id"`
	HardwareID         int           `json:"hardware_id"`
	DeviceID           string        `json:"device_id"` // protocol identifier, unique per hardware.
	Name               string        `json:"name"`
	Active             bool          `json:"active"`
	Type               DeviceType    `json:"type"`
	Favorite           bool          `json:"favorite"`
	SignalLevel        int           `json:"signal_level"`
	BatteryLevel       int           `json:"battery_level"`
	Order              int           `json:"order"`
	Protected          bool          `json:"protected"`
	SpecificParameters string        `json:"specific_parameters"`
	Value              float64       `json:"value"`
	Index              *int          `json:"index,omitempty"` // position within a multi relay unit.
	LastUpdate         time.Time     `json:"last_update"`
	Hardware           *HardwareUnit `json:"-"`
}

// Clone returns a copy that shares no pointers with d, except the hardware back reference.
func (d *Device) Clone() *Device {
	c := *d
	if d.Index != nil {
		idx := *d.Index
		c.Index = &idx
	}
	return &c
}

// Message moves a command or a value update onto a hardware unit's queue.
type Message struct {
	kind    MessageKind
	device  *Device
	command string
	value   *int
}

func NewSendValue(device *Device, command string, value *int) Message {
	return Message{kind: SendValue, device: device, command: command, value: copyInt(value)}
}

func NewUpdateValue(device *Device, value *int) Message {
	return Message{kind: UpdateValue, device: device, value: copyInt(value)}
}

func (m Message) Kind() MessageKind { return m.kind }
func (m Message) Device() *Device   { return m.device }
func (m Message) Command() string   { return m.command }

func (m Message) Value() *int { return copyInt(m.value) }

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
