package model

import "go.uber.org/zap/zapcore"

type HardwareType int

func (ht HardwareType) String() string {
	switch ht {
	case HardwareTypeDummy:
		return "dummy"
	case HardwareTypeMQTT:
		return "mqtt"
	case HardwareTypeMQTTTasmota:
		return "mqtt_tasmota"
	case HardwareTypeSystem:
		return "system"
	}
	return "unknown"
}

const (
	HardwareTypeDummy HardwareType = iota
	HardwareTypeMQTT
	HardwareTypeMQTTTasmota
	HardwareTypeSystem
)

type DeviceType int

func (dt DeviceType) String() string {
	switch dt {
	case DeviceTypeLightSwitch:
		return "light_switch"
	case DeviceTypeBlinds:
		return "blinds"
	case DeviceTypeSensor:
		return "sensor"
	}
	return "unknown"
}

const (
	DeviceTypeUnknown DeviceType = iota
	DeviceTypeLightSwitch
	DeviceTypeBlinds
	DeviceTypeSensor
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

// ZapLevel maps a unit log level onto the zap level it filters at.
func (l LogLevel) ZapLevel() zapcore.Level {
	switch l {
	case LogLevelInfo:
		return zapcore.InfoLevel
	case LogLevelWarning:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	}
	return zapcore.DebugLevel
}

type MessageKind int

func (mk MessageKind) String() string {
	if mk == UpdateValue {
		return "update_value"
	}
	return "send_value"
}

const (
	SendValue MessageKind = iota
	UpdateValue
)

// Default readings for devices that never reported one.
const (
	DefaultSignalLevel  = 12
	DefaultBatteryLevel = 255
)
