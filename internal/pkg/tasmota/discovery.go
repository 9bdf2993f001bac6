package tasmota

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/CyrilB1531/Domosharp-sub000/internal/pkg/model"
)

var ErrInvalidDiscovery = errors.New("tasmota: invalid discovery payload")

type RelayType int

const (
	RelayNone RelayType = iota
	RelaySimple
	RelayLight
	RelayShutter
)

// DiscoveryPayload is what a device publishes on {discoveryTopic}/{mac}/config.
type DiscoveryPayload struct {
	IP             string      `json:"ip"`
	DeviceName     string      `json:"dn"`
	FriendlyNames  []string    `json:"fn"`
	Hostname       string      `json:"hn"`
	MAC            string      `json:"mac"`
	States         []string    `json:"state"`
	Topic          string      `json:"t"`
	FullTopic      string      `json:"ft"`
	TopicPrefixes  []string    `json:"tp"`
	Relays         []RelayType `json:"rl"`
	ShutterOptions []int       `json:"sho"`
	Battery        int         `json:"bat"`
	Version        int         `json:"ver"`
}

var defaultStates = []string{"OFF", "ON", "TOGGLE", "HOLD"}

func parseDiscovery(raw []byte) (*DiscoveryPayload, error) {
	var p DiscoveryPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDiscovery, err)
	}
	if p.MAC == "" {
		return nil, fmt.Errorf("%w: missing mac", ErrInvalidDiscovery)
	}
	if len(p.States) < len(defaultStates) {
		p.States = defaultStates
	}
	return &p, nil
}

// deviceCount returns how many logical devices the relay list describes and
// how many relay slots each of them consumes.
func (p *DiscoveryPayload) deviceCount() (count, step int) {
	count = lo.CountBy(p.Relays, func(r RelayType) bool { return r != RelayNone })
	step = 1
	if len(p.Relays) > 0 && p.Relays[0] == RelayShutter {
		count /= 2
		step = 2
	}
	return count, step
}

// topic expands the full topic template for one of the command, stat and tele roles.
func (p *DiscoveryPayload) topic(role int) string {
	prefix := ""
	if role < len(p.TopicPrefixes) {
		prefix = p.TopicPrefixes[role]
	}
	id := p.MAC
	if len(id) > 6 {
		id = id[len(id)-6:]
	}
	r := strings.NewReplacer(
		"%prefix%", prefix,
		"%topic%", p.Topic,
		"%hostname%", p.Hostname,
		"%id%", id,
	)
	return strings.TrimSuffix(r.Replace(p.FullTopic), "/")
}

const (
	roleCommand = iota
	roleStat
	roleTele
)

func deviceType(r RelayType) model.DeviceType {
	switch r {
	case RelaySimple, RelayLight:
		return model.DeviceTypeLightSwitch
	case RelayShutter:
		return model.DeviceTypeBlinds
	default:
		return model.DeviceTypeUnknown
	}
}

// candidates derives the devices a discovery payload describes. raw is kept as
// SpecificParameters so later payloads can be compared against it.
func candidates(unit model.HardwareUnit, p *DiscoveryPayload, raw []byte) []model.Device {
	count, step := p.deviceCount()
	devices := make([]model.Device, 0, count)
	for slot := 0; slot < len(p.Relays) && len(devices) < count; slot += step {
		if p.Relays[slot] == RelayNone {
			continue
		}
		index := slot/step + 1
		d := model.Device{
			HardwareID:         unit.ID,
			DeviceID:           p.MAC,
			Name:               p.name(index, count),
			Active:             true,
			Type:               deviceType(p.Relays[slot]),
			SignalLevel:        model.DefaultSignalLevel,
			BatteryLevel:       model.DefaultBatteryLevel,
			SpecificParameters: string(raw),
		}
		if count > 1 {
			d.DeviceID = fmt.Sprintf("%s_%d", p.MAC, index)
			d.Index = lo.ToPtr(index)
		}
		devices = append(devices, d)
	}
	return devices
}

func (p *DiscoveryPayload) name(index, count int) string {
	if index-1 < len(p.FriendlyNames) && p.FriendlyNames[index-1] != "" {
		return p.FriendlyNames[index-1]
	}
	if count > 1 {
		return fmt.Sprintf("%s_%d", p.DeviceName, index)
	}
	return p.DeviceName
}
