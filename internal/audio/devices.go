package audio

import (
	"sort"

	"github.com/rs/zerolog"
)

// Registry maps device index to its descriptor.
type Registry map[int]DeviceInfo

// EnumerateDevices queries the driver for every device. The result is not
// kept in sync with hardware changes.
func EnumerateDevices(d Driver, log zerolog.Logger) (Registry, error) {
	devices, err := d.Devices()
	if err != nil {
		return nil, &SubsystemError{Op: "enumerate devices", Err: err}
	}

	reg := make(Registry, len(devices))
	for _, dev := range devices {
		reg[dev.Index] = dev
	}

	log.Debug().Array("devices", reg).Int("count", len(reg)).Msg("Enumerated audio devices")
	return reg, nil
}

// Sorted returns the devices ordered by index.
func (r Registry) Sorted() []DeviceInfo {
	out := make([]DeviceInfo, 0, len(r))
	for _, d := range r {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (r Registry) MarshalZerologArray(a *zerolog.Array) {
	for _, d := range r.Sorted() {
		a.Object(d)
	}
}

// Inputs returns the devices that can capture.
func (r Registry) Inputs() []DeviceInfo {
	var out []DeviceInfo
	for _, d := range r.Sorted() {
		if d.MaxInputChannels > 0 {
			out = append(out, d)
		}
	}
	return out
}

// Outputs returns the devices that can render.
func (r Registry) Outputs() []DeviceInfo {
	var out []DeviceInfo
	for _, d := range r.Sorted() {
		if d.MaxOutputChannels > 0 {
			out = append(out, d)
		}
	}
	return out
}
