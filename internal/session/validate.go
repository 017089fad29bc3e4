package session

import (
	"github.com/rs/zerolog"

	"github.com/petems/dspio/internal/audio"
)

// ValidateDevices checks that in can capture and out can render. It runs
// against a fresh enumeration and before any stream is opened. The input
// side is checked first.
func ValidateDevices(d audio.Driver, in, out int, log zerolog.Logger) error {
	devices, err := audio.EnumerateDevices(d, log)
	if err != nil {
		return err
	}

	inDev, ok := devices[in]
	if !ok {
		return &audio.DeviceNotFoundError{Index: in, Role: audio.RoleInput}
	}
	outDev, ok := devices[out]
	if !ok {
		return &audio.DeviceNotFoundError{Index: out, Role: audio.RoleOutput}
	}

	switch {
	case inDev.MaxInputChannels == 0 && outDev.MaxOutputChannels == 0:
		return &audio.InvalidDeviceRoleError{Index: in, Role: audio.RoleDuplex}
	case inDev.MaxInputChannels == 0:
		return &audio.InvalidDeviceRoleError{Index: in, Role: audio.RoleInput}
	case outDev.MaxOutputChannels == 0:
		return &audio.InvalidDeviceRoleError{Index: out, Role: audio.RoleOutput}
	}
	return nil
}
