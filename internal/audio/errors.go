package audio

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceNotFound    = errors.New("audio device not found")
	ErrInvalidDeviceRole = errors.New("audio device cannot serve its role")
	ErrStreamOpen        = errors.New("failed to open audio stream")
	ErrSubsystem         = errors.New("audio subsystem error")
	ErrFrameLength       = errors.New("buffer length does not match frame length")
)

// Role names the side of a duplex stream a device was selected for.
type Role int

const (
	RoleInput Role = iota
	RoleOutput
	// RoleDuplex means neither side is usable.
	RoleDuplex
)

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleOutput:
		return "output"
	case RoleDuplex:
		return "input and output"
	default:
		return "unknown"
	}
}

type DeviceNotFoundError struct {
	Index int
	Role  Role
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("%s device %d is unavailable", e.Role, e.Index)
}

func (e *DeviceNotFoundError) Is(target error) bool { return target == ErrDeviceNotFound }

// InvalidDeviceRoleError reports a device that exists but has no channels
// for the side it was chosen for.
type InvalidDeviceRoleError struct {
	Index int
	Role  Role
}

func (e *InvalidDeviceRoleError) Error() string {
	switch e.Role {
	case RoleInput:
		return fmt.Sprintf("selected input device %d has no inputs", e.Index)
	case RoleOutput:
		return fmt.Sprintf("selected output device %d has no outputs", e.Index)
	default:
		return "invalid input and output devices"
	}
}

func (e *InvalidDeviceRoleError) Is(target error) bool { return target == ErrInvalidDeviceRole }

type StreamOpenError struct {
	Params StreamParams
	Err    error
}

func (e *StreamOpenError) Error() string {
	return fmt.Sprintf("failed to open duplex stream %d->%d (%d ch, %d Hz, %d frames): %v",
		e.Params.InputDevice, e.Params.OutputDevice, e.Params.Channels,
		e.Params.SampleRate, e.Params.FrameLength, e.Err)
}

func (e *StreamOpenError) Unwrap() error { return e.Err }

func (e *StreamOpenError) Is(target error) bool { return target == ErrStreamOpen }

// SubsystemError carries a native-layer failure as-is.
type SubsystemError struct {
	Op  string
	Err error
}

func (e *SubsystemError) Error() string {
	return fmt.Sprintf("audio subsystem: %s: %v", e.Op, e.Err)
}

func (e *SubsystemError) Unwrap() error { return e.Err }

func (e *SubsystemError) Is(target error) bool { return target == ErrSubsystem }
