package audio

import (
	"fmt"
	"runtime"

	"github.com/gen2brain/malgo"
)

// DeviceInfo describes one capture device as reported by the audio backend.
type DeviceInfo struct {
	Name      string // Human-readable device name
	IsDefault bool   // Whether this is the system default input
}

// String returns a human-readable representation of the device.
func (d DeviceInfo) String() string {
	if d.IsDefault {
		return d.Name + " [DEFAULT]"
	}
	return d.Name
}

// preferredBackends returns the backend probe order for this platform. On
// Linux the low-latency JACK backend is tried first; elsewhere the platform
// default order applies.
func preferredBackends() []malgo.Backend {
	if runtime.GOOS == "linux" {
		return []malgo.Backend{
			malgo.BackendJack,
			malgo.BackendPulseaudio,
			malgo.BackendAlsa,
		}
	}
	return nil
}

// ListDevices enumerates the capture devices visible to the audio backend.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(preferredBackends(), malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio backend: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			Name:      info.Name(),
			IsDefault: info.IsDefault > 0,
		})
	}
	return devices, nil
}

// findCaptureDevice searches the enumerated capture devices for an exact
// name match and returns its backend ID, or nil when the name matches
// nothing (callers fall back to the system default input).
func findCaptureDevice(ctx *malgo.AllocatedContext, name string) *malgo.DeviceID {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil
	}
	for _, info := range infos {
		if info.Name() == name {
			id := info.ID
			return &id
		}
	}
	return nil
}
