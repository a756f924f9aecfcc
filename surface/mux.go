package surface

import (
	"context"
	"errors"
)

var errNoDriver = errors.New("no driver configured for this surface mode")

// Mux routes captures and operations to the driver matching the
// handle's mode. It lets one Source/Executor pair serve both desktop
// and mobile surfaces.
type Mux struct {
	desktop interface {
		Source
		Executor
	}
	mobile interface {
		Source
		Executor
	}
}

// NewMux builds a mux over a desktop and a mobile driver. Either may
// be nil; handles for a missing driver yield CaptureUnavailableError.
func NewMux(desktop *DesktopDriver, mobile *ADB) *Mux {
	m := &Mux{}
	if desktop != nil {
		m.desktop = desktop
	}
	if mobile != nil {
		m.mobile = mobile
	}
	return m
}

func (m *Mux) driver(handle Handle) (interface {
	Source
	Executor
}, error) {
	if handle.Mode == ModeMobile {
		if m.mobile == nil {
			return nil, &CaptureUnavailableError{Handle: handle, Cause: errNoDriver}
		}
		return m.mobile, nil
	}
	if m.desktop == nil {
		return nil, &CaptureUnavailableError{Handle: handle, Cause: errNoDriver}
	}
	return m.desktop, nil
}

// Capture delegates to the driver for the handle's mode.
func (m *Mux) Capture(ctx context.Context, handle Handle) (Snapshot, error) {
	d, err := m.driver(handle)
	if err != nil {
		return Snapshot{}, err
	}
	return d.Capture(ctx, handle)
}

// Execute delegates to the driver for the handle's mode.
func (m *Mux) Execute(ctx context.Context, handle Handle, op Op) (ExecResult, error) {
	d, err := m.driver(handle)
	if err != nil {
		return ExecResult{}, err
	}
	return d.Execute(ctx, handle, op)
}
