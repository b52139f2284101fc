package mission

import (
	"errors"

	"droneops-formation/internal/telemetry"
)

// MultiWriter fans rows out to several writers. Optional row kinds are only
// forwarded to writers that implement them.
type MultiWriter struct {
	writers []TelemetryWriter
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...TelemetryWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Write sends a vehicle row to all writers.
func (mw *MultiWriter) Write(row telemetry.VehicleRow) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.Write(row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteBatch sends multiple rows to all writers, using batch if supported.
func (mw *MultiWriter) WriteBatch(rows []telemetry.VehicleRow) error {
	var errs []error
	for _, w := range mw.writers {
		if err := writeRows(w, rows); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteModeChange forwards a mode transition.
func (mw *MultiWriter) WriteModeChange(row telemetry.ModeChangeRow) error {
	var errs []error
	for _, w := range mw.writers {
		if mwr, ok := w.(ModeWriter); ok {
			if err := mwr.WriteModeChange(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteCommand forwards a recorded command.
func (mw *MultiWriter) WriteCommand(row telemetry.CommandRow) error {
	var errs []error
	for _, w := range mw.writers {
		if cw, ok := w.(CommandWriter); ok {
			if err := cw.WriteCommand(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// WriteAlert forwards an operator alert.
func (mw *MultiWriter) WriteAlert(row telemetry.AlertRow) error {
	var errs []error
	for _, w := range mw.writers {
		if aw, ok := w.(AlertWriter); ok {
			if err := aw.WriteAlert(row); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// SetAdminStatus forwards admin UI status to writers that display it.
func (mw *MultiWriter) SetAdminStatus(listening bool) {
	for _, w := range mw.writers {
		if aw, ok := w.(AdminStatusWriter); ok {
			aw.SetAdminStatus(listening)
		}
	}
}

// SetModeRequester forwards fn to interactive writers.
func (mw *MultiWriter) SetModeRequester(fn func(string) error) {
	for _, w := range mw.writers {
		if mr, ok := w.(ModeRequester); ok {
			mr.SetModeRequester(fn)
		}
	}
}
