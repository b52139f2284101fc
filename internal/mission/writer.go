// Package mission runs the formation controller on a schedule and fans its
// output out to telemetry sinks.
package mission

import "droneops-formation/internal/telemetry"

// TelemetryWriter receives per-cycle vehicle rows.
type TelemetryWriter interface {
	Write(telemetry.VehicleRow) error
}

// Optional: writers can also support batch mode.
type batchWriter interface {
	WriteBatch([]telemetry.VehicleRow) error
}

// ModeWriter handles formation mode transitions.
type ModeWriter interface {
	WriteModeChange(telemetry.ModeChangeRow) error
}

// CommandWriter handles recorded vehicle commands.
type CommandWriter interface {
	WriteCommand(telemetry.CommandRow) error
}

// AlertWriter handles operator alerts.
type AlertWriter interface {
	WriteAlert(telemetry.AlertRow) error
}

// AdminStatusWriter allows writers to receive admin UI status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

// ModeRequester lets interactive writers queue operator mode requests.
type ModeRequester interface {
	SetModeRequester(func(mode string) error)
}

// writeRows uses batch mode when the writer supports it.
func writeRows(w TelemetryWriter, rows []telemetry.VehicleRow) error {
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
