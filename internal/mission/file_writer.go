package mission

import (
	"encoding/json"
	"errors"
	"os"

	"droneops-formation/internal/telemetry"
)

// FileWriter writes vehicle rows and optional event logs to JSONL files.
type FileWriter struct {
	files    []*os.File
	vehEnc   *json.Encoder
	modeEnc  *json.Encoder
	cmdEnc   *json.Encoder
	alertEnc *json.Encoder
}

// NewFileWriter creates a FileWriter. modePath, commandPath or alertPath may
// be empty to skip those logs.
func NewFileWriter(vehiclePath, modePath, commandPath, alertPath string) (*FileWriter, error) {
	fw := &FileWriter{}
	open := func(path string) (*json.Encoder, error) {
		if path == "" {
			return nil, nil
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		fw.files = append(fw.files, f)
		return json.NewEncoder(f), nil
	}

	var err error
	if fw.vehEnc, err = open(vehiclePath); err != nil {
		return nil, err
	}
	if fw.modeEnc, err = open(modePath); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.cmdEnc, err = open(commandPath); err != nil {
		fw.Close()
		return nil, err
	}
	if fw.alertEnc, err = open(alertPath); err != nil {
		fw.Close()
		return nil, err
	}
	return fw, nil
}

// Write logs a single vehicle row.
func (f *FileWriter) Write(row telemetry.VehicleRow) error {
	if f.vehEnc == nil {
		return nil
	}
	return f.vehEnc.Encode(row)
}

// WriteBatch logs multiple vehicle rows.
func (f *FileWriter) WriteBatch(rows []telemetry.VehicleRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteModeChange logs a mode transition, if enabled.
func (f *FileWriter) WriteModeChange(row telemetry.ModeChangeRow) error {
	if f.modeEnc == nil {
		return nil
	}
	return f.modeEnc.Encode(row)
}

// WriteCommand logs a command row, if enabled.
func (f *FileWriter) WriteCommand(row telemetry.CommandRow) error {
	if f.cmdEnc == nil {
		return nil
	}
	return f.cmdEnc.Encode(row)
}

// WriteAlert logs an alert row, if enabled.
func (f *FileWriter) WriteAlert(row telemetry.AlertRow) error {
	if f.alertEnc == nil {
		return nil
	}
	return f.alertEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var errs []error
	for _, file := range f.files {
		errs = append(errs, file.Close())
	}
	f.files = nil
	return errors.Join(errs...)
}
