package mission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"droneops-formation/internal/telemetry"
)

// ReplayLog replays vehicle rows from r to writer. A speed >0 scales the
// recorded spacing between rows; speed <= 0 replays without delay.
func ReplayLog(ctx context.Context, r io.Reader, writer TelemetryWriter, speed float64) error {
	dec := json.NewDecoder(r)
	var prev time.Time
	for {
		var row telemetry.VehicleRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if !prev.IsZero() && speed > 0 {
			diff := time.Duration(float64(row.Timestamp.Sub(prev)) / speed)
			if diff > 0 {
				t := time.NewTimer(diff)
				select {
				case <-t.C:
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				}
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
		prev = row.Timestamp
	}
}

// ReplayLogFile opens a file and replays its vehicle rows.
func ReplayLogFile(ctx context.Context, path string, writer TelemetryWriter, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(ctx, f, writer, speed)
}
