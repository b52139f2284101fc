// Writer implementation printing formation output to STDOUT
package mission

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"droneops-formation/internal/config"
	"droneops-formation/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorWhite   = "\x1b[37m"
	colorGray    = "\x1b[90m"
)

var modeColors = map[string]string{
	"idle":                colorGray,
	"takeoff":             colorYellow,
	"alongside":           colorGreen,
	"vertical_weave":      colorCyan,
	"descend_to_altitude": colorMagenta,
	"land":                colorBlue,
}

func modeColor(mode string) string {
	if c, ok := modeColors[mode]; ok {
		return c
	}
	return colorWhite
}

// StdoutWriter prints rows to STDOUT, colorized on a terminal and as JSON lines otherwise.
type StdoutWriter struct {
	cfg      *config.FormationConfig
	out      io.Writer
	colorize bool
	once     sync.Once
	mu       sync.Mutex
}

// NewStdoutWriter picks the colorized format when STDOUT is a terminal.
func NewStdoutWriter(cfg *config.FormationConfig) *StdoutWriter {
	return &StdoutWriter{
		cfg:      cfg,
		out:      os.Stdout,
		colorize: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// NewJSONStdoutWriter always prints JSON lines.
func NewJSONStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout}
}

func (w *StdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}
	fmt.Fprintln(w.out, "Formation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Mission:\t%s\n", w.cfg.MissionID)
	fmt.Fprintf(tw, "Takeoff Altitude (m):\t%.1f\n", w.cfg.TakeoffAlt)
	fmt.Fprintf(tw, "Lateral Offset (m):\t%.1f - %.1f\n", w.cfg.MinOffset, w.cfg.MaxOffset)
	fmt.Fprintf(tw, "Cycle Interval:\t%s\n", w.cfg.CycleInterval)
	fmt.Fprintf(tw, "Scenario:\t%s\n", orDash(w.cfg.Scenario))
	tw.Flush()

	fmt.Fprintln(w.out, "\nRoster:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Slot\tID\tHome\n")
	for i, v := range w.cfg.Vehicles {
		fmt.Fprintf(tw, "%d\t%s\t%.5f,%.5f\n", i, v.ID, v.HomeLat, v.HomeLon)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (w *StdoutWriter) printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

func stamp(ts time.Time) string {
	return fmt.Sprintf("%s[%s]%s", colorGray, ts.Format(time.RFC3339), colorReset)
}

// Write outputs a single vehicle row.
func (w *StdoutWriter) Write(row telemetry.VehicleRow) error {
	if !w.colorize {
		return w.printJSON(row)
	}
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()

	armed := colorRed + "disarmed" + colorReset
	if row.Armed {
		armed = colorGreen + "armed" + colorReset
	}
	fmt.Fprintf(w.out, "%s %smode=%s%s %svehicle=%s%s slot=%d %s ",
		stamp(row.Timestamp), modeColor(row.Mode), row.Mode, colorReset,
		colorWhite, row.VehicleID, colorReset, row.Slot, armed)
	fmt.Fprintf(w.out, "%spos=(%.5f,%.5f,%.1f)%s ", colorGreen, row.Lat, row.Lon, row.Alt, colorReset)
	fmt.Fprintf(w.out, "%starget=(%.5f,%.5f,%.1f)%s ", colorYellow, row.TargetLat, row.TargetLon, row.TargetAlt, colorReset)
	fmt.Fprintf(w.out, "%sphase=%.1f%s", colorCyan, row.Phase, colorReset)
	if row.Active {
		fmt.Fprintf(w.out, " %slanding%s", colorMagenta, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple vehicle rows.
func (w *StdoutWriter) WriteBatch(rows []telemetry.VehicleRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteModeChange prints a mode transition.
func (w *StdoutWriter) WriteModeChange(row telemetry.ModeChangeRow) error {
	if !w.colorize {
		return w.printJSON(row)
	}
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %sMODE%s %s -> %s%s%s event=%s\n",
		stamp(row.Timestamp), colorCyan, colorReset,
		row.From, modeColor(row.To), row.To, colorReset, row.Event)
	return nil
}

// WriteCommand prints a recorded command.
func (w *StdoutWriter) WriteCommand(row telemetry.CommandRow) error {
	if !w.colorize {
		return w.printJSON(row)
	}
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %sCMD%s vehicle=%s %s %s", stamp(row.Timestamp), colorBlue, colorReset, row.VehicleID, row.Command, row.Value)
	if row.Error != "" {
		fmt.Fprintf(w.out, " %serr=%s%s", colorRed, row.Error, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteAlert prints an operator alert.
func (w *StdoutWriter) WriteAlert(row telemetry.AlertRow) error {
	if !w.colorize {
		return w.printJSON(row)
	}
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s %sALERT%s kind=%s mode=%s vehicle=%s %s\n",
		stamp(row.Timestamp), colorRed, colorReset, row.Kind, row.Mode, orDash(row.VehicleID), row.Message)
	return nil
}
