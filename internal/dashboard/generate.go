// Package dashboard renders Grafana dashboards over the formation tables.
package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"droneops-formation/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Tables names the GreptimeDB tables a dashboard queries.
type Tables struct {
	Vehicles string
	Modes    string
	Commands string
	Alerts   string
}

// DefaultTables returns the table names the controller writes to.
func DefaultTables() Tables {
	return Tables{
		Vehicles: telemetry.VehicleTableName,
		Modes:    telemetry.ModeChangeTableName,
		Commands: telemetry.CommandTableName,
		Alerts:   telemetry.AlertTableName,
	}
}

// Render writes every dashboard template to outDir. GREPTIMEDB_DATASOURCE_UID
// must name the Grafana datasource.
func Render(outDir string, tables Tables) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
	}
	tpl, err := template.New("dashboards").Funcs(funcMap).ParseFS(templates, "templates/*.tmpl")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, t := range tpl.Templates() {
		if !strings.HasSuffix(t.Name(), ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(t.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := t.Execute(f, tables); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", t.Name(), err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
