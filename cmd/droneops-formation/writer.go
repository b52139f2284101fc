package main

import (
	"os"

	"droneops-formation/internal/config"
	"droneops-formation/internal/mission"
)

// newWriters sets up the output sinks based on flags and env vars. It returns
// the writer and a cleanup function to close any resources.
func newWriters(cfg *config.FormationConfig, printOnly, tui bool, logFile string) (mission.TelemetryWriter, func(), error) {
	base, closeBase, err := baseWriter(cfg, printOnly, tui)
	if err != nil {
		return nil, nil, err
	}
	if logFile == "" {
		return base, closeBase, nil
	}

	fw, err := mission.NewFileWriter(logFile, logFile+".modes", logFile+".commands", logFile+".alerts")
	if err != nil {
		closeBase()
		return nil, nil, err
	}
	cleanup := func() {
		closeBase()
		fw.Close()
	}
	return mission.NewMultiWriter(base, fw), cleanup, nil
}

// baseWriter chooses the primary sink: the console, GreptimeDB or STDOUT.
func baseWriter(cfg *config.FormationConfig, printOnly, tui bool) (mission.TelemetryWriter, func(), error) {
	if tui {
		w := mission.NewTUIWriter(cfg)
		return w, func() { w.Close() }, nil
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if printOnly || endpoint == "" {
		if cfg == nil {
			return mission.NewJSONStdoutWriter(), func() {}, nil
		}
		return mission.NewStdoutWriter(cfg), func() {}, nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	w, err := mission.NewGreptimeDBWriter(endpoint, database)
	if err != nil {
		return nil, nil, err
	}
	return w, func() {}, nil
}
