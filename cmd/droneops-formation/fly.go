package main

import (
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"droneops-formation/internal/admin"
	"droneops-formation/internal/config"
	"droneops-formation/internal/logging"
	"droneops-formation/internal/mission"
	"droneops-formation/internal/reference"
	"droneops-formation/internal/scenario"
	"droneops-formation/internal/vehicle"
)

var (
	flyPrintOnly  bool
	flyTUI        bool
	flyConfigPath string
	flySchemaPath string
	flyLogFile    string
	flyPhysics    time.Duration
)

var flyCmd = &cobra.Command{
	Use:   "fly",
	Short: "Fly the formation against simulated vehicles",
	Long:  "fly runs the formation controller against simulated vehicle links and a simulated reference circuit.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flyConfigPath, flySchemaPath)
		if err != nil {
			return err
		}

		log := slog.Default()
		if flyTUI && logOutput == "" {
			// the console owns the terminal
			log = slog.New(slog.NewTextHandler(io.Discard, nil))
			slog.SetDefault(log)
		}

		writer, cleanup, err := newWriters(cfg, flyPrintOnly, flyTUI, flyLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		var sup mission.Supervisor
		if cfg.Scenario != "" {
			sc, err := scenario.Resolve(cfg.Scenario)
			if err != nil {
				return err
			}
			sup = scenario.NewDirector(sc, log)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log.With("mission_id", cfg.MissionID))

		feed := reference.NewFeed()
		runner := mission.NewRunner(mission.Settings{
			MissionID:  cfg.MissionID,
			Interval:   cfg.CycleInterval,
			Supervisor: sup,
		}, cfg.Formation(), feed, writer)

		g, ctx := errgroup.WithContext(ctx)
		circuit := cfg.Circuit()
		g.Go(func() error { return feed.Run(ctx) })
		g.Go(func() error { return circuit.Pump(ctx, feed, cfg.CycleInterval) })

		seed := rand.New(rand.NewSource(time.Now().UnixNano()))
		for _, v := range cfg.Vehicles {
			link := vehicle.NewSimLink(v.ID, v.Home(), cfg.SimLink(), rand.New(rand.NewSource(seed.Int63())))
			if err := runner.AddVehicle(v.ID, link); err != nil {
				return err
			}
			g.Go(func() error { return link.Run(ctx, flyPhysics) })
		}

		if cfg.AdminAddr != "" {
			srv := admin.NewServer(runner)
			g.Go(func() error { return srv.Start(ctx, cfg.AdminAddr) })
			if aw, ok := writer.(mission.AdminStatusWriter); ok {
				aw.SetAdminStatus(true)
			}
		}

		g.Go(func() error { return runner.Run(ctx) })

		err = g.Wait()
		st := runner.Status()
		log.Info("formation stopped", "mode", st.Mode, "cycles", st.Cycles, "run_id", st.RunID)
		return err
	},
}

func init() {
	flyCmd.Flags().BoolVar(&flyPrintOnly, "print-only", false, "Print rows to STDOUT instead of writing to DB")
	flyCmd.Flags().BoolVar(&flyTUI, "tui", false, "Show the interactive operator console")
	flyCmd.Flags().StringVar(&flyConfigPath, "config", "config/formation.yaml", "Path to formation configuration YAML")
	flyCmd.Flags().StringVar(&flySchemaPath, "schema", "schemas/formation.cue", "Path to CUE schema file")
	flyCmd.Flags().StringVar(&flyLogFile, "log-file", "", "Path to export vehicle/mode/command/alert logs (JSONL)")
	flyCmd.Flags().DurationVar(&flyPhysics, "physics-step", 100*time.Millisecond, "Simulated vehicle integration step")
}
