package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"droneops-formation/internal/logging"
)

var (
	logLevel  string
	logOutput string
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "droneops-formation",
	Short: "DroneOps swarm formation controller",
	Long:  "droneops-formation flies a group of vehicles in formation around a moving reference and lands them one at a time.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, closer, err := logging.New(logging.Options{Level: logLevel, File: logOutput})
		if err != nil {
			return err
		}
		slog.SetDefault(l)
		logCloser = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "", "Write JSON logs to this rotating file instead of STDOUT")
	rootCmd.AddCommand(flyCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(dashboardCmd)
}
