package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"droneops-formation/internal/config"
	"droneops-formation/internal/scenario"
)

var (
	validateConfigPath string
	validateSchemaPath string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a formation configuration",
	Long:  "validate checks the configuration against the CUE schema, the cross-field rules and its scenario.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(validateConfigPath, validateSchemaPath)
		if err != nil {
			return err
		}
		scName := "manual"
		if cfg.Scenario != "" {
			sc, err := scenario.Resolve(cfg.Scenario)
			if err != nil {
				return err
			}
			scName = fmt.Sprintf("%s (%d phases)", sc.Name, len(sc.Phases))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "config ok: mission %s, %d vehicles, scenario %s\n",
			cfg.MissionID, len(cfg.Vehicles), scName)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "config/formation.yaml", "Path to formation configuration YAML")
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema", "schemas/formation.cue", "Path to CUE schema file")
}
