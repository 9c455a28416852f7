// Package cmd contains the CLI commands for alertctl.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Used for flags
	output string
	dbPath string
)

// defaultDBPath is the default database path, can be overridden via
// ALERTFLOW_DB_PATH env var.
var defaultDBPath = "data/alertflow.db"

func init() {
	if envPath := os.Getenv("ALERTFLOW_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alertctl",
	Short: "AlertFlow - Device telemetry alerting toolkit",
	Long: `alertctl manages AlertFlow rule configuration and inspects the
alerting database.

Examples:
  # Validate a rules file before deploying it
  alertctl rules validate rules.yaml

  # List rules stored in the database
  alertctl rules list

  # Import rules, templates, and receivers from a YAML file
  alertctl rules import rules.yaml

  # Test-render an alert template
  alertctl render --title '[${level}] ${metricName}' --message 'value ${value}'`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "database file path")
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}
