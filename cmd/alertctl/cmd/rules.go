package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridwatch/alertflow/internal/snapshot"
	"github.com/gridwatch/alertflow/internal/storage"
)

// rulesCmd represents the rules command group
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Rule configuration commands",
	Long: `Commands for managing alert rules.

Rules can live in the AlertFlow database or in a YAML file. These
commands validate rule files, inspect the database, and import file
contents into the database.

Examples:
  # Validate a rules file
  alertctl rules validate rules.yaml

  # List rules stored in the database
  alertctl rules list

  # Import a rules file into the database
  alertctl rules import rules.yaml`,
}

// rulesValidateCmd validates a YAML rules file
var rulesValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a YAML rules file",
	Long: `Parse a YAML rules file and check every rule for errors.

Checks operators, device filter regexes, consecutive counts, and
cooldown durations. Exits non-zero if the file is invalid.

Example:
  alertctl rules validate rules.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read rules file: %w", err)
		}

		rules, templates, receivers, err := snapshot.ParseConfig(data)
		if err != nil {
			return fmt.Errorf("parse rules file: %w", err)
		}

		var invalid int
		for _, rule := range rules {
			if err := rule.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "rule %q: %v\n", rule.Name, err)
				invalid++
			}
		}
		if invalid > 0 {
			return fmt.Errorf("%d invalid rule(s)", invalid)
		}

		fmt.Printf("OK: %d rule(s), %d template(s), %d receiver(s)\n",
			len(rules), len(templates), len(receivers))
		return nil
	},
}

// rulesListCmd lists rules stored in the database
var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in the database",
	Long: `List all alert rules stored in the database.

Example:
  alertctl rules list --db data/alertflow.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		rules, err := store.ListRules(context.Background())
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}

		if GetOutput() == "json" {
			data, _ := json.MarshalIndent(rules, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(rules) == 0 {
			fmt.Println("No rules found.")
			return nil
		}

		fmt.Printf("\n%-4s  %-24s  %-16s  %-10s  %-8s  %-6s  %-8s  %s\n",
			"ID", "NAME", "METRIC", "CONDITION", "LEVEL", "COUNT", "COOLDOWN", "ENABLED")
		fmt.Println(strings.Repeat("-", 100))
		for _, r := range rules {
			fmt.Printf("%-4d  %-24s  %-16s  %-10s  %-8s  %-6d  %-8s  %v\n",
				r.ID, r.Name, r.MetricName,
				fmt.Sprintf("%s %g", r.Operator, r.Threshold),
				r.Level, r.ConsecutiveCount, r.Cooldown, r.Enabled)
		}
		fmt.Println()
		return nil
	},
}

// rulesImportCmd imports a YAML rules file into the database
var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a YAML rules file into the database",
	Long: `Parse a YAML rules file and insert its rules, templates, and
receivers into the database. Existing rows are left untouched; imported
entries get fresh ids.

Example:
  alertctl rules import rules.yaml --db data/alertflow.db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read rules file: %w", err)
		}

		rules, templates, receivers, err := snapshot.ParseConfig(data)
		if err != nil {
			return fmt.Errorf("parse rules file: %w", err)
		}
		for _, rule := range rules {
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("rule %q: %w", rule.Name, err)
			}
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()

		// Templates get fresh database ids, so rule references are remapped
		// from the file-local ids.
		templateIDs := make(map[int64]int64, len(templates))
		for _, tpl := range templates {
			fileID := tpl.ID
			if err := store.CreateTemplate(ctx, tpl); err != nil {
				return fmt.Errorf("import template %q: %w", tpl.Name, err)
			}
			templateIDs[fileID] = tpl.ID
			fmt.Printf("template %q imported with id %d\n", tpl.Name, tpl.ID)
		}
		for _, rule := range rules {
			if rule.TemplateID != 0 {
				newID, ok := templateIDs[rule.TemplateID]
				if !ok {
					return fmt.Errorf("rule %q references unknown template %d", rule.Name, rule.TemplateID)
				}
				rule.TemplateID = newID
			}
			if err := store.CreateRule(ctx, rule); err != nil {
				return fmt.Errorf("import rule %q: %w", rule.Name, err)
			}
			fmt.Printf("rule %q imported with id %d\n", rule.Name, rule.ID)
		}
		for _, rcv := range receivers {
			if err := store.CreateReceiver(ctx, rcv); err != nil {
				return fmt.Errorf("import receiver %q: %w", rcv.Name, err)
			}
			fmt.Printf("receiver %q imported with id %d\n", rcv.Name, rcv.ID)
		}

		return nil
	},
}

// openDB opens the database and runs migrations.
func openDB() (*storage.SQLiteStorage, error) {
	store := storage.NewSQLiteStorage(dbPath)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func init() {
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rootCmd.AddCommand(rulesCmd)
}
