package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridwatch/alertflow/internal/models"
	"github.com/gridwatch/alertflow/internal/template"
)

var (
	renderTitle     string
	renderMessage   string
	renderDeviceID  string
	renderMetric    string
	renderValue     float64
	renderThreshold float64
	renderLevel     string
)

// renderCmd test-renders alert templates against sample values
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Test-render an alert template",
	Long: `Render title and message templates against sample alert values.

Supported placeholders: ${deviceId}, ${deviceIp}, ${metricName},
${value}, ${threshold}, ${level}, ${timestamp}. Unknown placeholders
render as empty strings.

Example:
  alertctl render \
    --title '[${level}] ${metricName} on ${deviceId}' \
    --message '${metricName} = ${value}, threshold ${threshold}' \
    --device PLC-001 --metric temperature --value 95.4 --threshold 80`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rule := &models.AlertRule{
			MetricName: renderMetric,
			Threshold:  renderThreshold,
			Level:      models.ParseSeverity(renderLevel),
		}
		record := &models.ProcessedRecord{
			DeviceID:  renderDeviceID,
			Timestamp: time.Now(),
		}
		vars := template.NewVariables(rule, record, renderValue)

		fmt.Printf("Title:   %s\n", template.Render(renderTitle, vars))
		fmt.Printf("Message: %s\n", template.Render(renderMessage, vars))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderTitle, "title", "[${level}] ${metricName} on ${deviceId}", "title template")
	renderCmd.Flags().StringVar(&renderMessage, "message", "${metricName} = ${value}, threshold ${threshold}", "message template")
	renderCmd.Flags().StringVar(&renderDeviceID, "device", "PLC-001", "sample device id")
	renderCmd.Flags().StringVar(&renderMetric, "metric", "temperature", "sample metric name")
	renderCmd.Flags().Float64Var(&renderValue, "value", 95.4, "sample metric value")
	renderCmd.Flags().Float64Var(&renderThreshold, "threshold", 80, "sample threshold")
	renderCmd.Flags().StringVar(&renderLevel, "level", "WARNING", "sample severity level")

	rootCmd.AddCommand(renderCmd)
}
