package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"snowbook/internal/common"
	"snowbook/internal/render"
)

var initDir string

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold example notebooks",
	Args:  cobra.MaximumNArgs(1),
	Long: `Init writes a set of example notebooks into the target directory. Each
one is runnable against the SNOWFLAKE.ACCOUNT_USAGE share and shows a
different notebook feature: prompts, bar rendering, top-row selection,
scalar substitution between cells, and environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			initDir = args[0]
		}
		if err := os.MkdirAll(initDir, common.DirPermissionNormal); err != nil {
			return fmt.Errorf("failed to create notebook directory: %w", err)
		}

		written := 0
		for name, content := range sampleNotebooks {
			path := filepath.Join(initDir, name+".yaml")
			if _, err := os.Stat(path); err == nil {
				render.ShowWarning(fmt.Sprintf("%s already exists, skipping", path))
				continue
			}
			if err := os.WriteFile(path, []byte(content), common.FilePermissionNormal); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			render.ShowSuccess(path)
			written++
		}

		if written > 0 {
			fmt.Println()
			render.ShowInfo(fmt.Sprintf("Try: snowbook run %s", filepath.Join(initDir, "storage_by_table.yaml")))
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVarP(&initDir, "dir", "d", "./notebooks", "Directory to write example notebooks into")
	rootCmd.AddCommand(initCmd)
}

var sampleNotebooks = map[string]string{
	"storage_by_table": `name: storage_by_table
description: Active storage per table, largest first
cells:
  - name: min_gb
    kind: value
    prompt: "Minimum table size (GB)"
    default: "1"

  - name: storage
    kind: query
    body: |
      SELECT table_catalog, table_schema, table_name,
             ROUND(active_bytes / POWER(1024, 3), 2) AS active_gb
      FROM snowflake.account_usage.table_storage_metrics
      WHERE active_bytes >= {{min_gb}} * POWER(1024, 3)
        AND deleted = FALSE
      ORDER BY active_bytes DESC
    render:
      bar_column: ACTIVE_GB
      limit: 20
`,

	"query_history": `name: query_history
description: Query volume and latency per user over a recent window
cells:
  - name: days
    kind: value
    prompt: "Lookback window (days)"
    default: "7"

  - name: by_user
    kind: query
    body: |
      SELECT user_name,
             COUNT(*) AS number_of_queries,
             ROUND(AVG(total_elapsed_time) / 1000, 1) AS avg_seconds
      FROM snowflake.account_usage.query_history
      WHERE start_time >= DATEADD('day', -{{days}}, CURRENT_TIMESTAMP())
      GROUP BY user_name
      ORDER BY number_of_queries DESC
    render:
      bar_column: NUMBER_OF_QUERIES
      limit: 15
`,

	"user_activity": `name: user_activity
description: Busiest user over the last day and their recent statements
cells:
  - name: busiest
    kind: query
    body: |
      SELECT user_name, COUNT(*) AS number_of_queries
      FROM snowflake.account_usage.query_history
      WHERE start_time >= DATEADD('day', -1, CURRENT_TIMESTAMP())
      GROUP BY user_name
    render:
      top_column: NUMBER_OF_QUERIES

  - name: top_user
    kind: query
    body: |
      SELECT user_name
      FROM snowflake.account_usage.query_history
      WHERE start_time >= DATEADD('day', -1, CURRENT_TIMESTAMP())
      GROUP BY user_name
      ORDER BY COUNT(*) DESC
      LIMIT 1

  - name: statements
    kind: query
    body: |
      SELECT query_text, total_elapsed_time
      FROM snowflake.account_usage.query_history
      WHERE user_name = '{{top_user}}'
      ORDER BY start_time DESC
      LIMIT 10
    render:
      limit: 10
`,

	"anomaly_detection": `name: anomaly_detection
description: Train an anomaly detection model over daily credit usage and flag outliers
cells:
  - name: history_days
    kind: value
    default: "60"

  - name: train
    kind: query
    body: |
      CREATE OR REPLACE SNOWFLAKE.ML.ANOMALY_DETECTION credit_anomalies(
        INPUT_DATA => SYSTEM$QUERY_REFERENCE(
          'SELECT TO_TIMESTAMP_NTZ(usage_date) AS ts, credits_used AS value
           FROM snowflake.account_usage.metering_daily_history
           WHERE usage_date >= DATEADD(''day'', -{{history_days}}, CURRENT_DATE())'),
        TIMESTAMP_COLNAME => 'ts',
        TARGET_COLNAME => 'value',
        LABEL_COLNAME => '')

  - name: anomalies
    kind: query
    body: |
      CALL credit_anomalies!DETECT_ANOMALIES(
        INPUT_DATA => SYSTEM$QUERY_REFERENCE(
          'SELECT TO_TIMESTAMP_NTZ(usage_date) AS ts, credits_used AS value
           FROM snowflake.account_usage.metering_daily_history
           WHERE usage_date >= DATEADD(''day'', -7, CURRENT_DATE())'),
        TIMESTAMP_COLNAME => 'ts',
        TARGET_COLNAME => 'value')
    render:
      limit: 10
`,

	"env_pipeline": `name: env_pipeline
description: Row count of a table in the selected environment
cells:
  - name: table_name
    kind: value
    prompt: "Table to check"
    default: "ORDERS"

  - name: row_count
    kind: query
    body: |
      SELECT COUNT(*) AS n FROM {{database}}.{{schema}}.{{table_name}}

  - name: summary
    kind: query
    body: |
      SELECT '{{env_name}}' AS environment,
             '{{table_name}}' AS table_name,
             {{row_count}} AS row_count
`,
}
