package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/josephlewis42/minsh/core/logger"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the session event log.",
}

var reportLogPath string

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Show a per-session report of logged events.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		fd, err := os.Open(reportLogPath)
		if err != nil {
			return err
		}
		defer fd.Close()

		var report logger.Report
		if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(out))

		return nil
	},
}

func init() {
	reportCommand.Flags().StringVar(&reportLogPath, "log", "", "JSON-lines event log to read")
	reportCommand.MarkFlagRequired("log")

	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(reportCommand)
}
