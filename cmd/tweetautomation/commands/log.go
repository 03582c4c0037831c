package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/tweet-automation/internal/config"
	"github.com/LeventeLantos/tweet-automation/internal/logsink"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Work with the diagnostic log file",
}

var logClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the diagnostic log file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadAll()
		if err != nil {
			return err
		}

		sink, err := logsink.Open(cfg.Log.File)
		if err != nil {
			return err
		}
		defer sink.Close()

		if err := sink.Delete(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s.\n", sink.Path())
		return nil
	},
}

func init() {
	logCmd.AddCommand(logClearCmd)
}
