package commands

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// envFile is loaded before the configuration is read. A missing file is
	// not an error.
	envFile string

	// verbose lowers the stderr log level to debug.
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tweetautomation",
	Short: "Schedule and post tweets",
	Long: `tweetautomation stores tweet records, posts them immediately or at
their scheduled time, and tracks each record's delivery status.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&envFile, "env-file", ".env",
		"Path to a dotenv file with configuration",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false,
		"Log debug output to stderr",
	)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(logCmd)
}
