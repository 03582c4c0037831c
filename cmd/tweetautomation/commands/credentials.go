package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeventeLantos/tweet-automation/internal/config"
	"github.com/LeventeLantos/tweet-automation/internal/logsink"
	"github.com/LeventeLantos/tweet-automation/internal/model"
	"github.com/LeventeLantos/tweet-automation/internal/repo"
)

var creds model.Credentials

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage the stored posting credentials",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Save all four posting credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !creds.Complete() {
			return fmt.Errorf("all four credential flags are required")
		}

		store, sink, err := openCredentialStore()
		if err != nil {
			return err
		}
		defer sink.Close()

		_ = sink.Append(logsink.Debug, "Saving credentials.")
		if err := store.Save(cmd.Context(), creds); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Credentials saved.")
		return nil
	},
}

var credentialsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored posting credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, sink, err := openCredentialStore()
		if err != nil {
			return err
		}
		defer sink.Close()

		_ = sink.Append(logsink.Debug, "Clearing credentials.")
		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Credentials cleared.")
		return nil
	},
}

// openCredentialStore needs only the configuration and the log sink; the
// record store and the delivery side stay closed.
func openCredentialStore() (*repo.CredentialStore, *logsink.Sink, error) {
	cfg, err := config.LoadAll()
	if err != nil {
		return nil, nil, err
	}
	sink, err := logsink.Open(cfg.Log.File)
	if err != nil {
		return nil, nil, err
	}
	return repo.NewCredentialStore(cfg.Store.CredentialsFile), sink, nil
}

func init() {
	f := credentialsSetCmd.Flags()
	f.StringVar(&creds.ConsumerKey, "consumer-key", "", "Consumer key")
	f.StringVar(&creds.ConsumerSecret, "consumer-secret", "", "Consumer secret")
	f.StringVar(&creds.AccessToken, "access-token", "", "Access token")
	f.StringVar(&creds.AccessTokenSecret, "access-token-secret", "", "Access token secret")

	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsClearCmd)
}
