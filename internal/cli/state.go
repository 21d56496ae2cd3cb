package cli

import (
	"fmt"

	"github.com/jewel-tree/profile-post-watcher/internal/app"
	"github.com/spf13/cobra"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the stored last-seen post URL",
	RunE:  stateAction,
}

func init() {
	rootCmd.AddCommand(stateCmd)
}

func stateAction(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup()
	if err != nil {
		return err
	}

	store, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	url, ok, err := store.LastSeen()
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "no post recorded yet")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
