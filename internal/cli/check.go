package cli

import (
	"fmt"

	"github.com/jewel-tree/profile-post-watcher/internal/app"
	"github.com/jewel-tree/profile-post-watcher/internal/logger"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single check, publish a new post if found, and exit",
	RunE:  checkAction,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkAction(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx := commandContext(cmd)
	watcher, err := app.NewWatcher(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer watcher.Close()

	res, err := watcher.CheckOnce(ctx)
	out := cmd.OutOrStdout()
	if res.IsNew() {
		fmt.Fprintf(out, "new: %s\n", res.URL)
	} else {
		fmt.Fprintf(out, "%s\n", res.Status)
	}
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
