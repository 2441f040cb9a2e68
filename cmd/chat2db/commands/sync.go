// ABOUTME: Sync commands for Charm cloud synchronization of durable memory
// ABOUTME: Only meaningful when MEMORY_BACKEND=charm
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/errs"
)

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization with Charm cloud.

With MEMORY_BACKEND=charm, schema memory, conversations and the user
registry are stored in a Charm KV database that syncs across devices
linked to the same Charm account.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and stored documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if a.charm == nil {
				fmt.Fprintf(out, "Backend: %s (%s)\n", a.cfg.MemoryBackend, a.cfg.DataDir)
				fmt.Fprintln(out, "Set MEMORY_BACKEND=charm to sync through Charm")
				return nil
			}

			id, err := a.charm.ID()
			if err != nil {
				fmt.Fprintln(out, "Status: Not connected")
				return nil
			}
			fmt.Fprintln(out, "Status: Connected")
			fmt.Fprintf(out, "User ID: %s\n", id)
			fmt.Fprintf(out, "Database: %s\n", a.cfg.CharmDBName)

			docs, err := a.charm.ListDocuments()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Documents: %d\n", len(docs))
			for _, d := range docs {
				fmt.Fprintf(out, "  %s\n", d)
			}
			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.charm == nil {
				return errs.New(errs.ErrKindInvalidInput, "sync requires MEMORY_BACKEND=charm")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			if err := a.charm.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			return nil
		},
	}
}
