// ABOUTME: Users command group manages the operator registry
// ABOUTME: Registers admins and users and lists who is known
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/models"
)

var registerRole string

// NewUsersCmd creates the users command group
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage registered operators",
		Long: `Manage registered operators.

Admins may create and drop tables, upload schema documents and import
live catalogs. The first registered admin's conversation is shared
with every session as background context.`,
	}

	cmd.AddCommand(newUsersRegisterCmd())
	cmd.AddCommand(newUsersListCmd())

	return cmd
}

func newUsersRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register USERNAME",
		Short: "Register a new operator",
		Example: `  chat2db users register root --role admin
  chat2db users register alice`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.users.Register(args[0], registerRole)
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", u.Username, u.Role)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&registerRole, "role", models.UserRoleUser, "Role: admin or user")

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered operators",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			users := a.users.List()
			out := cmd.OutOrStdout()
			if resolveFormat(out, outputFormat) == formatJSON {
				if users == nil {
					users = []models.User{}
				}
				return printJSON(out, users)
			}
			if len(users) == 0 {
				if !quiet {
					fmt.Fprintln(out, "No users registered")
				}
				return nil
			}
			rows := make([][]string, len(users))
			for i, u := range users {
				rows[i] = []string{u.Username, u.Role}
			}
			fmt.Fprintln(out, renderTable([]string{"USERNAME", "ROLE"}, rows))
			return nil
		},
	}
}
