// ABOUTME: Root command and global flags for the chat2db CLI
// ABOUTME: Registers every subcommand and shares verbosity, output format and user selection
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██████╗ ██████╗ ██████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝╚════██╗██╔══██╗██╔══██╗
██║     ███████║███████║   ██║    █████╔╝██║  ██║██████╔╝
██║     ██╔══██║██╔══██║   ██║   ██╔═══╝ ██║  ██║██╔══██╗
╚██████╗██║  ██║██║  ██║   ██║   ███████╗██████╔╝██████╔╝
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚══════╝╚═════╝ ╚═════╝`

// Output formats accepted by --format
const (
	formatAuto  = "auto"
	formatTable = "table"
	formatJSON  = "json"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	username     string
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat2db",
		Short: "Talk to SQL Server through a schema-aware assistant",
		Long: banner + `

chat2db turns natural-language requests into T-SQL, runs them against
SQL Server and keeps a verified memory of every table it has seen
created, so the assistant only ever refers to tables that exist.

Admins may create and drop tables, upload schema documents and import
live catalogs. Users may query and modify data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case formatAuto, formatTable, formatJSON:
				return nil
			default:
				return fmt.Errorf("--format must be auto, table or json, got %q", outputFormat)
			}
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log errors and suppress status lines")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", formatAuto, "Output format: auto, table or json")
	cmd.PersistentFlags().StringVarP(&username, "user", "u", os.Getenv("CHAT2DB_USER"), "Registered username to act as")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewExecCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewDatabasesCmd())
	cmd.AddCommand(NewUploadCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewUsersCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
