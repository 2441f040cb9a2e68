// ABOUTME: Exec command runs a T-SQL script directly against SQL Server
// ABOUTME: Successful scripts are applied to schema memory the same way chat replies are
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/errs"
)

// NewExecCmd creates the exec command
func NewExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec FILE",
		Short: "Execute a T-SQL script (admin only)",
		Long: `Execute a T-SQL script against SQL Server.

The script is split into batches on GO separators and run on one
session, so USE statements carry across batches. When it succeeds,
CREATE TABLE and DROP statements are applied to schema memory.

Pass - to read the script from stdin.`,
		Example: `  chat2db exec --user root schema.sql
  echo "SELECT name FROM sys.databases" | chat2db exec --user root -`,
		Args: cobra.ExactArgs(1),
		RunE: runExec,
	}
}

func runExec(cmd *cobra.Command, args []string) error {
	script, err := readScript(cmd, args[0])
	if err != nil {
		return err
	}

	a, err := openApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.currentAdmin(); err != nil {
		return err
	}

	res, err := a.mediator.Execute(commandContext(cmd), script)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format := resolveFormat(out, outputFormat)
	if format == formatJSON {
		return printJSON(out, res)
	}
	if err := renderOutcome(out, format, res.Outcome); err != nil {
		return err
	}
	renderSync(out, res.Sync)
	return nil
}

// readScript reads path, or stdin when path is -
func readScript(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	script := string(data)
	if strings.TrimSpace(script) == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "script is empty")
	}
	return script, nil
}
