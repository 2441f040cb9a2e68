// ABOUTME: Upload command walks an admin through turning a schema document into executed T-SQL
// ABOUTME: The model asks clarification questions, generates SQL on confirmation, then the SQL runs
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/retrieval"
)

var (
	uploadDatabase string
	uploadYes      bool
)

// NewUploadCmd creates the upload command
func NewUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Generate and run T-SQL from a schema document (admin only)",
		Long: `Generate and run T-SQL from a schema document.

The document is sent to the assistant, which replies with questions
about anything unclear. Answer them (finish with an empty line), then
confirm to have the final T-SQL generated. Confirm again to execute it.
Tables the script creates are added to schema memory.

Supported files: .txt .md .csv .json .sql .bak`,
		Example: `  chat2db upload --user root --database HR employees.md
  chat2db upload --user root --yes design.txt`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().StringVarP(&uploadDatabase, "database", "d", "", "Target database for the generated SQL")
	cmd.Flags().BoolVarP(&uploadYes, "yes", "y", false, "Skip the confirmation prompts")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	filename := filepath.Base(path)
	content, err := retrieval.ExtractText(filename, data)
	if err != nil {
		return err
	}

	a, err := openApp(cmd, appOptions{requireCompleter: true})
	if err != nil {
		return err
	}
	defer a.Close()

	admin, err := a.currentAdmin()
	if err != nil {
		return err
	}

	flow, err := a.mediator.NewUploadFlow(admin, uploadDatabase)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), out)

	questions, err := flow.Ingest(ctx, filename, content)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, replyStyle.Render(questions))

	clarified, err := p.block("\nYour clarification (end with an empty line):")
	if err != nil {
		return fmt.Errorf("reading clarification: %w", err)
	}
	if err := flow.Clarify(clarified); err != nil {
		return err
	}

	if !uploadYes {
		ok, err := p.confirm("Generate the final SQL?")
		if err != nil {
			return err
		}
		if !ok {
			flow.Reset()
			fmt.Fprintln(out, "Upload abandoned")
			return nil
		}
	}

	finalSQL, err := flow.Confirm(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, finalSQL)

	if !uploadYes {
		ok, err := p.confirm("Execute this SQL?")
		if err != nil {
			return err
		}
		if !ok {
			flow.Reset()
			fmt.Fprintln(out, "Upload abandoned")
			return nil
		}
	}

	result, err := flow.Execute(ctx)
	if err != nil {
		return err
	}

	format := resolveFormat(out, outputFormat)
	if format == formatJSON {
		return printJSON(out, result)
	}
	if err := renderOutcome(out, format, result.Outcome); err != nil {
		return err
	}
	renderSync(out, result.Sync)
	return nil
}
