// ABOUTME: Import command reads a live database catalog into schema memory
// ABOUTME: The assistant reviews a summary of the catalog and the admin answers until it accepts
package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/core"
)

// NewImportCmd creates the import command
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import DATABASE",
		Short: "Import a live database's schema into memory (admin only)",
		Long: `Import a live database's schema into memory.

Every table and column of DATABASE is read from the server catalog and
summarized. The assistant reviews the summary and may ask questions;
answer until it replies "` + core.SchemaLooksGood + `". The database's
entries in schema memory are then replaced with the imported tables.`,
		Example: `  chat2db import --user root HR`,
		Args:    cobra.ExactArgs(1),
		RunE:    runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{requireCompleter: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.currentAdmin(); err != nil {
		return err
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), out)

	imp, err := a.mediator.StartImport(ctx, a.catalog, args[0])
	if err != nil {
		return err
	}
	if !quiet {
		fmt.Fprintf(out, "Extracted %d table(s)\n\n%s\n\n", len(imp.Tables()), imp.Summary())
	}
	fmt.Fprintln(out, replyStyle.Render(imp.Reply()))

	for !imp.Done() {
		answer, err := p.line("> ")
		if err == io.EOF {
			return fmt.Errorf("import of %s abandoned before the schema was accepted", args[0])
		}
		if err != nil {
			return err
		}
		if answer == "" {
			continue
		}
		reply, err := imp.Answer(ctx, answer)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render(err.Error()))
			continue
		}
		fmt.Fprintln(out, replyStyle.Render(reply))
	}

	fmt.Fprintf(out, "Schema memory for %s replaced with %d table(s)\n", args[0], len(imp.Tables()))
	return nil
}
