// ABOUTME: Ingest command adds reference documents to the retrieval index
// ABOUTME: Indexed chunks are offered to the assistant as context within the token budget
package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/retrieval"
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Add reference documents to the retrieval index",
		Long: `Add reference documents to the retrieval index.

Each file is split into overlapping chunks and stored with an embedding
when an embedding service is configured. Chunks most relevant to a
request are added to the assistant's context, within the token budget.

Supported files: .txt .md .csv .json .sql .bak`,
		Example: `  chat2db ingest docs/naming-conventions.md docs/hr-glossary.txt`,
		Args:    cobra.MinimumNArgs(1),
		RunE:    runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd, appOptions{requireIndex: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := commandContext(cmd)
	total := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		source := filepath.Base(path)
		text, err := retrieval.ExtractText(source, data)
		if err != nil {
			return err
		}
		n, err := a.index.Ingest(ctx, source, text)
		if err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		total += n
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d chunk(s)\n", source, n)
		}
	}

	if !quiet {
		count, err := a.index.Count(ctx)
		if err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "\nIndexed %d chunk(s); index holds %d\n", total, count)
		}
	}
	return nil
}
