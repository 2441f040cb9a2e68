// ABOUTME: Schema and databases commands inspect and maintain verified schema memory
// ABOUTME: schema list/drop work on memory only; databases compares memory with the live server
package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/chat2db/internal/models"
)

var schemaListDatabase string

// NewSchemaCmd creates the schema command group
func NewSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect and maintain schema memory",
		Long: `Inspect and maintain schema memory.

Schema memory is the verified list of tables the assistant may refer
to. It grows when CREATE TABLE scripts succeed and shrinks when DROP
scripts succeed. These commands never touch the live server.`,
	}

	cmd.AddCommand(newSchemaListCmd())
	cmd.AddCommand(newSchemaDropCmd())

	return cmd
}

func newSchemaListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tables in schema memory",
		Example: `  chat2db schema list
  chat2db schema list --database HR --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			entries := filterByDatabase(a.schema.Load(), schemaListDatabase)
			out := cmd.OutOrStdout()
			format := resolveFormat(out, outputFormat)
			if len(entries) == 0 && format != formatJSON {
				if !quiet {
					fmt.Fprintln(out, "Schema memory is empty")
				}
				return nil
			}
			return renderSchema(out, format, entries)
		},
	}

	cmd.Flags().StringVarP(&schemaListDatabase, "database", "d", "", "Only list tables of this database")

	return cmd
}

func newSchemaDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop DATABASE [TABLE]",
		Short: "Forget a database or one table (admin only)",
		Long: `Remove entries from schema memory without touching the live server.

With only DATABASE every table of that database is forgotten. With
TABLE only that table is. Names match case-insensitively.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.currentAdmin(); err != nil {
				return err
			}

			db := args[0]
			table := ""
			if len(args) == 2 {
				table = args[1]
			}
			removed, err := a.schema.RemoveWhere(func(ts models.TableSchema) bool {
				if !strings.EqualFold(ts.Database, db) {
					return false
				}
				return table == "" || strings.EqualFold(ts.Table, table)
			})
			if err != nil {
				return err
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d table(s) from schema memory\n", removed)
			}
			return nil
		},
	}
}

// NewDatabasesCmd creates the databases command
func NewDatabasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases that exist live and in schema memory",
		Long: `List the databases the assistant can work with: those present on the
live server that schema memory also knows about.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			dbs, err := a.mediator.AvailableDatabases(commandContext(cmd))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return renderList(out, resolveFormat(out, outputFormat), "DATABASE", dbs)
		},
	}
}

func filterByDatabase(entries []models.TableSchema, db string) []models.TableSchema {
	if db == "" {
		return entries
	}
	var out []models.TableSchema
	for _, e := range entries {
		if strings.EqualFold(e.Database, db) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out
}
