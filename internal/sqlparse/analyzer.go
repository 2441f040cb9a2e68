// ABOUTME: Structural analysis of T-SQL text without a database connection
// ABOUTME: Recovers target database, CREATE/DROP effects and GO-delimited batches by pattern scans
package sqlparse

import (
	"regexp"
	"strings"

	"github.com/harper/chat2db/internal/models"
)

// Analyzer is the narrow surface callers depend on, so the pattern scans
// can be replaced by a real tokenizer without touching them.
type Analyzer interface {
	ResolveDatabase(sql string) (string, bool)
	ParseCreates(sql string) []models.TableSchema
	ParseDrops(sql string) Drops
	SplitBatches(sql string) []string
}

// TableRef names one dropped table
type TableRef struct {
	Database string `json:"database"`
	Table    string `json:"table"`
}

// Drops lists the tables and databases removed by a script
type Drops struct {
	Tables    []TableRef `json:"tables"`
	Databases []string   `json:"databases"`
}

// Empty reports whether the script drops nothing
func (d Drops) Empty() bool {
	return len(d.Tables) == 0 && len(d.Databases) == 0
}

// Structural implements Analyzer with the package-level scans
type Structural struct{}

// New returns the default analyzer
func New() Structural {
	return Structural{}
}

func (Structural) ResolveDatabase(sql string) (string, bool)    { return ExtractDatabaseName(sql) }
func (Structural) ParseCreates(sql string) []models.TableSchema { return ExtractTableSchema(sql) }
func (Structural) ParseDrops(sql string) Drops                  { return ExtractDrops(sql) }
func (Structural) SplitBatches(sql string) []string             { return SplitBatches(sql) }

var (
	useStmt     = regexp.MustCompile(`(?i)\bUSE\s+([^\s;]+);`)
	createTable = regexp.MustCompile(`(?is)CREATE\s+TABLE\s+(?:\[?(\w+)\]?\.)?\[?(\w+)\]?\s*\((.*?)\)\s*;`)
	tablePK     = regexp.MustCompile(`(?i)PRIMARY\s+KEY\s*\(([^)]*)\)`)
	inlinePK    = regexp.MustCompile(`(?i)PRIMARY\s+KEY`)
	notNull     = regexp.MustCompile(`(?i)NOT\s+NULL`)
	constraint  = regexp.MustCompile(`(?i)^(CONSTRAINT|PRIMARY\s+KEY|FOREIGN\s+KEY|UNIQUE|CHECK)`)
	dropTable   = regexp.MustCompile(`(?i)DROP\s+TABLE\s+(?:\[?(\w+)\]?\.)?\[?(\w+)\]?\s*;`)
	dropDB      = regexp.MustCompile(`(?i)DROP\s+DATABASE\s+\[?(\w+)\]?\s*;`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// ExtractDatabaseName returns the last USE target that is not master.
// Scripts switch to master to create a database and then USE the target,
// so the final non-master USE wins.
func ExtractDatabaseName(sql string) (string, bool) {
	matches := useStmt.FindAllStringSubmatch(sql, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		name := strings.Trim(matches[i][1], "[]")
		if name != "" && !strings.EqualFold(name, "master") {
			return name, true
		}
	}
	return "", false
}

func databaseOrUnknown(sql string) string {
	if db, ok := ExtractDatabaseName(sql); ok {
		return db
	}
	return models.UnknownDatabase
}

// ExtractTableSchema parses every CREATE TABLE block in sql. All tables
// are attributed to the script's resolved database.
func ExtractTableSchema(sql string) []models.TableSchema {
	matches := createTable.FindAllStringSubmatch(sql, -1)
	if len(matches) == 0 {
		return nil
	}
	db := databaseOrUnknown(sql)

	tables := make([]models.TableSchema, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, models.TableSchema{
			Database: db,
			Table:    m[2],
			Columns:  parseColumns(m[3]),
		})
	}
	return tables
}

func parseColumns(body string) []models.ColumnFact {
	primary := map[string]bool{}
	for _, m := range tablePK.FindAllStringSubmatch(body, -1) {
		for _, col := range strings.Split(m[1], ",") {
			primary[strings.Trim(col, " \t\r\n[]`\"")] = true
		}
	}

	var cols []models.ColumnFact
	for _, line := range SplitTopLevel(strings.TrimSpace(body)) {
		line = strings.TrimSpace(line)
		if line == "" || constraint.MatchString(line) {
			continue
		}
		parts := whitespace.Split(line, 3)
		if len(parts) < 2 {
			continue
		}

		col := models.ColumnFact{
			Name:        strings.Trim(parts[0], "[]`\""),
			DataType:    parts[1],
			Nullability: models.Nullable,
		}
		col.IsPrimaryKey = primary[col.Name]
		if len(parts) > 2 {
			if notNull.MatchString(parts[2]) {
				col.Nullability = models.NotNullable
			}
			if inlinePK.MatchString(parts[2]) {
				col.IsPrimaryKey = true
			}
		}
		cols = append(cols, col)
	}
	return cols
}

// SplitTopLevel splits s on commas that are not nested inside parentheses,
// so decimal(10,2) stays one token.
func SplitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// ExtractDrops finds DROP TABLE and DROP DATABASE statements. Unqualified
// tables belong to the script's resolved database.
func ExtractDrops(sql string) Drops {
	db := databaseOrUnknown(sql)
	var drops Drops

	for _, m := range dropTable.FindAllStringSubmatch(sql, -1) {
		ref := TableRef{Database: m[1], Table: m[2]}
		if ref.Database == "" {
			ref.Database = db
		}
		drops.Tables = append(drops.Tables, ref)
	}
	for _, m := range dropDB.FindAllStringSubmatch(sql, -1) {
		drops.Databases = append(drops.Databases, m[1])
	}
	return drops
}
