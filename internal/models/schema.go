// ABOUTME: TableSchema and ColumnFact describe verified database structure held in schema memory
// ABOUTME: Columns persist as JSON arrays [name, type, nullability, is_primary_key, foreign_key]
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Column nullability values
const (
	Nullable    = "NULL"
	NotNullable = "NOT NULL"
)

// UnknownDatabase is used when a script names no target database
const UnknownDatabase = "UnknownDB"

// ColumnFact is one verified column of a table
type ColumnFact struct {
	Name         string
	DataType     string
	Nullability  string
	IsPrimaryKey bool
	ForeignKey   string // referenced "Table(Column)", empty when none
}

// MarshalJSON encodes the column as a positional array. The foreign key
// element is only written when present.
func (c ColumnFact) MarshalJSON() ([]byte, error) {
	nullability := c.Nullability
	if nullability == "" {
		nullability = Nullable
	}
	arr := []interface{}{c.Name, c.DataType, nullability, c.IsPrimaryKey}
	if c.ForeignKey != "" {
		arr = append(arr, c.ForeignKey)
	}
	return json.Marshal(arr)
}

// UnmarshalJSON decodes the positional array form. Missing trailing
// elements take defaults; a boolean foreign key element (as written by
// catalog imports that only know whether a column is a foreign key) is
// kept as "yes".
func (c *ColumnFact) UnmarshalJSON(data []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("column must be an array: %w", err)
	}
	if len(arr) < 2 {
		return fmt.Errorf("column needs at least name and type, got %d elements", len(arr))
	}

	*c = ColumnFact{Nullability: Nullable}
	if err := json.Unmarshal(arr[0], &c.Name); err != nil {
		return fmt.Errorf("column name: %w", err)
	}
	if err := json.Unmarshal(arr[1], &c.DataType); err != nil {
		return fmt.Errorf("column type: %w", err)
	}
	if len(arr) > 2 {
		var nullability *string
		if err := json.Unmarshal(arr[2], &nullability); err == nil && nullability != nil {
			c.Nullability = normalizeNullability(*nullability)
		}
	}
	if len(arr) > 3 {
		var pk bool
		if err := json.Unmarshal(arr[3], &pk); err == nil {
			c.IsPrimaryKey = pk
		}
	}
	if len(arr) > 4 {
		var ref string
		var flag bool
		switch {
		case json.Unmarshal(arr[4], &ref) == nil:
			c.ForeignKey = ref
		case json.Unmarshal(arr[4], &flag) == nil && flag:
			c.ForeignKey = "yes"
		}
	}
	return nil
}

// normalizeNullability maps catalog IS_NULLABLE values onto NULL / NOT NULL
func normalizeNullability(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "NOT NULL", "NO":
		return NotNullable
	default:
		return Nullable
	}
}

// Describe renders the column as one schema-memory line
func (c ColumnFact) Describe() string {
	nullability := c.Nullability
	if nullability == "" {
		nullability = Nullable
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "- %s (%s, %s", c.Name, c.DataType, nullability)
	if c.IsPrimaryKey {
		sb.WriteString(", PRIMARY KEY")
	}
	if c.ForeignKey != "" {
		fmt.Fprintf(&sb, ", FOREIGN KEY to %s", c.ForeignKey)
	}
	sb.WriteString(")")
	return sb.String()
}

// TableSchema is the verified structure of one table
type TableSchema struct {
	Database string       `json:"database"`
	Table    string       `json:"table"`
	Columns  []ColumnFact `json:"columns"`
}

// SchemaKey identifies a TableSchema case-insensitively
type SchemaKey struct {
	Database string
	Table    string
}

// Key returns the identity key of the table
func (t TableSchema) Key() SchemaKey {
	return SchemaKey{
		Database: strings.ToLower(strings.TrimSpace(t.Database)),
		Table:    strings.ToLower(strings.TrimSpace(t.Table)),
	}
}

// Valid reports whether the entry names both a database and a table
func (t TableSchema) Valid() bool {
	return strings.TrimSpace(t.Database) != "" && strings.TrimSpace(t.Table) != ""
}

// Canonical returns a copy with columns sorted by lowercased name
func (t TableSchema) Canonical() TableSchema {
	cols := make([]ColumnFact, len(t.Columns))
	copy(cols, t.Columns)
	sort.SliceStable(cols, func(i, j int) bool {
		return strings.ToLower(cols[i].Name) < strings.ToLower(cols[j].Name)
	})
	return TableSchema{Database: t.Database, Table: t.Table, Columns: cols}
}

// Describe renders the table as the schema-memory assertion sent to the model
func (t TableSchema) Describe() string {
	lines := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		lines = append(lines, col.Describe())
	}
	return fmt.Sprintf("Database '%s' has table '%s' with columns:\n%s",
		strings.TrimSpace(t.Database), strings.TrimSpace(t.Table), strings.Join(lines, "\n"))
}
