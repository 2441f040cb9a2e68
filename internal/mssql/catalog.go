// ABOUTME: Catalog introspection of a live SQL Server
// ABOUTME: Lists user databases and reads table, column, primary and foreign key metadata
package mssql

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/executor"
	"github.com/harper/chat2db/internal/models"
)

const listDatabasesQuery = `SELECT name FROM sys.databases
WHERE name NOT IN ('master', 'tempdb', 'model', 'msdb')
ORDER BY name`

const columnsQuery = `SELECT
    c.TABLE_NAME,
    c.COLUMN_NAME,
    c.DATA_TYPE,
    c.IS_NULLABLE,
    CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 1 ELSE 0 END AS IS_PRIMARY_KEY,
    ISNULL(fk.REF_TABLE + '(' + fk.REF_COLUMN + ')', '') AS FOREIGN_KEY
FROM INFORMATION_SCHEMA.COLUMNS c
JOIN INFORMATION_SCHEMA.TABLES t
    ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
LEFT JOIN (
    SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME
    FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
    JOIN INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
        ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
    WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
) pk ON pk.TABLE_SCHEMA = c.TABLE_SCHEMA AND pk.TABLE_NAME = c.TABLE_NAME AND pk.COLUMN_NAME = c.COLUMN_NAME
LEFT JOIN (
    SELECT kcu.TABLE_SCHEMA, kcu.TABLE_NAME, kcu.COLUMN_NAME,
        ref.TABLE_NAME AS REF_TABLE, ref.COLUMN_NAME AS REF_COLUMN
    FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
    JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
        ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME AND kcu.CONSTRAINT_SCHEMA = rc.CONSTRAINT_SCHEMA
    JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ref
        ON ref.CONSTRAINT_NAME = rc.UNIQUE_CONSTRAINT_NAME
        AND ref.CONSTRAINT_SCHEMA = rc.UNIQUE_CONSTRAINT_SCHEMA
        AND ref.ORDINAL_POSITION = kcu.ORDINAL_POSITION
) fk ON fk.TABLE_SCHEMA = c.TABLE_SCHEMA AND fk.TABLE_NAME = c.TABLE_NAME AND fk.COLUMN_NAME = c.COLUMN_NAME
WHERE t.TABLE_TYPE = 'BASE TABLE'
ORDER BY c.TABLE_SCHEMA, c.TABLE_NAME, c.ORDINAL_POSITION`

// Catalog reads metadata through a Connector
type Catalog struct {
	connector executor.Connector
}

// NewCatalog creates a catalog reader
func NewCatalog(connector executor.Connector) *Catalog {
	return &Catalog{connector: connector}
}

// ListDatabases returns user databases, excluding the system ones
func (c *Catalog) ListDatabases(ctx context.Context) ([]string, error) {
	conn, err := c.connector.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	rows, err := queryAll(ctx, conn, listDatabasesQuery)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to list databases", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, asString(r[0]))
	}
	return names, nil
}

// ExtractSchema reads every base table of db with its columns in ordinal order
func (c *Catalog) ExtractSchema(ctx context.Context, db string) ([]models.TableSchema, error) {
	conn, err := c.connector.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Exec(ctx, "USE "+QuoteName(db)); err != nil {
		return nil, errs.Wrap(errs.ErrKindNotFound, fmt.Sprintf("cannot use database %s", db), err)
	}
	rows, err := queryAll(ctx, conn, columnsQuery)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "failed to read catalog", err)
	}

	var tables []models.TableSchema
	index := map[string]int{}
	seenCol := map[string]bool{}
	for _, r := range rows {
		table, column := asString(r[0]), asString(r[1])
		if seenCol[table+"\x00"+column] {
			continue
		}
		seenCol[table+"\x00"+column] = true

		i, ok := index[table]
		if !ok {
			i = len(tables)
			index[table] = i
			tables = append(tables, models.TableSchema{Database: db, Table: table})
		}
		nullability := models.Nullable
		if strings.EqualFold(asString(r[3]), "NO") {
			nullability = models.NotNullable
		}
		tables[i].Columns = append(tables[i].Columns, models.ColumnFact{
			Name:         column,
			DataType:     asString(r[2]),
			Nullability:  nullability,
			IsPrimaryKey: asBool(r[4]),
			ForeignKey:   asString(r[5]),
		})
	}
	return tables, nil
}

// queryAll reads a whole result set into memory
func queryAll(ctx context.Context, conn executor.Conn, query string) ([][]any, error) {
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, rows.Err()
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int32:
		return t != 0
	case int:
		return t != 0
	default:
		return asString(v) == "1"
	}
}
