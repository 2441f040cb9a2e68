// ABOUTME: Batch execution engine for multi-batch T-SQL scripts
// ABOUTME: Runs GO-delimited batches in order on one session and shapes SELECT results into tables
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/sqlparse"
)

// SuccessMessage is returned when a script produces no result sets
const SuccessMessage = "Query executed successfully."

// Rows iterates one result set
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Conn is one database session. Session state such as the current
// database set by USE carries across calls.
type Conn interface {
	Exec(ctx context.Context, query string) error
	Query(ctx context.Context, query string) (Rows, error)
	Close() error
}

// Connector opens a fresh session for each script
type Connector interface {
	Open(ctx context.Context) (Conn, error)
}

// Table is one tabular result
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Outcome is the shaped result of a script: no tables means the status
// message applies, otherwise the tables in batch order.
type Outcome struct {
	Tables  []Table `json:"tables,omitempty"`
	Message string  `json:"message,omitempty"`
	Batches int     `json:"batches"`
}

// Single reports whether the outcome is exactly one table
func (o *Outcome) Single() bool {
	return len(o.Tables) == 1
}

// Engine executes scripts
type Engine struct {
	connector Connector
	analyzer  sqlparse.Analyzer
	log       *logger.Logger
}

// NewEngine creates an engine; a nil analyzer uses the structural analyzer
func NewEngine(connector Connector, analyzer sqlparse.Analyzer, log *logger.Logger) *Engine {
	if analyzer == nil {
		analyzer = sqlparse.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{connector: connector, analyzer: analyzer, log: log}
}

// Execute runs raw as a script. Batches run sequentially on one session
// and each non-SELECT batch commits on its own, so a failure leaves the
// earlier batches' effects in place. The first failure stops the script
// and is returned as an error; tables collected before it are discarded.
func (e *Engine) Execute(ctx context.Context, raw string) (*Outcome, error) {
	batches := e.analyzer.SplitBatches(sqlparse.NormalizeGO(raw))
	if len(batches) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "no SQL to execute")
	}

	conn, err := e.connector.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	outcome := &Outcome{Batches: len(batches)}

	if strings.HasPrefix(strings.ToLower(batches[0]), "use ") {
		e.log.Debugf("batch 1/%d: %s", len(batches), batches[0])
		if err := conn.Exec(ctx, batches[0]); err != nil {
			return nil, batchError(1, err)
		}
		batches = batches[1:]
	}

	offset := outcome.Batches - len(batches)
	for i, batch := range batches {
		n := offset + i + 1
		e.log.Debugf("batch %d/%d: %s", n, outcome.Batches, firstLine(batch))

		if !strings.HasPrefix(strings.ToLower(batch), "select") {
			if err := conn.Exec(ctx, batch); err != nil {
				return nil, batchError(n, err)
			}
			continue
		}

		table, err := fetchTable(ctx, conn, batch)
		if err != nil {
			return nil, batchError(n, err)
		}
		outcome.Tables = append(outcome.Tables, *table)
	}

	if len(outcome.Tables) == 0 {
		outcome.Message = SuccessMessage
	}
	return outcome, nil
}

func fetchTable(ctx context.Context, conn Conn, query string) (*Table, error) {
	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	table := &Table{Columns: DedupColumns(cols), Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		table.Rows = append(table.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return table, nil
}

// batchError keeps an existing kind (timeouts, lost connections) and
// otherwise marks the failure as a query failure.
func batchError(n int, err error) error {
	if kind := errs.KindOf(err); kind != errs.ErrKindUnknown {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, fmt.Sprintf("batch %d timed out", n), err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("batch %d failed", n), err)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

// DedupColumns renames repeated column labels: the second occurrence of
// "id" becomes "id_1", the third "id_2", and the first stays unchanged.
func DedupColumns(cols []string) []string {
	counts := make(map[string]int, len(cols))
	out := make([]string, len(cols))
	for i, c := range cols {
		n, seen := counts[c]
		if !seen {
			counts[c] = 0
			out[i] = c
			continue
		}
		n++
		counts[c] = n
		out[i] = fmt.Sprintf("%s_%d", c, n)
	}
	return out
}
