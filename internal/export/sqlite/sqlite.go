package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robalyx/warden/internal/export/types"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Filename is the database file written into the output directory.
const Filename = "governance.db"

// Exporter handles exporting tables to a SQLite database.
type Exporter struct {
	outDir string
}

// New creates a new SQLite exporter instance.
func New(outDir string) *Exporter {
	return &Exporter{outDir: outDir}
}

// Export writes every table into a single SQLite database.
func (e *Exporter) Export(tables []*types.Table) error {
	path := filepath.Join(e.outDir, Filename)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing file %s: %w", Filename, err)
	}

	conn, err := sqlite.OpenConn(path, sqlite.OpenCreate|sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}
	defer conn.Close()

	for _, table := range tables {
		if err := writeTable(conn, table); err != nil {
			return fmt.Errorf("failed to export %s: %w", table.Name, err)
		}
	}

	return nil
}

// writeTable creates a table and inserts its rows in batches.
func writeTable(conn *sqlite.Conn, table *types.Table) error {
	defs := make([]string, len(table.Columns))
	placeholders := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		defs[i] = fmt.Sprintf("%s %s NOT NULL", c.Name, c.Type)
		placeholders[i] = "?"
	}

	err := sqlitex.Execute(conn, fmt.Sprintf("CREATE TABLE %s (%s)", table.Name, strings.Join(defs, ", ")), nil)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Name, strings.Join(table.ColumnNames(), ", "), strings.Join(placeholders, ", "))

	const batchSize = 1000
	for i := 0; i < len(table.Rows); i += batchSize {
		end := min(i+batchSize, len(table.Rows))

		if err := sqlitex.Execute(conn, "BEGIN TRANSACTION", nil); err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		for _, row := range table.Rows[i:end] {
			if err := sqlitex.Execute(conn, insert, &sqlitex.ExecOptions{Args: row}); err != nil {
				_ = sqlitex.Execute(conn, "ROLLBACK", nil)
				return fmt.Errorf("failed to insert row: %w", err)
			}
		}

		if err := sqlitex.Execute(conn, "COMMIT", nil); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	return nil
}
