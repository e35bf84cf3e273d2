package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers are used for sorting and for the short "#N" labels in CLI output.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1 RETURNING value", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}

func checkAffected(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, what, id)
	}
	return nil
}
