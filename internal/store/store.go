package store

import (
	"database/sql"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const runSelectColumns = `
	id, mode, source, input_sha256, input_bytes,
	output_sha256, output_bytes, outcome, reason, created_at
`

func scanRun(scanner rowScanner) (Run, error) {
	var r Run
	var outputSHA, reason sql.NullString
	var createdAt string
	if err := scanner.Scan(
		&r.ID,
		&r.Mode,
		&r.Source,
		&r.InputSHA256,
		&r.InputBytes,
		&outputSHA,
		&r.OutputBytes,
		&r.Outcome,
		&reason,
		&createdAt,
	); err != nil {
		return Run{}, err
	}
	r.OutputSHA256 = outputSHA.String
	r.Reason = reason.String
	if t, err := parseDBTime(createdAt); err == nil {
		r.CreatedAt = t
	}
	return r, nil
}
