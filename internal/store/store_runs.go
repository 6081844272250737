package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/odysseus0/svgsafe/internal/model"
)

var validModes = map[string]struct{}{
	model.ModeDocument: {},
	model.ModeText:     {},
	model.ModeCheck:    {},
	model.ModeAudit:    {},
}

var validOutcomes = map[string]struct{}{
	model.OutcomeAccepted: {},
	model.OutcomeRejected: {},
	model.OutcomeSafe:     {},
	model.OutcomeUnsafe:   {},
}

// RecordRun stores one sanitize or check run. The input itself is not kept,
// only its digest and size.
func (s *Store) RecordRun(ctx context.Context, in RecordRunInput) (run Run, err error) {
	if _, ok := validModes[in.Mode]; !ok {
		return Run{}, invalidInput("invalid mode %q", in.Mode)
	}
	if _, ok := validOutcomes[in.Outcome]; !ok {
		return Run{}, invalidInput("invalid outcome %q", in.Outcome)
	}
	source := strings.TrimSpace(in.Source)
	if source == "" {
		source = "-"
	}

	var outputSHA any
	if in.Output != "" {
		outputSHA = digest([]byte(in.Output))
	}
	var reason, firstSig any
	if in.Reason != "" {
		reason = in.Reason
	}
	if len(in.Signatures) > 0 {
		firstSig = in.Signatures[0]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (
			mode, source, input_sha256, input_bytes,
			output_sha256, output_bytes, outcome, reason, signature
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		in.Mode,
		clipSource(source),
		digest(in.Input),
		len(in.Input),
		outputSHA,
		len(in.Output),
		in.Outcome,
		reason,
		firstSig,
	)
	if err != nil {
		return Run{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Run{}, err
	}

	for i, sig := range in.Signatures {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO run_signatures(run_id, position, signature) VALUES (?, ?, ?)`,
			id, i, sig,
		); err != nil {
			return Run{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return Run{}, err
	}
	return s.GetRun(ctx, id)
}

func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runSelectColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, wrapNotFound(fmt.Sprintf("run %d", id), err)
	}
	sigs, err := s.runSignatures(ctx, id)
	if err != nil {
		return Run{}, err
	}
	run.Signatures = sigs
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, opts RunListOptions) ([]Run, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if outcome := strings.ToLower(strings.TrimSpace(opts.Outcome)); outcome != "" && outcome != "all" {
		if _, ok := validOutcomes[outcome]; !ok {
			return nil, invalidInput("invalid outcome %q (expected accepted|rejected|safe|unsafe|all)", opts.Outcome)
		}
		where = append(where, "outcome = ?")
		args = append(args, outcome)
	}
	if mode := strings.ToLower(strings.TrimSpace(opts.Mode)); mode != "" && mode != "all" {
		if _, ok := validModes[mode]; !ok {
			return nil, invalidInput("invalid mode %q (expected document|text|check|audit|all)", opts.Mode)
		}
		where = append(where, "mode = ?")
		args = append(args, mode)
	}

	query := `SELECT ` + runSelectColumns + ` FROM runs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, opts.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		sigs, err := s.runSignatures(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Signatures = sigs
	}
	return runs, nil
}

func (s *Store) runSignatures(ctx context.Context, runID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT signature FROM run_signatures WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sig string
		if err := rows.Scan(&sig); err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}

func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	stats := Stats{ByReason: map[string]int{}, TopSignatures: []SignatureCount{}}

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM runs GROUP BY outcome`)
	if err != nil {
		return Stats{}, err
	}
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			rows.Close()
			return Stats{}, err
		}
		stats.Runs += n
		switch outcome {
		case model.OutcomeAccepted:
			stats.Accepted = n
		case model.OutcomeRejected:
			stats.Rejected = n
		case model.OutcomeSafe:
			stats.Safe = n
		case model.OutcomeUnsafe:
			stats.Unsafe = n
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Stats{}, err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT reason, COUNT(*) FROM runs
		WHERE reason IS NOT NULL AND reason != ''
		GROUP BY reason
	`)
	if err != nil {
		return Stats{}, err
	}
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			rows.Close()
			return Stats{}, err
		}
		stats.ByReason[reason] = n
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Stats{}, err
	}
	rows.Close()

	rows, err = s.db.QueryContext(ctx, `
		SELECT signature, COUNT(*) AS n FROM run_signatures
		GROUP BY signature
		ORDER BY n DESC, signature
		LIMIT 10
	`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc SignatureCount
		if err := rows.Scan(&sc.Signature, &sc.Count); err != nil {
			return Stats{}, err
		}
		stats.TopSignatures = append(stats.TopSignatures, sc)
	}
	return stats, rows.Err()
}

// PruneRunsOlderThan deletes runs recorded more than days ago. Zero or
// negative days keep everything.
func (s *Store) PruneRunsOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}

	cutoff := timestampBeforeDays(days)
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at FROM runs`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		var ts string
		if err := rows.Scan(&id, &ts); err != nil {
			return 0, err
		}
		t, err := parseDBTime(ts)
		if err != nil {
			continue
		}
		if t.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
