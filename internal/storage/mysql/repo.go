package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"doctor_reputation/internal/domain"
)

const (
	maxKeyLen    = 255
	maxReasonLen = 512
)

// clip keeps s within n runes so long upstream messages fit their column.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Repo is the report archive and the source miss log.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) SaveReport(ctx context.Context, rep domain.ReputationReport) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = r.db.ExecContext(ctx, insertReportSQL,
		rep.Source,
		clip(rep.Identifier, maxKeyLen),
		rep.TotalReviews,
		rep.GeneratedAt.UTC(),
		string(b),
	)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, ev domain.MissEvent) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL,
		ev.Source,
		ev.Mode,
		clip(ev.Key, maxKeyLen),
		string(ev.Kind),
		clip(ev.Reason, maxReasonLen),
	)
	return err
}

// History returns the newest archived reports for one profile. The identifier is clipped
// the same way SaveReport stores it.
func (r *Repo) History(ctx context.Context, source, identifier string, limit int) ([]domain.ArchivedReport, error) {
	rows, err := r.db.QueryContext(ctx, listReportsSQL, source, clip(identifier, maxKeyLen), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ArchivedReport{}
	for rows.Next() {
		var (
			ar  domain.ArchivedReport
			raw []byte
		)
		if err := rows.Scan(&ar.ID, &ar.Source, &ar.Identifier, &raw, &ar.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &ar.Report); err != nil {
			return nil, fmt.Errorf("decode archived report %d: %w", ar.ID, err)
		}
		out = append(out, ar)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
