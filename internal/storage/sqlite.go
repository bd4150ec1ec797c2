//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"sleeptimer/internal/schedule"
	"sleeptimer/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, wrap("open", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrap("open", err)
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, wrap("migrate", err)
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SaveSchedule(ctx context.Context, w schedule.Week) error {
	if err := w.Validate(); err != nil {
		return wrap("save schedule", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap("save schedule", closedOr(err))
	}
	defer func() { _ = tx.Rollback() }()

	for i, d := range w {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schedule(day, enabled, hour, minute) VALUES(?,?,?,?)
			 ON CONFLICT(day) DO UPDATE SET enabled=excluded.enabled, hour=excluded.hour, minute=excluded.minute`,
			i, boolInt(d.Enabled), d.Hour, d.Minute,
		)
		if err != nil {
			return wrap("save schedule", err)
		}
	}
	return wrap("save schedule", tx.Commit())
}

func (s *sqliteStore) LoadSchedule(ctx context.Context) (schedule.Week, bool, error) {
	w := schedule.DefaultWeek()
	rows, err := s.db.QueryContext(ctx, `SELECT day, enabled, hour, minute FROM schedule ORDER BY day`)
	if err != nil {
		return w, false, wrap("load schedule", closedOr(err))
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var day, enabled, hour, minute int
		if err := rows.Scan(&day, &enabled, &hour, &minute); err != nil {
			return schedule.DefaultWeek(), false, wrap("load schedule", err)
		}
		if day < 0 || day >= schedule.DaysPerWeek {
			return schedule.DefaultWeek(), false, wrap("load schedule", fmt.Errorf("day %d out of range", day))
		}
		w[day] = schedule.Day{Enabled: enabled != 0, Hour: hour, Minute: minute}
		n++
	}
	if err := rows.Err(); err != nil {
		return schedule.DefaultWeek(), false, wrap("load schedule", err)
	}
	if n == 0 {
		return w, false, nil
	}
	if n != schedule.DaysPerWeek {
		return schedule.DefaultWeek(), false, wrap("load schedule", fmt.Errorf("expected %d day records, found %d", schedule.DaysPerWeek, n))
	}
	if err := w.Validate(); err != nil {
		return schedule.DefaultWeek(), false, wrap("load schedule", err)
	}
	return w, true, nil
}

func (s *sqliteStore) AppendEvent(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	var target any
	if !e.Target.IsZero() {
		target = e.Target.Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(at, kind, episode, target, detail) VALUES(?,?,?,?,?)`,
		e.At.Format(time.RFC3339Nano), e.Kind, nullStr(e.Episode), target, nullStr(e.Detail),
	)
	return wrap("append event", closedOr(err))
}

func (s *sqliteStore) RecentEvents(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		n = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, kind, episode, target, detail FROM
		   (SELECT id, at, kind, episode, target, detail FROM events ORDER BY id DESC LIMIT ?)
		 ORDER BY id ASC`, n)
	if err != nil {
		return nil, wrap("recent events", closedOr(err))
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var at string
		var kind string
		var episode, target, detail sql.NullString
		if err := rows.Scan(&at, &kind, &episode, &target, &detail); err != nil {
			return nil, wrap("recent events", err)
		}
		e := Event{Kind: kind, Episode: episode.String, Detail: detail.String}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		if target.Valid {
			e.Target, _ = time.Parse(time.RFC3339Nano, target.String)
		}
		out = append(out, e)
	}
	return out, wrap("recent events", rows.Err())
}

func closedOr(err error) error {
	if err != nil && strings.Contains(err.Error(), "database is closed") {
		return ErrClosed
	}
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
