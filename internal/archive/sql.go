package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
)

type dialect struct {
	name   string
	driver string
	// bind returns the placeholder of the n-th (1-based) argument.
	bind func(n int) string
}

var (
	sqliteDialect = dialect{
		name:   "sqlite",
		driver: "sqlite",
		bind:   func(int) string { return "?" },
	}
	postgresDialect = dialect{
		name:   "postgres",
		driver: "pgx",
		bind:   func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// sqlArchive writes results through database/sql. Every record replaces
// what was archived before for the session.
type sqlArchive struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

func openSQL(d dialect, dsn, migrationsDir string) (*sqlArchive, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	fsys, dir := migrationSource(d, migrationsDir)
	if err := applyMigrations(db, d, fsys, dir); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqlArchive{db: db, dialect: d, now: time.Now}, nil
}

func (a *sqlArchive) placeholders(n int) string {
	marks := make([]string, n)
	for i := range marks {
		marks[i] = a.dialect.bind(i + 1)
	}
	return strings.Join(marks, ", ")
}

func (a *sqlArchive) RecordStandings(ctx context.Context, sessionID string, pools []model.Pool) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin standings tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM archived_standings WHERE session_id = `+a.dialect.bind(1), sessionID); err != nil {
		return fmt.Errorf("clear standings: %w", err)
	}

	insert := `INSERT INTO archived_standings (session_id, pool_index, position, player_id, name, team, points, played, won, drawn, lost, goals_for, goals_against, goal_difference, recorded_at) VALUES (` + a.placeholders(15) + `)`
	recordedAt := a.now().UTC()
	for _, pool := range pools {
		for pos, p := range pool.Players {
			_, err := tx.ExecContext(ctx, insert,
				sessionID, pool.ID, pos+1, p.ID, p.Name, p.Team,
				p.Points, p.Played, p.Won, p.Drawn, p.Lost,
				p.GoalsFor, p.GoalsAgainst, p.GoalDifference, recordedAt)
			if err != nil {
				return fmt.Errorf("insert standing %s: %w", p.ID, err)
			}
		}
	}
	return tx.Commit()
}

func (a *sqlArchive) RecordBracket(ctx context.Context, sessionID string, matches []model.KnockoutMatch) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bracket tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM archived_knockout WHERE session_id = `+a.dialect.bind(1), sessionID); err != nil {
		return fmt.Errorf("clear bracket: %w", err)
	}

	insert := `INSERT INTO archived_knockout (session_id, match_id, round, leg, home_player_id, away_player_id, home_score, away_score, home_penalties, away_penalties, next_match_id, played, recorded_at) VALUES (` + a.placeholders(13) + `)`
	recordedAt := a.now().UTC()
	for _, m := range matches {
		_, err := tx.ExecContext(ctx, insert,
			sessionID, m.ID, string(m.Round), string(m.Leg), m.HomePlayerID, m.AwayPlayerID,
			nullableScore(m.HomeScore), nullableScore(m.AwayScore),
			nullableScore(m.HomePenalties), nullableScore(m.AwayPenalties),
			m.NextMatchID, m.Played, recordedAt)
		if err != nil {
			return fmt.Errorf("insert knockout match %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

func nullableScore(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func (a *sqlArchive) Close() error {
	return a.db.Close()
}
