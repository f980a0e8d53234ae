package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"inorbit/internal/core"
	"inorbit/internal/ports"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db *sql.DB
	// now stamps created_at; tests override it.
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Categories implements ports.CategoryReader, oldest first.
func (r *SQLiteRepository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory implements ports.CategoryWriter. Names are unique
// case-insensitively; creating an existing name returns the stored row.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	c := core.Category{ID: uuid.NewString(), Name: strings.TrimSpace(name)}
	if err := c.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validate category: %w", err)
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		c.ID, c.Name, millis(r.now()))
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}

	var stored core.Category
	err = r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE name = ?`, c.Name).
		Scan(&stored.ID, &stored.Name)
	if err != nil {
		return core.Category{}, fmt.Errorf("read category: %w", err)
	}
	return stored, nil
}

const goalColumns = `
	g.id, g.title, COALESCE(c.name, ''), g.period, g.desired_frequency, g.created_at,
	(SELECT COUNT(*) FROM goal_completions gc
	   WHERE gc.goal_id = g.id AND gc.completed_at >= ? AND gc.completed_at < ?)
FROM goals g
LEFT JOIN categories c ON c.id = g.category_id`

func scanGoal(s interface{ Scan(...any) error }) (core.Goal, error) {
	var (
		g         core.Goal
		period    string
		createdAt int64
	)
	if err := s.Scan(&g.ID, &g.Title, &g.Category, &period, &g.DesiredFrequency, &createdAt, &g.CompletionCount); err != nil {
		return core.Goal{}, err
	}
	g.Period = core.Period(period)
	g.CreatedAt = fromMillis(createdAt)
	return g, nil
}

// Goals implements ports.GoalReader.
func (r *SQLiteRepository) Goals(ctx context.Context, period core.Period, from, to time.Time) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` WHERE g.period = ? AND g.created_at < ? ORDER BY g.created_at, g.id`,
		millis(from), millis(to), string(period), millis(to))
	if err != nil {
		return nil, fmt.Errorf("query goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.Goal, 0)
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Goal implements ports.GoalReader.
func (r *SQLiteRepository) Goal(ctx context.Context, id string, from, to time.Time) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+goalColumns+` WHERE g.id = ?`, millis(from), millis(to), id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("read goal: %w", err)
	}
	return g, nil
}

// CreateGoal implements ports.GoalWriter. The category must exist unless empty.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validate goal: %w", err)
	}

	var categoryID sql.NullString
	if name := strings.TrimSpace(g.Category); name != "" {
		err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE name = ?`, name).
			Scan(&categoryID, &g.Category)
		if errors.Is(err, sql.ErrNoRows) {
			return core.Goal{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
		}
		if err != nil {
			return core.Goal{}, fmt.Errorf("read category: %w", err)
		}
	}

	g.ID = uuid.NewString()
	g.Title = strings.TrimSpace(g.Title)
	g.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	g.CompletionCount = 0

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, title, category_id, period, desired_frequency, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, g.Title, categoryID, string(g.Period), g.DesiredFrequency, millis(g.CreatedAt))
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal saved to SQLite",
		"goal_id", g.ID,
		"period", g.Period,
		"desired_frequency", g.DesiredFrequency,
		"category", g.Category)

	return g, nil
}

const completionColumns = `
	gc.id, gc.goal_id, g.title, COALESCE(c.name, ''), gc.completed_at
FROM goal_completions gc
JOIN goals g ON g.id = gc.goal_id
LEFT JOIN categories c ON c.id = g.category_id`

func scanCompletion(s interface{ Scan(...any) error }) (core.Completion, error) {
	var (
		c  core.Completion
		at int64
	)
	if err := s.Scan(&c.ID, &c.GoalID, &c.Title, &c.Category, &at); err != nil {
		return core.Completion{}, err
	}
	c.CompletedAt = fromMillis(at)
	return c, nil
}

// Completions implements ports.CompletionReader.
func (r *SQLiteRepository) Completions(ctx context.Context, period core.Period, from, to time.Time) ([]core.Completion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+completionColumns+`
		 WHERE g.period = ? AND gc.completed_at >= ? AND gc.completed_at < ?
		 ORDER BY gc.completed_at DESC, gc.id`,
		string(period), millis(from), millis(to))
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Completion, 0)
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCompletion implements ports.CompletionWriter.
func (r *SQLiteRepository) CreateCompletion(ctx context.Context, goalID string, at time.Time) (core.Completion, error) {
	id := uuid.NewString()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goal_completions (id, goal_id, completed_at)
		 SELECT ?, id, ? FROM goals WHERE id = ?`,
		id, millis(at), goalID)
	if err != nil {
		return core.Completion{}, fmt.Errorf("insert completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Completion{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
	}

	c, err := scanCompletion(r.db.QueryRowContext(ctx, `SELECT `+completionColumns+` WHERE gc.id = ?`, id))
	if err != nil {
		return core.Completion{}, fmt.Errorf("read completion: %w", err)
	}

	slog.InfoContext(ctx, "Completion saved to SQLite", "completion_id", c.ID, "goal_id", goalID)
	return c, nil
}

// CreateCompletionWithin implements ports.CompletionWriter. The count and
// the insert run as one statement so concurrent writers cannot overfill a goal.
func (r *SQLiteRepository) CreateCompletionWithin(ctx context.Context, goalID string, at, from, to time.Time) (core.Completion, error) {
	id := uuid.NewString()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO goal_completions (id, goal_id, completed_at)
		 SELECT ?, g.id, ? FROM goals g
		 WHERE g.id = ?
		   AND (SELECT COUNT(*) FROM goal_completions gc
		        WHERE gc.goal_id = g.id AND gc.completed_at >= ? AND gc.completed_at < ?) < g.desired_frequency`,
		id, millis(at), goalID, millis(from), millis(to))
	if err != nil {
		return core.Completion{}, fmt.Errorf("insert completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		err := r.db.QueryRowContext(ctx, `SELECT 1 FROM goals WHERE id = ?`, goalID).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return core.Completion{}, fmt.Errorf("goal %s: %w", goalID, core.ErrNotFound)
		case err != nil:
			return core.Completion{}, fmt.Errorf("read goal: %w", err)
		}
		return core.Completion{}, fmt.Errorf("goal %s: %w", goalID, core.ErrGoalAlreadyDone)
	}

	c, err := scanCompletion(r.db.QueryRowContext(ctx, `SELECT `+completionColumns+` WHERE gc.id = ?`, id))
	if err != nil {
		return core.Completion{}, fmt.Errorf("read completion: %w", err)
	}

	slog.InfoContext(ctx, "Completion saved to SQLite", "completion_id", c.ID, "goal_id", goalID)
	return c, nil
}

// DeleteCompletion implements ports.CompletionDeleter.
func (r *SQLiteRepository) DeleteCompletion(ctx context.Context, id string) (core.Completion, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Completion{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	c, err := scanCompletion(tx.QueryRowContext(ctx, `SELECT `+completionColumns+` WHERE gc.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Completion{}, fmt.Errorf("completion %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Completion{}, fmt.Errorf("read completion: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM goal_completions WHERE id = ?`, id); err != nil {
		return core.Completion{}, fmt.Errorf("delete completion: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Completion{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Completion deleted from SQLite", "completion_id", id, "goal_id", c.GoalID)
	return c, nil
}
