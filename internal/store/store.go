package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/sync/singleflight"

	"github.com/insightpilot/insightpilot/internal/confidence"
	"github.com/insightpilot/insightpilot/pkg/models"
)

// ErrNotFound is returned when a pattern id does not exist. Patterns can be
// pruned while feedback is in flight, so callers treat it as a no-op.
var ErrNotFound = errors.New("pattern not found")

const (
	// DefaultPruneAgeDays is the staleness window used when Prune gets <= 0
	DefaultPruneAgeDays = 90

	pruneMaxConfidence  = 0.3
	pruneMinOccurrences = 3
)

// Store handles all pattern persistence
type Store struct {
	db      *sql.DB
	model   *confidence.Model
	now     func() time.Time
	creates singleflight.Group
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithModel sets the confidence model used on feedback
func WithModel(m *confidence.Model) Option {
	return func(s *Store) { s.model = m }
}

// Stats represents store statistics
type Stats struct {
	TotalPatterns int                      `json:"totalPatterns"`
	ByType        map[string]int           `json:"byType"`
	ByLevel       map[confidence.Level]int `json:"byLevel"`
	DaemonRunning bool                     `json:"daemonRunning"`
}

// ListOpts filters List
type ListOpts struct {
	Type          models.PatternType
	Source        string
	MinConfidence float64
	Limit         int
}

// New creates a new store instance
func New(dbPath string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:    db,
		model: confidence.New(confidence.DefaultConfig()),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs database migrations
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS patterns (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL CHECK (type IN ('activity_category','activity_skill','goal_category','person_context','location_fill')),
			source_type TEXT NOT NULL CHECK (source_type IN ('keyword','goal','person','location')),
			source_key TEXT NOT NULL,
			target_type TEXT NOT NULL CHECK (target_type IN ('category','subcategory','skill','goal')),
			target_key TEXT NOT NULL,
			target_display_name TEXT,

			confidence REAL NOT NULL DEFAULT 0.3,
			occurrence_count INTEGER NOT NULL DEFAULT 0 CHECK (occurrence_count >= 0),
			accept_count INTEGER NOT NULL DEFAULT 0 CHECK (accept_count >= 0),
			reject_count INTEGER NOT NULL DEFAULT 0 CHECK (reject_count >= 0),
			last_seen_at INTEGER NOT NULL,

			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,

			UNIQUE (type, source_key, target_type, target_key)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_patterns_type_source ON patterns(type, source_key)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_source ON patterns(source_type, source_key)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_confidence ON patterns(confidence DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_updated ON patterns(updated_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

const patternColumns = `id, type, source_type, source_key, target_type, target_key, target_display_name,
	confidence, occurrence_count, accept_count, reject_count, last_seen_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPattern(row rowScanner) (*models.Pattern, error) {
	var p models.Pattern
	var displayName sql.NullString
	var lastSeen, created, updated int64

	err := row.Scan(
		&p.ID, &p.Type, &p.SourceType, &p.SourceKey, &p.TargetType, &p.TargetKey, &displayName,
		&p.Confidence, &p.OccurrenceCount, &p.AcceptCount, &p.RejectCount, &lastSeen, &created, &updated,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if displayName.Valid {
		p.TargetDisplayName = displayName.String
	}
	p.LastSeenAt = fromMillis(lastSeen)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	return &p, nil
}

func (s *Store) queryPatterns(ctx context.Context, query string, args ...any) ([]models.Pattern, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []models.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, *p)
	}
	return patterns, rows.Err()
}

// GetStats returns store statistics
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		ByType:  make(map[string]int),
		ByLevel: make(map[confidence.Level]int),
	}

	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patterns")
	if err := row.Scan(&stats.TotalPatterns); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT type, COUNT(*) FROM patterns GROUP BY type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var patternType string
		var count int
		if err := rows.Scan(&patternType, &count); err != nil {
			return nil, err
		}
		stats.ByType[patternType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cfg := s.model.Config()
	var auto, suggest int
	row = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN confidence >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN confidence >= ? AND confidence < ? THEN 1 ELSE 0 END), 0)
		FROM patterns
	`, cfg.AutoApplyThreshold, cfg.SuggestThreshold, cfg.AutoApplyThreshold)
	if err := row.Scan(&auto, &suggest); err != nil {
		return nil, err
	}
	stats.ByLevel[confidence.LevelAuto] = auto
	stats.ByLevel[confidence.LevelSuggest] = suggest
	stats.ByLevel[confidence.LevelNone] = stats.TotalPatterns - auto - suggest

	return stats, nil
}

// FindOrCreate returns the pattern for the input's unique tuple, creating it
// at base confidence with zeroed counters if absent. Concurrent calls for the
// same tuple share one lookup, and the UNIQUE constraint covers other
// processes writing the same database. The shared lookup outlives the
// cancellation of whichever caller started it; each caller still sees its
// own ctx error.
func (s *Store) FindOrCreate(ctx context.Context, in models.PatternInput) (*models.Pattern, error) {
	in = in.Normalized()
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	flight := context.WithoutCancel(ctx)
	v, err, _ := s.creates.Do(in.TupleKey(), func() (any, error) {
		return s.findOrCreate(flight, in)
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// callers sharing a flight must not share the struct
	p := *v.(*models.Pattern)
	return &p, nil
}

func (s *Store) findOrCreate(ctx context.Context, in models.PatternInput) (*models.Pattern, error) {
	existing, err := s.findTuple(ctx, in)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up pattern: %w", err)
	}

	now := s.clock()
	p := &models.Pattern{
		ID:                models.NewPatternID(),
		Type:              in.Type,
		SourceType:        in.SourceType,
		SourceKey:         in.SourceKey,
		TargetType:        in.TargetType,
		TargetKey:         in.TargetKey,
		TargetDisplayName: in.TargetDisplayName,
		Confidence:        s.model.Config().BaseConfidence,
		LastSeenAt:        now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO patterns (`+patternColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (type, source_key, target_type, target_key) DO NOTHING
	`,
		p.ID, p.Type, p.SourceType, p.SourceKey, p.TargetType, p.TargetKey, nullString(p.TargetDisplayName),
		p.Confidence, p.OccurrenceCount, p.AcceptCount, p.RejectCount,
		toMillis(p.LastSeenAt), toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert pattern: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 1 {
		return p, nil
	}

	// another writer created the tuple between our lookup and insert
	return s.findTuple(ctx, in)
}

func (s *Store) findTuple(ctx context.Context, in models.PatternInput) (*models.Pattern, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+patternColumns+`
		FROM patterns
		WHERE type = ? AND source_key = ? AND target_type = ? AND target_key = ?
	`, in.Type, in.SourceKey, in.TargetType, in.TargetKey)
	return scanPattern(row)
}

// Get retrieves a pattern by id
func (s *Store) Get(ctx context.Context, id string) (*models.Pattern, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+patternColumns+` FROM patterns WHERE id = ?`, id)
	return scanPattern(row)
}

// IncrementOccurrence records that the pattern's cue and target were seen
// together again. Confidence is left alone; only feedback rescores.
func (s *Store) IncrementOccurrence(ctx context.Context, id string) (*models.Pattern, error) {
	now := toMillis(s.clock())
	row := s.db.QueryRowContext(ctx, `
		UPDATE patterns
		SET occurrence_count = occurrence_count + 1,
			last_seen_at = ?,
			updated_at = ?
		WHERE id = ?
		RETURNING `+patternColumns,
		now, now, id,
	)
	p, err := scanPattern(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to increment occurrence: %w", err)
	}
	return p, err
}

// RecordAccept records that the user accepted a suggestion from this pattern
func (s *Store) RecordAccept(ctx context.Context, id string) (*models.Pattern, error) {
	return s.recordFeedback(ctx, id, true)
}

// RecordReject records that the user rejected a suggestion from this pattern
func (s *Store) RecordReject(ctx context.Context, id string) (*models.Pattern, error) {
	return s.recordFeedback(ctx, id, false)
}

func (s *Store) recordFeedback(ctx context.Context, id string, accepted bool) (*models.Pattern, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p, err := scanPattern(tx.QueryRowContext(ctx, `SELECT `+patternColumns+` FROM patterns WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if accepted {
		p.AcceptCount++
	} else {
		p.RejectCount++
	}
	p.OccurrenceCount++
	p.LastSeenAt = now
	p.UpdatedAt = now
	p.Confidence = s.model.Score(p, now)

	_, err = tx.ExecContext(ctx, `
		UPDATE patterns
		SET confidence = ?,
			occurrence_count = ?,
			accept_count = ?,
			reject_count = ?,
			last_seen_at = ?,
			updated_at = ?
		WHERE id = ?
	`, p.Confidence, p.OccurrenceCount, p.AcceptCount, p.RejectCount, toMillis(now), toMillis(now), p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update pattern: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit feedback: %w", err)
	}
	return p, nil
}

// FindBySource returns every pattern triggered by the given cue
func (s *Store) FindBySource(ctx context.Context, sourceType models.SourceType, sourceKey string) ([]models.Pattern, error) {
	return s.queryPatterns(ctx, `
		SELECT `+patternColumns+`
		FROM patterns
		WHERE source_type = ? AND source_key = ?
		ORDER BY confidence DESC, last_seen_at DESC, id
	`, sourceType, models.NormalizeKey(sourceKey))
}

// FindByTypeAndSource returns every pattern of one type for the given cue
func (s *Store) FindByTypeAndSource(ctx context.Context, patternType models.PatternType, sourceKey string) ([]models.Pattern, error) {
	return s.queryPatterns(ctx, `
		SELECT `+patternColumns+`
		FROM patterns
		WHERE type = ? AND source_key = ?
		ORDER BY confidence DESC, last_seen_at DESC, id
	`, patternType, models.NormalizeKey(sourceKey))
}

// List returns patterns matching opts, highest confidence first
func (s *Store) List(ctx context.Context, opts ListOpts) ([]models.Pattern, error) {
	query := `SELECT ` + patternColumns + ` FROM patterns WHERE confidence >= ?`
	args := []any{opts.MinConfidence}

	if opts.Type != "" {
		query += " AND type = ?"
		args = append(args, opts.Type)
	}
	if opts.Source != "" {
		query += " AND source_key = ?"
		args = append(args, models.NormalizeKey(opts.Source))
	}

	query += " ORDER BY confidence DESC, last_seen_at DESC, id"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	return s.queryPatterns(ctx, query, args...)
}

// ListHighConfidence returns patterns at or above minConfidence, highest first
func (s *Store) ListHighConfidence(ctx context.Context, minConfidence float64) ([]models.Pattern, error) {
	return s.List(ctx, ListOpts{MinConfidence: minConfidence})
}

// Prune deletes patterns that are both stale (not updated within maxAgeDays)
// and low-value. The conditions are evaluated inside the DELETE, so a
// pattern that received feedback meanwhile is kept.
func (s *Store) Prune(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultPruneAgeDays
	}
	cutoff := s.clock().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM patterns
		WHERE updated_at < ?
		  AND confidence < ?
		  AND occurrence_count < ?
	`, toMillis(cutoff), pruneMaxConfidence, pruneMinOccurrences)
	if err != nil {
		return 0, fmt.Errorf("failed to prune patterns: %w", err)
	}
	return res.RowsAffected()
}

// Delete removes a single pattern
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patterns WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteBySource removes every pattern triggered by a cue, e.g. when a
// person or place is deleted upstream.
func (s *Store) DeleteBySource(ctx context.Context, sourceType models.SourceType, sourceKey string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM patterns WHERE source_type = ? AND source_key = ?
	`, sourceType, models.NormalizeKey(sourceKey))
	if err != nil {
		return 0, fmt.Errorf("failed to delete patterns for %s %q: %w", sourceType, sourceKey, err)
	}
	return res.RowsAffected()
}

func validateInput(in models.PatternInput) error {
	var problems []string
	if !in.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown pattern type %q", in.Type))
	}
	if !in.SourceType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown source type %q", in.SourceType))
	}
	if !in.TargetType.Valid() {
		problems = append(problems, fmt.Sprintf("unknown target type %q", in.TargetType))
	}
	if in.SourceKey == "" {
		problems = append(problems, "empty source key")
	}
	if in.TargetKey == "" {
		problems = append(problems, "empty target key")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid pattern: %s", strings.Join(problems, ", "))
	}
	return nil
}

// clock returns the current time at the millisecond precision stored on disk
func (s *Store) clock() time.Time {
	return fromMillis(s.now().UnixMilli())
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
