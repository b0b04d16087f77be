// Package archive keeps a SQLite history of normalized datasets.
package archive

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/coolbeans/concurrence/pkg/archive/migrations"
	"github.com/coolbeans/concurrence/pkg/dataset"
)

// ErrSnapshotNotFound is returned when no snapshot matches a lookup.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot describes one archived dataset.
type Snapshot struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	GeneratedAt time.Time `json:"generated_at"`
	MinPeriod   int       `json:"min_period"`
	MaxPeriod   int       `json:"max_period"`
	CaseCount   int       `json:"case_count"`
	MemberCount int       `json:"member_count"`
}

// Store persists dataset snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite archive and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("archive path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save stores ds as a new snapshot.
func (s *Store) Save(ctx context.Context, ds *dataset.Dataset) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return Snapshot{}, fmt.Errorf("archive is not configured")
	}
	if ds == nil {
		return Snapshot{}, fmt.Errorf("dataset is nil")
	}

	artifact, err := dataset.Marshal(ds)
	if err != nil {
		return Snapshot{}, fmt.Errorf("marshal dataset: %w", err)
	}

	snapshot := Snapshot{
		ID:          uuid.NewString(),
		Source:      ds.Meta.Source,
		CreatedAt:   fromMillis(toMillis(s.now())),
		GeneratedAt: fromMillis(toMillis(ds.Meta.GeneratedAt)),
		MinPeriod:   ds.Meta.MinPeriod,
		MaxPeriod:   ds.Meta.MaxPeriod,
		CaseCount:   ds.Meta.CaseCount,
		MemberCount: ds.Meta.MemberCount,
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO snapshots (
		   id,
		   source,
		   created_at,
		   generated_at,
		   min_period,
		   max_period,
		   case_count,
		   member_count,
		   artifact
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID,
		snapshot.Source,
		toMillis(snapshot.CreatedAt),
		toMillis(snapshot.GeneratedAt),
		snapshot.MinPeriod,
		snapshot.MaxPeriod,
		snapshot.CaseCount,
		snapshot.MemberCount,
		artifact,
	)
	if err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	return snapshot, nil
}

const snapshotColumns = `id, source, created_at, generated_at, min_period, max_period, case_count, member_count`

// List returns every snapshot, newest first.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("archive is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM snapshots ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}

// Load returns the dataset stored under id.
func (s *Store) Load(ctx context.Context, id string) (*dataset.Dataset, Snapshot, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, Snapshot{}, fmt.Errorf("snapshot id is required")
	}
	return s.loadWhere(ctx, `WHERE id = ?`, id)
}

// Latest returns the most recently saved dataset.
func (s *Store) Latest(ctx context.Context) (*dataset.Dataset, Snapshot, error) {
	return s.loadWhere(ctx, `ORDER BY created_at DESC, rowid DESC LIMIT 1`)
}

func (s *Store) loadWhere(ctx context.Context, clause string, args ...any) (*dataset.Dataset, Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, Snapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, Snapshot{}, fmt.Errorf("archive is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+`, artifact FROM snapshots `+clause, args...)

	var snapshot Snapshot
	var createdAt, generatedAt int64
	var artifact []byte
	err := row.Scan(
		&snapshot.ID,
		&snapshot.Source,
		&createdAt,
		&generatedAt,
		&snapshot.MinPeriod,
		&snapshot.MaxPeriod,
		&snapshot.CaseCount,
		&snapshot.MemberCount,
		&artifact,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Snapshot{}, ErrSnapshotNotFound
		}
		return nil, Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	snapshot.CreatedAt = fromMillis(createdAt)
	snapshot.GeneratedAt = fromMillis(generatedAt)

	ds, err := dataset.Decode(bytes.NewReader(artifact))
	if err != nil {
		return nil, Snapshot{}, fmt.Errorf("decode snapshot %s: %w", snapshot.ID, err)
	}
	return ds, snapshot, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var snapshot Snapshot
	var createdAt, generatedAt int64
	if err := row.Scan(
		&snapshot.ID,
		&snapshot.Source,
		&createdAt,
		&generatedAt,
		&snapshot.MinPeriod,
		&snapshot.MaxPeriod,
		&snapshot.CaseCount,
		&snapshot.MemberCount,
	); err != nil {
		return Snapshot{}, err
	}
	snapshot.CreatedAt = fromMillis(createdAt)
	snapshot.GeneratedAt = fromMillis(generatedAt)
	return snapshot, nil
}
