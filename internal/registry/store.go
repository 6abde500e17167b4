package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"parcel/internal/config"
	"parcel/internal/project"
)

// Store persists publish records backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the registry database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.RegistryPath())
}

// OpenPath connects to the registry database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// RegisterPublish records one publish and returns the stored record.
func (s *Store) RegisterPublish(ctx context.Context, req RegisterRequest) (*Record, error) {
	if req.Name == "" {
		return nil, errors.New("publish name is required")
	}
	if req.Path == "" {
		return nil, errors.New("publish path is required")
	}
	if req.Version < 1 {
		return nil, fmt.Errorf("publish version must be positive, got %d", req.Version)
	}

	deps, err := marshalNullable(req.DependencyPaths)
	if err != nil {
		return nil, fmt.Errorf("marshal dependency paths: %w", err)
	}
	fields, err := marshalNullable(req.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO publishes (
            project, entity, step, task, name, path, version,
            publish_type, thumbnail_path, dependency_paths, fields_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.Context.Project,
		req.Context.Entity,
		req.Context.Step,
		req.Context.Task,
		req.Name,
		req.Path,
		req.Version,
		req.PublishType,
		nullableString(req.ThumbnailPath),
		deps,
		fields,
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert publish: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a publish record, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM publishes WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get publish: %w", err)
	}
	return record, nil
}

// List returns records matching the filter, newest version first within a
// name, ordered by creation time.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM publishes`
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, value string) {
		if value != "" {
			clauses = append(clauses, clause)
			args = append(args, value)
		}
	}
	add("project = ?", filter.Project)
	add("entity = ?", filter.Entity)
	add("step = ?", filter.Step)
	add("task = ?", filter.Task)
	add("name = ?", filter.Name)
	add("publish_type = ?", filter.Type)
	add("path = ?", filter.Path)
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at, version"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list publishes: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Conflicts returns existing records for the same (context, name) pair.
func (s *Store) Conflicts(ctx context.Context, pctx project.Context, name string) ([]*Record, error) {
	return s.List(ctx, Filter{
		Project: pctx.Project,
		Entity:  pctx.Entity,
		Step:    pctx.Step,
		Task:    pctx.Task,
		Name:    name,
	})
}

// NextVersion returns one past the highest registered version for the
// (context, name) pair, starting at 1.
func (s *Store) NextVersion(ctx context.Context, pctx project.Context, name string) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(MAX(version), 0) FROM publishes
         WHERE project = ? AND entity = ? AND step = ? AND task = ? AND name = ?`,
		pctx.Project, pctx.Entity, pctx.Step, pctx.Task, name,
	)
	var highest int
	if err := row.Scan(&highest); err != nil {
		return 0, fmt.Errorf("next version: %w", err)
	}
	return highest + 1, nil
}

// Delete removes a record by identifier, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM publishes WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete publish: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats returns a count of records grouped by publish type.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT publish_type, COUNT(1) FROM publishes GROUP BY publish_type`)
	if err != nil {
		return nil, fmt.Errorf("registry stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var publishType string
		var count int
		if err := rows.Scan(&publishType, &count); err != nil {
			return nil, err
		}
		stats[publishType] = count
	}
	return stats, rows.Err()
}

const recordColumns = "id, project, entity, step, task, name, path, version, publish_type, thumbnail_path, dependency_paths, fields_json, created_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id          int64
		proj        string
		entity      string
		step        string
		task        string
		name        string
		path        string
		version     int
		publishType string
		thumbnail   sql.NullString
		deps        sql.NullString
		fields      sql.NullString
		createdRaw  string
	)
	if err := scanner.Scan(
		&id, &proj, &entity, &step, &task, &name, &path, &version,
		&publishType, &thumbnail, &deps, &fields, &createdRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:            id,
		Context:       project.Context{Project: proj, Entity: entity, Step: step, Task: task},
		Name:          name,
		Path:          path,
		Version:       version,
		PublishType:   publishType,
		ThumbnailPath: thumbnail.String,
	}
	if deps.Valid && deps.String != "" {
		if err := json.Unmarshal([]byte(deps.String), &record.DependencyPaths); err != nil {
			return nil, fmt.Errorf("decode dependency paths: %w", err)
		}
	}
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &record.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		record.CreatedAt = created
	}
	return record, nil
}

func marshalNullable(value any) (any, error) {
	switch v := value.(type) {
	case []string:
		if len(v) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(v) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
