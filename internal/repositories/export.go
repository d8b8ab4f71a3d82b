package repositories

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/tablenav/internal/models"
	"github.com/desertthunder/tablenav/internal/shared"
)

var _ models.Repository[*models.ExportRecord] = (*ExportRepository)(nil)

// ExportRepository implements [models.Repository] for [models.ExportRecord] persistence.
type ExportRepository struct {
	db *sql.DB
}

// NewExportRepository creates a new [ExportRepository] with the given database connection
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

const exportColumns = `id, sequence, kind, experiment, user_id, start_index, end_index, include_end, step, snapshot_id,
	file_path, size_bytes, created_at, deleted_at`

func nullable(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

// Create inserts a new export record with generated ID and sequence
func (r *ExportRepository) Create(record *models.ExportRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "exports")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)
	record.SetSequence(sequence)

	req := record.Request()
	query := `
		INSERT INTO exports (` + exportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id, sequence, string(record.Kind()), req.Experiment, req.User,
		nullable(req.Start), nullable(req.End), req.IncludeEnd, nullable(req.Step), nullable(req.Snapshot),
		record.FilePath(), record.SizeBytes(), record.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(row scanner) (*models.ExportRecord, error) {
	var (
		id               string
		sequence         int
		kind             string
		experiment, user int
		start, end       sql.NullInt64
		includeEnd       bool
		step, snapshot   sql.NullInt64
		filePath         string
		sizeBytes        int64
		createdAt        time.Time
		deletedAt        sql.NullTime
	)

	err := row.Scan(&id, &sequence, &kind, &experiment, &user, &start, &end, &includeEnd, &step, &snapshot,
		&filePath, &sizeBytes, &createdAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	req := models.ExportRequest{
		Experiment: experiment,
		User:       user,
		Start:      int(start.Int64),
		End:        int(end.Int64),
		IncludeEnd: includeEnd,
		Step:       int(step.Int64),
		Snapshot:   int(snapshot.Int64),
	}

	record := models.NewExportRecord(sequence, models.ExportKind(kind), req, filePath, sizeBytes)
	record.SetID(id)
	record.SetCreatedAt(createdAt)
	if deletedAt.Valid {
		record.SetDeletedAt(&deletedAt.Time)
	}
	return record, nil
}

// Get retrieves an export by ID, excluding soft-deleted exports
func (r *ExportRepository) Get(id string) (*models.ExportRecord, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE id = ? AND deleted_at IS NULL`

	record, err := scanExport(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: export %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export: %w", err)
	}
	return record, nil
}

// Delete soft-deletes an export by ID
func (r *ExportRepository) Delete(id string) error {
	query := `
		UPDATE exports
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: export %s not found or already deleted", shared.ErrNotFound, id)
	}

	return nil
}

// List retrieves exports matching the given criteria, newest first, excluding soft-deleted exports.
//
// Supported criteria: "experiment" (int), "user" (int), "kind" ([models.ExportKind]) and "limit" (int).
func (r *ExportRepository) List(criteria map[string]any) ([]*models.ExportRecord, error) {
	query := `SELECT ` + exportColumns + ` FROM exports WHERE deleted_at IS NULL`
	args := []any{}

	if experiment, ok := criteria["experiment"].(int); ok && experiment > 0 {
		query += " AND experiment = ?"
		args = append(args, experiment)
	}
	if user, ok := criteria["user"].(int); ok && user > 0 {
		query += " AND user_id = ?"
		args = append(args, user)
	}
	if kind, ok := criteria["kind"].(models.ExportKind); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, string(kind))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	var records []*models.ExportRecord
	for rows.Next() {
		record, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// HistoryRecorder records finished export files through any export repository.
// Record is safe for concurrent use; writes are serialized so sequence numbers stay unique.
type HistoryRecorder struct {
	mu   sync.Mutex
	repo models.Repository[*models.ExportRecord]
}

// NewHistoryRecorder creates a new [HistoryRecorder] with the given repository
func NewHistoryRecorder(repo models.Repository[*models.ExportRecord]) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// Record stores a history entry for a file written at path.
func (h *HistoryRecorder) Record(req models.ExportRequest, path string, size int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	record := models.NewExportRecord(0, req.Kind(), req, path, size)
	if err := h.repo.Create(record); err != nil {
		return fmt.Errorf("failed to record export: %w", err)
	}
	return nil
}
