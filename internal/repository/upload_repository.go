package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
)

// cascadedFiles lists the stored paths of uploads whose submission matches
// where. Call it inside the transaction that deletes those rows.
func cascadedFiles(ctx context.Context, q execer, where string, args ...interface{}) ([]string, error) {
	var paths []string
	query := q.Rebind(`SELECT u.file_path FROM uploads u JOIN submissions s ON s.id = u.submission_id WHERE ` + where)
	if err := sqlx.SelectContext(ctx, q, &paths, query, args...); err != nil {
		return nil, fmt.Errorf("list upload files: %w", err)
	}
	return paths, nil
}

const uploadSelect = `SELECT u.id, u.submission_id, u.file_name, u.file_path, u.file_size, u.mime_type, u.uploaded_by, u.uploaded_at,
        s.assignment_id, a.title AS assignment_title, s.group_id, g.name AS group_name
        FROM uploads u
        JOIN submissions s ON s.id = u.submission_id
        JOIN assignments a ON a.id = s.assignment_id
        JOIN student_groups g ON g.id = s.group_id`

// UploadRepository persists upload metadata.
type UploadRepository struct {
	db *sqlx.DB
}

// NewUploadRepository constructs an UploadRepository.
func NewUploadRepository(db *sqlx.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// List returns uploads, newest first.
func (r *UploadRepository) List(ctx context.Context, filter models.UploadFilter) ([]models.UploadDetail, error) {
	var conditions []string
	var args []interface{}
	if filter.SubmissionID != "" {
		conditions = append(conditions, "u.submission_id = ?")
		args = append(args, filter.SubmissionID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, "s.group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.AssignmentID != "" {
		conditions = append(conditions, "s.assignment_id = ?")
		args = append(args, filter.AssignmentID)
	}

	query := uploadSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY u.uploaded_at DESC, u.id ASC"

	var uploads []models.UploadDetail
	if err := r.db.SelectContext(ctx, &uploads, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return uploads, nil
}

// FindByID fetches an upload. sql.ErrNoRows is returned untouched.
func (r *UploadRepository) FindByID(ctx context.Context, id string) (*models.UploadDetail, error) {
	var upload models.UploadDetail
	if err := r.db.GetContext(ctx, &upload, r.db.Rebind(uploadSelect+" WHERE u.id = ?"), id); err != nil {
		return nil, err
	}
	return &upload, nil
}

// Create stores upload metadata.
func (r *UploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	if upload.ID == "" {
		upload.ID = uuid.NewString()
	}
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = time.Now().UTC()
	}

	const query = `INSERT INTO uploads (id, submission_id, file_name, file_path, file_size, mime_type, uploaded_by, uploaded_at)
        VALUES (:id, :submission_id, :file_name, :file_path, :file_size, :mime_type, :uploaded_by, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, upload); err != nil {
		return storeError("create upload", err)
	}
	return nil
}

// Delete removes upload metadata.
func (r *UploadRepository) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.db, `DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return storeError("delete upload", err)
	}
	return requireAffected(res, "delete upload")
}

// CountSince counts uploads made at or after since.
func (r *UploadRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM uploads WHERE uploaded_at >= ?`), since.UTC()); err != nil {
		return 0, fmt.Errorf("count uploads: %w", err)
	}
	return count, nil
}
