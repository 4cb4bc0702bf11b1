package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/database"
)

const studentSelect = `SELECT s.id, s.name, s.group_id, s.avatar, s.xp, s.streak, s.professionality_scores, s.average_score, s.achievements, s.created_at, s.updated_at,
        g.name AS group_name
        FROM students s LEFT JOIN student_groups g ON g.id = s.group_id`

// StudentRepository manages persistence for student records and their group membership.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the filter along with the unpaginated total.
// A zero PageSize returns every match.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.GroupID != "" {
		conditions = append(conditions, "s.group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.Search != "" {
		conditions = append(conditions, "LOWER(s.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := studentSelect + where + " ORDER BY s.name ASC, s.id ASC"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		size := filter.PageSize
		if size > 100 {
			size = 100
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", size, (page-1)*size)
	}

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM students s" + where
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countQuery), args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByID fetches a student detail by ID. sql.ErrNoRows is returned untouched.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, r.db.Rebind(studentSelect+" WHERE s.id = ?"), id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a student and, when a group is set, its membership link.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now
	if student.ProfessionalityScores == nil {
		student.ProfessionalityScores = models.ScoreMap{}
	}
	if student.Achievements == nil {
		student.Achievements = models.StringList{}
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO students (id, name, group_id, avatar, xp, streak, professionality_scores, average_score, achievements, created_at, updated_at)
        VALUES (:id, :name, :group_id, :avatar, :xp, :streak, :professionality_scores, :average_score, :achievements, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, student); err != nil {
			return storeError("create student", err)
		}
		if student.GroupID != nil {
			return linkMember(ctx, tx, *student.GroupID, student.ID)
		}
		return nil
	})
}

// Update persists the editable student fields and moves the membership link
// so it always mirrors group_id.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `UPDATE students SET name = :name, group_id = :group_id, avatar = :avatar, xp = :xp, streak = :streak, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, student)
		if err != nil {
			return storeError("update student", err)
		}
		if err := requireAffected(res, "update student"); err != nil {
			return err
		}
		if student.GroupID != nil {
			return linkMember(ctx, tx, *student.GroupID, student.ID)
		}
		if _, err := exec(ctx, tx, `DELETE FROM group_members WHERE student_id = ?`, student.ID); err != nil {
			return storeError("unlink group member", err)
		}
		return nil
	})
}

// UpdateAvatar replaces only the avatar of a student.
func (r *StudentRepository) UpdateAvatar(ctx context.Context, id, avatar string) error {
	res, err := exec(ctx, r.db, `UPDATE students SET avatar = ?, updated_at = ? WHERE id = ?`, avatar, time.Now().UTC(), id)
	if err != nil {
		return storeError("update avatar", err)
	}
	return requireAffected(res, "update avatar")
}

// Delete removes a student. Membership and awarded achievements cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.db, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return storeError("delete student", err)
	}
	return requireAffected(res, "delete student")
}

func updateProfessionality(ctx context.Context, q execer, id string, scores models.ScoreMap, average float64) error {
	if _, err := exec(ctx, q, `UPDATE students SET professionality_scores = ?, average_score = ?, updated_at = ? WHERE id = ?`,
		scores, average, time.Now().UTC(), id); err != nil {
		return storeError("update professionality", err)
	}
	return nil
}

// linkMember records that studentID belongs to groupID, dropping any link the
// student had to another group. An identical existing link is kept as is.
func linkMember(ctx context.Context, q execer, groupID, studentID string) error {
	if _, err := exec(ctx, q, `DELETE FROM group_members WHERE student_id = ? AND group_id <> ?`, studentID, groupID); err != nil {
		return storeError("unlink group member", err)
	}
	if _, err := exec(ctx, q, `INSERT INTO group_members (group_id, student_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, groupID, studentID); err != nil {
		return storeError("link group member", err)
	}
	return nil
}
