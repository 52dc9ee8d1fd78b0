package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/student-records-api/internal/models"
)

const studentColumns = `id, first_name, last_name, email, phone, date_of_birth, gender, address, course, year, gpa, status, created_at, updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListActive returns every active student ordered by last name then first name.
func (r *StudentRepository) ListActive(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE status = $1 ORDER BY last_name, first_name`, studentColumns)
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID fetches an active student by ID. Missing and soft-deleted rows both
// surface as sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1 AND status = $2`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id, models.StudentStatusActive); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindAnyByID fetches a student regardless of lifecycle status.
func (r *StudentRepository) FindAnyByID(ctx context.Context, id int64) (*models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students WHERE id = $1`, studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Search returns active students whose first name, last name, email or course
// contains the term, case-insensitively.
func (r *StudentRepository) Search(ctx context.Context, term string) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students
        WHERE status = $1
        AND (LOWER(first_name) LIKE $2 OR LOWER(last_name) LIKE $2 OR LOWER(email) LIKE $2 OR LOWER(course) LIKE $2)
        ORDER BY last_name, first_name`, studentColumns)
	pattern := "%" + strings.ToLower(term) + "%"
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, models.StudentStatusActive, pattern); err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return students, nil
}

// ExistsByEmail checks whether an active student with the email exists,
// optionally excluding an ID.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM students WHERE LOWER(email) = LOWER($1) AND status = $2 AND id <> $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email, models.StudentStatusActive, excludeID); err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

// Create inserts a new student record; the store assigns the ID.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	now := time.Now().UTC()
	student.Status = models.StudentStatusActive
	student.CreatedAt = now
	student.UpdatedAt = now
	const query = `INSERT INTO students (first_name, last_name, email, phone, date_of_birth, gender, address, course, year, gpa, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id`
	if err := r.db.GetContext(ctx, &student.ID, query,
		student.FirstName, student.LastName, student.Email, student.Phone,
		student.DateOfBirth, student.Gender, student.Address, student.Course,
		student.Year, student.GPA, student.Status, student.CreatedAt, student.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update replaces every mutable field of an active student. It reports whether
// a row was matched.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) (bool, error) {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students
        SET first_name = $2, last_name = $3, email = $4, phone = $5, date_of_birth = $6,
            gender = $7, address = $8, course = $9, year = $10, gpa = $11, updated_at = $12
        WHERE id = $1 AND status = $13`
	res, err := r.db.ExecContext(ctx, query,
		student.ID, student.FirstName, student.LastName, student.Email, student.Phone,
		student.DateOfBirth, student.Gender, student.Address, student.Course,
		student.Year, student.GPA, student.UpdatedAt, models.StudentStatusActive,
	)
	if err != nil {
		return false, fmt.Errorf("update student: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update student rows: %w", err)
	}
	return rows > 0, nil
}

// SoftDelete flips an active student to deleted. It reports whether a row was
// flipped. No statement in this repository removes rows.
func (r *StudentRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE students SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	res, err := r.db.ExecContext(ctx, query, id, models.StudentStatusActive, models.StudentStatusDeleted, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete student rows: %w", err)
	}
	return rows > 0, nil
}
