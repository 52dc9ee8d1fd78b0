package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/student-records-api/internal/models"
	appErrors "github.com/campushq/student-records-api/pkg/errors"
)

const statsCacheKey = "students:statistics"

type studentRepository interface {
	ListActive(ctx context.Context) ([]models.Student, error)
	FindByID(ctx context.Context, id int64) (*models.Student, error)
	Search(ctx context.Context, term string) ([]models.Student, error)
	ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) (bool, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

// StudentPayload holds the writable student fields. Create and update share
// the same shape because updates replace the full record.
type StudentPayload struct {
	FirstName   string    `json:"first_name" validate:"required"`
	LastName    string    `json:"last_name" validate:"required"`
	Email       string    `json:"email" validate:"required,email"`
	Phone       *string   `json:"phone,omitempty"`
	DateOfBirth time.Time `json:"date_of_birth" validate:"required"`
	Gender      string    `json:"gender" validate:"required,oneof=Male Female Other"`
	Address     string    `json:"address" validate:"required"`
	Course      string    `json:"course" validate:"required"`
	Year        int       `json:"year" validate:"gte=1,lte=4"`
	GPA         float64   `json:"gpa" validate:"gte=0,lte=4"`
}

// NewValidator builds a validator that reports json field names in errors.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// StudentService handles student record use-cases.
type StudentService struct {
	repo      studentRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns every active student ordered by last then first name.
func (s *StudentService) List(ctx context.Context) ([]models.Student, error) {
	students, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list students")
	}
	return students, nil
}

// Get returns one active student. Soft-deleted and nonexistent ids are
// indistinguishable to callers.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to load student")
	}
	return student, nil
}

// Search returns active students matching the term. A blank term is a caller
// error, not an empty result.
func (s *StudentService) Search(ctx context.Context, term string) ([]models.Student, error) {
	if strings.TrimSpace(term) == "" {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "search term cannot be empty")
	}
	students, err := s.repo.Search(ctx, term)
	if err != nil {
		return nil, storeError(err, "failed to search students")
	}
	return students, nil
}

// Create validates the payload, enforces email uniqueness among active
// records, and persists a new student. Validation runs before any mutation.
func (s *StudentService) Create(ctx context.Context, req StudentPayload) (*models.Student, error) {
	if err := s.validatePayload(ctx, req, 0); err != nil {
		return nil, err
	}

	student := payloadToStudent(req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, storeError(err, "failed to create student")
	}

	s.cache.Invalidate(ctx, statsCacheKey)
	s.logger.Info("student created", zap.Int64("id", student.ID))
	return student, nil
}

// Update replaces every field of an active student, re-validating all
// invariants, and refreshes the updated timestamp.
func (s *StudentService) Update(ctx context.Context, id int64, req StudentPayload) (*models.Student, error) {
	if err := s.validatePayload(ctx, req, id); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to load student")
	}

	student := payloadToStudent(req)
	student.ID = id
	student.Status = current.Status
	student.CreatedAt = current.CreatedAt

	found, err := s.repo.Update(ctx, student)
	if err != nil {
		return nil, storeError(err, "failed to update student")
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	s.cache.Invalidate(ctx, statsCacheKey)
	return student, nil
}

// Delete soft-deletes a student. The row is retained with deleted status.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	found, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return storeError(err, "failed to delete student")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	s.cache.Invalidate(ctx, statsCacheKey)
	s.logger.Info("student deleted", zap.Int64("id", id))
	return nil
}

// Statistics aggregates the active population. The result is cached and
// invalidated by every mutation.
func (s *StudentService) Statistics(ctx context.Context) (*models.StudentStatistics, error) {
	var cached models.StudentStatistics
	if s.cache.Get(ctx, statsCacheKey, &cached) {
		return &cached, nil
	}

	students, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load students for statistics")
	}

	stats := computeStatistics(students)
	s.cache.Set(ctx, statsCacheKey, stats, 0)
	return stats, nil
}

func (s *StudentService) validatePayload(ctx context.Context, req StudentPayload, excludeID int64) error {
	fields := enumerateFieldErrors(s.validator.Struct(req))

	// Uniqueness is only worth probing when the email itself is well-formed.
	if !hasField(fields, "email") {
		exists, err := s.repo.ExistsByEmail(ctx, req.Email, excludeID)
		if err != nil {
			return storeError(err, "failed to check email uniqueness")
		}
		if exists {
			fields = append(fields, appErrors.FieldError{Field: "email", Message: "is already used by an active student"})
		}
	}

	if len(fields) > 0 {
		return appErrors.Validation("invalid student payload", fields)
	}
	return nil
}

func payloadToStudent(req StudentPayload) *models.Student {
	return &models.Student{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Phone:       req.Phone,
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		Address:     req.Address,
		Course:      req.Course,
		Year:        req.Year,
		GPA:         req.GPA,
		Status:      models.StudentStatusActive,
	}
}

func computeStatistics(students []models.Student) *models.StudentStatistics {
	stats := &models.StudentStatistics{
		TotalStudents:      len(students),
		CourseDistribution: []models.CourseCount{},
		YearDistribution:   []models.YearCount{},
		GenderDistribution: []models.GenderCount{},
	}

	if len(students) == 0 {
		return stats
	}

	var gpaSum float64
	courses := make(map[string]int)
	years := make(map[int]int)
	genders := make(map[string]int)
	for _, st := range students {
		gpaSum += st.GPA
		courses[st.Course]++
		years[st.Year]++
		genders[st.Gender]++
	}

	stats.AverageGPA = math.Round(gpaSum/float64(len(students))*100) / 100

	for course, count := range courses {
		stats.CourseDistribution = append(stats.CourseDistribution, models.CourseCount{Course: course, Count: count})
	}
	sort.Slice(stats.CourseDistribution, func(i, j int) bool {
		a, b := stats.CourseDistribution[i], stats.CourseDistribution[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Course < b.Course
	})

	for year, count := range years {
		stats.YearDistribution = append(stats.YearDistribution, models.YearCount{Year: year, Count: count})
	}
	sort.Slice(stats.YearDistribution, func(i, j int) bool {
		return stats.YearDistribution[i].Year < stats.YearDistribution[j].Year
	})

	for gender, count := range genders {
		stats.GenderDistribution = append(stats.GenderDistribution, models.GenderCount{Gender: gender, Count: count})
	}
	sort.Slice(stats.GenderDistribution, func(i, j int) bool {
		return stats.GenderDistribution[i].Gender < stats.GenderDistribution[j].Gender
	})

	return stats
}

func enumerateFieldErrors(err error) []appErrors.FieldError {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []appErrors.FieldError{{Field: "payload", Message: "is malformed"}}
	}
	fields := make([]appErrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, appErrors.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of Male, Female or Other"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func hasField(fields []appErrors.FieldError, name string) bool {
	for _, f := range fields {
		if f.Field == name {
			return true
		}
	}
	return false
}

func storeError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
}
