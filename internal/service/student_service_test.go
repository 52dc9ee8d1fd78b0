package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/student-records-api/internal/models"
	appErrors "github.com/campushq/student-records-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[int64]*models.Student
	nextID   int64
	failWith error

	searchCalls int
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[int64]*models.Student), nextID: 1}
}

func (m *mockStudentRepo) ListActive(ctx context.Context) ([]models.Student, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	var out []models.Student
	for _, st := range m.students {
		if st.Status == models.StudentStatusActive {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id int64) (*models.Student, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	st, ok := m.students[id]
	if !ok || st.Status != models.StudentStatusActive {
		return nil, sql.ErrNoRows
	}
	copy := *st
	return &copy, nil
}

func (m *mockStudentRepo) Search(ctx context.Context, term string) ([]models.Student, error) {
	m.searchCalls++
	if m.failWith != nil {
		return nil, m.failWith
	}
	needle := strings.ToLower(term)
	var out []models.Student
	for _, st := range m.students {
		if st.Status != models.StudentStatusActive {
			continue
		}
		haystack := strings.ToLower(st.FirstName + " " + st.LastName + " " + st.Email + " " + st.Course)
		if strings.Contains(haystack, needle) {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

func (m *mockStudentRepo) ExistsByEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	for _, st := range m.students {
		if st.Status == models.StudentStatusActive && strings.EqualFold(st.Email, email) && st.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.failWith != nil {
		return m.failWith
	}
	now := time.Now().UTC()
	student.ID = m.nextID
	m.nextID++
	student.Status = models.StudentStatusActive
	student.CreatedAt = now
	student.UpdatedAt = now
	copy := *student
	m.students[student.ID] = &copy
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	current, ok := m.students[student.ID]
	if !ok || current.Status != models.StudentStatusActive {
		return false, nil
	}
	student.UpdatedAt = time.Now().UTC()
	copy := *student
	m.students[student.ID] = &copy
	return true, nil
}

func (m *mockStudentRepo) SoftDelete(ctx context.Context, id int64) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	st, ok := m.students[id]
	if !ok || st.Status != models.StudentStatusActive {
		return false, nil
	}
	st.Status = models.StudentStatusDeleted
	st.UpdatedAt = time.Now().UTC()
	return true, nil
}

func validPayload() StudentPayload {
	return StudentPayload{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada.lovelace@example.com",
		DateOfBirth: time.Date(1997, 12, 10, 0, 0, 0, 0, time.UTC),
		Gender:      "Female",
		Address:     "12 Analytical Way, London",
		Course:      "Mathematics",
		Year:        2,
		GPA:         3.9,
	}
}

func newTestStudentService(repo *mockStudentRepo) *StudentService {
	return NewStudentService(repo, nil, NewValidator(), nil)
}

func TestStudentServiceCreateAndGetRoundTrip(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.Equal(t, models.StudentStatusActive, created.Status)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "ada.lovelace@example.com", got.Email)
	assert.Equal(t, 3.9, got.GPA)
}

func TestStudentServiceCreateRejectsInvalidPayload(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)

	bad := validPayload()
	bad.FirstName = ""
	bad.Email = "not-an-email"
	bad.Year = 7
	bad.GPA = 4.5

	_, err := svc.Create(context.Background(), bad)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)

	named := make(map[string]bool)
	for _, f := range appErr.Fields {
		named[f.Field] = true
	}
	assert.True(t, named["first_name"])
	assert.True(t, named["email"])
	assert.True(t, named["year"])
	assert.True(t, named["gpa"])

	// Nothing may be written when validation fails.
	assert.Empty(t, repo.students)
}

func TestStudentServiceCreateRejectsDuplicateEmail(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)

	dup := validPayload()
	dup.FirstName = "Augusta"
	_, err = svc.Create(ctx, dup)
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "email", appErr.Fields[0].Field)
	assert.Len(t, repo.students, 1)
}

func TestStudentServiceDeleteFreesEmailForReuse(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, first.ID))

	// A soft-deleted row no longer holds the address.
	second, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStudentServiceUpdateRoundTrip(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)

	changed := validPayload()
	changed.Course = "Computer Science"
	changed.Year = 3
	changed.GPA = 4.0

	updated, err := svc.Update(ctx, created.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", updated.Course)
	assert.Equal(t, 3, updated.Year)
	assert.Equal(t, 4.0, updated.GPA)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Computer Science", got.Course)
}

func TestStudentServiceUpdateMissingStudent(t *testing.T) {
	svc := newTestStudentService(newMockStudentRepo())

	_, err := svc.Update(context.Background(), 42, validPayload())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestStudentServiceUpdateRejectsInvalidPayloadWithoutWrite(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)

	bad := validPayload()
	bad.GPA = -1

	_, err = svc.Update(ctx, created.ID, bad)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.9, got.GPA)
}

func TestStudentServiceDeleteHidesButKeepsRecord(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// The row survives the delete with a flipped status.
	row, ok := repo.students[created.ID]
	require.True(t, ok)
	assert.Equal(t, models.StudentStatusDeleted, row.Status)
	assert.Equal(t, "ada.lovelace@example.com", row.Email)
}

func TestStudentServiceDeleteTwice(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	err = svc.Delete(ctx, created.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestStudentServiceListOrdering(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	for _, p := range []struct{ first, last, email string }{
		{"Grace", "Hopper", "grace@example.com"},
		{"Alan", "Turing", "alan@example.com"},
		{"Ada", "Hopper", "ada.h@example.com"},
	} {
		payload := validPayload()
		payload.FirstName = p.first
		payload.LastName = p.last
		payload.Email = p.email
		_, err := svc.Create(ctx, payload)
		require.NoError(t, err)
	}

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Ada", list[0].FirstName)
	assert.Equal(t, "Hopper", list[0].LastName)
	assert.Equal(t, "Grace", list[1].FirstName)
	assert.Equal(t, "Turing", list[2].LastName)
}

func TestStudentServiceSearchBlankTerm(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)

	for _, term := range []string{"", "   ", "\t"} {
		_, err := svc.Search(context.Background(), term)
		require.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrBadRequest.Code))
	}
	assert.Zero(t, repo.searchCalls)
}

func TestStudentServiceSearchMatches(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)

	other := validPayload()
	other.FirstName = "Alan"
	other.LastName = "Turing"
	other.Email = "alan@example.com"
	other.Course = "Computing"
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	results, err := svc.Search(ctx, "math")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Lovelace", results[0].LastName)

	results, err = svc.Search(ctx, "nomatch")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStudentServiceStatisticsEmptyPopulation(t *testing.T) {
	svc := newTestStudentService(newMockStudentRepo())

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalStudents)
	assert.Zero(t, stats.AverageGPA)
	assert.Empty(t, stats.CourseDistribution)
	assert.Empty(t, stats.YearDistribution)
	assert.Empty(t, stats.GenderDistribution)
}

func TestStudentServiceStatistics(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	seed := []struct {
		first, email, gender, course string
		year                         int
		gpa                          float64
	}{
		{"A", "a@example.com", "Female", "Mathematics", 1, 3.0},
		{"B", "b@example.com", "Male", "Mathematics", 2, 3.5},
		{"C", "c@example.com", "Female", "Computing", 2, 3.7},
	}
	for _, s := range seed {
		payload := validPayload()
		payload.FirstName = s.first
		payload.Email = s.email
		payload.Gender = s.gender
		payload.Course = s.course
		payload.Year = s.year
		payload.GPA = s.gpa
		_, err := svc.Create(ctx, payload)
		require.NoError(t, err)
	}

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, 3.4, stats.AverageGPA)

	require.Len(t, stats.CourseDistribution, 2)
	assert.Equal(t, "Mathematics", stats.CourseDistribution[0].Course)
	assert.Equal(t, 2, stats.CourseDistribution[0].Count)

	require.Len(t, stats.YearDistribution, 2)
	assert.Equal(t, 1, stats.YearDistribution[0].Year)
	assert.Equal(t, 2, stats.YearDistribution[1].Year)
	assert.Equal(t, 2, stats.YearDistribution[1].Count)

	require.Len(t, stats.GenderDistribution, 2)
	assert.Equal(t, "Female", stats.GenderDistribution[0].Gender)
	assert.Equal(t, 2, stats.GenderDistribution[0].Count)
}

func TestStudentServiceStatisticsExcludesDeleted(t *testing.T) {
	repo := newMockStudentRepo()
	svc := newTestStudentService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, validPayload())
	require.NoError(t, err)

	other := validPayload()
	other.Email = "other@example.com"
	other.GPA = 2.0
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalStudents)
	assert.Equal(t, 2.0, stats.AverageGPA)
}

func TestStudentServiceStoreUnavailable(t *testing.T) {
	repo := newMockStudentRepo()
	repo.failWith = sql.ErrConnDone
	svc := newTestStudentService(repo)

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStoreUnavailable.Code))
}
