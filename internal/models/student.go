package models

import "time"

// StudentStatus is the lifecycle state of a student record. Records are never
// physically removed; a delete flips the status to deleted.
type StudentStatus string

const (
	StudentStatusActive  StudentStatus = "active"
	StudentStatusDeleted StudentStatus = "deleted"
)

// Gender values accepted for student records.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Student represents one enrolled person.
type Student struct {
	ID          int64         `db:"id" json:"id"`
	FirstName   string        `db:"first_name" json:"first_name"`
	LastName    string        `db:"last_name" json:"last_name"`
	Email       string        `db:"email" json:"email"`
	Phone       *string       `db:"phone" json:"phone,omitempty"`
	DateOfBirth time.Time     `db:"date_of_birth" json:"date_of_birth"`
	Gender      string        `db:"gender" json:"gender"`
	Address     string        `db:"address" json:"address"`
	Course      string        `db:"course" json:"course"`
	Year        int           `db:"year" json:"year"`
	GPA         float64       `db:"gpa" json:"gpa"`
	Status      StudentStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// CourseCount is one bucket of the per-course distribution.
type CourseCount struct {
	Course string `json:"course"`
	Count  int    `json:"count"`
}

// YearCount is one bucket of the per-year distribution.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// GenderCount is one bucket of the per-gender distribution.
type GenderCount struct {
	Gender string `json:"gender"`
	Count  int    `json:"count"`
}

// StudentStatistics aggregates the active student population.
type StudentStatistics struct {
	TotalStudents      int           `json:"total_students"`
	AverageGPA         float64       `json:"average_gpa"`
	CourseDistribution []CourseCount `json:"course_distribution"`
	YearDistribution   []YearCount   `json:"year_distribution"`
	GenderDistribution []GenderCount `json:"gender_distribution"`
}
