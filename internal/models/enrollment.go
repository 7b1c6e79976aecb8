package models

// EnrollmentStatus is the lifecycle label of an enrollment.
type EnrollmentStatus string

const (
	StatusActive    EnrollmentStatus = "Active"
	StatusCompleted EnrollmentStatus = "Completed"
	StatusDropped   EnrollmentStatus = "Dropped"
)

// EnrollmentStatuses lists the accepted statuses in display order.
var EnrollmentStatuses = []EnrollmentStatus{StatusActive, StatusCompleted, StatusDropped}

// Valid reports whether s is one of the known statuses.
func (s EnrollmentStatus) Valid() bool {
	for _, known := range EnrollmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Enrollment links one client to one program.
type Enrollment struct {
	ID             int64            `json:"id"`
	ClientID       int64            `json:"client_id"`
	ProgramID      int64            `json:"program_id"`
	EnrollmentDate string           `json:"enrollment_date"`
	Status         EnrollmentStatus `json:"status"`
}

// EnrollmentSummary is an enrollment joined with its program name.
type EnrollmentSummary struct {
	ID             int64            `json:"id"`
	ProgramID      int64            `json:"-"`
	ProgramName    string           `json:"program_name"`
	EnrollmentDate string           `json:"enrollment_date"`
	Status         EnrollmentStatus `json:"status"`
}
