package models

// Client is a person who can be enrolled in health programs.
type Client struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	IDNumber    string `json:"id_number"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`
	Contact     string `json:"contact"`
	Address     string `json:"address"`
}

// ClientDetail is a client together with its enrollment history.
type ClientDetail struct {
	Client
	Enrollments []EnrollmentSummary `json:"enrollments"`
}
