package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/healthdesk/client-registry/internal/database"
	"github.com/healthdesk/client-registry/internal/models"
)

// ClientServiceProvider defines the interface for client services.
type ClientServiceProvider interface {
	ListClients(ctx context.Context, search string) ([]models.Client, error)
	GetClient(ctx context.Context, id int64) (models.Client, error)
	GetClientDetail(ctx context.Context, id int64) (models.ClientDetail, error)
	CreateClient(ctx context.Context, in ClientInput) (models.Client, error)
	UpdateClient(ctx context.Context, id int64, in ClientInput) (models.Client, error)
}

// ClientInput holds the intake form fields. Only name and ID number are required.
type ClientInput struct {
	Name        string `validate:"required" label:"Name"`
	IDNumber    string `validate:"required" label:"ID Number"`
	DateOfBirth string
	Gender      string
	Contact     string
	Address     string
}

func (in *ClientInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.IDNumber = strings.TrimSpace(in.IDNumber)
}

// ClientService provides business logic for client records.
type ClientService struct {
	db          *sql.DB
	enrollments EnrollmentServiceProvider
	events      EventServiceProvider
}

// NewClientService creates a new ClientService.
func NewClientService(db *sql.DB, enrollments EnrollmentServiceProvider, events EventServiceProvider) *ClientService {
	return &ClientService{db: db, enrollments: enrollments, events: events}
}

const clientColumns = "id, name, id_number, date_of_birth, gender, contact, address"

func scanClient(scanner interface{ Scan(...interface{}) error }) (models.Client, error) {
	var c models.Client
	var dob, gender, contact, address sql.NullString
	if err := scanner.Scan(&c.ID, &c.Name, &c.IDNumber, &dob, &gender, &contact, &address); err != nil {
		return models.Client{}, err
	}
	c.DateOfBirth = dob.String
	c.Gender = gender.String
	c.Contact = contact.String
	c.Address = address.String
	return c, nil
}

// ListClients returns every client, or when search is non-empty only those
// whose name or ID number contains it (case-sensitive).
func (s *ClientService) ListClients(ctx context.Context, search string) ([]models.Client, error) {
	q := database.Querier(ctx, s.db)
	var (
		rows *sql.Rows
		err  error
	)
	if search != "" {
		rows, err = q.QueryContext(ctx,
			"SELECT "+clientColumns+" FROM clients WHERE instr(name, ?) > 0 OR instr(id_number, ?) > 0 ORDER BY id",
			search, search)
	} else {
		rows, err = q.QueryContext(ctx, "SELECT "+clientColumns+" FROM clients ORDER BY id")
	}
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// GetClient retrieves a single client by ID.
func (s *ClientService) GetClient(ctx context.Context, id int64) (models.Client, error) {
	row := database.Querier(ctx, s.db).QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Client{}, notFound("Client not found")
		}
		return models.Client{}, fmt.Errorf("get client %d: %w", id, err)
	}
	return c, nil
}

// GetClientDetail retrieves a client together with its enrollments.
func (s *ClientService) GetClientDetail(ctx context.Context, id int64) (models.ClientDetail, error) {
	c, err := s.GetClient(ctx, id)
	if err != nil {
		return models.ClientDetail{}, err
	}
	enrollments, err := s.enrollments.ListForClient(ctx, id)
	if err != nil {
		return models.ClientDetail{}, err
	}
	return models.ClientDetail{Client: c, Enrollments: enrollments}, nil
}

// CreateClient validates and stores a new client.
func (s *ClientService) CreateClient(ctx context.Context, in ClientInput) (models.Client, error) {
	in.normalize()
	if err := validateStruct(in); err != nil {
		return models.Client{}, err
	}

	res, err := database.Querier(ctx, s.db).ExecContext(ctx,
		"INSERT INTO clients (name, id_number, date_of_birth, gender, contact, address) VALUES (?, ?, ?, ?, ?, ?)",
		in.Name, in.IDNumber, in.DateOfBirth, in.Gender, in.Contact, in.Address)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.Client{}, conflict("A client with this ID number already exists.")
		}
		return models.Client{}, fmt.Errorf("insert client: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Client{}, err
	}

	recordEvent(ctx, s.events, "client.create", "info", fmt.Sprintf("Client '%s' registered.", in.Name))
	return s.GetClient(ctx, id)
}

// UpdateClient overwrites the fields of an existing client.
func (s *ClientService) UpdateClient(ctx context.Context, id int64, in ClientInput) (models.Client, error) {
	if _, err := s.GetClient(ctx, id); err != nil {
		return models.Client{}, err
	}
	in.normalize()
	if err := validateStruct(in); err != nil {
		return models.Client{}, err
	}

	_, err := database.Querier(ctx, s.db).ExecContext(ctx,
		"UPDATE clients SET name = ?, id_number = ?, date_of_birth = ?, gender = ?, contact = ?, address = ? WHERE id = ?",
		in.Name, in.IDNumber, in.DateOfBirth, in.Gender, in.Contact, in.Address, id)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return models.Client{}, conflict("A client with this ID number already exists.")
		}
		return models.Client{}, fmt.Errorf("update client %d: %w", id, err)
	}

	recordEvent(ctx, s.events, "client.update", "info", fmt.Sprintf("Client '%s' updated.", in.Name))
	return s.GetClient(ctx, id)
}
