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

// ProgramServiceProvider defines the interface for program services.
type ProgramServiceProvider interface {
	ListPrograms(ctx context.Context) ([]models.Program, error)
	GetProgram(ctx context.Context, id int64) (models.Program, error)
	CreateProgram(ctx context.Context, in ProgramInput) (models.Program, error)
	UpdateProgram(ctx context.Context, id int64, in ProgramInput) (models.Program, error)
}

type ProgramInput struct {
	Name        string `validate:"required" label:"Name"`
	Description string
}

// ProgramService provides business logic for health programs.
type ProgramService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewProgramService creates a new ProgramService.
func NewProgramService(db *sql.DB, events EventServiceProvider) *ProgramService {
	return &ProgramService{db: db, events: events}
}

func scanProgram(scanner interface{ Scan(...interface{}) error }) (models.Program, error) {
	var p models.Program
	var desc sql.NullString
	if err := scanner.Scan(&p.ID, &p.Name, &desc); err != nil {
		return models.Program{}, err
	}
	p.Description = desc.String
	return p, nil
}

// ListPrograms retrieves all programs.
func (s *ProgramService) ListPrograms(ctx context.Context) ([]models.Program, error) {
	rows, err := database.Querier(ctx, s.db).QueryContext(ctx, "SELECT id, name, description FROM programs ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	defer rows.Close()

	programs := []models.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, rows.Err()
}

// GetProgram retrieves a single program by its ID.
func (s *ProgramService) GetProgram(ctx context.Context, id int64) (models.Program, error) {
	row := database.Querier(ctx, s.db).QueryRowContext(ctx, "SELECT id, name, description FROM programs WHERE id = ?", id)
	p, err := scanProgram(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Program{}, notFound("Program not found")
		}
		return models.Program{}, fmt.Errorf("get program %d: %w", id, err)
	}
	return p, nil
}

// CreateProgram adds a new program.
func (s *ProgramService) CreateProgram(ctx context.Context, in ProgramInput) (models.Program, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return models.Program{}, err
	}

	res, err := database.Querier(ctx, s.db).ExecContext(ctx,
		"INSERT INTO programs (name, description) VALUES (?, ?)", in.Name, in.Description)
	if err != nil {
		return models.Program{}, fmt.Errorf("insert program: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Program{}, err
	}

	recordEvent(ctx, s.events, "program.create", "info", fmt.Sprintf("Program '%s' created.", in.Name))
	return models.Program{ID: id, Name: in.Name, Description: in.Description}, nil
}

// UpdateProgram updates the name and description of an existing program.
func (s *ProgramService) UpdateProgram(ctx context.Context, id int64, in ProgramInput) (models.Program, error) {
	if _, err := s.GetProgram(ctx, id); err != nil {
		return models.Program{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateStruct(in); err != nil {
		return models.Program{}, err
	}

	_, err := database.Querier(ctx, s.db).ExecContext(ctx,
		"UPDATE programs SET name = ?, description = ? WHERE id = ?", in.Name, in.Description, id)
	if err != nil {
		return models.Program{}, fmt.Errorf("update program %d: %w", id, err)
	}

	recordEvent(ctx, s.events, "program.update", "info", fmt.Sprintf("Program '%s' updated.", in.Name))
	return s.GetProgram(ctx, id)
}
