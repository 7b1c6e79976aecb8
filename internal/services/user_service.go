package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/healthdesk/client-registry/internal/auth"
	"github.com/healthdesk/client-registry/internal/database"
	"github.com/healthdesk/client-registry/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	GetUserByID(ctx context.Context, id int64) (models.User, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	Authenticate(ctx context.Context, username, password string) (models.User, error)
	AuthenticateAPIKey(ctx context.Context, key string) (models.User, error)
	EnsureUser(ctx context.Context, username, password, apiKey string, isAdmin bool) (bool, error)
	UpsertAdmin(ctx context.Context, username, password string) (models.User, error)
	RotateAPIKey(ctx context.Context, username string) (string, error)
	AssignAPIKey(ctx context.Context, username, key string) error
	ListUsers(ctx context.Context) ([]models.User, error)
}

// UserService provides business logic for staff accounts and credentials.
type UserService struct {
	db     *sql.DB
	events EventServiceProvider

	// compared against when the username is unknown so that lookups for
	// missing and existing users take similar time
	dummyHash []byte
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB, events EventServiceProvider) *UserService {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return &UserService{db: db, events: events, dummyHash: dummy}
}

// NewAPIKey returns a fresh random API key.
func NewAPIKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

const userColumns = "id, username, password_hash, is_admin, api_key, created_at"

func scanUser(scanner interface{ Scan(...interface{}) error }) (models.User, error) {
	var user models.User
	var apiKey sql.NullString
	if err := scanner.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsAdmin, &apiKey, &user.CreatedAt); err != nil {
		return models.User{}, err
	}
	if apiKey.Valid {
		user.APIKey = &apiKey.String
	}
	return user, nil
}

func (s *UserService) getUser(ctx context.Context, where string, arg any) (models.User, error) {
	row := database.Querier(ctx, s.db).QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, notFound("User not found")
		}
		return models.User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByUsername retrieves a user by a case-insensitive username match,
// including the password hash.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	return s.getUser(ctx, "username = ? COLLATE NOCASE", username)
}

// Authenticate verifies a user's credentials. It returns ErrInvalidCredentials
// for both unknown users and wrong passwords, and ErrCorruptCredentialState
// when the stored hash cannot be interpreted.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		recordEvent(ctx, s.events, "auth.login.fail", "warn", fmt.Sprintf("Failed login for '%s'.", username))
		return models.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, err
	}

	ok, err := auth.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Stored password hash could not be verified")
		recordEvent(ctx, s.events, "auth.login.corrupt", "error", fmt.Sprintf("Password hash for '%s' is unreadable.", user.Username))
		return models.User{}, fmt.Errorf("%w: %v", ErrCorruptCredentialState, err)
	}
	if !ok {
		recordEvent(ctx, s.events, "auth.login.fail", "warn", fmt.Sprintf("Failed login for '%s'.", username))
		return models.User{}, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if err := s.setPassword(ctx, user.ID, password); err != nil {
			log.Warn().Err(err).Int64("user_id", user.ID).Msg("Failed to upgrade legacy password hash")
		} else {
			log.Info().Int64("user_id", user.ID).Msg("Upgraded legacy password hash to bcrypt")
		}
	}

	// Don't hand the password hash back to callers
	user.PasswordHash = ""
	return user, nil
}

// AuthenticateAPIKey resolves an API key to the user it belongs to.
func (s *UserService) AuthenticateAPIKey(ctx context.Context, key string) (models.User, error) {
	if key == "" {
		return models.User{}, ErrMissingKey
	}
	user, err := s.getUser(ctx, "api_key = ?", key)
	if errors.Is(err, ErrNotFound) {
		return models.User{}, ErrInvalidKey
	}
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *UserService) setPassword(ctx context.Context, id int64, password string) error {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = database.Querier(ctx, s.db).ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hashed, id)
	return err
}

// EnsureUser inserts the user unless the username already exists. It reports
// whether a row was created. An empty apiKey leaves the key unset.
func (s *UserService) EnsureUser(ctx context.Context, username, password, apiKey string, isAdmin bool) (bool, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return false, invalid("Username and password are required.")
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	var key sql.NullString
	if apiKey != "" {
		key = sql.NullString{String: apiKey, Valid: true}
	}

	res, err := database.Querier(ctx, s.db).ExecContext(ctx,
		`INSERT INTO users (username, password_hash, is_admin, api_key) VALUES (?, ?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		username, hashed, isAdmin, key)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return false, conflict("API key is already assigned to another user.")
		}
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpsertAdmin creates an admin account, or resets the password of an existing
// one and grants it admin rights. The returned user always has an API key.
func (s *UserService) UpsertAdmin(ctx context.Context, username, password string) (models.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return models.User{}, invalid("Username and password are required.")
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	q := database.Querier(ctx, s.db)
	existing, err := s.GetUserByUsername(ctx, username)
	switch {
	case errors.Is(err, ErrNotFound):
		_, err = q.ExecContext(ctx,
			"INSERT INTO users (username, password_hash, is_admin, api_key) VALUES (?, ?, 1, ?)",
			username, hashed, NewAPIKey())
		if err != nil {
			return models.User{}, fmt.Errorf("insert admin: %w", err)
		}
	case err != nil:
		return models.User{}, err
	default:
		_, err = q.ExecContext(ctx,
			"UPDATE users SET password_hash = ?, is_admin = 1, api_key = COALESCE(api_key, ?) WHERE id = ?",
			hashed, NewAPIKey(), existing.ID)
		if err != nil {
			return models.User{}, fmt.Errorf("update admin: %w", err)
		}
	}

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// RotateAPIKey replaces the user's API key and returns the new one.
func (s *UserService) RotateAPIKey(ctx context.Context, username string) (string, error) {
	key := NewAPIKey()
	if err := s.AssignAPIKey(ctx, username, key); err != nil {
		return "", err
	}
	return key, nil
}

// AssignAPIKey sets the user's API key to key.
func (s *UserService) AssignAPIKey(ctx context.Context, username, key string) error {
	if strings.TrimSpace(key) == "" {
		return invalid("API key must not be empty.")
	}
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}
	if _, err := database.Querier(ctx, s.db).ExecContext(ctx, "UPDATE users SET api_key = ? WHERE id = ?", key, user.ID); err != nil {
		if database.IsUniqueViolation(err) {
			return conflict("API key is already assigned to another user.")
		}
		return fmt.Errorf("assign api key: %w", err)
	}
	recordEvent(ctx, s.events, "user.apikey", "info", fmt.Sprintf("API key changed for '%s'.", user.Username))
	return nil
}

// ListUsers returns every account without password hashes.
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := database.Querier(ctx, s.db).QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = ""
		users = append(users, user)
	}
	return users, rows.Err()
}
