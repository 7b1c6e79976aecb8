package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func janeDoe() ClientInput {
	return ClientInput{
		Name:        "Jane Doe",
		IDNumber:    "ID-001",
		DateOfBirth: "1990-01-01",
		Gender:      "F",
		Contact:     "555-0100",
		Address:     "1 Main St",
	}
}

func TestCreateThenGetClientKeepsFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, in := range []ClientInput{
		janeDoe(),
		{Name: "John Roe", IDNumber: "ID-002"},
		{Name: "Ana Ñúñez", IDNumber: "ХИ-777", Address: "Calle 5, Apt. 3"},
	} {
		created, err := env.clients.CreateClient(ctx, in)
		require.NoError(t, err)

		got, err := env.clients.GetClient(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, in.IDNumber, got.IDNumber)
		assert.Equal(t, in.DateOfBirth, got.DateOfBirth)
		assert.Equal(t, in.Gender, got.Gender)
		assert.Equal(t, in.Contact, got.Contact)
		assert.Equal(t, in.Address, got.Address)
	}
}

func TestCreateClientValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.clients.CreateClient(ctx, ClientInput{IDNumber: "ID-1"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Name is required.", err.Error())

	_, err = env.clients.CreateClient(ctx, ClientInput{Name: "Jane", IDNumber: "   "})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "ID Number is required.", err.Error())

	assert.Zero(t, env.countRows(t, "SELECT COUNT(*) FROM clients"))
}

func TestCreateClientDuplicateIDNumber(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.clients.CreateClient(ctx, janeDoe())
	require.NoError(t, err)

	_, err = env.clients.CreateClient(ctx, ClientInput{Name: "Other", IDNumber: "ID-001"})
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, env.countRows(t, "SELECT COUNT(*) FROM clients"))
}

func TestGetClientNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.clients.GetClient(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Client not found", UserMessage(err, "x"))
}

func TestListClientsSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, in := range []ClientInput{
		{Name: "Jane Doe", IDNumber: "ID-001"},
		{Name: "John Roe", IDNumber: "ID-002"},
		{Name: "Mary Major", IDNumber: "XY-900"},
	} {
		_, err := env.clients.CreateClient(ctx, in)
		require.NoError(t, err)
	}

	all, err := env.clients.ListClients(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := env.clients.ListClients(ctx, "Doe")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Jane Doe", byName[0].Name)

	byID, err := env.clients.ListClients(ctx, "ID-")
	require.NoError(t, err)
	assert.Len(t, byID, 2)

	caseSensitive, err := env.clients.ListClients(ctx, "doe")
	require.NoError(t, err)
	assert.Empty(t, caseSensitive)

	// LIKE wildcards are literal search text
	wild, err := env.clients.ListClients(ctx, "%")
	require.NoError(t, err)
	assert.Empty(t, wild)
}

func TestListClientsEmptyIsNotNil(t *testing.T) {
	env := newTestEnv(t)
	clients, err := env.clients.ListClients(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, clients)
	assert.Empty(t, clients)
}

func TestUpdateClient(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.clients.CreateClient(ctx, janeDoe())
	require.NoError(t, err)
	other, err := env.clients.CreateClient(ctx, ClientInput{Name: "John", IDNumber: "ID-002"})
	require.NoError(t, err)

	in := janeDoe()
	in.Contact = "555-0199"
	updated, err := env.clients.UpdateClient(ctx, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "555-0199", updated.Contact)

	_, err = env.clients.UpdateClient(ctx, other.ID, ClientInput{Name: "John", IDNumber: "ID-001"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.clients.UpdateClient(ctx, 404, janeDoe())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.clients.UpdateClient(ctx, created.ID, ClientInput{IDNumber: "ID-001"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetClientDetailIncludesEnrollments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.clients.CreateClient(ctx, janeDoe())
	require.NoError(t, err)

	detail, err := env.clients.GetClientDetail(ctx, c.ID)
	require.NoError(t, err)
	assert.NotNil(t, detail.Enrollments)
	assert.Empty(t, detail.Enrollments)

	p, err := env.programs.CreateProgram(ctx, ProgramInput{Name: "TB Program"})
	require.NoError(t, err)
	_, err = env.enrollments.Enroll(ctx, c.ID, EnrollmentInput{ProgramID: p.ID, EnrollmentDate: "2024-01-10"})
	require.NoError(t, err)

	detail, err = env.clients.GetClientDetail(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, detail.Enrollments, 1)
	assert.Equal(t, "TB Program", detail.Enrollments[0].ProgramName)
	assert.Equal(t, "2024-01-10", detail.Enrollments[0].EnrollmentDate)
	assert.Equal(t, "Active", string(detail.Enrollments[0].Status))
}

func TestListClientsStoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM clients").WillReturnError(errors.New("database disk image is malformed"))

	svc := NewClientService(db, nil, nil)
	_, err = svc.ListClients(context.Background(), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Something went wrong.", UserMessage(err, "Something went wrong."))
	require.NoError(t, mock.ExpectationsWereMet())
}
