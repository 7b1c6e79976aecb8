package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProgramListedExactlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	names := []string{"TB Program", "Malaria", "HIV Care", "TB Program"}
	var ids []int64
	for _, name := range names {
		p, err := env.programs.CreateProgram(ctx, ProgramInput{Name: name, Description: "desc " + name})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	programs, err := env.programs.ListPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, programs, len(names))

	for _, id := range ids {
		count := 0
		for _, p := range programs {
			if p.ID == id {
				count++
			}
		}
		assert.Equal(t, 1, count, "program %d", id)
	}
}

func TestCreateProgramRequiresName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.programs.CreateProgram(context.Background(), ProgramInput{Name: "  ", Description: "x"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Name is required.", err.Error())
	assert.Zero(t, env.countRows(t, "SELECT COUNT(*) FROM programs"))
}

func TestUpdateProgram(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	p, err := env.programs.CreateProgram(ctx, ProgramInput{Name: "TB", Description: "old"})
	require.NoError(t, err)

	updated, err := env.programs.UpdateProgram(ctx, p.ID, ProgramInput{Name: "TB Program", Description: "new"})
	require.NoError(t, err)
	assert.Equal(t, "TB Program", updated.Name)
	assert.Equal(t, "new", updated.Description)

	_, err = env.programs.UpdateProgram(ctx, p.ID, ProgramInput{Name: ""})
	assert.ErrorIs(t, err, ErrValidation)

	got, err := env.programs.GetProgram(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "TB Program", got.Name)

	_, err = env.programs.UpdateProgram(ctx, 999, ProgramInput{Name: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}
