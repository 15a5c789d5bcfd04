package store

import (
	"context"
	"testing"

	"auto_spec_builder/generator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.CreateProject(ctx, 1, "  ")
	assert.ErrorIs(t, err, generator.ErrValidation)

	p := newProject(t, s, 1)
	got, err := s.FindProjectOwnedBy(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	_, err = s.FindProjectOwnedBy(ctx, p.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListProjects(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	list, err = s.ListProjects(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPrompts_DefaultIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.FindDefaultPrompt(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := s.CreatePrompt(ctx, Prompt{UserID: 1, Title: "Первый", Content: "Пиши кратко", IsDefault: true})
	require.NoError(t, err)
	second, err := s.CreatePrompt(ctx, Prompt{UserID: 1, Title: "Второй", Content: "Пиши подробно", IsDefault: true})
	require.NoError(t, err)

	def, err := s.FindDefaultPrompt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	list, err := s.ListPrompts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.False(t, list[1].IsDefault)

	got, err := s.FindPromptOwnedBy(ctx, first.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Пиши кратко", got.Content)

	_, err = s.FindPromptOwnedBy(ctx, first.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePrompt(ctx, first.ID, 2), ErrNotFound)
	require.NoError(t, s.DeletePrompt(ctx, first.ID, 1))
	_, err = s.FindPromptOwnedBy(ctx, first.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPrompts_RejectsBlankFields(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreatePrompt(context.Background(), Prompt{UserID: 1, Title: "T", Content: " \n"})
	assert.ErrorIs(t, err, generator.ErrValidation)
	_, err = s.CreatePrompt(context.Background(), Prompt{UserID: 1, Title: "  ", Content: "Правила"})
	assert.ErrorIs(t, err, generator.ErrValidation)
}

func TestUpdatePrompt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.CreatePrompt(ctx, Prompt{UserID: 1, Title: "Первый", Content: "Пиши кратко", IsDefault: true})
	require.NoError(t, err)
	second, err := s.CreatePrompt(ctx, Prompt{UserID: 1, Title: "Второй", Content: "Пиши подробно"})
	require.NoError(t, err)

	updated, err := s.UpdatePrompt(ctx, Prompt{ID: second.ID, UserID: 1, Title: " Второй v2 ", Content: "Пиши по делу", IsDefault: true})
	require.NoError(t, err)
	assert.Equal(t, "Второй v2", updated.Title)
	assert.Equal(t, "Пиши по делу", updated.Content)
	assert.True(t, updated.IsDefault)
	assert.Equal(t, second.CreatedAt, updated.CreatedAt)

	def, err := s.FindDefaultPrompt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)
	old, err := s.FindPromptOwnedBy(ctx, first.ID, 1)
	require.NoError(t, err)
	assert.False(t, old.IsDefault)

	_, err = s.UpdatePrompt(ctx, Prompt{ID: first.ID, UserID: 2, Title: "Чужой", Content: "x", IsDefault: true})
	assert.ErrorIs(t, err, ErrNotFound)
	def, err = s.FindDefaultPrompt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID, "a rejected update must not clear the default")

	_, err = s.UpdatePrompt(ctx, Prompt{ID: first.ID, UserID: 1, Title: "", Content: "x"})
	assert.ErrorIs(t, err, generator.ErrValidation)
}
