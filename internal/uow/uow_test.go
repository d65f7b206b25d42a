package uow

import (
	"context"
	"errors"
	"testing"

	"github.com/kirinyoku/lessonbook/internal/domain"
	"github.com/kirinyoku/lessonbook/internal/repository"
	"github.com/kirinyoku/lessonbook/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUoW_HooksRunAfterCommit(t *testing.T) {
	store := memory.NewStore(domain.Lesson{ID: 1, Subject: "Math", Spaces: 2})
	u := NewUoW(store)

	var calls []string
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { calls = append(calls, "first") })
		after(func(context.Context) { calls = append(calls, "second") })
		_, err := tx.Lessons().DecrementSpaces(ctx, 1, 1)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestUoW_HooksSkippedOnError(t *testing.T) {
	store := memory.NewStore(domain.Lesson{ID: 1, Subject: "Math", Spaces: 2})
	u := NewUoW(store)
	boom := errors.New("boom")

	ran := false
	err := u.Do(context.Background(), func(ctx context.Context, tx repository.Repos, after func(AfterCommit)) error {
		after(func(context.Context) { ran = true })
		if _, err := tx.Lessons().DecrementSpaces(ctx, 1, 2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, ran)

	l, err := store.Lessons().GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Spaces)
}
