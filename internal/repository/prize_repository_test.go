package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/zone-explorer/internal/testutil"
)

func TestPrizeRepo(t *testing.T) {
	repo := NewPrizeRepo(testutil.NewSQLite(t))
	ctx := context.Background()

	ok, err := repo.ExistsForVisitor(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	id, err := repo.Create(ctx, "a@example.com", "a@example.com", base)
	require.NoError(t, err)
	assert.NotZero(t, id)
	_, err = repo.Create(ctx, "b@example.com", "b@example.com", base)
	require.NoError(t, err)

	ok, err = repo.ExistsForVisitor(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a@example.com", entries[0].VisitorID)
	assert.True(t, entries[0].CreatedAt.Equal(base))

	n, err := repo.DeleteByVisitor(ctx, "a@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	ok, err = repo.ExistsForVisitor(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}
