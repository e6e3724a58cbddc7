package usecase

import (
	"context"
	"testing"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCatalogInstruments(t *testing.T) {
	e := newEnv(t)
	c := NewCatalog(e.instruments, e.sources)
	ctx := context.Background()

	inst, err := c.CreateInstrument(ctx, &models.CreateInstrumentRequest{Name: " Apple Inc. ", Ticker: "aapl", ISIN: "us0378331005", Sector: "Technology"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", inst.Ticker)
	assert.Equal(t, "Apple Inc.", inst.Name)
	require.NotNil(t, inst.ISIN)
	assert.Equal(t, "US0378331005", *inst.ISIN)

	_, err = c.CreateInstrument(ctx, &models.CreateInstrumentRequest{Name: "Again", Ticker: "AAPL"})
	assert.ErrorIs(t, err, models.ErrConflict)

	_, err = c.CreateInstrument(ctx, &models.CreateInstrumentRequest{Name: "Bad", Ticker: "BAD TICKER"})
	assert.ErrorIs(t, err, models.ErrValidation)

	got, err := c.Instrument(ctx, " aapl")
	require.NoError(t, err)
	assert.Equal(t, inst.ID, got.ID)

	list, err := c.Instruments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCatalogSources(t *testing.T) {
	e := newEnv(t)
	c := NewCatalog(e.instruments, e.sources)
	ctx := context.Background()

	src, err := c.SourceByName(ctx, "Reuters", models.SourceNews, "https://reuters.com")
	require.NoError(t, err)
	again, err := c.SourceByName(ctx, "Reuters", models.SourceSocial, "https://other.example.com")
	require.NoError(t, err)
	assert.Equal(t, src.ID, again.ID)
	assert.Equal(t, models.SourceNews, again.Type)

	_, err = c.CreateSource(ctx, &models.CreateSourceRequest{Name: "x", Type: "radio", URL: "https://x.example.com"})
	assert.ErrorIs(t, err, models.ErrValidation)

	updated, err := c.UpdateReputation(ctx, &models.UpdateReputationRequest{ID: src.ID, ReputationScore: ptr(8.5)})
	require.NoError(t, err)
	assert.Equal(t, 8.5, updated.ReputationScore)

	_, err = c.UpdateReputation(ctx, &models.UpdateReputationRequest{ID: src.ID, ReputationScore: ptr(11.0)})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestUsersWatchlist(t *testing.T) {
	e := newEnv(t)
	u := NewUsers(e.users, e.instruments)
	u.cost = bcrypt.MinCost
	testutil.Instrument(t, e.db, "AAPL")
	testutil.Instrument(t, e.db, "MSFT")
	ctx := context.Background()

	user, err := u.Create(ctx, &models.CreateUserRequest{Username: "alice", Email: "Alice@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.True(t, u.CheckPassword(user, "correct-horse"))
	assert.False(t, u.CheckPassword(user, "wrong-horse"))

	_, err = u.Create(ctx, &models.CreateUserRequest{Username: "alice", Email: "other@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, models.ErrConflict)

	list, err := u.AddToWatchlist(ctx, "alice", "aapl")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, list)
	list, err = u.AddToWatchlist(ctx, "alice", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, list)
	_, err = u.AddToWatchlist(ctx, "alice", "MSFT")
	require.NoError(t, err)

	_, err = u.AddToWatchlist(ctx, "alice", "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)

	list, err = u.RemoveFromWatchlist(ctx, "alice", "aapl")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, list)

	list, err = u.Watchlist(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, list)

	_, err = u.Watchlist(ctx, "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
