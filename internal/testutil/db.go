// Package testutil builds in-memory stores and fixtures for package tests.
package testutil

import (
	"strings"
	"testing"

	models "SentiPulse/internal/domain/models"
	"SentiPulse/pkg/database"

	"github.com/stretchr/testify/require"
)

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Instrument{},
		&models.Source{},
		&models.Message{},
		&models.Sentiment{},
		&models.AggregatedSentiment{},
		&models.LLMOpinion{},
		&models.User{},
	}
}

// SetupTestDB opens a private in-memory SQLite database named after the test and migrates it.
// A single connection keeps every query on the same in-memory database.
func SetupTestDB(t *testing.T) *database.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
	db, err := database.Open(
		database.WithDriver("sqlite"),
		database.WithDSN("file:"+name+"?mode=memory&cache=shared"),
		database.WithPool(1, 1, 0),
	)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Models()...))

	t.Cleanup(func() { _ = db.Close() })
	return db
}
