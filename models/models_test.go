package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	require := require.New(t)
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger: logger.Default.LogMode(func() logger.LogLevel {
			return logger.Warn
		}()),
	})
	require.NoError(err)

	err = db.AutoMigrate(AllTables()...)
	require.NoError(err)

	// enable foreign key constraints
	err = db.Exec("PRAGMA foreign_keys = ON").Error
	require.NoError(err)

	return db
}

// MockClientID returns a unique client origin so tests sharing the in-memory
// database do not trip over each other's rows.
func MockClientID(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("https://client-%s.example.org/", uuid.New().String()[:8])
}

func MockConsentRequest(t *testing.T, tx *gorm.DB, clientID string, expiresAt time.Time) *ConsentRequest {
	t.Helper()
	require := require.New(t)

	req := &ConsentRequest{
		ClientID:     clientID,
		Me:           "https://amberfield.net/",
		State:        "1234567890",
		ResponseType: "code",
		RedirectURI:  clientID + "auth/callback",
		Scope:        "create update",
		ExpiresAt:    expiresAt,
	}
	require.NoError(NewConsentRequests(tx).Create(req))
	return req
}

func MockToken(t *testing.T, tx *gorm.DB, scope string, expiresAt *time.Time) *Token {
	t.Helper()
	require := require.New(t)

	token := &Token{
		AccessToken: uuid.New().String(),
		Me:          "https://amberfield.net/",
		TokenType:   "Bearer",
		Scope:       scope,
		ExpiresAt:   expiresAt,
	}
	require.NoError(tx.Create(token).Error)
	return token
}

func MockSyndicationTarget(t *testing.T, tx *gorm.DB, enabled bool) *SyndicationTarget {
	t.Helper()
	require := require.New(t)

	target := &SyndicationTarget{
		ID:      "target-" + uuid.New().String()[:8],
		Name:    "Test Channel",
		Enabled: enabled,
	}
	require.NoError(tx.Create(target).Error)
	return target
}

func MockEntry(t *testing.T, tx *gorm.DB, day time.Time, ordinal int) *Entry {
	t.Helper()
	require := require.New(t)

	entry := &Entry{
		Title:         fmt.Sprintf("Entry #%d", ordinal),
		Content:       "hello",
		ContentType:   "text/plain",
		CreatedDate:   day,
		PublishedDate: day,
		Date:          Day(day),
		Ordinal:       ordinal,
	}
	require.NoError(tx.Create(entry).Error)
	return entry
}

// MockDay returns a unique UTC day for ordinal tests.
func MockDay(t *testing.T) time.Time {
	t.Helper()
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, int(uuid.New().ID()%20000))
}
