package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientRegisterCreatesRecord(t *testing.T) {
	require := require.New(t)
	db := setupTestDB(t)
	clients := NewClients(db)
	clientID := MockClientID(t)

	ok, err := clients.Register(clientID, clientID+"auth/callback", "Quill")
	require.NoError(err)
	require.True(ok)

	var app ClientApplication
	require.NoError(db.First(&app, "client_id = ?", clientID).Error)
	require.Equal("Quill", app.Name)
	require.Equal(GrantAuthorizationCode, app.GrantType)
	require.True(app.AllowsRedirect(clientID + "auth/callback"))
}

func TestClientRegisterIsIdempotent(t *testing.T) {
	require := require.New(t)
	db := setupTestDB(t)
	clients := NewClients(db)
	clientID := MockClientID(t)

	ok, err := clients.Register(clientID, clientID+"cb/one", "Quill")
	require.NoError(err)
	require.True(ok)
	ok, err = clients.Register(clientID, clientID+"cb/two", "Quill v2")
	require.NoError(err)
	require.True(ok)

	var apps []ClientApplication
	require.NoError(db.Where("client_id = ?", clientID).Find(&apps).Error)
	require.Len(apps, 1)
	// allow set is the union of both URIs, name is always refreshed
	require.Equal("Quill v2", apps[0].Name)
	require.True(apps[0].AllowsRedirect(clientID + "cb/one"))
	require.True(apps[0].AllowsRedirect(clientID + "cb/two"))
}

func TestClientRegisterAppendingKnownRedirectDoesNotDuplicate(t *testing.T) {
	require := require.New(t)
	db := setupTestDB(t)
	clients := NewClients(db)
	clientID := MockClientID(t)

	for i := 0; i < 2; i++ {
		ok, err := clients.Register(clientID, clientID+"cb", "Quill")
		require.NoError(err)
		require.True(ok)
	}

	var app ClientApplication
	require.NoError(db.First(&app, "client_id = ?", clientID).Error)
	require.Len(app.RedirectURIs, 1)
}

func TestClientRegisterRejectsCrossHostRedirect(t *testing.T) {
	require := require.New(t)
	db := setupTestDB(t)
	clients := NewClients(db)
	clientID := MockClientID(t)

	ok, err := clients.Register(clientID, "https://evil.example.net/steal", "Quill")
	require.NoError(err)
	require.False(ok)

	var count int64
	require.NoError(db.Model(&ClientApplication{}).Where("client_id = ?", clientID).Count(&count).Error)
	require.EqualValues(0, count)
}

func TestClientRegisterNoOpOnMissingParams(t *testing.T) {
	require := require.New(t)
	db := setupTestDB(t)
	clients := NewClients(db)

	ok, err := clients.Register("", "https://webapp.example.org/cb", "Quill")
	require.NoError(err)
	require.False(ok)

	ok, err = clients.Register("https://webapp.example.org/", "", "Quill")
	require.NoError(err)
	require.False(ok)
}
