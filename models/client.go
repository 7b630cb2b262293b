package models

import (
	"errors"
	"net/url"
	"time"

	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// GrantAuthorizationCode is the only grant type this server issues.
const GrantAuthorizationCode = "authorization_code"

// A ClientApplication is a federated client's registration. Its claimed
// origin URL doubles as its identity and registry key. Every redirect URI in
// the allow set shares a host with the client_id; that is the anti phishing
// check of the protocol.
type ClientApplication struct {
	ClientID     string `gorm:"size:255;primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Name         string   `gorm:"size:255;not null"`
	RedirectURIs []string `gorm:"serializer:json"`
	GrantType    string   `gorm:"size:32;not null;default:'authorization_code'"`
}

// AllowsRedirect reports whether uri is in the client's allow set.
func (a *ClientApplication) AllowsRedirect(uri string) bool {
	return slices.Contains(a.RedirectURIs, uri)
}

type Clients struct {
	db *gorm.DB
}

func NewClients(db *gorm.DB) *Clients {
	return &Clients{db: db}
}

// Register get-or-creates the client record for clientID, refreshes its name
// and appends redirectURI to the allow set. It reports false without error
// when either parameter is absent, and fails closed when redirectURI is not
// on the client's own host. Redirect URIs are appended, never removed.
func (c *Clients) Register(clientID, redirectURI, name string) (bool, error) {
	if clientID == "" || redirectURI == "" {
		return false, nil
	}
	if !sameHost(clientID, redirectURI) {
		return false, nil
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		var app ClientApplication
		if err := tx.FirstOrCreate(&app, ClientApplication{ClientID: clientID}).Error; err != nil {
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				return err
			}
			// lost the create race, the row exists now
			if err := tx.First(&app, "client_id = ?", clientID).Error; err != nil {
				return err
			}
		}
		app.Name = name
		app.GrantType = GrantAuthorizationCode
		if !app.AllowsRedirect(redirectURI) {
			app.RedirectURIs = append(app.RedirectURIs, redirectURI)
		}
		return tx.Save(&app).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// sameHost reports whether both URLs name the same network host.
func sameHost(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host != "" && ua.Host == ub.Host
}
