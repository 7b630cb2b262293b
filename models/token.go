package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ErrTokenInvalid is returned for a bearer token that does not exist or has
// expired.
var ErrTokenInvalid = errors.New("token invalid")

// Capabilities a token's scope may grant.
const (
	ScopeCreate = "create"
	ScopeUpdate = "update"
)

// TokenLifetime is how long a minted access token stays valid.
const TokenLifetime = 14 * 24 * time.Hour

// A Token is an access grant issued to a client on code exchange. It is read
// only after creation and logically dies at expiry; there is no revocation.
type Token struct {
	AccessToken string `gorm:"size:64;primaryKey;autoIncrement:false"`
	CreatedAt   time.Time
	Me          string `gorm:"size:255;not null"`
	TokenType   `gorm:"not null"`
	Scope       string     `gorm:"size:255;not null;default:''"`
	ExpiresAt   *time.Time // nil means long lived
}

type TokenType string

func (TokenType) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('Bearer')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

// Expired reports whether the grant is past its deadline. An expired grant
// is invalid for all purposes even if still stored.
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// HasScope reports whether the grant's space separated scope list contains
// the named capability.
func (t *Token) HasScope(capability string) bool {
	for _, s := range strings.Fields(t.Scope) {
		if s == capability {
			return true
		}
	}
	return false
}

type Tokens struct {
	db *gorm.DB
}

func NewTokens(db *gorm.DB) *Tokens {
	return &Tokens{db: db}
}

// Mint creates and stores a fresh bearer token for me with the given scope.
func (t *Tokens) Mint(me, scope string, now time.Time) (*Token, error) {
	expiresAt := now.Add(TokenLifetime)
	token := &Token{
		AccessToken: uuid.New().String(),
		Me:          me,
		TokenType:   "Bearer",
		Scope:       scope,
		ExpiresAt:   &expiresAt,
	}
	if err := t.db.Create(token).Error; err != nil {
		return nil, err
	}
	return token, nil
}

// Authenticate looks up the grant for the given bearer secret. Unknown and
// expired tokens both return ErrTokenInvalid.
func (t *Tokens) Authenticate(secret string, now time.Time) (*Token, error) {
	if secret == "" {
		return nil, ErrTokenInvalid
	}
	var token Token
	if err := t.db.First(&token, "access_token = ?", secret).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	if token.Expired(now) {
		return nil, ErrTokenInvalid
	}
	return &token, nil
}
