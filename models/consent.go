package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrRequestExpired is returned whenever a consent request cannot be used,
// whether it timed out, was already consumed, or never existed. Callers must
// not be able to tell those cases apart.
var ErrRequestExpired = errors.New("request expired")

// ConsentLifetime is how long a consent request stays exchangeable after it
// is created.
const ConsentLifetime = 5 * time.Minute

// A ConsentRequest records one authorization attempt by a client. There is
// at most one live request per client_id; creating a new one supersedes any
// prior request. AuthCode is set exactly once, on confirmation.
type ConsentRequest struct {
	ID           uint `gorm:"primarykey"`
	CreatedAt    time.Time
	ClientID     string `gorm:"size:255;not null;index"`
	Me           string `gorm:"size:255;not null"`
	State        string `gorm:"size:255;not null"`
	ResponseType string `gorm:"size:16;not null;default:'id'"`
	RedirectURI  string `gorm:"size:255;not null"`
	Scope        string `gorm:"size:255;not null;default:''"`
	AuthCode     *string `gorm:"size:64"`
	Confirmed    bool    `gorm:"not null;default:false"`
	ExpiresAt    time.Time `gorm:"not null"`
}

// Expired reports whether the request is past its deadline. An expired
// request is treated as already deleted regardless of stored state.
func (r *ConsentRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

type ConsentRequests struct {
	db *gorm.DB
}

func NewConsentRequests(db *gorm.DB) *ConsentRequests {
	return &ConsentRequests{db: db}
}

// Create stores req, superseding any prior request for the same client_id.
// The delete and create happen in one transaction so two concurrent creation
// attempts cannot both leave a live request behind.
func (c *ConsentRequests) Create(req *ConsentRequest) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("client_id = ?", req.ClientID).Delete(&ConsentRequest{}).Error; err != nil {
			return err
		}
		return tx.Create(req).Error
	})
}

// Confirm marks the request as approved by the site owner and mints its
// single use authorization code. Detecting expiry deletes the row; the
// delete must commit, so the expiry error is raised outside the transaction.
func (c *ConsentRequests) Confirm(id uint, now time.Time) (*ConsentRequest, error) {
	var req ConsentRequest
	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestExpired
			}
			return err
		}
		if req.Expired(now) {
			return tx.Delete(&req).Error
		}
		code := uuid.New().String()
		req.Confirmed = true
		req.AuthCode = &code
		return tx.Save(&req).Error
	})
	if err != nil {
		return nil, err
	}
	if req.Expired(now) {
		return nil, ErrRequestExpired
	}
	return &req, nil
}

// Exchange consumes a confirmed request matching the client_id, redirect_uri
// and code triple. The row is deleted on success, so a code can be exchanged
// exactly once; replays, expiry and unknown codes all surface identically as
// ErrRequestExpired.
func (c *ConsentRequests) Exchange(clientID, redirectURI, code string, now time.Time) (*ConsentRequest, error) {
	if code == "" {
		return nil, ErrRequestExpired
	}
	var req ConsentRequest
	err := c.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("client_id = ? AND redirect_uri = ? AND auth_code = ?", clientID, redirectURI, code).First(&req).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestExpired
			}
			return err
		}
		// consume the row whether or not it turns out to be expired
		return tx.Delete(&req).Error
	})
	if err != nil {
		return nil, err
	}
	if req.Expired(now) {
		return nil, ErrRequestExpired
	}
	return &req, nil
}
