package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// A SyndicationTarget is a pre-registered outbound channel entries can be
// copied to. Disabled targets are never advertised and never accepted.
type SyndicationTarget struct {
	ID        string `gorm:"size:64;primaryKey"`
	CreatedAt time.Time
	Name      string `gorm:"size:255;not null"`
	Enabled   bool   `gorm:"not null;default:true"`
}

// MicropubView returns the target as a micropub syndicate-to advertisement.
func (t *SyndicationTarget) MicropubView() map[string]any {
	return map[string]any{
		"uid":  t.ID,
		"name": t.Name,
	}
}

// A Syndication records that an entry was, or will be, copied to an external
// channel. Either Target points at a registered channel (status starts
// scheduled) or Location holds an author supplied URL (status is immediately
// syndicated).
type Syndication struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	EntryID   uint    `gorm:"not null;index"`
	TargetID  *string `gorm:"size:64"`
	Target    *SyndicationTarget `gorm:"constraint:OnDelete:CASCADE;<-:false;"`
	Location  string             `gorm:"size:255"`
	Status    SyndicationStatus  `gorm:"not null"`
}

type SyndicationStatus string

const (
	SyndicationScheduled  SyndicationStatus = "scheduled"
	SyndicationSyndicated SyndicationStatus = "syndicated"
	SyndicationError      SyndicationStatus = "error"
)

func (SyndicationStatus) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql", "postgres":
		return "enum('scheduled', 'syndicated', 'error')"
	case "sqlite":
		return "TEXT"
	default:
		return ""
	}
}

type SyndicationTargets struct {
	db *gorm.DB
}

func NewSyndicationTargets(db *gorm.DB) *SyndicationTargets {
	return &SyndicationTargets{db: db}
}

// Enabled returns all enabled targets, oldest first.
func (s *SyndicationTargets) Enabled() ([]SyndicationTarget, error) {
	var targets []SyndicationTarget
	if err := s.db.Where("enabled = ?", true).Order("created_at").Find(&targets).Error; err != nil {
		return nil, err
	}
	return targets, nil
}
