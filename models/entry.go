package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// SpoilerMarker in an attachment caption marks the attachment as a spoiler.
const SpoilerMarker = "#spoiler"

// An Entry is one published post. An Entry has many Syndications and
// Attachments, and many Tags through entry_tags. Date and Ordinal together
// give the entry its canonical address: Ordinal is a per day sequence number
// assigned by the next available ordinal rule and never reused.
type Entry struct {
	ID            uint `gorm:"primarykey"`
	CreatedAt     time.Time
	Title         string `gorm:"size:255"`
	Description   string `gorm:"size:255"`
	Content       string `gorm:"type:text"`
	ContentType   string `gorm:"size:32;not null;default:'text/plain'"`
	CreatedDate   time.Time
	PublishedDate time.Time
	Date          time.Time `gorm:"not null;uniqueIndex:idx_entries_date_ordinal"`
	Ordinal       int       `gorm:"not null;uniqueIndex:idx_entries_date_ordinal"`
	ReplyTo       string    `gorm:"size:255"`
	Location      string    `gorm:"size:255"`
	RepostOf      string    `gorm:"size:255"`
	Tags          []Tag         `gorm:"many2many:entry_tags;"`
	Syndications  []Syndication `gorm:"constraint:OnDelete:CASCADE;"`
	Attachments   []Attachment  `gorm:"constraint:OnDelete:CASCADE;"`
}

// Slug returns the entry's canonical path, /YYYY/MM/DD/ordinal.
func (e *Entry) Slug() string {
	y, m, d := e.Date.UTC().Date()
	return fmt.Sprintf("/%04d/%02d/%02d/%d", y, int(m), d, e.Ordinal)
}

// Day truncates t to the start of its UTC day. Ordinals are assigned within
// this boundary.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextOrdinal returns the next available ordinal for entries on the given
// day. Must be called inside the same transaction that creates the entry,
// so concurrent publishes cannot both claim the same ordinal.
func NextOrdinal(tx *gorm.DB, day time.Time) (int, error) {
	row := tx.Model(&Entry{}).Where("date = ?", day).Select("MAX(ordinal)").Row()
	var max sql.NullInt64
	if err := row.Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

// An Attachment is a photo attached to an Entry, ordered by Index within the
// entry. Spoiler is derived from the caption at creation time.
type Attachment struct {
	ID          uint `gorm:"primarykey"`
	EntryID     uint `gorm:"not null;index"`
	Index       int  `gorm:"column:idx;not null"`
	URL         string  `gorm:"size:255;not null"`
	Caption     *string `gorm:"size:255"`
	Spoiler     bool    `gorm:"not null;default:false"`
	ContentType string  `gorm:"size:16;not null;default:'photo'"`
}

// CaptionSpoiler reports whether a caption marks its attachment a spoiler.
func CaptionSpoiler(caption *string) bool {
	return caption != nil && strings.Contains(*caption, SpoilerMarker)
}

// A Tag labels entries. Its identifier is the tag text, case sensitive.
type Tag struct {
	ID string `gorm:"size:64;primaryKey"`
}

type Tags struct {
	db *gorm.DB
}

func NewTags(db *gorm.DB) *Tags {
	return &Tags{db: db}
}

// FindOrCreate returns the tag with the given id, creating it if needed.
func (t *Tags) FindOrCreate(id string) (*Tag, error) {
	var tag Tag
	if err := t.db.FirstOrCreate(&tag, Tag{ID: id}).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}
