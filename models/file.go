package models

import "time"

// An UploadedFile records a file stored by the media endpoint. The bytes
// themselves live in the media store; Path is relative to its root.
type UploadedFile struct {
	ID          uint `gorm:"primarykey"`
	CreatedAt   time.Time
	Name        string `gorm:"size:255;not null"`
	ContentType string `gorm:"size:64;not null"`
	Path        string `gorm:"size:255;not null;uniqueIndex"`
}
