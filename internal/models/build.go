package models

import "time"

// Build is the flat persisted row for one motorcycle build. The five spec
// values are stored as sibling columns; the store package reconstitutes the
// nested client shape on every read.
type Build struct {
	ID            string    `gorm:"primaryKey;size:64"`
	Name          string    `gorm:"not null"`
	Category      string    `gorm:"size:32;not null;index"`
	Year          int       `gorm:"not null"`
	Description   string    `gorm:"type:text"`
	Modifications string    `gorm:"type:text"`
	Image         string    `gorm:"type:text"`
	Engine        string    `gorm:"size:128"`
	Power         string    `gorm:"size:64"`
	Torque        string    `gorm:"size:64"`
	Weight        string    `gorm:"size:64"`
	TopSpeed      string    `gorm:"size:64"`
	CreatedAt     time.Time `gorm:"index"`
}
