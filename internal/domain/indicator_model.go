package domain

import "time"

// SourceManual labels indicators entered directly by a user.
const SourceManual = "manual"

// Indicator is a single threat artifact tracked by the system. The
// (value, type) pair is unique across the whole store regardless of which
// source first reported it.
type Indicator struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Value string `gorm:"size:2048;not null;uniqueIndex:idx_indicator_value_type,priority:1" json:"value"`
	Type  string `gorm:"size:16;not null;uniqueIndex:idx_indicator_value_type,priority:2" json:"type"`

	// HashType is only set for type=hash (md5, sha1, sha256, sha512).
	HashType string `gorm:"size:16;default:''" json:"hashType,omitempty"`

	Source   string  `gorm:"size:255;not null;default:'manual'" json:"source"`
	SourceID *uint64 `gorm:"index" json:"sourceId"`

	IsActive bool `gorm:"not null;default:true;index" json:"isActive"`

	// TempActiveUntil marks a time-boxed activation; once passed, the sweeper
	// deletes the row outright. Only meaningful while IsActive is true.
	TempActiveUntil *time.Time `gorm:"index" json:"tempActiveUntil"`

	// Notes is the legacy free-text field; structured notes live in
	// IndicatorNote rows.
	Notes string `gorm:"type:text;default:''" json:"notes"`

	CreatedBy *uint64   `gorm:"index" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IndicatorNote is an append-only annotation on an indicator.
type IndicatorNote struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	IndicatorID uint64    `gorm:"not null;index" json:"indicatorId"`
	AuthorID    *uint64   `json:"authorId"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Edited      bool      `gorm:"not null;default:false" json:"edited"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Indicator Indicator `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}
