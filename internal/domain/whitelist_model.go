package domain

import "time"

// WhitelistEntry is a value or range that must never become an active
// indicator. Entries are a read-side filter for ingestion; they never expire.
type WhitelistEntry struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Value     string    `gorm:"size:2048;uniqueIndex;not null" json:"value"`
	Type      string    `gorm:"size:16;not null" json:"type"`
	Reason    string    `gorm:"size:1024;default:''" json:"reason"`
	CreatedBy *uint64   `json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// WhitelistBlock records one candidate that ingestion rejected because it
// matched a whitelist entry. Append-only, kept for operator visibility.
type WhitelistBlock struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Value          string    `gorm:"size:2048;not null" json:"value"`
	Type           string    `gorm:"size:16;not null" json:"type"`
	Source         string    `gorm:"size:255;not null;default:''" json:"source"`
	SourceName     string    `gorm:"size:255;not null;default:''" json:"sourceName"`
	BlockedReason  string    `gorm:"size:1024;default:''" json:"blockedReason"`
	WhitelistValue string    `gorm:"size:2048;not null" json:"whitelistValue"`
	AttemptedAt    time.Time `gorm:"autoCreateTime;index" json:"attemptedAt"`
}
