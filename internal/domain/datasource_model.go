package domain

import (
	"errors"
	"time"
)

const (
	FetchStatusSuccess = "success"
	FetchStatusError   = "error"

	// MinFetchInterval is the lowest polling interval a source may configure.
	MinFetchInterval = 60
)

// DataSource is a remote feed URL polled on an interval for candidate indicators.
type DataSource struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"size:255;uniqueIndex;not null" json:"name"`
	URL  string `gorm:"size:2048;not null" json:"url"`

	// IndicatorTypes holds the declared type interests as a JSON list.
	IndicatorTypes StringList `gorm:"type:text;not null" json:"indicatorTypes"`

	// FetchInterval is the polling period in seconds, never below MinFetchInterval.
	FetchInterval uint32 `gorm:"not null;default:3600" json:"fetchInterval"`

	IsActive                bool `gorm:"not null;default:true" json:"isActive"`
	IsPaused                bool `gorm:"not null;default:false" json:"isPaused"`
	IgnoreCertificateErrors bool `gorm:"not null;default:false" json:"ignoreCertificateErrors"`

	LastFetch       *time.Time `json:"lastFetch"`
	LastFetchStatus string     `gorm:"size:16;default:''" json:"lastFetchStatus"`
	LastFetchError  string     `gorm:"size:2048;default:''" json:"lastFetchError"`

	CreatedBy *uint64   `gorm:"index" json:"createdBy"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Validate checks the admin-mutable fields before a create or update.
func (s *DataSource) Validate() error {
	if s.Name == "" {
		return errors.New("data source name is required")
	}
	if s.URL == "" {
		return errors.New("data source url is required")
	}
	if len(s.IndicatorTypes) == 0 {
		return errors.New("data source must declare at least one indicator type")
	}
	for _, raw := range s.IndicatorTypes {
		if !IndicatorType(raw).IsValid() {
			return errors.New("unknown indicator type: " + raw)
		}
	}
	if s.FetchInterval < MinFetchInterval {
		return errors.New("fetch interval must be at least 60 seconds")
	}
	return nil
}

// DeclaredTypes returns the type interest set for classifier restriction.
func (s *DataSource) DeclaredTypes() map[IndicatorType]struct{} {
	set := make(map[IndicatorType]struct{}, len(s.IndicatorTypes))
	for _, raw := range s.IndicatorTypes {
		set[IndicatorType(raw)] = struct{}{}
	}
	return set
}

// IsDue reports whether the source should be dispatched at the given time.
// A source that has never been fetched is immediately due.
func (s *DataSource) IsDue(now time.Time) bool {
	if s.LastFetch == nil {
		return true
	}
	return now.Sub(*s.LastFetch) >= time.Duration(s.FetchInterval)*time.Second
}
