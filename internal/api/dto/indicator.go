package dto

import "intelfeed/internal/domain"

type IndicatorPage struct {
	Indicators []domain.Indicator `json:"indicators"`
	Total      int64              `json:"total"`
}

type IndicatorRequest struct {
	Value    string `json:"value"`
	Type     string `json:"type"`
	HashType string `json:"hashType"`
	Notes    string `json:"notes"`
	IsActive *bool  `json:"isActive"`
}

// TempActivateRequest carries the time-boxed activation grant, bounded to
// one hour through one week.
type TempActivateRequest struct {
	DurationHours int `json:"durationHours"`
}

type NoteRequest struct {
	Content string `json:"content"`
}
