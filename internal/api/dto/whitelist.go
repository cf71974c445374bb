package dto

import "intelfeed/internal/domain"

type WhitelistEntryRequest struct {
	Value  string `json:"value"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type WhitelistBlockPage struct {
	Blocks []domain.WhitelistBlock `json:"blocks"`
	Total  int64                   `json:"total"`
}

// WhitelistCheckRequest asks whether a value would be blocked on ingestion.
type WhitelistCheckRequest struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

type WhitelistCheckResponse struct {
	Matched        bool   `json:"matched"`
	WhitelistValue string `json:"whitelistValue,omitempty"`
	Reason         string `json:"reason,omitempty"`
}
