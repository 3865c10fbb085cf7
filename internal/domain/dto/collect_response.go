package dto

import "github.com/rmoretti/plpulse/internal/domain/models"

// CollectResponse is the JSON structure returned by POST /api/v1/collect:
// the number of derived entries plus the entries themselves.
//
// This mirrors what the one-shot CLI mode prints, so a scheduler invoking
// the endpoint gets the same payload shape.
type CollectResponse struct {
	Count int               `json:"count" example:"11042"`
	Items []models.TickerPL `json:"items"`
}
