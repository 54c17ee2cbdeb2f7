// Package api holds the response envelopes shared across handlers, mostly
// so swagger annotations have concrete types to point at.
package api

type ErrorResponse struct {
	Error string `json:"error" example:"slot is full"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Booking cancelled"`
}

type HealthResponse struct {
	Status  string `json:"status" example:"ok"`
	Service string `json:"service" example:"wavewellness"`
}
