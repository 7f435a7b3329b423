package models

import "github.com/aerohealth/aerohealth/internal/exposure"

// ExposureLogResponse is the exposure history payload.
type ExposureLogResponse struct {
	// Entries are exposure log entries, newest first.
	Entries []exposure.LogEntry `json:"entries"`

	// TodayMinutes is the total tracked minutes for the current day.
	TodayMinutes int `json:"todayMinutes"`

	// Tracking reports whether a live tracking session is active.
	Tracking bool `json:"tracking"`
}
