// Package models defines the calendar event record shared by the store,
// the service and the API client.
package models

// Event is a calendar entry owned by a user. Date uses the YYYYMMDD layout.
type Event struct {
	ID       int64  `json:"id"`
	Owner    int64  `json:"owner"`
	Name     string `json:"name"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Duration int64  `json:"duration"`
}

// DateLayout is the time layout of Event.Date.
const DateLayout = "20060102"
