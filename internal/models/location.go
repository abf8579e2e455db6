package models

import (
	"time"
)

// TimestampLayout is the ISO-8601 layout used on the wire for LocationUpdate timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// LocationUpdate is a single position broadcast by one session.
type LocationUpdate struct {
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// NewLocationUpdate builds an update stamped with t in UTC.
func NewLocationUpdate(userID string, latitude, longitude float64, t time.Time) LocationUpdate {
	return LocationUpdate{
		UserID:    userID,
		Latitude:  latitude,
		Longitude: longitude,
		Timestamp: FormatTimestamp(t),
	}
}

// FormatTimestamp renders t the way peers expect it on the wire.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the update's timestamp. Peers are not required to send
// milliseconds, so any RFC 3339 value is accepted.
func (u LocationUpdate) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, u.Timestamp)
}

// Fix is a single coordinate sample taken from the local device.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}
