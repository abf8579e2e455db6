package services

import "github.com/benmeehan/locshare/internal/models"

// TrackingState is the part of the tracking state manager the services write to.
type TrackingState interface {
	SetSelf(fix models.Fix)
	ReplacePeers(updates []models.LocationUpdate, selfID string)
	Fail(msg string)
}
