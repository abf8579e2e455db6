package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationUpdate_JSONRoundTrip(t *testing.T) {
	in := NewLocationUpdate("user_k3j9x0a1b", 40.001, -3.001, time.Date(2024, 1, 1, 10, 30, 0, 250*int(time.Millisecond), time.UTC))

	payload, err := json.Marshal(in)
	require.NoError(t, err)

	var out LocationUpdate
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, in, out)
}

func TestLocationUpdate_WireFieldNames(t *testing.T) {
	payload, err := json.Marshal(LocationUpdate{UserID: "user_abc", Latitude: 10, Longitude: 20, Timestamp: "2024-01-01T00:00:00Z"})
	require.NoError(t, err)

	assert.JSONEq(t, `{"userId":"user_abc","latitude":10,"longitude":20,"timestamp":"2024-01-01T00:00:00Z"}`, string(payload))
}

func TestFormatTimestamp(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := FormatTimestamp(time.Date(2024, 1, 1, 1, 0, 0, 0, loc))

	assert.Equal(t, "2024-01-01T00:00:00.000Z", ts)
}

func TestLocationUpdate_Time(t *testing.T) {
	u := LocationUpdate{Timestamp: "2024-01-01T00:00:00Z"}
	parsed, err := u.Time()
	require.NoError(t, err)
	assert.True(t, parsed.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = LocationUpdate{Timestamp: "yesterday"}.Time()
	assert.Error(t, err)
}
