package notify

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitegen/internal/site"
)

func TestEventFromResult_MapsAllFields(t *testing.T) {
	result := &site.BuildResult{
		ID:       uuid.New(),
		Trigger:  site.TriggerFSEvent,
		Start:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		Duration: 1500 * time.Millisecond,
		Pages:    12,
		Assets:   3,
		Outcome:  site.OutcomeSuccess,
		Warnings: []string{"asset source not found: extra"},
	}

	event := EventFromResult(result, "My Site")
	require.Equal(t, result.ID.String(), event.BuildID)
	require.Equal(t, "My Site", event.Site)
	require.Equal(t, site.TriggerFSEvent, event.Trigger)
	require.Equal(t, site.OutcomeSuccess, event.Outcome)
	require.Equal(t, int64(1500), event.DurationMS)
	require.Equal(t, 12, event.Pages)
	require.Equal(t, 3, event.Assets)
	require.Equal(t, result.Warnings, event.Warnings)
	require.Empty(t, event.Error)
}

func TestEventFromResult_CarriesFailureText(t *testing.T) {
	result := &site.BuildResult{
		ID:      uuid.New(),
		Trigger: site.TriggerManual,
		Outcome: site.OutcomeFailed,
		Err:     errors.New("fatal stage write-pages: disk full"),
	}

	event := EventFromResult(result, "")
	require.Equal(t, site.OutcomeFailed, event.Outcome)
	require.Equal(t, "fatal stage write-pages: disk full", event.Error)
}

func TestBuildEvent_WireShape(t *testing.T) {
	event := BuildEvent{
		BuildID:    "b-1",
		Trigger:    "manual",
		Outcome:    "success",
		StartedAt:  time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		DurationMS: 42,
		Pages:      2,
		Assets:     1,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "b-1", decoded["build_id"])
	require.Equal(t, "success", decoded["outcome"])
	require.Equal(t, float64(42), decoded["duration_ms"])
	// Empty optional fields stay off the wire.
	require.NotContains(t, decoded, "warnings")
	require.NotContains(t, decoded, "error")
	require.NotContains(t, decoded, "site")
}

func TestNewPublisher_UnreachableServer_ReturnsError(t *testing.T) {
	_, err := NewPublisher("nats://127.0.0.1:1", "sitegen.builds", nil)
	require.Error(t, err)
}
