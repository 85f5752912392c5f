package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// NewEvent
// ---------------------------------------------------------------------------

func TestNewEvent_Success(t *testing.T) {
	data := map[string]string{"offer_id": "abc"}

	event, err := NewEvent(SubjectOfferSearching, "ride-planner", data)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, SubjectOfferSearching, event.Type)
	assert.Equal(t, "ride-planner", event.Source)
	assert.False(t, event.Timestamp.IsZero())

	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, "abc", decoded["offer_id"])
}

func TestNewEvent_NilData(t *testing.T) {
	event, err := NewEvent("test.event", "test-source", nil)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), event.Data)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("test.event", "test-source", make(chan int))
	assert.Error(t, err)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a, err := NewEvent("x", "y", nil)
	require.NoError(t, err)
	b, err := NewEvent("x", "y", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewEvent_OfferEndedData(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	event, err := NewEvent(SubjectOfferCancelled, "ride-planner", OfferEndedData{
		OfferID: "offer-1",
		Phase:   "searching",
		Reason:  "cancelled by rider",
		EndedAt: now,
	})
	require.NoError(t, err)

	var decoded OfferEndedData
	require.NoError(t, json.Unmarshal(event.Data, &decoded))
	assert.Equal(t, "offer-1", decoded.OfferID)
	assert.Empty(t, decoded.DriverID)
	assert.True(t, now.Equal(decoded.EndedAt))
}

// ---------------------------------------------------------------------------
// Config / Publisher
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.URL)
	assert.Equal(t, "ride-planner", cfg.Name)
	assert.Equal(t, "RIDEPLANNER", cfg.StreamName)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), SubjectOfferFailed, &Event{}))
}

func TestBus_ConnectedWithoutConnection(t *testing.T) {
	b := &Bus{}
	assert.False(t, b.Connected())
}

func TestSubjectsShareStreamPrefix(t *testing.T) {
	for _, s := range []string{
		SubjectOfferSearching, SubjectOfferNoDriver, SubjectDriverAccepted,
		SubjectPickupStarted, SubjectDriverArrived, SubjectJourneyStarted,
		SubjectJourneyFinished, SubjectOfferCancelled, SubjectOfferFailed,
	} {
		assert.Regexp(t, `^offers\.`, s)
	}
}
