package eventlog

import (
	"context"
	"errors"
	"evroaming/internal"
	"evroaming/internal/logtest"
	"evroaming/oicp"
	"evroaming/telemetry"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryDB struct {
	mu      sync.Mutex
	records []*EventRecord
	fail    error
}

func (m *memoryDB) WriteEvent(data internal.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.records = append(m.records, data.(*EventRecord))
	return nil
}

func TestObserveStoresResponses(t *testing.T) {
	defer leaktest.Check(t)()

	db := &memoryDB{}
	e := NewEventLog(db, &logtest.Recorder{})
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, e.Observe(ctx, &telemetry.Event{Kind: telemetry.KindRequest, Operation: oicp.PushEVSEDataOperation}))
	require.NoError(t, e.Observe(ctx, &telemetry.Event{
		Kind:      telemetry.KindResponse,
		Operation: oicp.PushEVSEDataOperation,
		ProcessID: "p-9",
		Timestamp: now,
		Partner:   telemetry.BroadcastPartner,
		Runtime:   time.Second,
		Response:  oicp.NewAcknowledgement(false, oicp.NewStatusCode(oicp.CodeDataTransactionError, "No partner accepted the data"), oicp.Sessions{}),
	}))
	e.Stop()

	require.Len(t, db.records, 1)
	want := &EventRecord{
		Kind:      "response",
		Operation: oicp.PushEVSEDataOperation,
		ProcessID: "p-9",
		TimeStamp: now,
		Partner:   "*",
		Runtime:   time.Second,
		Code:      "009",
		Status:    "No partner accepted the data",
	}
	assert.Equal(t, want, db.records[0])
	assert.Equal(t, EventRecordType, db.records[0].DataType())
}

func TestWriteErrorsAreLogged(t *testing.T) {
	logger := &logtest.Recorder{}
	e := NewEventLog(&memoryDB{fail: errors.New("mongo down")}, logger)
	require.NoError(t, e.Observe(context.Background(), &telemetry.Event{Kind: telemetry.KindResponse}))
	e.Stop()
	e.Stop()
	assert.True(t, logger.Contains("mongo down"))
}
