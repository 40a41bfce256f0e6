// Package eventlog stores telemetry events in the database.
package eventlog

import (
	"context"
	"errors"
	"evroaming/internal"
	"evroaming/oicp"
	"evroaming/telemetry"
	"sync"
	"time"
)

const EventRecordType = "eventRecord"

var ErrQueueFull = errors.New("event log queue is full")

type Database interface {
	WriteEvent(data internal.Data) error
}

// EventRecord is the stored form of a telemetry event.
type EventRecord struct {
	Kind       string        `json:"kind" bson:"kind"`
	Operation  string        `json:"operation" bson:"operation"`
	ProcessID  string        `json:"process_id" bson:"process_id"`
	TimeStamp  time.Time     `json:"timestamp" bson:"timestamp"`
	Partner    string        `json:"partner" bson:"partner"`
	Successful bool          `json:"successful" bson:"successful"`
	Runtime    time.Duration `json:"runtime" bson:"runtime"`
	Code       string        `json:"code,omitempty" bson:"code,omitempty"`
	Status     string        `json:"status,omitempty" bson:"status,omitempty"`
}

func (r *EventRecord) DataType() string {
	return EventRecordType
}

func NewRecord(event *telemetry.Event) *EventRecord {
	record := &EventRecord{
		Kind:       string(event.Kind),
		Operation:  event.Operation,
		ProcessID:  event.ProcessID.String(),
		TimeStamp:  event.Timestamp,
		Partner:    event.Partner,
		Successful: event.Successful,
		Runtime:    event.Runtime,
	}
	if status, ok := oicp.StatusOf(event.Response); ok {
		record.Code = status.Code.String()
		record.Status = status.Description
	}
	return record
}

// EventLog writes response events on its own goroutine so a slow database
// never holds up a dispatched call.
type EventLog struct {
	db     Database
	log    internal.LogHandler
	writer chan *EventRecord
	done   chan struct{}
	once   sync.Once
}

func NewEventLog(db Database, log internal.LogHandler) *EventLog {
	e := &EventLog{
		db:     db,
		log:    log,
		writer: make(chan *EventRecord, 100),
		done:   make(chan struct{}),
	}
	go e.start()
	if log != nil {
		log.FeatureEvent("EventLog", "", "created")
	}
	return e
}

func (e *EventLog) start() {
	defer close(e.done)
	for record := range e.writer {
		if err := e.db.WriteEvent(record); err != nil && e.log != nil {
			e.log.Error("writing event to database", err)
		}
	}
}

// Observe stores response events; request events are skipped.
func (e *EventLog) Observe(_ context.Context, event *telemetry.Event) error {
	if event.Kind != telemetry.KindResponse {
		return nil
	}
	select {
	case e.writer <- NewRecord(event):
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop flushes queued records and waits for the writer. Observe must not be
// called after Stop.
func (e *EventLog) Stop() {
	e.once.Do(func() { close(e.writer) })
	<-e.done
}
