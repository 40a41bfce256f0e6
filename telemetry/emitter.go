// Package telemetry notifies observers before and after every dispatched call.
package telemetry

import (
	"context"
	"evroaming/internal"
	"evroaming/oicp"
	"fmt"
	"sync"
	"time"
)

type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
)

// BroadcastPartner marks events of calls that went to every registered partner.
const BroadcastPartner = "*"

type Event struct {
	Kind       Kind           `json:"kind"`
	Operation  string         `json:"operation"`
	ProcessID  oicp.ProcessID `json:"process_id"`
	Timestamp  time.Time      `json:"timestamp"`
	Partner    string         `json:"partner"`
	Request    oicp.Request   `json:"request,omitempty"`
	Response   any            `json:"response,omitempty"`
	Successful bool           `json:"successful"`
	Runtime    time.Duration  `json:"runtime"`
}

// Observer receives events. A returned error or a panic is logged and
// otherwise ignored; it never reaches the dispatched call.
type Observer func(ctx context.Context, event *Event) error

type subscription struct {
	name     string
	observer Observer
}

// Emitter holds append-only observer lists per operation and kind.
type Emitter struct {
	logger     internal.LogHandler
	operations []string
	mux        sync.RWMutex
	requests   map[string][]subscription
	responses  map[string][]subscription
}

func NewEmitter(logger internal.LogHandler, operations ...string) *Emitter {
	e := &Emitter{
		logger:     logger,
		operations: append([]string(nil), operations...),
		requests:   make(map[string][]subscription),
		responses:  make(map[string][]subscription),
	}
	for _, op := range operations {
		e.requests[op] = nil
		e.responses[op] = nil
	}
	return e
}

func (e *Emitter) OnRequest(operation, name string, observer Observer) error {
	return e.subscribe(KindRequest, operation, name, observer)
}

func (e *Emitter) OnResponse(operation, name string, observer Observer) error {
	return e.subscribe(KindResponse, operation, name, observer)
}

// OnAnyRequest subscribes observer to the request events of every operation.
func (e *Emitter) OnAnyRequest(name string, observer Observer) error {
	for _, op := range e.operations {
		if err := e.OnRequest(op, name, observer); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) OnAnyResponse(name string, observer Observer) error {
	for _, op := range e.operations {
		if err := e.OnResponse(op, name, observer); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) subscribe(kind Kind, operation, name string, observer Observer) error {
	if observer == nil {
		return fmt.Errorf("telemetry: nil observer %q", name)
	}
	e.mux.Lock()
	defer e.mux.Unlock()
	lists := e.lists(kind)
	list, ok := lists[operation]
	if !ok {
		return fmt.Errorf("telemetry: unknown operation %q", operation)
	}
	lists[operation] = append(list, subscription{name: name, observer: observer})
	return nil
}

func (e *Emitter) lists(kind Kind) map[string][]subscription {
	if kind == KindRequest {
		return e.requests
	}
	return e.responses
}

// Count returns how many observers listen to kind events of operation.
func (e *Emitter) Count(kind Kind, operation string) int {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return len(e.lists(kind)[operation])
}

// Notify runs the observers of event's operation and kind in registration order.
func (e *Emitter) Notify(ctx context.Context, event *Event) {
	if e == nil || event == nil {
		return
	}
	e.mux.RLock()
	list := e.lists(event.Kind)[event.Operation]
	e.mux.RUnlock()

	for _, s := range list {
		e.invoke(ctx, s, event)
	}
}

func (e *Emitter) invoke(ctx context.Context, s subscription, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logFailure(s, event, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := s.observer(ctx, event); err != nil {
		e.logFailure(s, event, err)
	}
}

func (e *Emitter) logFailure(s subscription, event *Event, err error) {
	if e.logger == nil {
		return
	}
	e.logger.Error(fmt.Sprintf("%s %s observer %q", event.Operation, event.Kind, s.name), err)
}
