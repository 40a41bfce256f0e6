package telemetry

import (
	"context"
	"errors"
	"evroaming/internal/logtest"
	"evroaming/oicp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyRegistrationOrder(t *testing.T) {
	e := NewEmitter(&logtest.Recorder{}, oicp.PullEVSEStatusOperation)
	var calls []string
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, e.OnRequest(oicp.PullEVSEStatusOperation, name, func(_ context.Context, _ *Event) error {
			calls = append(calls, name)
			return nil
		}))
	}
	e.Notify(context.Background(), &Event{Kind: KindRequest, Operation: oicp.PullEVSEStatusOperation})
	assert.Equal(t, []string{"first", "second", "third"}, calls)
}

func TestNotifyIsolatesObservers(t *testing.T) {
	logger := &logtest.Recorder{}
	e := NewEmitter(logger, oicp.AuthorizeStartOperation)
	op := oicp.AuthorizeStartOperation

	var received []*Event
	require.NoError(t, e.OnResponse(op, "panics", func(_ context.Context, _ *Event) error {
		panic("observer exploded")
	}))
	require.NoError(t, e.OnResponse(op, "fails", func(_ context.Context, _ *Event) error {
		return errors.New("sink offline")
	}))
	require.NoError(t, e.OnResponse(op, "healthy", func(_ context.Context, ev *Event) error {
		received = append(received, ev)
		return nil
	}))

	event := &Event{Kind: KindResponse, Operation: op, Successful: true}
	assert.NotPanics(t, func() { e.Notify(context.Background(), event) })

	require.Len(t, received, 1)
	assert.Same(t, event, received[0])

	errs := logger.Errors()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], `AuthorizeStart response observer "panics"`)
	assert.Contains(t, errs[0], "observer exploded")
	assert.Contains(t, errs[1], "sink offline")
}

func TestNotifyKindsAndOperationsAreSeparate(t *testing.T) {
	e := NewEmitter(nil, oicp.PushEVSEDataOperation, oicp.PushEVSEStatusOperation)
	var requests, responses int
	require.NoError(t, e.OnRequest(oicp.PushEVSEDataOperation, "req", func(_ context.Context, _ *Event) error {
		requests++
		return nil
	}))
	require.NoError(t, e.OnResponse(oicp.PushEVSEDataOperation, "resp", func(_ context.Context, _ *Event) error {
		responses++
		return errors.New("ignored without logger")
	}))

	ctx := context.Background()
	e.Notify(ctx, &Event{Kind: KindRequest, Operation: oicp.PushEVSEDataOperation})
	e.Notify(ctx, &Event{Kind: KindResponse, Operation: oicp.PushEVSEDataOperation})
	e.Notify(ctx, &Event{Kind: KindRequest, Operation: oicp.PushEVSEStatusOperation})

	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, responses)
}

func TestSubscribeErrors(t *testing.T) {
	e := NewEmitter(nil, oicp.AuthorizeStopOperation)
	assert.Error(t, e.OnRequest("Unknown", "x", func(context.Context, *Event) error { return nil }))
	assert.Error(t, e.OnResponse(oicp.AuthorizeStopOperation, "nil", nil))
}

func TestOnAny(t *testing.T) {
	e := NewEmitter(nil, oicp.Operations...)
	noop := func(context.Context, *Event) error { return nil }
	require.NoError(t, e.OnAnyRequest("all", noop))
	require.NoError(t, e.OnAnyResponse("all", noop))
	for _, op := range oicp.Operations {
		assert.Equal(t, 1, e.Count(KindRequest, op))
		assert.Equal(t, 1, e.Count(KindResponse, op))
	}
}

func TestNilEmitter(t *testing.T) {
	var e *Emitter
	assert.NotPanics(t, func() { e.Notify(context.Background(), &Event{}) })
}
