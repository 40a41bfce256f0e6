package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"evroaming/internal/config"
	"evroaming/internal/logtest"
	"evroaming/oicp"
	"evroaming/server"
	"evroaming/telemetry"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePartner answers every operation. A nil ack makes acknowledged calls
// return a nil result.
type fakePartner struct {
	mu         sync.Mutex
	ops        []string
	processIDs []oicp.ProcessID
	ack        *oicp.Acknowledgement
	panics     atomic.Bool
}

func (f *fakePartner) record(ctx context.Context, op string) oicp.ProcessID {
	id := oicp.ProcessIDFrom(ctx)
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.processIDs = append(f.processIDs, id)
	f.mu.Unlock()
	return id
}

func (f *fakePartner) acknowledge(ctx context.Context, req oicp.Request) *oicp.Result[*oicp.Acknowledgement] {
	id := f.record(ctx, req.Operation())
	if f.panics.Load() {
		panic("partner exploded")
	}
	if f.ack == nil {
		return nil
	}
	return oicp.Success(req, f.ack, id)
}

func (f *fakePartner) PullEVSEData(ctx context.Context, req *oicp.PullEVSEDataRequest) *oicp.Result[*oicp.PullEVSEDataResponse] {
	id := f.record(ctx, req.Operation())
	return oicp.Success(req, &oicp.PullEVSEDataResponse{StatusCode: oicp.NewStatusCode(oicp.CodeSuccess, "")}, id)
}

func (f *fakePartner) PullEVSEStatus(ctx context.Context, req *oicp.PullEVSEStatusRequest) *oicp.Result[*oicp.PullEVSEStatusResponse] {
	id := f.record(ctx, req.Operation())
	return oicp.Success(req, &oicp.PullEVSEStatusResponse{StatusCode: oicp.NewStatusCode(oicp.CodeSuccess, "")}, id)
}

func (f *fakePartner) AuthorizeRemoteStart(ctx context.Context, req *oicp.AuthorizeRemoteStartRequest) *oicp.Result[*oicp.Acknowledgement] {
	return f.acknowledge(ctx, req)
}

func (f *fakePartner) AuthorizeRemoteStop(ctx context.Context, req *oicp.AuthorizeRemoteStopRequest) *oicp.Result[*oicp.Acknowledgement] {
	return f.acknowledge(ctx, req)
}

func (f *fakePartner) AuthorizeStart(ctx context.Context, req *oicp.AuthorizeStartRequest) *oicp.Result[*oicp.AuthorizationStartResponse] {
	id := f.record(ctx, req.Operation())
	return oicp.Success(req, oicp.NotAuthorizedStart(oicp.NewStatusCode(oicp.CodeSuccess, ""), req.Sessions()), id)
}

func (f *fakePartner) AuthorizeStop(ctx context.Context, req *oicp.AuthorizeStopRequest) *oicp.Result[*oicp.AuthorizationStopResponse] {
	id := f.record(ctx, req.Operation())
	return oicp.Success(req, oicp.NotAuthorizedStop(oicp.NewStatusCode(oicp.CodeSuccess, ""), req.Sessions()), id)
}

func (f *fakePartner) PushEVSEData(ctx context.Context, req *oicp.PushEVSEDataRequest) *oicp.Result[*oicp.Acknowledgement] {
	return f.acknowledge(ctx, req)
}

func (f *fakePartner) PushEVSEStatus(ctx context.Context, req *oicp.PushEVSEStatusRequest) *oicp.Result[*oicp.Acknowledgement] {
	return f.acknowledge(ctx, req)
}

func (f *fakePartner) SendChargeDetailRecord(ctx context.Context, req *oicp.SendChargeDetailRecordRequest) *oicp.Result[*oicp.Acknowledgement] {
	return f.acknowledge(ctx, req)
}

func (f *fakePartner) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func okAck() *oicp.Acknowledgement {
	return oicp.NewAcknowledgement(true, oicp.NewStatusCode(oicp.CodeSuccess, ""), oicp.Sessions{})
}

func serveGateway(t *testing.T, g *Gateway) *httptest.Server {
	t.Helper()
	router := httprouter.New()
	g.Attach(server.NewServer(server.AttachesTo{Router: router}, nil))
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, op, pathValue, body string, header map[string]string) (int, *oicp.Acknowledgement) {
	t.Helper()
	route, ok := oicp.RouteFor(op)
	require.True(t, ok)
	req, err := http.NewRequest(http.MethodPost, ts.URL+route.Expand(pathValue), bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var ack oicp.Acknowledgement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	return resp.StatusCode, &ack
}

func TestNewRejectsHubRole(t *testing.T) {
	_, err := New(config.RoleHub, &fakePartner{}, nil, time.Second, nil)
	assert.Error(t, err)
	_, err = New(config.RoleCPO, nil, nil, time.Second, nil)
	assert.Error(t, err)
}

func TestCPOForwardsConsumedOperationsUpstream(t *testing.T) {
	upstream := &fakePartner{ack: okAck()}
	logger := &logtest.Recorder{}
	g, err := New(config.RoleCPO, upstream, nil, time.Second, logger)
	require.NoError(t, err)

	var events []*telemetry.Event
	var mu sync.Mutex
	require.NoError(t, g.Telemetry().OnAnyResponse("test", func(_ context.Context, e *telemetry.Event) error {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		return nil
	}))
	ts := serveGateway(t, g)

	status, ack := post(t, ts, oicp.SendChargeDetailRecordOperation, "DE*GEF",
		`{"ChargeDetailRecord":{"SessionID":"s-7","HubProviderID":"DE-GDF"}}`,
		map[string]string{"Process-ID": "inbound-1"})
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, ack.Result)

	assert.Equal(t, []string{oicp.SendChargeDetailRecordOperation}, upstream.calls())
	assert.Equal(t, oicp.ProcessID("inbound-1"), upstream.processIDs[0])

	snap := g.Counters().Get(oicp.SendChargeDetailRecordOperation).ToSnapshot()
	assert.EqualValues(t, 1, snap.RequestsOK)
	assert.EqualValues(t, 1, snap.ResponsesOK)

	mu.Lock()
	require.Len(t, events, 1)
	assert.Equal(t, PartnerUpstream, events[0].Partner)
	assert.True(t, events[0].Successful)
	mu.Unlock()
	lines := logger.Lines()
	require.NotEmpty(t, lines)
	last := lines[len(lines)-1]
	assert.Equal(t, oicp.SendChargeDetailRecordOperation, last.Feature)
	assert.Equal(t, PartnerUpstream, last.ID)
}

func TestCPOWithoutBackendLeavesPartnerCallsUnserved(t *testing.T) {
	upstream := &fakePartner{ack: okAck()}
	g, err := New(config.RoleCPO, upstream, nil, time.Second, nil)
	require.NoError(t, err)
	ts := serveGateway(t, g)

	status, ack := post(t, ts, oicp.AuthorizeRemoteStopOperation, "DE-GDF", `{"EvseID":"DE*GEF*E1","SessionID":"s-1"}`, nil)
	assert.Equal(t, http.StatusNotImplemented, status)
	assert.False(t, ack.Result)
	assert.Equal(t, oicp.CodeSystemError, ack.StatusCode.Code)
	assert.Empty(t, upstream.calls())
}

func TestEMPRoutesPartnerCallsToBackend(t *testing.T) {
	upstream := &fakePartner{ack: okAck()}
	backend := &fakePartner{ack: okAck()}
	g, err := New(config.RoleEMP, upstream, backend, time.Second, nil)
	require.NoError(t, err)
	ts := serveGateway(t, g)

	status, ack := post(t, ts, oicp.AuthorizeRemoteStartOperation, "DE-GDF", `{"EvseID":"DE*GEF*E1","SessionID":"s-2"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, ack.Result)

	status, ack = post(t, ts, oicp.PushEVSEStatusOperation, "DE*GEF", `{"ActionType":"update"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, ack.Result)

	assert.Equal(t, []string{oicp.AuthorizeRemoteStartOperation}, upstream.calls())
	assert.Equal(t, []string{oicp.PushEVSEStatusOperation}, backend.calls())
}

func TestEmptyPartnerResultIsAFailure(t *testing.T) {
	upstream := &fakePartner{}
	g, err := New(config.RoleCPO, upstream, nil, time.Second, &logtest.Recorder{})
	require.NoError(t, err)
	ts := serveGateway(t, g)

	status, ack := post(t, ts, oicp.PushEVSEDataOperation, "DE*GEF", `{"ActionType":"fullLoad"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, ack.Result)
	assert.Equal(t, oicp.CodeSystemError, ack.StatusCode.Code)
	assert.Equal(t, "Empty partner response", ack.StatusCode.Description)
	assert.EqualValues(t, 1, g.Counters().Get(oicp.PushEVSEDataOperation).ToSnapshot().ResponsesError)
}

func TestPanickingPartnerIsAFailure(t *testing.T) {
	upstream := &fakePartner{ack: okAck()}
	upstream.panics.Store(true)
	logger := &logtest.Recorder{}
	g, err := New(config.RoleCPO, upstream, nil, time.Second, logger)
	require.NoError(t, err)
	ts := serveGateway(t, g)

	status, ack := post(t, ts, oicp.PushEVSEStatusOperation, "DE*GEF", `{"ActionType":"update"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, ack.Result)
	assert.Equal(t, oicp.CodeSystemError, ack.StatusCode.Code)
	assert.Equal(t, "Partner client failure", ack.StatusCode.Description)

	snap := g.Counters().Get(oicp.PushEVSEStatusOperation).ToSnapshot()
	assert.EqualValues(t, 1, snap.RequestsOK)
	assert.EqualValues(t, 1, snap.ResponsesError)
	assert.True(t, logger.Contains("partner client panic"))

	// the gateway keeps serving after a panic
	upstream.panics.Store(false)
	status, ack = post(t, ts, oicp.PushEVSEStatusOperation, "DE*GEF", `{"ActionType":"update"}`, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, ack.Result)
}

func TestCounterOfUnservedOperation(t *testing.T) {
	g, err := New(config.RoleEMP, &fakePartner{}, nil, time.Second, nil)
	require.NoError(t, err)
	assert.NotPanics(t, func() { g.counter("Unknown").IncRequestsOK() })
}
