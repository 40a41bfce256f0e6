package central

import (
	"bytes"
	"encoding/json"
	"evroaming/oicp"
	"evroaming/server"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachServesHubOverHTTP(t *testing.T) {
	s, events, _ := newTestService(t, time.Second)
	require.True(t, s.RegisterEMP(providerGDF, &fakeEMP{id: providerGDF}))
	require.True(t, s.RegisterEMP(providerXYZ, &fakeEMP{id: providerXYZ, authorized: true}))
	require.True(t, s.RegisterCPO(operatorGEF, &fakeCPO{}))

	router := httprouter.New()
	srv := server.NewServer(server.AttachesTo{Router: router}, nil)
	s.Attach(srv)
	ts := httptest.NewServer(router)
	defer ts.Close()

	route, _ := oicp.RouteFor(oicp.AuthorizeStartOperation)
	body := []byte(`{"OperatorID":"DE*GEF","Identification":{"RemoteIdentification":{"EvcoID":"DE-GDF-C12345678-X"}}}`)
	resp, err := http.Post(ts.URL+route.Expand("DE*GEF"), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer oicp.AuthorizationStartResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.True(t, answer.IsAuthorized())
	require.NotNil(t, answer.ProviderID)
	assert.Equal(t, providerXYZ, *answer.ProviderID)
	assert.Len(t, events.all(), 2)

	route, _ = oicp.RouteFor(oicp.AuthorizeRemoteStopOperation)
	body = []byte(`{"EvseID":"DE*ABC*E1","SessionID":"s-1"}`)
	resp, err = http.Post(ts.URL+route.Expand("DE-GDF"), "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ack oicp.Acknowledgement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.False(t, ack.Result)
	assert.Equal(t, oicp.CodeNoValidContract, ack.StatusCode.Code)
	assert.Equal(t, "s-1", ack.SessionID)
}

func TestAttachRejectsMissingRoutingKey(t *testing.T) {
	s, _, _ := newTestService(t, time.Second)
	router := httprouter.New()
	s.Attach(server.NewServer(server.AttachesTo{Router: router}, nil))
	ts := httptest.NewServer(router)
	defer ts.Close()

	// the CDR names no provider, so there is nobody to route it to
	route, _ := oicp.RouteFor(oicp.SendChargeDetailRecordOperation)
	resp, err := http.Post(ts.URL+route.Expand("DE*GEF"), "application/json", bytes.NewReader([]byte(`{"ChargeDetailRecord":{"SessionID":"x"}}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	var ack oicp.Acknowledgement
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ack))
	assert.False(t, ack.Result)
	assert.Equal(t, oicp.CodeDataError, ack.StatusCode.Code)
}
