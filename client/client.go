// Package client talks OICP JSON over HTTP to a single partner.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"evroaming/internal"
	"evroaming/metrics/counters"
	"evroaming/oicp"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 20 * time.Second
	maxBodySize    = 4 << 20
	maxFailureBody = 512
)

// Client implements both the operator and the provider side of the protocol.
// Every call is a single attempt; failures come back as failed results.
type Client struct {
	client   *http.Client
	url      string
	token    string
	timeout  time.Duration
	counters *counters.Set
	logger   internal.LogHandler
}

func New(url, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url:      url,
		token:    token,
		timeout:  timeout,
		client:   &http.Client{},
		counters: counters.NewSet(oicp.Operations...),
	}
}

func (c *Client) SetLogger(logger internal.LogHandler) {
	c.logger = logger
}

func (c *Client) Counters() *counters.Set {
	return c.counters
}

func (c *Client) URL() string {
	return c.url
}

// Close drops idle connections; the client stays usable.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *Client) PullEVSEData(ctx context.Context, req *oicp.PullEVSEDataRequest) *oicp.Result[*oicp.PullEVSEDataResponse] {
	return post(ctx, c, req, func(status oicp.StatusCode) *oicp.PullEVSEDataResponse {
		return &oicp.PullEVSEDataResponse{StatusCode: status}
	})
}

func (c *Client) PullEVSEStatus(ctx context.Context, req *oicp.PullEVSEStatusRequest) *oicp.Result[*oicp.PullEVSEStatusResponse] {
	return post(ctx, c, req, func(status oicp.StatusCode) *oicp.PullEVSEStatusResponse {
		return &oicp.PullEVSEStatusResponse{StatusCode: status}
	})
}

func (c *Client) AuthorizeRemoteStart(ctx context.Context, req *oicp.AuthorizeRemoteStartRequest) *oicp.Result[*oicp.Acknowledgement] {
	return post(ctx, c, req, negativeAck(req.Sessions()))
}

func (c *Client) AuthorizeRemoteStop(ctx context.Context, req *oicp.AuthorizeRemoteStopRequest) *oicp.Result[*oicp.Acknowledgement] {
	return post(ctx, c, req, negativeAck(req.Sessions()))
}

func (c *Client) AuthorizeStart(ctx context.Context, req *oicp.AuthorizeStartRequest) *oicp.Result[*oicp.AuthorizationStartResponse] {
	sessions := req.Sessions()
	return post(ctx, c, req, func(status oicp.StatusCode) *oicp.AuthorizationStartResponse {
		return oicp.NotAuthorizedStart(status, sessions)
	})
}

func (c *Client) AuthorizeStop(ctx context.Context, req *oicp.AuthorizeStopRequest) *oicp.Result[*oicp.AuthorizationStopResponse] {
	sessions := req.Sessions()
	return post(ctx, c, req, func(status oicp.StatusCode) *oicp.AuthorizationStopResponse {
		return oicp.NotAuthorizedStop(status, sessions)
	})
}

func (c *Client) PushEVSEData(ctx context.Context, req *oicp.PushEVSEDataRequest) *oicp.Result[*oicp.Acknowledgement] {
	return post(ctx, c, req, negativeAck(oicp.Sessions{}))
}

func (c *Client) PushEVSEStatus(ctx context.Context, req *oicp.PushEVSEStatusRequest) *oicp.Result[*oicp.Acknowledgement] {
	return post(ctx, c, req, negativeAck(oicp.Sessions{}))
}

func (c *Client) SendChargeDetailRecord(ctx context.Context, req *oicp.SendChargeDetailRecordRequest) *oicp.Result[*oicp.Acknowledgement] {
	return post(ctx, c, req, negativeAck(req.Sessions()))
}

func negativeAck(sessions oicp.Sessions) func(oicp.StatusCode) *oicp.Acknowledgement {
	return func(status oicp.StatusCode) *oicp.Acknowledgement {
		return oicp.NewAcknowledgement(false, status, sessions)
	}
}

func post[Resp any](ctx context.Context, c *Client, req oicp.Request, fail func(oicp.StatusCode) *Resp) *oicp.Result[*Resp] {
	op := req.Operation()
	cnt := c.counters.Get(op)
	processID := oicp.ProcessIDFrom(ctx)
	started := time.Now()

	failed := func(status oicp.StatusCode, failure *oicp.HTTPFailure) *oicp.Result[*Resp] {
		cnt.IncResponsesError()
		c.warn("%s %s: %s: %v", op, c.url, status, failure)
		return oicp.Failed[*Resp](req, fail(status), processID).
			WithFailure(failure).
			WithRuntime(time.Since(started))
	}

	route, ok := oicp.RouteFor(op)
	value, err := oicp.PathValue(req)
	if !ok || err != nil {
		cnt.IncRequestsError()
		if err == nil {
			err = fmt.Errorf("no route for %s", op)
		}
		return oicp.Failed[*Resp](req, fail(oicp.NewStatusCode(oicp.CodeDataError, "Missing path identifier")), processID).
			WithFailure(&oicp.HTTPFailure{Err: err})
	}
	body, err := json.Marshal(req)
	if err != nil {
		cnt.IncRequestsError()
		return oicp.Failed[*Resp](req, fail(oicp.NewStatusCode(oicp.CodeDataError, "")), processID).
			WithFailure(&oicp.HTTPFailure{Err: fmt.Errorf("marshalling body: %w", err)})
	}
	cnt.IncRequestsOK()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	status, payload, err := c.doRequest(ctx, route.Expand(value), processID, body)
	if err != nil {
		code := oicp.NewStatusCode(oicp.CodeSystemError, "Partner unreachable")
		if errors.Is(err, context.DeadlineExceeded) {
			code = oicp.NewStatusCode(oicp.CodeRequestTimeout, "")
		}
		return failed(code, &oicp.HTTPFailure{StatusCode: status, Err: err})
	}
	if status < 200 || status > 299 {
		return failed(oicp.NewStatusCode(oicp.CodeSystemError, "Partner error"), &oicp.HTTPFailure{
			StatusCode: status,
			Body:       truncate(payload),
			Err:        fmt.Errorf("received non-2xx status code: %d", status),
		})
	}

	resp := new(Resp)
	if err = json.Unmarshal(payload, resp); err != nil {
		return failed(oicp.NewStatusCode(oicp.CodeDataError, "Invalid partner response"), &oicp.HTTPFailure{
			StatusCode: status,
			Body:       truncate(payload),
			Err:        fmt.Errorf("decoding response: %w", err),
		})
	}
	runtime := time.Since(started)
	if ack, ok := any(resp).(*oicp.Acknowledgement); ok {
		ack.ProcessID = processID
		ack.Runtime = runtime
		ack.ResponseTimestamp = time.Now().UTC()
	}
	cnt.IncResponsesOK()
	return oicp.Success(req, resp, processID).WithRuntime(runtime)
}

func (c *Client) doRequest(ctx context.Context, endpoint string, processID oicp.ProcessID, body []byte) (int, []byte, error) {
	url := fmt.Sprintf("%v%v", c.url, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Process-ID", processID.String())
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("sending request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	if len(body) > maxFailureBody {
		return string(body[:maxFailureBody])
	}
	return string(body)
}

func (c *Client) warn(format string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(fmt.Sprintf(format, args...))
	}
}
