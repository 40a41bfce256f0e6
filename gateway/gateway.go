// Package gateway serves the leaf roles. Calls from local systems for
// operations the leaf consumes go to the upstream partner; calls the upstream
// makes on the leaf go to the local backend, when one is configured.
package gateway

import (
	"context"
	"evroaming/central"
	"evroaming/internal"
	"evroaming/internal/config"
	"evroaming/metrics/counters"
	"evroaming/oicp"
	"evroaming/server"
	"evroaming/telemetry"
	"fmt"
	"time"
)

const (
	PartnerUpstream = "upstream"
	PartnerBackend  = "backend"
)

// Partner is one side a leaf talks to.
type Partner interface {
	central.CPOClient
	central.EMPClient
}

type side struct {
	name   string
	client Partner
}

type Gateway struct {
	role     string
	cpoSide  side
	empSide  side
	timeout  time.Duration
	counters *counters.Set
	emitter  *telemetry.Emitter
	logger   internal.LogHandler
}

// New builds the gateway of a leaf role. backend may be nil; operations that
// would reach it are then left unserved.
func New(role string, upstream, backend Partner, timeout time.Duration, logger internal.LogHandler) (*Gateway, error) {
	if upstream == nil {
		return nil, fmt.Errorf("gateway %s: upstream partner required", role)
	}
	if logger == nil {
		logger = internal.Discard
	}
	g := &Gateway{
		role:     role,
		timeout:  timeout,
		counters: counters.NewSet(oicp.Operations...),
		emitter:  telemetry.NewEmitter(logger, oicp.Operations...),
		logger:   logger,
	}
	up := side{name: PartnerUpstream, client: upstream}
	local := side{name: PartnerBackend, client: backend}
	switch role {
	case config.RoleCPO:
		g.empSide, g.cpoSide = up, local
	case config.RoleEMP:
		g.cpoSide, g.empSide = up, local
	default:
		return nil, fmt.Errorf("gateway: unsupported role %q", role)
	}
	return g, nil
}

func (g *Gateway) Role() string {
	return g.role
}

func (g *Gateway) Counters() *counters.Set {
	return g.counters
}

func (g *Gateway) Telemetry() *telemetry.Emitter {
	return g.emitter
}

// Attach fills the inbound slots whose side has a client.
func (g *Gateway) Attach(srv *server.Server) {
	if c := g.cpoSide.client; c != nil {
		name := g.cpoSide.name
		srv.SetOnPullEVSEData(func(ctx context.Context, _ *server.Call, req *oicp.PullEVSEDataRequest) *oicp.PullEVSEDataResponse {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.PullEVSEDataResponse] {
				return c.PullEVSEData(ctx, req)
			}, func(status oicp.StatusCode) *oicp.PullEVSEDataResponse {
				return &oicp.PullEVSEDataResponse{StatusCode: status}
			})
		})
		srv.SetOnPullEVSEStatus(func(ctx context.Context, _ *server.Call, req *oicp.PullEVSEStatusRequest) *oicp.PullEVSEStatusResponse {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.PullEVSEStatusResponse] {
				return c.PullEVSEStatus(ctx, req)
			}, func(status oicp.StatusCode) *oicp.PullEVSEStatusResponse {
				return &oicp.PullEVSEStatusResponse{StatusCode: status}
			})
		})
		srv.SetOnAuthorizeRemoteStart(func(ctx context.Context, _ *server.Call, req *oicp.AuthorizeRemoteStartRequest) *oicp.Acknowledgement {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.Acknowledgement] {
				return c.AuthorizeRemoteStart(ctx, req)
			}, negativeAck(req.Sessions()))
		})
		srv.SetOnAuthorizeRemoteStop(func(ctx context.Context, _ *server.Call, req *oicp.AuthorizeRemoteStopRequest) *oicp.Acknowledgement {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.Acknowledgement] {
				return c.AuthorizeRemoteStop(ctx, req)
			}, negativeAck(req.Sessions()))
		})
	}
	if c := g.empSide.client; c != nil {
		name := g.empSide.name
		srv.SetOnAuthorizeStart(func(ctx context.Context, _ *server.Call, req *oicp.AuthorizeStartRequest) *oicp.AuthorizationStartResponse {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.AuthorizationStartResponse] {
				return c.AuthorizeStart(ctx, req)
			}, func(status oicp.StatusCode) *oicp.AuthorizationStartResponse {
				return oicp.NotAuthorizedStart(status, req.Sessions())
			})
		})
		srv.SetOnAuthorizeStop(func(ctx context.Context, _ *server.Call, req *oicp.AuthorizeStopRequest) *oicp.AuthorizationStopResponse {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.AuthorizationStopResponse] {
				return c.AuthorizeStop(ctx, req)
			}, func(status oicp.StatusCode) *oicp.AuthorizationStopResponse {
				return oicp.NotAuthorizedStop(status, req.Sessions())
			})
		})
		srv.SetOnPushEVSEData(func(ctx context.Context, _ *server.Call, req *oicp.PushEVSEDataRequest) *oicp.Acknowledgement {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.Acknowledgement] {
				return c.PushEVSEData(ctx, req)
			}, negativeAck(oicp.Sessions{}))
		})
		srv.SetOnPushEVSEStatus(func(ctx context.Context, _ *server.Call, req *oicp.PushEVSEStatusRequest) *oicp.Acknowledgement {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.Acknowledgement] {
				return c.PushEVSEStatus(ctx, req)
			}, negativeAck(oicp.Sessions{}))
		})
		srv.SetOnSendChargeDetailRecord(func(ctx context.Context, _ *server.Call, req *oicp.SendChargeDetailRecordRequest) *oicp.Acknowledgement {
			return forward(ctx, g, name, req, func(ctx context.Context) *oicp.Result[*oicp.Acknowledgement] {
				return c.SendChargeDetailRecord(ctx, req)
			}, negativeAck(req.Sessions()))
		})
	}
}

func negativeAck(sessions oicp.Sessions) func(oicp.StatusCode) *oicp.Acknowledgement {
	return func(status oicp.StatusCode) *oicp.Acknowledgement {
		return oicp.NewAcknowledgement(false, status, sessions)
	}
}

// forward relays one inbound call and returns the response to write back.
// The inbound Process-ID travels on to the partner.
func forward[T any](ctx context.Context, g *Gateway, partner string, req oicp.Request, call func(context.Context) *oicp.Result[T], fail func(oicp.StatusCode) T) T {
	op := req.Operation()
	processID := oicp.ProcessIDFrom(ctx)
	ctx = oicp.WithProcessID(ctx, processID)
	started := time.Now()

	g.counter(op).IncRequestsOK()
	g.emitter.Notify(ctx, &telemetry.Event{
		Kind:      telemetry.KindRequest,
		Operation: op,
		ProcessID: processID,
		Timestamp: started,
		Partner:   partner,
		Request:   req,
	})

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	result, panicked := guarded(callCtx, call)
	cancel()
	switch {
	case panicked != nil:
		g.logger.Warn(fmt.Sprintf("%s %s: partner client panic: %v", op, partner, panicked))
		result = oicp.Failed(req, fail(oicp.NewStatusCode(oicp.CodeSystemError, "Partner client failure")), processID)
	case result == nil || oicp.IsNil(result.Response):
		result = oicp.Failed(req, fail(oicp.NewStatusCode(oicp.CodeSystemError, "Empty partner response")), processID)
	}
	result.WithRuntime(time.Since(started))

	if result.IsSuccessful {
		g.counter(op).IncResponsesOK()
	} else {
		g.counter(op).IncResponsesError()
	}
	g.emitter.Notify(ctx, &telemetry.Event{
		Kind:       telemetry.KindResponse,
		Operation:  op,
		ProcessID:  processID,
		Timestamp:  time.Now(),
		Partner:    partner,
		Request:    req,
		Response:   result.Response,
		Successful: result.IsSuccessful,
		Runtime:    result.Runtime,
	})
	g.logResult(op, partner, result.IsSuccessful, result.Runtime, result.Response)
	return result.Response
}

// guarded runs call, turning a panic into a non-nil second return.
func guarded[T any](ctx context.Context, call func(context.Context) *oicp.Result[T]) (result *oicp.Result[T], panicked any) {
	defer func() {
		if r := recover(); r != nil {
			result, panicked = nil, r
		}
	}()
	return call(ctx), nil
}

func (g *Gateway) counter(op string) *counters.APICounterValues {
	if c := g.counters.Get(op); c != nil {
		return c
	}
	return &counters.APICounterValues{}
}

func (g *Gateway) logResult(op, partner string, successful bool, runtime time.Duration, response any) {
	status := "-"
	if code, ok := oicp.StatusOf(response); ok {
		status = code.String()
	}
	runtime = runtime.Round(time.Millisecond)
	if successful {
		g.logger.FeatureEvent(op, partner, fmt.Sprintf("%s in %v", status, runtime))
		return
	}
	g.logger.Warn(fmt.Sprintf("%s %s: failed in %v: %s", op, partner, runtime, status))
}
