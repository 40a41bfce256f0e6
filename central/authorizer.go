package central

import (
	"context"
	"evroaming/oicp"
	"evroaming/registry"
	"evroaming/telemetry"
	"fmt"
	"time"

	"github.com/creachadair/taskgroup"
)

// AuthorizeStart asks every provider at once; the first one in registration
// order that authorizes wins.
func (s *Service) AuthorizeStart(ctx context.Context, req *oicp.AuthorizeStartRequest) (*oicp.Result[*oicp.AuthorizationStartResponse], error) {
	if req == nil {
		return nil, s.invalid(oicp.AuthorizeStartOperation)
	}
	sessions := req.Sessions()
	fail := func(status oicp.StatusCode) *oicp.AuthorizationStartResponse {
		return oicp.NotAuthorizedStart(status, sessions)
	}
	return broadcast(ctx, s, s.EMPs, req, func(ctx context.Context, c EMPClient) *oicp.Result[*oicp.AuthorizationStartResponse] {
		return c.AuthorizeStart(ctx, req)
	}, (*oicp.AuthorizationStartResponse).IsAuthorized, fail, noPositiveAuthorization()), nil
}

func (s *Service) AuthorizeStop(ctx context.Context, req *oicp.AuthorizeStopRequest) (*oicp.Result[*oicp.AuthorizationStopResponse], error) {
	if req == nil {
		return nil, s.invalid(oicp.AuthorizeStopOperation)
	}
	sessions := req.Sessions()
	fail := func(status oicp.StatusCode) *oicp.AuthorizationStopResponse {
		return oicp.NotAuthorizedStop(status, sessions)
	}
	return broadcast(ctx, s, s.EMPs, req, func(ctx context.Context, c EMPClient) *oicp.Result[*oicp.AuthorizationStopResponse] {
		return c.AuthorizeStop(ctx, req)
	}, (*oicp.AuthorizationStopResponse).IsAuthorized, fail, noPositiveAuthorization()), nil
}

// PushEVSEData hands operator data to every provider; one acceptance is enough.
func (s *Service) PushEVSEData(ctx context.Context, req *oicp.PushEVSEDataRequest) (*oicp.Result[*oicp.Acknowledgement], error) {
	if req == nil {
		return nil, s.invalid(oicp.PushEVSEDataOperation)
	}
	return broadcast(ctx, s, s.EMPs, req, func(ctx context.Context, c EMPClient) *oicp.Result[*oicp.Acknowledgement] {
		return c.PushEVSEData(ctx, req)
	}, accepted, negativeAck(oicp.Sessions{}), noPartnerAccepted()), nil
}

func (s *Service) PushEVSEStatus(ctx context.Context, req *oicp.PushEVSEStatusRequest) (*oicp.Result[*oicp.Acknowledgement], error) {
	if req == nil {
		return nil, s.invalid(oicp.PushEVSEStatusOperation)
	}
	return broadcast(ctx, s, s.EMPs, req, func(ctx context.Context, c EMPClient) *oicp.Result[*oicp.Acknowledgement] {
		return c.PushEVSEStatus(ctx, req)
	}, accepted, negativeAck(oicp.Sessions{}), noPartnerAccepted()), nil
}

func accepted(ack *oicp.Acknowledgement) bool {
	return ack != nil && ack.Result
}

func noPositiveAuthorization() oicp.StatusCode {
	return oicp.NewStatusCode(oicp.CodeNoPositiveAuthorizationResponse, "")
}

func noPartnerAccepted() oicp.StatusCode {
	return oicp.NewStatusCode(oicp.CodeDataTransactionError, "No partner accepted the data")
}

// broadcast calls every registered client concurrently and waits for all of
// them. A slow candidate is bounded by its own timeout, not by the others.
func broadcast[K comparable, C any, T any](
	ctx context.Context,
	s *Service,
	reg *registry.Registry[K, C],
	req oicp.Request,
	call func(context.Context, C) *oicp.Result[T],
	positive func(T) bool,
	fail failure[T],
	none oicp.StatusCode,
) *oicp.Result[T] {
	op := req.Operation()
	processID := oicp.NewProcessID()
	ctx = oicp.WithProcessID(ctx, processID)
	started := time.Now()

	s.begin(ctx, op, telemetry.BroadcastPartner, processID, req, started)

	candidates := reg.Entries()
	results := make([]*oicp.Result[T], len(candidates))
	g := taskgroup.New(nil)
	for i, candidate := range candidates {
		g.Go(func() error {
			results[i] = invoke(ctx, s.timeout, req, processID, func(ctx context.Context) *oicp.Result[T] {
				return call(ctx, candidate.Client)
			}, fail)
			return nil
		})
	}
	_ = g.Wait()

	var winner *oicp.Result[T]
	partner := telemetry.BroadcastPartner
	for i, r := range results {
		ok := r.IsSuccessful && positive(r.Response)
		s.debug("%s candidate %v: successful=%v positive=%v status=%s", op, candidates[i].Key, r.IsSuccessful, ok, statusOf(r.Response))
		if ok && winner == nil {
			winner = r
			partner = fmt.Sprint(candidates[i].Key)
		}
	}
	if winner == nil {
		winner = oicp.Failed(req, fail(none), processID)
	}

	return finish(ctx, s, op, partner, winner, started)
}
