package central

import (
	"context"
	"errors"
	"evroaming/metrics/counters"
	"evroaming/oicp"
	"evroaming/registry"
	"evroaming/telemetry"
	"fmt"
	"time"
)

const (
	roleOperator = "operator"
	roleProvider = "provider"
)

// failure builds the local response of a failed call.
type failure[T any] func(status oicp.StatusCode) T

// target is one call of one partner client, bound to its request.
type target[T any] func(ctx context.Context) *oicp.Result[T]

func (s *Service) PullEVSEData(ctx context.Context, req *oicp.PullEVSEDataRequest) (*oicp.Result[*oicp.PullEVSEDataResponse], error) {
	op := oicp.PullEVSEDataOperation
	if req == nil || req.OperatorID.IsZero() {
		return nil, s.invalid(op)
	}
	fail := func(status oicp.StatusCode) *oicp.PullEVSEDataResponse {
		return &oicp.PullEVSEDataResponse{StatusCode: status}
	}
	return dispatch(ctx, s, s.CPOs, req.OperatorID, req, func(ctx context.Context, c CPOClient) *oicp.Result[*oicp.PullEVSEDataResponse] {
		return c.PullEVSEData(ctx, req)
	}, fail, unknownRoute(roleOperator, fail)), nil
}

func (s *Service) PullEVSEStatus(ctx context.Context, req *oicp.PullEVSEStatusRequest) (*oicp.Result[*oicp.PullEVSEStatusResponse], error) {
	op := oicp.PullEVSEStatusOperation
	if req == nil || req.OperatorID.IsZero() {
		return nil, s.invalid(op)
	}
	fail := func(status oicp.StatusCode) *oicp.PullEVSEStatusResponse {
		return &oicp.PullEVSEStatusResponse{StatusCode: status}
	}
	return dispatch(ctx, s, s.CPOs, req.OperatorID, req, func(ctx context.Context, c CPOClient) *oicp.Result[*oicp.PullEVSEStatusResponse] {
		return c.PullEVSEStatus(ctx, req)
	}, fail, unknownRoute(roleOperator, fail)), nil
}

func (s *Service) AuthorizeRemoteStart(ctx context.Context, req *oicp.AuthorizeRemoteStartRequest) (*oicp.Result[*oicp.Acknowledgement], error) {
	op := oicp.AuthorizeRemoteStartOperation
	if req == nil || req.EvseID.IsZero() {
		return nil, s.invalid(op)
	}
	return dispatch(ctx, s, s.CPOs, req.EvseID.OperatorID(), req, func(ctx context.Context, c CPOClient) *oicp.Result[*oicp.Acknowledgement] {
		return c.AuthorizeRemoteStart(ctx, req)
	}, negativeAck(req.Sessions()), noContract(roleOperator, req.Sessions())), nil
}

func (s *Service) AuthorizeRemoteStop(ctx context.Context, req *oicp.AuthorizeRemoteStopRequest) (*oicp.Result[*oicp.Acknowledgement], error) {
	op := oicp.AuthorizeRemoteStopOperation
	if req == nil || req.EvseID.IsZero() {
		return nil, s.invalid(op)
	}
	return dispatch(ctx, s, s.CPOs, req.EvseID.OperatorID(), req, func(ctx context.Context, c CPOClient) *oicp.Result[*oicp.Acknowledgement] {
		return c.AuthorizeRemoteStop(ctx, req)
	}, negativeAck(req.Sessions()), noContract(roleOperator, req.Sessions())), nil
}

// SendChargeDetailRecord forwards the record to the provider that billed the session.
func (s *Service) SendChargeDetailRecord(ctx context.Context, req *oicp.SendChargeDetailRecordRequest) (*oicp.Result[*oicp.Acknowledgement], error) {
	op := oicp.SendChargeDetailRecordOperation
	if req == nil || req.ChargeDetailRecord.HubProviderID.IsZero() {
		return nil, s.invalid(op)
	}
	return dispatch(ctx, s, s.EMPs, req.ChargeDetailRecord.HubProviderID, req, func(ctx context.Context, c EMPClient) *oicp.Result[*oicp.Acknowledgement] {
		return c.SendChargeDetailRecord(ctx, req)
	}, negativeAck(req.Sessions()), noContract(roleProvider, req.Sessions())), nil
}

func negativeAck(sessions oicp.Sessions) failure[*oicp.Acknowledgement] {
	return func(status oicp.StatusCode) *oicp.Acknowledgement {
		return oicp.NewAcknowledgement(false, status, sessions)
	}
}

// unknownRoute answers a call whose key has no registered client.
func unknownRoute[T any](role string, fail failure[T]) func() T {
	return func() T {
		return fail(oicp.NoValidContract(role))
	}
}

func noContract(role string, sessions oicp.Sessions) func() *oicp.Acknowledgement {
	return func() *oicp.Acknowledgement {
		return oicp.NoValidContractAcknowledgement(role, sessions)
	}
}

// dispatch routes req to the client registered under key. It never returns nil.
func dispatch[K comparable, C any, T any](
	ctx context.Context,
	s *Service,
	reg *registry.Registry[K, C],
	key K,
	req oicp.Request,
	call func(context.Context, C) *oicp.Result[T],
	fail failure[T],
	unknown func() T,
) *oicp.Result[T] {
	op := req.Operation()
	partner := fmt.Sprint(key)
	processID := oicp.NewProcessID()
	ctx = oicp.WithProcessID(ctx, processID)
	started := time.Now()

	s.begin(ctx, op, partner, processID, req, started)

	var result *oicp.Result[T]
	if client, ok := reg.TryGet(key); ok {
		result = invoke(ctx, s.timeout, req, processID, func(ctx context.Context) *oicp.Result[T] {
			return call(ctx, client)
		}, fail)
	} else {
		result = oicp.Failed(req, unknown(), processID)
	}

	return finish(ctx, s, op, partner, result, started)
}

// invoke runs one client call bounded by timeout. Panics, nil results and an
// expired context all come back as a failed result carrying processID.
func invoke[T any](ctx context.Context, timeout time.Duration, req oicp.Request, processID oicp.ProcessID, call target[T], fail failure[T]) *oicp.Result[T] {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan *oicp.Result[T], 1)
	go func() {
		var result *oicp.Result[T]
		defer func() {
			if r := recover(); r != nil {
				status := oicp.NewStatusCode(oicp.CodeSystemError, "Partner client failure")
				result = oicp.Failed(req, fail(status), processID).
					WithFailure(&oicp.HTTPFailure{Err: fmt.Errorf("panic: %v", r)})
			}
			done <- result
		}()
		result = call(ctx)
	}()

	select {
	case result := <-done:
		if result == nil || oicp.IsNil(result.Response) {
			status := oicp.NewStatusCode(oicp.CodeSystemError, "Empty partner response")
			return oicp.Failed(req, fail(status), processID)
		}
		if result.ProcessID == "" {
			result.ProcessID = processID
		}
		return result
	case <-ctx.Done():
		err := ctx.Err()
		status := oicp.NewStatusCode(oicp.CodeRequestTimeout, "")
		if !errors.Is(err, context.DeadlineExceeded) {
			status = oicp.NewStatusCode(oicp.CodeSystemError, "Request cancelled")
		}
		return oicp.Failed(req, fail(status), processID).WithFailure(&oicp.HTTPFailure{Err: err})
	}
}

func (s *Service) begin(ctx context.Context, op, partner string, processID oicp.ProcessID, req oicp.Request, started time.Time) {
	s.counter(op).IncRequestsOK()
	s.emitter.Notify(ctx, &telemetry.Event{
		Kind:      telemetry.KindRequest,
		Operation: op,
		ProcessID: processID,
		Timestamp: started,
		Partner:   partner,
		Request:   req,
	})
}

func finish[T any](ctx context.Context, s *Service, op, partner string, result *oicp.Result[T], started time.Time) *oicp.Result[T] {
	result.WithRuntime(time.Since(started))
	stamp(result)

	c := s.counter(op)
	if result.IsSuccessful {
		c.IncResponsesOK()
	} else {
		c.IncResponsesError()
	}
	s.emitter.Notify(ctx, &telemetry.Event{
		Kind:       telemetry.KindResponse,
		Operation:  op,
		ProcessID:  result.ProcessID,
		Timestamp:  time.Now(),
		Partner:    partner,
		Request:    result.Request,
		Response:   result.Response,
		Successful: result.IsSuccessful,
		Runtime:    result.Runtime,
	})
	s.logResult(op, partner, result.IsSuccessful, result.Runtime, result.Response, result.Failure)
	return result
}

// stamp copies the correlation data of result into an Acknowledgement
// response, keeping values a partner client already filled in.
func stamp[T any](result *oicp.Result[T]) {
	ack, ok := any(result.Response).(*oicp.Acknowledgement)
	if !ok || ack == nil {
		return
	}
	if ack.ProcessID == "" {
		ack.ProcessID = result.ProcessID
	}
	if ack.Runtime == 0 {
		ack.Runtime = result.Runtime
	}
}

func (s *Service) invalid(op string) error {
	s.counter(op).IncRequestsError()
	return fmt.Errorf("%s: %w", op, ErrInvalidArgument)
}

// counter never returns nil: every operation the service serves is in the set.
func (s *Service) counter(op string) *counters.APICounterValues {
	if c := s.counters.Get(op); c != nil {
		return c
	}
	return &counters.APICounterValues{}
}
