package central

import (
	"context"
	"evroaming/oicp"
	"sync/atomic"
	"time"
)

// behaviour shared by the fake partners.
type behaviour struct {
	delay     time.Duration
	panics    bool
	nilResult bool
	calls     atomic.Int32
}

// run reports false when ctx expired before the fake answered.
func (b *behaviour) run(ctx context.Context) bool {
	b.calls.Add(1)
	if b.panics {
		panic("partner exploded")
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func timedOut[T any](req oicp.Request, resp T, ctx context.Context) *oicp.Result[T] {
	return oicp.Failed(req, resp, oicp.ProcessIDFrom(ctx)).WithFailure(&oicp.HTTPFailure{Err: ctx.Err()})
}

func timeoutStatus() oicp.StatusCode {
	return oicp.NewStatusCode(oicp.CodeRequestTimeout, "")
}

type fakeCPO struct {
	behaviour
	lastProcessID atomic.Value
}

func (f *fakeCPO) seen(ctx context.Context) {
	f.lastProcessID.Store(oicp.ProcessIDFrom(ctx))
}

func (f *fakeCPO) PullEVSEData(ctx context.Context, req *oicp.PullEVSEDataRequest) *oicp.Result[*oicp.PullEVSEDataResponse] {
	f.seen(ctx)
	if !f.run(ctx) {
		return timedOut(req, &oicp.PullEVSEDataResponse{StatusCode: timeoutStatus()}, ctx)
	}
	if f.nilResult {
		return nil
	}
	return oicp.Success(req, &oicp.PullEVSEDataResponse{
		OperatorEVSEData: []oicp.OperatorEVSEData{{OperatorID: req.OperatorID}},
		StatusCode:       oicp.NewStatusCode(oicp.CodeSuccess, ""),
	}, oicp.ProcessIDFrom(ctx))
}

func (f *fakeCPO) PullEVSEStatus(ctx context.Context, req *oicp.PullEVSEStatusRequest) *oicp.Result[*oicp.PullEVSEStatusResponse] {
	f.seen(ctx)
	if !f.run(ctx) {
		return timedOut(req, &oicp.PullEVSEStatusResponse{StatusCode: timeoutStatus()}, ctx)
	}
	if f.nilResult {
		return nil
	}
	return oicp.Success(req, &oicp.PullEVSEStatusResponse{
		OperatorEVSEStatus: []oicp.OperatorEVSEStatus{{OperatorID: req.OperatorID}},
		StatusCode:         oicp.NewStatusCode(oicp.CodeSuccess, ""),
	}, oicp.ProcessIDFrom(ctx))
}

func (f *fakeCPO) AuthorizeRemoteStart(ctx context.Context, req *oicp.AuthorizeRemoteStartRequest) *oicp.Result[*oicp.Acknowledgement] {
	f.seen(ctx)
	if !f.run(ctx) {
		return timedOut(req, oicp.NewAcknowledgement(false, timeoutStatus(), req.Sessions()), ctx)
	}
	return oicp.Success(req, oicp.AcceptedAcknowledgement(req.Sessions()), oicp.ProcessIDFrom(ctx))
}

func (f *fakeCPO) AuthorizeRemoteStop(ctx context.Context, req *oicp.AuthorizeRemoteStopRequest) *oicp.Result[*oicp.Acknowledgement] {
	f.seen(ctx)
	if !f.run(ctx) {
		return timedOut(req, oicp.NewAcknowledgement(false, timeoutStatus(), req.Sessions()), ctx)
	}
	return oicp.Success(req, oicp.AcceptedAcknowledgement(req.Sessions()), oicp.ProcessIDFrom(ctx))
}

type fakeEMP struct {
	behaviour
	id         oicp.ProviderID
	authorized bool
	accepts    bool
}

func (f *fakeEMP) AuthorizeStart(ctx context.Context, req *oicp.AuthorizeStartRequest) *oicp.Result[*oicp.AuthorizationStartResponse] {
	if !f.run(ctx) {
		return timedOut(req, oicp.NotAuthorizedStart(timeoutStatus(), req.Sessions()), ctx)
	}
	if f.nilResult {
		return nil
	}
	resp := oicp.NotAuthorizedStart(oicp.NewStatusCode(oicp.CodeRFIDAuthenticationFailed, ""), req.Sessions())
	if f.authorized {
		resp.AuthorizationStatus = oicp.AuthorizationStatusAuthorized
		resp.StatusCode = oicp.NewStatusCode(oicp.CodeSuccess, "")
	}
	id := f.id
	resp.ProviderID = &id
	return oicp.Success(req, resp, oicp.ProcessIDFrom(ctx))
}

func (f *fakeEMP) AuthorizeStop(ctx context.Context, req *oicp.AuthorizeStopRequest) *oicp.Result[*oicp.AuthorizationStopResponse] {
	if !f.run(ctx) {
		return timedOut(req, oicp.NotAuthorizedStop(timeoutStatus(), req.Sessions()), ctx)
	}
	resp := oicp.NotAuthorizedStop(oicp.NewStatusCode(oicp.CodeNoValidContract, ""), req.Sessions())
	if f.authorized {
		resp.AuthorizationStatus = oicp.AuthorizationStatusAuthorized
		resp.StatusCode = oicp.NewStatusCode(oicp.CodeSuccess, "")
	}
	id := f.id
	resp.ProviderID = &id
	return oicp.Success(req, resp, oicp.ProcessIDFrom(ctx))
}

func (f *fakeEMP) ack(ctx context.Context, req oicp.Request, sessions oicp.Sessions) *oicp.Result[*oicp.Acknowledgement] {
	if !f.run(ctx) {
		return timedOut(req, oicp.NewAcknowledgement(false, timeoutStatus(), sessions), ctx)
	}
	if f.accepts {
		return oicp.Success(req, oicp.AcceptedAcknowledgement(sessions), oicp.ProcessIDFrom(ctx))
	}
	return oicp.Success(req, oicp.NewAcknowledgement(false, oicp.NewStatusCode(oicp.CodeDataError, ""), sessions), oicp.ProcessIDFrom(ctx))
}

func (f *fakeEMP) PushEVSEData(ctx context.Context, req *oicp.PushEVSEDataRequest) *oicp.Result[*oicp.Acknowledgement] {
	return f.ack(ctx, req, oicp.Sessions{})
}

func (f *fakeEMP) PushEVSEStatus(ctx context.Context, req *oicp.PushEVSEStatusRequest) *oicp.Result[*oicp.Acknowledgement] {
	return f.ack(ctx, req, oicp.Sessions{})
}

func (f *fakeEMP) SendChargeDetailRecord(ctx context.Context, req *oicp.SendChargeDetailRecordRequest) *oicp.Result[*oicp.Acknowledgement] {
	return f.ack(ctx, req, req.Sessions())
}
