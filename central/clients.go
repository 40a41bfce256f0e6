package central

import (
	"context"
	"evroaming/oicp"
)

// CPOClient is the outbound side towards a charge point operator.
// Implementations report ordinary failures as failed results, never by panicking,
// and bound every call by the deadline of ctx.
type CPOClient interface {
	PullEVSEData(ctx context.Context, req *oicp.PullEVSEDataRequest) *oicp.Result[*oicp.PullEVSEDataResponse]
	PullEVSEStatus(ctx context.Context, req *oicp.PullEVSEStatusRequest) *oicp.Result[*oicp.PullEVSEStatusResponse]
	AuthorizeRemoteStart(ctx context.Context, req *oicp.AuthorizeRemoteStartRequest) *oicp.Result[*oicp.Acknowledgement]
	AuthorizeRemoteStop(ctx context.Context, req *oicp.AuthorizeRemoteStopRequest) *oicp.Result[*oicp.Acknowledgement]
}

// EMPClient is the outbound side towards an e-mobility provider.
type EMPClient interface {
	AuthorizeStart(ctx context.Context, req *oicp.AuthorizeStartRequest) *oicp.Result[*oicp.AuthorizationStartResponse]
	AuthorizeStop(ctx context.Context, req *oicp.AuthorizeStopRequest) *oicp.Result[*oicp.AuthorizationStopResponse]
	PushEVSEData(ctx context.Context, req *oicp.PushEVSEDataRequest) *oicp.Result[*oicp.Acknowledgement]
	PushEVSEStatus(ctx context.Context, req *oicp.PushEVSEStatusRequest) *oicp.Result[*oicp.Acknowledgement]
	SendChargeDetailRecord(ctx context.Context, req *oicp.SendChargeDetailRecordRequest) *oicp.Result[*oicp.Acknowledgement]
}
