package central

import (
	"context"
	"evroaming/oicp"
	"evroaming/server"
)

func invalidStatus() oicp.StatusCode {
	return oicp.NewStatusCode(oicp.CodeDataError, "Missing routing identifier")
}

// Attach points every inbound slot of srv at the hub.
func (s *Service) Attach(srv *server.Server) {
	srv.SetOnPullEVSEData(func(ctx context.Context, _ *server.Call, req *oicp.PullEVSEDataRequest) *oicp.PullEVSEDataResponse {
		result, err := s.PullEVSEData(ctx, req)
		if err != nil {
			return &oicp.PullEVSEDataResponse{StatusCode: invalidStatus()}
		}
		return result.Response
	})
	srv.SetOnPullEVSEStatus(func(ctx context.Context, _ *server.Call, req *oicp.PullEVSEStatusRequest) *oicp.PullEVSEStatusResponse {
		result, err := s.PullEVSEStatus(ctx, req)
		if err != nil {
			return &oicp.PullEVSEStatusResponse{StatusCode: invalidStatus()}
		}
		return result.Response
	})
	srv.SetOnAuthorizeRemoteStart(func(ctx context.Context, _ *server.Call, req *oicp.AuthorizeRemoteStartRequest) *oicp.Acknowledgement {
		return ackOf(s.AuthorizeRemoteStart(ctx, req))
	})
	srv.SetOnAuthorizeRemoteStop(func(ctx context.Context, _ *server.Call, req *oicp.AuthorizeRemoteStopRequest) *oicp.Acknowledgement {
		return ackOf(s.AuthorizeRemoteStop(ctx, req))
	})
	srv.SetOnSendChargeDetailRecord(func(ctx context.Context, _ *server.Call, req *oicp.SendChargeDetailRecordRequest) *oicp.Acknowledgement {
		return ackOf(s.SendChargeDetailRecord(ctx, req))
	})
	srv.SetOnPushEVSEData(func(ctx context.Context, _ *server.Call, req *oicp.PushEVSEDataRequest) *oicp.Acknowledgement {
		return ackOf(s.PushEVSEData(ctx, req))
	})
	srv.SetOnPushEVSEStatus(func(ctx context.Context, _ *server.Call, req *oicp.PushEVSEStatusRequest) *oicp.Acknowledgement {
		return ackOf(s.PushEVSEStatus(ctx, req))
	})
	srv.SetOnAuthorizeStart(func(ctx context.Context, _ *server.Call, req *oicp.AuthorizeStartRequest) *oicp.AuthorizationStartResponse {
		result, err := s.AuthorizeStart(ctx, req)
		if err != nil {
			return oicp.NotAuthorizedStart(invalidStatus(), oicp.Sessions{})
		}
		return result.Response
	})
	srv.SetOnAuthorizeStop(func(ctx context.Context, _ *server.Call, req *oicp.AuthorizeStopRequest) *oicp.AuthorizationStopResponse {
		result, err := s.AuthorizeStop(ctx, req)
		if err != nil {
			return oicp.NotAuthorizedStop(invalidStatus(), oicp.Sessions{})
		}
		return result.Response
	})
}

func ackOf(result *oicp.Result[*oicp.Acknowledgement], err error) *oicp.Acknowledgement {
	if err != nil {
		return oicp.NewAcknowledgement(false, invalidStatus(), oicp.Sessions{})
	}
	return result.Response
}
