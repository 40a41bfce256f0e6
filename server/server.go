// Package server is the inbound OICP surface: one POST route per operation,
// each forwarding to a single handler slot.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"evroaming/internal"
	"evroaming/internal/config"
	"evroaming/oicp"
	"evroaming/utility"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
)

const maxBodySize = 4 << 20

// Call describes an inbound request as seen by a handler.
type Call struct {
	Timestamp time.Time
	// Sender is the partner id taken from the route path.
	Sender    string
	Remote    string
	ProcessID oicp.ProcessID
}

// Handler answers one inbound operation. Returning nil is reported to the
// caller as a system error.
type Handler[Req, Resp any] func(ctx context.Context, call *Call, req *Req) *Resp

// Endpoint selects how the server reaches the network.
type Endpoint interface {
	endpoint()
}

// OwnsTransport makes the server run its own http.Server.
type OwnsTransport struct {
	Listen config.Listen
}

// AttachesTo adds the routes to a router served elsewhere; Start does nothing.
type AttachesTo struct {
	Router *httprouter.Router
}

func (OwnsTransport) endpoint() {}
func (AttachesTo) endpoint()    {}

type slot[Req, Resp any] struct {
	mu      sync.RWMutex
	handler Handler[Req, Resp]
}

func (s *slot[Req, Resp]) set(h Handler[Req, Resp]) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

func (s *slot[Req, Resp]) get() Handler[Req, Resp] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler
}

type Server struct {
	router     *httprouter.Router
	listen     *config.Listen
	httpServer *http.Server
	logger     internal.LogHandler

	pullEVSEData           slot[oicp.PullEVSEDataRequest, oicp.PullEVSEDataResponse]
	pullEVSEStatus         slot[oicp.PullEVSEStatusRequest, oicp.PullEVSEStatusResponse]
	pushEVSEData           slot[oicp.PushEVSEDataRequest, oicp.Acknowledgement]
	pushEVSEStatus         slot[oicp.PushEVSEStatusRequest, oicp.Acknowledgement]
	authorizeStart         slot[oicp.AuthorizeStartRequest, oicp.AuthorizationStartResponse]
	authorizeStop          slot[oicp.AuthorizeStopRequest, oicp.AuthorizationStopResponse]
	authorizeRemoteStart   slot[oicp.AuthorizeRemoteStartRequest, oicp.Acknowledgement]
	authorizeRemoteStop    slot[oicp.AuthorizeRemoteStopRequest, oicp.Acknowledgement]
	sendChargeDetailRecord slot[oicp.SendChargeDetailRecordRequest, oicp.Acknowledgement]
}

func NewServer(endpoint Endpoint, logger internal.LogHandler) *Server {
	s := &Server{logger: logger}
	switch e := endpoint.(type) {
	case OwnsTransport:
		s.router = httprouter.New()
		listen := e.Listen
		s.listen = &listen
		s.httpServer = &http.Server{
			Handler:           s.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
	case AttachesTo:
		s.router = e.Router
	}
	if s.router == nil {
		panic("server: endpoint without router")
	}
	s.Register(s.router)
	return s
}

// Router returns the router the OICP routes live on, for extra routes.
func (s *Server) Router() *httprouter.Router {
	return s.router
}

func (s *Server) SetOnPullEVSEData(h Handler[oicp.PullEVSEDataRequest, oicp.PullEVSEDataResponse]) {
	s.pullEVSEData.set(h)
}

func (s *Server) SetOnPullEVSEStatus(h Handler[oicp.PullEVSEStatusRequest, oicp.PullEVSEStatusResponse]) {
	s.pullEVSEStatus.set(h)
}

func (s *Server) SetOnPushEVSEData(h Handler[oicp.PushEVSEDataRequest, oicp.Acknowledgement]) {
	s.pushEVSEData.set(h)
}

func (s *Server) SetOnPushEVSEStatus(h Handler[oicp.PushEVSEStatusRequest, oicp.Acknowledgement]) {
	s.pushEVSEStatus.set(h)
}

func (s *Server) SetOnAuthorizeStart(h Handler[oicp.AuthorizeStartRequest, oicp.AuthorizationStartResponse]) {
	s.authorizeStart.set(h)
}

func (s *Server) SetOnAuthorizeStop(h Handler[oicp.AuthorizeStopRequest, oicp.AuthorizationStopResponse]) {
	s.authorizeStop.set(h)
}

func (s *Server) SetOnAuthorizeRemoteStart(h Handler[oicp.AuthorizeRemoteStartRequest, oicp.Acknowledgement]) {
	s.authorizeRemoteStart.set(h)
}

func (s *Server) SetOnAuthorizeRemoteStop(h Handler[oicp.AuthorizeRemoteStopRequest, oicp.Acknowledgement]) {
	s.authorizeRemoteStop.set(h)
}

func (s *Server) SetOnSendChargeDetailRecord(h Handler[oicp.SendChargeDetailRecordRequest, oicp.Acknowledgement]) {
	s.sendChargeDetailRecord.set(h)
}

func (s *Server) Register(router *httprouter.Router) {
	for _, route := range oicp.Routes {
		var h httprouter.Handle
		switch route.Operation {
		case oicp.PullEVSEDataOperation:
			h = serve(s, route, &s.pullEVSEData, func(status oicp.StatusCode) any {
				return &oicp.PullEVSEDataResponse{StatusCode: status}
			})
		case oicp.PullEVSEStatusOperation:
			h = serve(s, route, &s.pullEVSEStatus, func(status oicp.StatusCode) any {
				return &oicp.PullEVSEStatusResponse{StatusCode: status}
			})
		case oicp.PushEVSEDataOperation:
			h = serve(s, route, &s.pushEVSEData, negativeAck)
		case oicp.PushEVSEStatusOperation:
			h = serve(s, route, &s.pushEVSEStatus, negativeAck)
		case oicp.AuthorizeStartOperation:
			h = serve(s, route, &s.authorizeStart, func(status oicp.StatusCode) any {
				return oicp.NotAuthorizedStart(status, oicp.Sessions{})
			})
		case oicp.AuthorizeStopOperation:
			h = serve(s, route, &s.authorizeStop, func(status oicp.StatusCode) any {
				return oicp.NotAuthorizedStop(status, oicp.Sessions{})
			})
		case oicp.AuthorizeRemoteStartOperation:
			h = serve(s, route, &s.authorizeRemoteStart, negativeAck)
		case oicp.AuthorizeRemoteStopOperation:
			h = serve(s, route, &s.authorizeRemoteStop, negativeAck)
		case oicp.SendChargeDetailRecordOperation:
			h = serve(s, route, &s.sendChargeDetailRecord, negativeAck)
		default:
			continue
		}
		router.POST(route.Path, h)
	}
}

func negativeAck(status oicp.StatusCode) any {
	return oicp.NewAcknowledgement(false, status, oicp.Sessions{})
}

func serve[Req, Resp any](s *Server, route oicp.Route, sl *slot[Req, Resp], fail func(oicp.StatusCode) any) httprouter.Handle {
	op := route.Operation
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		call := &Call{
			Timestamp: time.Now().UTC(),
			Sender:    params.ByName(route.Param),
			Remote:    r.RemoteAddr,
			ProcessID: oicp.ProcessID(r.Header.Get("Process-ID")),
		}
		if call.ProcessID == "" {
			call.ProcessID = oicp.NewProcessID()
		}
		status := http.StatusOK
		defer func() {
			observeCall(op, status, time.Since(call.Timestamp).Seconds())
		}()

		handler := sl.get()
		if handler == nil {
			s.warn("%s from %s: no handler", op, call.Remote)
			status = http.StatusNotImplemented
			s.writeJSON(w, status, fail(oicp.NewStatusCode(oicp.CodeSystemError, "Operation not supported")))
			return
		}

		req := new(Req)
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err == nil {
			err = json.Unmarshal(body, req)
		}
		if err == nil && call.Sender != "" {
			if rq, ok := any(req).(oicp.Request); ok {
				err = oicp.ApplyPathValue(rq, call.Sender)
			}
		}
		if err != nil {
			s.warn("%s from %s: malformed request: %s", op, call.Remote, err)
			status = http.StatusBadRequest
			s.writeJSON(w, status, fail(oicp.NewStatusCode(oicp.CodeDataError, "Malformed request").WithInfo(err.Error())))
			return
		}

		ctx := oicp.WithProcessID(r.Context(), call.ProcessID)
		resp := handler(ctx, call, req)
		if resp == nil {
			status = http.StatusInternalServerError
			s.writeJSON(w, status, fail(oicp.NewStatusCode(oicp.CodeSystemError, "")))
			return
		}
		s.writeJSON(w, status, resp)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("encoding response", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err = w.Write(data); err != nil && s.logger != nil {
		s.logger.Error("writing response", err)
	}
}

func (s *Server) warn(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(fmt.Sprintf(format, args...))
	}
}

// Start serves until the server is shut down. An attached server returns at once.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return nil
	}
	if s.listen == nil {
		return utility.Err("listen configuration not loaded")
	}
	serverAddress := fmt.Sprintf("%s:%s", s.listen.BindIP, s.listen.Port)
	if s.logger != nil {
		s.logger.Debug(fmt.Sprintf("starting server on %s", serverAddress))
	}
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}
	if s.listen.TLS {
		err = s.httpServer.ServeTLS(listener, s.listen.CertFile, s.listen.KeyFile)
	} else {
		err = s.httpServer.Serve(listener)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
