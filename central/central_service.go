// Package central is the roaming hub: it routes calls between charge point
// operators and e-mobility providers registered with it.
package central

import (
	"errors"
	"evroaming/internal"
	"evroaming/metrics/counters"
	"evroaming/oicp"
	"evroaming/registry"
	"evroaming/telemetry"
	"time"
)

// ErrInvalidArgument is returned for a nil request or a request without routing key.
var ErrInvalidArgument = errors.New("central: invalid argument")

const defaultRequestTimeout = 20 * time.Second

type Service struct {
	CPOs *registry.Registry[oicp.OperatorID, CPOClient]
	EMPs *registry.Registry[oicp.ProviderID, EMPClient]

	counters *counters.Set
	emitter  *telemetry.Emitter
	logger   internal.LogHandler
	timeout  time.Duration
}

func NewService(logger internal.LogHandler, requestTimeout time.Duration) *Service {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &Service{
		CPOs:     registry.New[oicp.OperatorID, CPOClient](),
		EMPs:     registry.New[oicp.ProviderID, EMPClient](),
		counters: counters.NewSet(oicp.Operations...),
		emitter:  telemetry.NewEmitter(logger, oicp.Operations...),
		logger:   logger,
		timeout:  requestTimeout,
	}
}

func (s *Service) Counters() *counters.Set {
	return s.counters
}

func (s *Service) Telemetry() *telemetry.Emitter {
	return s.emitter
}

func (s *Service) RequestTimeout() time.Duration {
	return s.timeout
}

// RegisterCPO adds an operator client; false means the id was already taken.
func (s *Service) RegisterCPO(id oicp.OperatorID, client CPOClient) bool {
	if id.IsZero() || client == nil {
		return false
	}
	if !s.CPOs.Register(id, client) {
		s.warn("operator %s is already registered", id)
		return false
	}
	return true
}

func (s *Service) RegisterEMP(id oicp.ProviderID, client EMPClient) bool {
	if id.IsZero() || client == nil {
		return false
	}
	if !s.EMPs.Register(id, client) {
		s.warn("provider %s is already registered", id)
		return false
	}
	return true
}

// Close releases every registered client.
func (s *Service) Close() error {
	return errors.Join(s.CPOs.Close(), s.EMPs.Close())
}
