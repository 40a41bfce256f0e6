package central

import (
	"evroaming/oicp"
	"fmt"
	"time"
)

// statusOf renders the status of a relayed response for log lines.
func statusOf(response any) string {
	status, ok := oicp.StatusOf(response)
	if !ok {
		return "-"
	}
	if r, ok := response.(interface{ IsAuthorized() bool }); ok && r.IsAuthorized() {
		return fmt.Sprintf("%s %s", oicp.AuthorizationStatusAuthorized, status)
	}
	return status.String()
}

func (s *Service) logResult(op, partner string, successful bool, runtime time.Duration, response any, failure *oicp.HTTPFailure) {
	if s.logger == nil {
		return
	}
	runtime = runtime.Round(time.Millisecond)
	if successful {
		s.logger.FeatureEvent(op, partner, fmt.Sprintf("%s in %v", statusOf(response), runtime))
		return
	}
	if failure != nil {
		s.logger.Warn(fmt.Sprintf("%s %s: failed in %v: %s: %v", op, partner, runtime, statusOf(response), failure))
		return
	}
	s.logger.Warn(fmt.Sprintf("%s %s: failed in %v: %s", op, partner, runtime, statusOf(response)))
}

func (s *Service) debug(format string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(fmt.Sprintf(format, args...))
	}
}

func (s *Service) warn(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(fmt.Sprintf(format, args...))
	}
}
