package oicp

import (
	"fmt"
	"strings"
)

const (
	ParamOperatorID = "operatorID"
	ParamProviderID = "providerID"
)

// Route binds an operation to its REST path. Path uses httprouter syntax so the
// inbound surface can register it directly; the client expands it.
type Route struct {
	Operation string
	Path      string
	Param     string
}

var Routes = []Route{
	{PullEVSEDataOperation, "/api/oicp/evsepull/v23/providers/:providerID/data-records", ParamProviderID},
	{PullEVSEStatusOperation, "/api/oicp/evsepull/v21/providers/:providerID/status-records", ParamProviderID},
	{PushEVSEDataOperation, "/api/oicp/evsepush/v23/operators/:operatorID/data-records", ParamOperatorID},
	{PushEVSEStatusOperation, "/api/oicp/evsepush/v21/operators/:operatorID/status-records", ParamOperatorID},
	{AuthorizeStartOperation, "/api/oicp/charging/v21/operators/:operatorID/authorize/start", ParamOperatorID},
	{AuthorizeStopOperation, "/api/oicp/charging/v21/operators/:operatorID/authorize/stop", ParamOperatorID},
	{AuthorizeRemoteStartOperation, "/api/oicp/charging/v21/providers/:providerID/authorize-remote/start", ParamProviderID},
	{AuthorizeRemoteStopOperation, "/api/oicp/charging/v21/providers/:providerID/authorize-remote/stop", ParamProviderID},
	{SendChargeDetailRecordOperation, "/api/oicp/cdrmgmt/v22/operators/:operatorID/charge-detail-record", ParamOperatorID},
}

func RouteFor(operation string) (Route, bool) {
	for _, r := range Routes {
		if r.Operation == operation {
			return r, true
		}
	}
	return Route{}, false
}

// Expand fills the path parameter with value.
func (r Route) Expand(value string) string {
	return strings.Replace(r.Path, ":"+r.Param, value, 1)
}

// PathValue returns the identifier a request puts into its route path.
func PathValue(req Request) (string, error) {
	var value string
	switch r := req.(type) {
	case *PullEVSEDataRequest:
		value = r.ProviderID.String()
	case *PullEVSEStatusRequest:
		value = r.ProviderID.String()
	case *PushEVSEDataRequest:
		value = r.OperatorEVSEData.OperatorID.String()
	case *PushEVSEStatusRequest:
		value = r.OperatorEVSEStatus.OperatorID.String()
	case *AuthorizeStartRequest:
		value = r.OperatorID.String()
	case *AuthorizeStopRequest:
		value = r.OperatorID.String()
	case *AuthorizeRemoteStartRequest:
		value = r.ProviderID.String()
	case *AuthorizeRemoteStopRequest:
		value = r.ProviderID.String()
	case *SendChargeDetailRecordRequest:
		value = r.OperatorID.String()
	default:
		return "", fmt.Errorf("no route for %T", req)
	}
	if value == "" {
		return "", fmt.Errorf("%s: empty path identifier", req.Operation())
	}
	return value, nil
}

// ApplyPathValue copies the identifier taken from an inbound path into a
// request whose body left it empty. A body value always wins.
func ApplyPathValue(req Request, value string) error {
	switch r := req.(type) {
	case *PullEVSEDataRequest:
		return fillProvider(&r.ProviderID, value)
	case *PullEVSEStatusRequest:
		return fillProvider(&r.ProviderID, value)
	case *PushEVSEDataRequest:
		return fillOperator(&r.OperatorEVSEData.OperatorID, value)
	case *PushEVSEStatusRequest:
		return fillOperator(&r.OperatorEVSEStatus.OperatorID, value)
	case *AuthorizeStartRequest:
		return fillOperator(&r.OperatorID, value)
	case *AuthorizeStopRequest:
		return fillOperator(&r.OperatorID, value)
	case *AuthorizeRemoteStartRequest:
		return fillProvider(&r.ProviderID, value)
	case *AuthorizeRemoteStopRequest:
		return fillProvider(&r.ProviderID, value)
	case *SendChargeDetailRecordRequest:
		return fillOperator(&r.OperatorID, value)
	}
	return fmt.Errorf("no route for %T", req)
}

func fillOperator(id *OperatorID, value string) error {
	if !id.IsZero() {
		return nil
	}
	parsed, err := ParseOperatorID(value)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func fillProvider(id *ProviderID, value string) error {
	if !id.IsZero() {
		return nil
	}
	parsed, err := ParseProviderID(value)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
