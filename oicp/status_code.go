package oicp

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type Code int

const (
	CodeSuccess                         Code = 0
	CodeHubSystemError                  Code = 1
	CodeHubDatabaseError                Code = 2
	CodeDataTransactionError            Code = 9
	CodeUnauthorizedAccess              Code = 17
	CodeInconsistentEVSEID              Code = 18
	CodeInconsistentEVCOID              Code = 19
	CodeSystemError                     Code = 21
	CodeDataError                       Code = 22
	CodeQRCodeAuthenticationFailed      Code = 101
	CodeRFIDAuthenticationFailed        Code = 102
	CodePINAuthenticationFailed         Code = 105
	CodeParkingPlaceNotFound            Code = 106
	CodeNoValidContract                 Code = 110
	CodePartnerNotFound                 Code = 120
	CodeNoEVConnected                   Code = 140
	CodeEVSEAlreadyReserved             Code = 141
	CodeEVSEAlreadyInUse                Code = 142
	CodeUnknownEVSEID                   Code = 143
	CodeEVSEOutOfService                Code = 145
	CodeNoPositiveAuthorizationResponse Code = 210
	CodeSessionIsInvalid                Code = 300
	CodeCommunicationToEVSEFailed       Code = 400
	CodeRequestTimeout                  Code = 501
)

var codeText = map[Code]string{
	CodeSuccess:                         "Success",
	CodeHubSystemError:                  "Hub system error",
	CodeHubDatabaseError:                "Hub database error",
	CodeDataTransactionError:            "Data transaction error",
	CodeUnauthorizedAccess:              "Unauthorized access",
	CodeInconsistentEVSEID:              "Inconsistent EVSE ID",
	CodeInconsistentEVCOID:              "Inconsistent EVCO ID",
	CodeSystemError:                     "System error",
	CodeDataError:                       "Data error",
	CodeQRCodeAuthenticationFailed:      "QR code authentication failed",
	CodeRFIDAuthenticationFailed:        "RFID authentication failed",
	CodePINAuthenticationFailed:         "PIN authentication failed",
	CodeParkingPlaceNotFound:            "Parking place not found",
	CodeNoValidContract:                 "No valid contract",
	CodePartnerNotFound:                 "Partner not found",
	CodeNoEVConnected:                   "No EV connected to EVSE",
	CodeEVSEAlreadyReserved:             "EVSE already reserved",
	CodeEVSEAlreadyInUse:                "EVSE already in use",
	CodeUnknownEVSEID:                   "Unknown EVSE ID",
	CodeEVSEOutOfService:                "EVSE out of service",
	CodeNoPositiveAuthorizationResponse: "No positive authorization response",
	CodeSessionIsInvalid:                "Session is invalid",
	CodeCommunicationToEVSEFailed:       "Communication to EVSE failed",
	CodeRequestTimeout:                  "Request timeout",
}

func (c Code) String() string {
	return fmt.Sprintf("%03d", int(c))
}

// Text returns the registered description, or empty for codes outside the table.
func (c Code) Text() string {
	return codeText[c]
}

// Codes travel as three-digit strings ("110"), bare numbers are accepted on input.
func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Code) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("status code: %w", err)
		}
		*c = Code(n)
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("status code %q: %w", s, err)
	}
	*c = Code(n)
	return nil
}

type StatusCode struct {
	Code           Code   `json:"Code"`
	Description    string `json:"Description,omitempty"`
	AdditionalInfo string `json:"AdditionalInfo,omitempty"`
}

// NewStatusCode builds a status code, falling back to the table text when description is empty.
func NewStatusCode(code Code, description string) StatusCode {
	if description == "" {
		description = code.Text()
	}
	return StatusCode{Code: code, Description: description}
}

// NoValidContract answers a call addressed to a role with no registered partner.
func NoValidContract(role string) StatusCode {
	return NewStatusCode(CodeNoValidContract, "Unknown "+role)
}

func (s StatusCode) WithInfo(info string) StatusCode {
	s.AdditionalInfo = info
	return s
}

func (s StatusCode) IsSuccess() bool {
	return s.Code == CodeSuccess
}

func (s StatusCode) String() string {
	if s.Description == "" {
		return s.Code.String()
	}
	return s.Code.String() + " " + s.Description
}

// StatusOf returns the status carried by a response of any operation.
func StatusOf(response any) (StatusCode, bool) {
	switch r := response.(type) {
	case *Acknowledgement:
		if r != nil {
			return r.StatusCode, true
		}
	case *AuthorizationStartResponse:
		if r != nil {
			return r.StatusCode, true
		}
	case *AuthorizationStopResponse:
		if r != nil {
			return r.StatusCode, true
		}
	case *PullEVSEDataResponse:
		if r != nil {
			return r.StatusCode, true
		}
	case *PullEVSEStatusResponse:
		if r != nil {
			return r.StatusCode, true
		}
	}
	return StatusCode{}, false
}
