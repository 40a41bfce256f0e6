package oicp

import "time"

// Acknowledgement answers the fire-and-confirm operations: pushes, remote
// start/stop and charge detail records.
type Acknowledgement struct {
	Result              bool       `json:"Result"`
	StatusCode          StatusCode `json:"StatusCode"`
	SessionID           string     `json:"SessionID,omitempty"`
	CPOPartnerSessionID string     `json:"CPOPartnerSessionID,omitempty"`
	EMPPartnerSessionID string     `json:"EMPPartnerSessionID,omitempty"`

	ProcessID         ProcessID     `json:"-"`
	Runtime           time.Duration `json:"-"`
	ResponseTimestamp time.Time     `json:"-"`
}

// Sessions groups the correlation tokens the caller hands in and gets echoed back.
type Sessions struct {
	SessionID           string
	CPOPartnerSessionID string
	EMPPartnerSessionID string
}

func NewAcknowledgement(result bool, status StatusCode, sessions Sessions) *Acknowledgement {
	return &Acknowledgement{
		Result:              result,
		StatusCode:          status,
		SessionID:           sessions.SessionID,
		CPOPartnerSessionID: sessions.CPOPartnerSessionID,
		EMPPartnerSessionID: sessions.EMPPartnerSessionID,
		ResponseTimestamp:   time.Now().UTC(),
	}
}

func AcceptedAcknowledgement(sessions Sessions) *Acknowledgement {
	return NewAcknowledgement(true, NewStatusCode(CodeSuccess, ""), sessions)
}

// NoValidContractAcknowledgement is what the dispatcher answers when no
// partner is registered for the addressed role ("operator", "provider").
func NoValidContractAcknowledgement(role string, sessions Sessions) *Acknowledgement {
	return NewAcknowledgement(false, NoValidContract(role), sessions)
}
