package oicp

import "time"

const (
	PullEVSEDataOperation           = "PullEVSEData"
	PullEVSEStatusOperation         = "PullEVSEStatus"
	PushEVSEDataOperation           = "PushEVSEData"
	PushEVSEStatusOperation         = "PushEVSEStatus"
	AuthorizeStartOperation         = "AuthorizeStart"
	AuthorizeStopOperation          = "AuthorizeStop"
	AuthorizeRemoteStartOperation   = "AuthorizeRemoteStart"
	AuthorizeRemoteStopOperation    = "AuthorizeRemoteStop"
	SendChargeDetailRecordOperation = "SendChargeDetailRecord"
)

// Operations lists every remote procedure in a stable order.
var Operations = []string{
	PullEVSEDataOperation,
	PullEVSEStatusOperation,
	PushEVSEDataOperation,
	PushEVSEStatusOperation,
	AuthorizeStartOperation,
	AuthorizeStopOperation,
	AuthorizeRemoteStartOperation,
	AuthorizeRemoteStopOperation,
	SendChargeDetailRecordOperation,
}

type AuthorizationStatus string

const (
	AuthorizationStatusAuthorized    AuthorizationStatus = "Authorized"
	AuthorizationStatusNotAuthorized AuthorizationStatus = "NotAuthorized"
)

type ActionType string

const (
	ActionFullLoad ActionType = "fullLoad"
	ActionUpdate   ActionType = "update"
	ActionInsert   ActionType = "insert"
	ActionDelete   ActionType = "delete"
)

type EVSEStatus string

const (
	EVSEStatusAvailable    EVSEStatus = "Available"
	EVSEStatusReserved     EVSEStatus = "Reserved"
	EVSEStatusOccupied     EVSEStatus = "Occupied"
	EVSEStatusOutOfService EVSEStatus = "OutOfService"
	EVSEStatusEvseNotFound EVSEStatus = "EvseNotFound"
	EVSEStatusUnknown      EVSEStatus = "Unknown"
)

type RFIDMifareFamilyIdentification struct {
	UID string `json:"UID"`
}

type RemoteIdentification struct {
	EvcoID string `json:"EvcoID"`
}

type Identification struct {
	RFIDMifareFamilyIdentification *RFIDMifareFamilyIdentification `json:"RFIDMifareFamilyIdentification,omitempty"`
	RemoteIdentification           *RemoteIdentification           `json:"RemoteIdentification,omitempty"`
}

func (i Identification) String() string {
	switch {
	case i.RFIDMifareFamilyIdentification != nil:
		return "rfid:" + i.RFIDMifareFamilyIdentification.UID
	case i.RemoteIdentification != nil:
		return "evco:" + i.RemoteIdentification.EvcoID
	}
	return ""
}

type Address struct {
	Country    string `json:"Country"`
	City       string `json:"City"`
	Street     string `json:"Street"`
	PostalCode string `json:"PostalCode,omitempty"`
}

type GeoCoordinates struct {
	Latitude  string `json:"Latitude"`
	Longitude string `json:"Longitude"`
}

type EVSEDataRecord struct {
	EvseID              EVSEID         `json:"EvseID"`
	ChargingStationID   string         `json:"ChargingStationID,omitempty"`
	ChargingStationName string         `json:"ChargingStationNames,omitempty"`
	Address             Address        `json:"Address"`
	GeoCoordinates      GeoCoordinates `json:"GeoCoordinates"`
	Plugs               []string       `json:"Plugs,omitempty"`
	AuthenticationModes []string       `json:"AuthenticationModes,omitempty"`
	IsOpen24Hours       bool           `json:"IsOpen24Hours"`
	HotlineNumber       string         `json:"HotlinePhoneNumber,omitempty"`
}

type OperatorEVSEData struct {
	OperatorID     OperatorID       `json:"OperatorID"`
	OperatorName   string           `json:"OperatorName,omitempty"`
	EVSEDataRecord []EVSEDataRecord `json:"EvseDataRecord"`
}

type EVSEStatusRecord struct {
	EvseID     EVSEID     `json:"EvseID"`
	EvseStatus EVSEStatus `json:"EvseStatus"`
}

type OperatorEVSEStatus struct {
	OperatorID       OperatorID         `json:"OperatorID"`
	OperatorName     string             `json:"OperatorName,omitempty"`
	EVSEStatusRecord []EVSEStatusRecord `json:"EvseStatusRecord"`
}

type PullEVSEDataRequest struct {
	ProviderID ProviderID `json:"ProviderID"`
	OperatorID OperatorID `json:"OperatorID"`
	LastCall   *time.Time `json:"LastCall,omitempty"`
}

func (r *PullEVSEDataRequest) Operation() string { return PullEVSEDataOperation }

type PullEVSEDataResponse struct {
	OperatorEVSEData []OperatorEVSEData `json:"OperatorEvseData"`
	StatusCode       StatusCode         `json:"StatusCode"`
}

type PullEVSEStatusRequest struct {
	ProviderID       ProviderID `json:"ProviderID"`
	OperatorID       OperatorID `json:"OperatorID"`
	EVSEStatusFilter EVSEStatus `json:"EvseStatus,omitempty"`
}

func (r *PullEVSEStatusRequest) Operation() string { return PullEVSEStatusOperation }

type PullEVSEStatusResponse struct {
	OperatorEVSEStatus []OperatorEVSEStatus `json:"OperatorEvseStatus"`
	StatusCode         StatusCode           `json:"StatusCode"`
}

type PushEVSEDataRequest struct {
	ActionType       ActionType       `json:"ActionType"`
	OperatorEVSEData OperatorEVSEData `json:"OperatorEvseData"`
}

func (r *PushEVSEDataRequest) Operation() string { return PushEVSEDataOperation }

type PushEVSEStatusRequest struct {
	ActionType         ActionType         `json:"ActionType"`
	OperatorEVSEStatus OperatorEVSEStatus `json:"OperatorEvseStatus"`
}

func (r *PushEVSEStatusRequest) Operation() string { return PushEVSEStatusOperation }

type AuthorizeStartRequest struct {
	OperatorID          OperatorID     `json:"OperatorID"`
	EvseID              *EVSEID        `json:"EvseID,omitempty"`
	Identification      Identification `json:"Identification"`
	PartnerProductID    string         `json:"PartnerProductID,omitempty"`
	SessionID           string         `json:"SessionID,omitempty"`
	CPOPartnerSessionID string         `json:"CPOPartnerSessionID,omitempty"`
	EMPPartnerSessionID string         `json:"EMPPartnerSessionID,omitempty"`
}

func (r *AuthorizeStartRequest) Operation() string { return AuthorizeStartOperation }

func (r *AuthorizeStartRequest) Sessions() Sessions {
	return Sessions{SessionID: r.SessionID, CPOPartnerSessionID: r.CPOPartnerSessionID, EMPPartnerSessionID: r.EMPPartnerSessionID}
}

type AuthorizationStartResponse struct {
	SessionID                        string              `json:"SessionID,omitempty"`
	CPOPartnerSessionID              string              `json:"CPOPartnerSessionID,omitempty"`
	EMPPartnerSessionID              string              `json:"EMPPartnerSessionID,omitempty"`
	ProviderID                       *ProviderID         `json:"ProviderID,omitempty"`
	AuthorizationStatus              AuthorizationStatus `json:"AuthorizationStatus"`
	StatusCode                       StatusCode          `json:"StatusCode"`
	AuthorizationStopIdentifications []Identification    `json:"AuthorizationStopIdentifications,omitempty"`
}

func (r *AuthorizationStartResponse) IsAuthorized() bool {
	return r != nil && r.AuthorizationStatus == AuthorizationStatusAuthorized
}

// NotAuthorizedStart builds the local negative answer used when no partner could respond.
func NotAuthorizedStart(status StatusCode, sessions Sessions) *AuthorizationStartResponse {
	return &AuthorizationStartResponse{
		SessionID:           sessions.SessionID,
		CPOPartnerSessionID: sessions.CPOPartnerSessionID,
		EMPPartnerSessionID: sessions.EMPPartnerSessionID,
		AuthorizationStatus: AuthorizationStatusNotAuthorized,
		StatusCode:          status,
	}
}

type AuthorizeStopRequest struct {
	OperatorID          OperatorID     `json:"OperatorID"`
	SessionID           string         `json:"SessionID"`
	CPOPartnerSessionID string         `json:"CPOPartnerSessionID,omitempty"`
	EMPPartnerSessionID string         `json:"EMPPartnerSessionID,omitempty"`
	EvseID              *EVSEID        `json:"EvseID,omitempty"`
	Identification      Identification `json:"Identification"`
}

func (r *AuthorizeStopRequest) Operation() string { return AuthorizeStopOperation }

func (r *AuthorizeStopRequest) Sessions() Sessions {
	return Sessions{SessionID: r.SessionID, CPOPartnerSessionID: r.CPOPartnerSessionID, EMPPartnerSessionID: r.EMPPartnerSessionID}
}

type AuthorizationStopResponse struct {
	SessionID           string              `json:"SessionID,omitempty"`
	CPOPartnerSessionID string              `json:"CPOPartnerSessionID,omitempty"`
	EMPPartnerSessionID string              `json:"EMPPartnerSessionID,omitempty"`
	ProviderID          *ProviderID         `json:"ProviderID,omitempty"`
	AuthorizationStatus AuthorizationStatus `json:"AuthorizationStatus"`
	StatusCode          StatusCode          `json:"StatusCode"`
}

func (r *AuthorizationStopResponse) IsAuthorized() bool {
	return r != nil && r.AuthorizationStatus == AuthorizationStatusAuthorized
}

func NotAuthorizedStop(status StatusCode, sessions Sessions) *AuthorizationStopResponse {
	return &AuthorizationStopResponse{
		SessionID:           sessions.SessionID,
		CPOPartnerSessionID: sessions.CPOPartnerSessionID,
		EMPPartnerSessionID: sessions.EMPPartnerSessionID,
		AuthorizationStatus: AuthorizationStatusNotAuthorized,
		StatusCode:          status,
	}
}

type AuthorizeRemoteStartRequest struct {
	ProviderID          ProviderID     `json:"ProviderID"`
	EvseID              EVSEID         `json:"EvseID"`
	Identification      Identification `json:"Identification"`
	PartnerProductID    string         `json:"PartnerProductID,omitempty"`
	SessionID           string         `json:"SessionID,omitempty"`
	CPOPartnerSessionID string         `json:"CPOPartnerSessionID,omitempty"`
	EMPPartnerSessionID string         `json:"EMPPartnerSessionID,omitempty"`
}

func (r *AuthorizeRemoteStartRequest) Operation() string { return AuthorizeRemoteStartOperation }

func (r *AuthorizeRemoteStartRequest) Sessions() Sessions {
	return Sessions{SessionID: r.SessionID, CPOPartnerSessionID: r.CPOPartnerSessionID, EMPPartnerSessionID: r.EMPPartnerSessionID}
}

type AuthorizeRemoteStopRequest struct {
	ProviderID          ProviderID `json:"ProviderID"`
	EvseID              EVSEID     `json:"EvseID"`
	SessionID           string     `json:"SessionID"`
	CPOPartnerSessionID string     `json:"CPOPartnerSessionID,omitempty"`
	EMPPartnerSessionID string     `json:"EMPPartnerSessionID,omitempty"`
}

func (r *AuthorizeRemoteStopRequest) Operation() string { return AuthorizeRemoteStopOperation }

func (r *AuthorizeRemoteStopRequest) Sessions() Sessions {
	return Sessions{SessionID: r.SessionID, CPOPartnerSessionID: r.CPOPartnerSessionID, EMPPartnerSessionID: r.EMPPartnerSessionID}
}

type ChargeDetailRecord struct {
	SessionID           string         `json:"SessionID"`
	CPOPartnerSessionID string         `json:"CPOPartnerSessionID,omitempty"`
	EMPPartnerSessionID string         `json:"EMPPartnerSessionID,omitempty"`
	PartnerProductID    string         `json:"PartnerProductID,omitempty"`
	EvseID              EVSEID         `json:"EvseID"`
	Identification      Identification `json:"Identification"`
	ChargingStart       time.Time      `json:"ChargingStart"`
	ChargingEnd         time.Time      `json:"ChargingEnd"`
	SessionStart        time.Time      `json:"SessionStart"`
	SessionEnd          time.Time      `json:"SessionEnd"`
	MeterValueStart     float64        `json:"MeterValueStart,omitempty"`
	MeterValueEnd       float64        `json:"MeterValueEnd,omitempty"`
	ConsumedEnergy      float64        `json:"ConsumedEnergy"`
	HubOperatorID       OperatorID     `json:"HubOperatorID,omitempty"`
	HubProviderID       ProviderID     `json:"HubProviderID"`
}

type SendChargeDetailRecordRequest struct {
	OperatorID         OperatorID         `json:"OperatorID"`
	ChargeDetailRecord ChargeDetailRecord `json:"ChargeDetailRecord"`
}

func (r *SendChargeDetailRecordRequest) Operation() string { return SendChargeDetailRecordOperation }

func (r *SendChargeDetailRecordRequest) Sessions() Sessions {
	cdr := r.ChargeDetailRecord
	return Sessions{SessionID: cdr.SessionID, CPOPartnerSessionID: cdr.CPOPartnerSessionID, EMPPartnerSessionID: cdr.EMPPartnerSessionID}
}
