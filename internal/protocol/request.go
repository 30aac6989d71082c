package protocol

// RequestType enumerates every operation a client may ask of the server.
type RequestType string

const (
	TypeLogin               RequestType = "LOGIN"
	TypeRegister            RequestType = "REGISTER"
	TypeUpdatePairing       RequestType = "UPDATE_PAIRING"
	TypeSendInvitation      RequestType = "SEND_INVITATION"
	TypeAcceptInvitation    RequestType = "ACCEPT_INVITATION"
	TypeDeclineInvitation   RequestType = "DECLINE_INVITATION"
	TypeAcknowledgeResponse RequestType = "ACKNOWLEDGE_RESPONSE"
	TypeRequestMove         RequestType = "REQUEST_MOVE"
	TypeSendMove            RequestType = "SEND_MOVE"
	TypeAbortGame           RequestType = "ABORT_GAME"
	TypeCompleteGame        RequestType = "COMPLETE_GAME"
)

// Request is the tagged wire envelope. Data carries the operation-specific
// payload: a serialized User for LOGIN/REGISTER, a target username for
// SEND_INVITATION, a decimal event id for the invitation operations, a
// decimal cell index for SEND_MOVE, empty otherwise.
type Request struct {
	Type RequestType `json:"type"`
	Data string      `json:"data"`
}

func NewRequest(reqType RequestType, data string) *Request {
	return &Request{Type: reqType, Data: data}
}
