package protocol

import "github.com/solihah-a/tictactoev4/internal/entity"

const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Response is the base reply envelope. The two specialized variants are
// structurally compatible supersets, so a caller decodes the shape its
// request type implies; unknown fields fall away, absent ones zero out.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PairingResponse answers UPDATE_PAIRING: the available-user roster plus
// at most one incoming invitation and one response to a sent invitation.
type PairingResponse struct {
	Response
	AvailableUsers     []*entity.User `json:"availableUsers"`
	Invitation         *entity.Event  `json:"invitation"`
	InvitationResponse *entity.Event  `json:"invitationResponse"`
}

// GamingResponse answers REQUEST_MOVE and SEND_MOVE.
type GamingResponse struct {
	Response
	Move   int  `json:"move"`
	Active bool `json:"active"`
}

func Success(message string) *Response {
	return &Response{Status: StatusSuccess, Message: message}
}

func Failure(message string) *Response {
	return &Response{Status: StatusFailure, Message: message}
}

func (that *Response) IsSuccess() bool {
	return that.Status == StatusSuccess
}
