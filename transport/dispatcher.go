package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/solihah-a/tictactoev4/internal/entity"
	"github.com/solihah-a/tictactoev4/internal/protocol"
	"github.com/solihah-a/tictactoev4/internal/usecase"
)

// Session is the per-connection state shared by every transport. Username
// is empty until a LOGIN succeeds; every operation except LOGIN and
// REGISTER requires it.
type Session struct {
	Username string
}

type handlerFunc func(ctx context.Context, session *Session, req *protocol.Request) any

// Dispatcher maps request types onto the use cases. It is transport
// agnostic: the TCP server and the websocket bridge both feed it one
// decoded request at a time and write back whatever it returns.
type Dispatcher struct {
	logger   *slog.Logger
	pairing  *usecase.PairingUseCase
	gameplay *usecase.GameplayUseCase
	handlers map[protocol.RequestType]handlerFunc
}

func NewDispatcher(logger *slog.Logger, pairing *usecase.PairingUseCase, gameplay *usecase.GameplayUseCase) *Dispatcher {
	dispatcher := &Dispatcher{
		logger:   logger.With("component", "dispatcher"),
		pairing:  pairing,
		gameplay: gameplay,
		handlers: make(map[protocol.RequestType]handlerFunc),
	}

	dispatcher.handlers[protocol.TypeLogin] = dispatcher.handleLogin
	dispatcher.handlers[protocol.TypeRegister] = dispatcher.handleRegister
	dispatcher.handlers[protocol.TypeUpdatePairing] = dispatcher.handleUpdatePairing
	dispatcher.handlers[protocol.TypeSendInvitation] = dispatcher.handleSendInvitation
	dispatcher.handlers[protocol.TypeAcceptInvitation] = dispatcher.handleAcceptInvitation
	dispatcher.handlers[protocol.TypeDeclineInvitation] = dispatcher.handleDeclineInvitation
	dispatcher.handlers[protocol.TypeAcknowledgeResponse] = dispatcher.handleAcknowledgeResponse
	dispatcher.handlers[protocol.TypeRequestMove] = dispatcher.handleRequestMove
	dispatcher.handlers[protocol.TypeSendMove] = dispatcher.handleSendMove
	dispatcher.handlers[protocol.TypeAbortGame] = dispatcher.handleAbortGame
	dispatcher.handlers[protocol.TypeCompleteGame] = dispatcher.handleCompleteGame

	return dispatcher
}

// Dispatch - routes one request and returns the response value to encode.
func (that *Dispatcher) Dispatch(ctx context.Context, session *Session, request *protocol.Request) any {
	handler, ok := that.handlers[request.Type]
	if !ok {
		that.logger.Warn("unknown request type", "type", request.Type)
		return protocol.Failure(fmt.Sprintf("unknown request type: %s", request.Type))
	}

	if session.Username == "" && request.Type != protocol.TypeLogin && request.Type != protocol.TypeRegister {
		return protocol.Failure("login required")
	}

	return handler(ctx, session, request)
}

// Disconnect - cleanup when a client's connection dies. A live game
// counts as abandoned; the user goes offline either way.
func (that *Dispatcher) Disconnect(ctx context.Context, session *Session) {
	if session.Username == "" {
		return
	}

	that.gameplay.HandleDisconnect(ctx, session.Username)
	that.pairing.Logout(session.Username)
}

func (that *Dispatcher) handleLogin(ctx context.Context, session *Session, req *protocol.Request) any {
	var user entity.User
	if err := json.Unmarshal([]byte(req.Data), &user); err != nil {
		return protocol.Failure("invalid user payload")
	}

	if err := that.pairing.Login(ctx, &user); err != nil {
		return protocol.Failure(err.Error())
	}

	session.Username = user.Username

	return protocol.Success(fmt.Sprintf("welcome back, %s", user.Username))
}

func (that *Dispatcher) handleRegister(ctx context.Context, _ *Session, req *protocol.Request) any {
	var user entity.User
	if err := json.Unmarshal([]byte(req.Data), &user); err != nil {
		return protocol.Failure("invalid user payload")
	}

	if err := that.pairing.Register(ctx, &user); err != nil {
		return protocol.Failure(err.Error())
	}

	return protocol.Success("registration complete")
}

func (that *Dispatcher) handleUpdatePairing(ctx context.Context, session *Session, _ *protocol.Request) any {
	roster, err := that.pairing.UpdatePairing(ctx, session.Username)
	if err != nil {
		return protocol.Failure(err.Error())
	}

	return &protocol.PairingResponse{
		Response:           *protocol.Success(""),
		AvailableUsers:     roster.AvailableUsers,
		Invitation:         roster.Invitation,
		InvitationResponse: roster.InvitationResponse,
	}
}

func (that *Dispatcher) handleSendInvitation(ctx context.Context, session *Session, req *protocol.Request) any {
	event, err := that.pairing.SendInvitation(ctx, session.Username, req.Data)
	if err != nil {
		return protocol.Failure(err.Error())
	}

	return protocol.Success(fmt.Sprintf("invitation %d sent to %s", event.ID, event.Opponent))
}

func (that *Dispatcher) handleAcceptInvitation(ctx context.Context, session *Session, req *protocol.Request) any {
	eventID, err := parseEventID(req.Data)
	if err != nil {
		return protocol.Failure(err.Error())
	}

	if _, err = that.pairing.AcceptInvitation(ctx, session.Username, eventID); err != nil {
		return protocol.Failure(err.Error())
	}

	return protocol.Success("invitation accepted")
}

func (that *Dispatcher) handleDeclineInvitation(ctx context.Context, session *Session, req *protocol.Request) any {
	eventID, err := parseEventID(req.Data)
	if err != nil {
		return protocol.Failure(err.Error())
	}

	if err = that.pairing.DeclineInvitation(ctx, session.Username, eventID); err != nil {
		return protocol.Failure(err.Error())
	}

	return protocol.Success("invitation declined")
}

func (that *Dispatcher) handleAcknowledgeResponse(ctx context.Context, session *Session, req *protocol.Request) any {
	eventID, err := parseEventID(req.Data)
	if err != nil {
		return protocol.Failure(err.Error())
	}

	if err = that.pairing.AcknowledgeResponse(ctx, session.Username, eventID); err != nil {
		return protocol.Failure(err.Error())
	}

	return protocol.Success("response acknowledged")
}

func (that *Dispatcher) handleRequestMove(ctx context.Context, session *Session, _ *protocol.Request) any {
	update, err := that.gameplay.RequestMove(ctx, session.Username)
	if err != nil {
		return protocol.Failure(err.Error())
	}

	return &protocol.GamingResponse{
		Response: protocol.Response{Status: protocol.StatusSuccess, Message: update.Message},
		Move:     update.Move,
		Active:   update.Active,
	}
}

func (that *Dispatcher) handleSendMove(ctx context.Context, session *Session, req *protocol.Request) any {
	cell, err := strconv.Atoi(req.Data)
	if err != nil {
		return protocol.Failure("move must be a cell index")
	}

	active, err := that.gameplay.SendMove(ctx, session.Username, cell)
	if err != nil {
		return protocol.Failure(err.Error())
	}

	return &protocol.GamingResponse{
		Response: *protocol.Success("move accepted"),
		Move:     cell,
		Active:   active,
	}
}

func (that *Dispatcher) handleAbortGame(ctx context.Context, session *Session, _ *protocol.Request) any {
	if err := that.gameplay.AbortGame(ctx, session.Username); err != nil {
		return protocol.Failure(err.Error())
	}

	return protocol.Success("game aborted")
}

func (that *Dispatcher) handleCompleteGame(ctx context.Context, session *Session, _ *protocol.Request) any {
	if err := that.gameplay.CompleteGame(ctx, session.Username); err != nil {
		return protocol.Failure(err.Error())
	}

	return protocol.Success("game completed")
}

func parseEventID(data string) (int, error) {
	eventID, err := strconv.Atoi(data)
	if err != nil {
		return 0, fmt.Errorf("event id must be a decimal number: %w", err)
	}
	return eventID, nil
}
