package ws

import (
	apperrors "chatroomd/errors"
	"chatroomd/infrastructure/wire"
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

var validate = validator.New()

type loginParams struct {
	Nickname string `validate:"required,max=64"`
}

type joinParams struct {
	Room string `validate:"required,max=64"`
}

type sendParams struct {
	Room    string `validate:"required,max=64"`
	Content string `validate:"required"`
}

// dispatch maps one request envelope to a service call. Every op except
// login requires a live session on this connection.
func (c *connection) dispatch(ctx context.Context, req wire.Request) wire.Response {
	if c.session == nil && req.Op != wire.OpLogin {
		return errResponse(req.Op, fmt.Errorf("%s requires login", req.Op), apperrors.CodeRejected)
	}

	switch req.Op {
	case wire.OpLogin:
		return c.handleLogin(req)
	case wire.OpList:
		return c.handleList()
	case wire.OpJoin:
		return c.handleJoin(req)
	case wire.OpNick:
		return c.handleNick(req)
	case wire.OpSend:
		return c.handleSend(ctx, req)
	case wire.OpMessagesAfter:
		return c.handleMessagesAfter(req)
	case wire.OpNames:
		return c.handleNames(req)
	default:
		return errResponse(req.Op, fmt.Errorf("unknown op %q", req.Op), apperrors.CodeRejected)
	}
}

func (c *connection) handleLogin(req wire.Request) wire.Response {
	if c.session != nil {
		return errResponse(req.Op, fmt.Errorf("already logged in as %q", c.session.Nickname()), apperrors.CodeRejected)
	}
	if err := validateNickname(req.Nickname); err != nil {
		return errResponse(req.Op, err, apperrors.CodeRejected)
	}

	session, handle, err := c.gateway.service.Login(req.Nickname, c.sink)
	if err != nil {
		return serviceError(req.Op, err)
	}
	c.session = session
	c.handle = handle
	return wire.Response{Type: wire.TypeOK, Op: req.Op, SessionID: uint32(session.ID())}
}

func (c *connection) handleList() wire.Response {
	summaries, err := c.gateway.service.ListRooms()
	if err != nil {
		return serviceError(wire.OpList, err)
	}
	return wire.Response{Type: wire.TypeOK, Op: wire.OpList, Rooms: wire.FromDomainSummaries(summaries)}
}

func (c *connection) handleJoin(req wire.Request) wire.Response {
	if err := validateRoomName(req.Room); err != nil {
		return errResponse(req.Op, err, apperrors.CodeRejected)
	}

	room, backlog, err := c.gateway.service.Join(c.session, req.Room)
	if err != nil {
		return serviceError(req.Op, err)
	}
	return wire.Response{
		Type:     wire.TypeOK,
		Op:       req.Op,
		Room:     room.Name(),
		Messages: wire.FromDomainMessages(backlog),
	}
}

func (c *connection) handleNick(req wire.Request) wire.Response {
	if err := validateNickname(req.Nickname); err != nil {
		return errResponse(req.Op, err, apperrors.CodeRejected)
	}
	if err := c.gateway.service.Nick(c.session, req.Nickname); err != nil {
		return serviceError(req.Op, err)
	}
	return wire.Response{Type: wire.TypeOK, Op: req.Op}
}

func (c *connection) handleSend(ctx context.Context, req wire.Request) wire.Response {
	if err := validate.Struct(sendParams{Room: req.Room, Content: req.Content}); err != nil {
		return errResponse(req.Op, fmt.Errorf("room and content are required"), apperrors.CodeRejected)
	}
	if len(req.Content) > c.gateway.maxContentLength {
		return errResponse(req.Op, fmt.Errorf("content exceeds %d bytes", c.gateway.maxContentLength), apperrors.CodeRejected)
	}

	message, err := c.gateway.service.Send(ctx, c.session, req.Room, req.Content)
	if err != nil {
		return serviceError(req.Op, err)
	}
	return wire.Response{
		Type:    wire.TypeOK,
		Op:      req.Op,
		Room:    req.Room,
		Message: lo.ToPtr(wire.FromDomainMessage(message)),
	}
}

func (c *connection) handleMessagesAfter(req wire.Request) wire.Response {
	if err := validateRoomName(req.Room); err != nil {
		return errResponse(req.Op, err, apperrors.CodeRejected)
	}
	if req.Cursor == nil {
		return errResponse(req.Op, fmt.Errorf("cursor is required"), apperrors.CodeRejected)
	}

	messages, err := c.gateway.service.MessagesAfter(req.Room, wire.ToDomainMessage(*req.Cursor))
	if err != nil {
		return serviceError(req.Op, err)
	}
	return wire.Response{
		Type:     wire.TypeOK,
		Op:       req.Op,
		Room:     req.Room,
		Messages: wire.FromDomainMessages(messages),
	}
}

func (c *connection) handleNames(req wire.Request) wire.Response {
	if err := validateRoomName(req.Room); err != nil {
		return errResponse(req.Op, err, apperrors.CodeRejected)
	}
	members, err := c.gateway.service.Members(req.Room)
	if err != nil {
		return serviceError(req.Op, err)
	}
	return wire.Response{Type: wire.TypeOK, Op: req.Op, Room: req.Room, Members: members}
}

// validateNickname keeps the empty-nickname sentinel and reports every
// other constraint with the validator's own message.
func validateNickname(nickname string) error {
	if nickname == "" {
		return apperrors.ErrEmptyNickname
	}
	return validate.Struct(loginParams{Nickname: nickname})
}

func validateRoomName(room string) error {
	if room == "" {
		return apperrors.ErrEmptyRoomName
	}
	return validate.Struct(joinParams{Room: room})
}

func serviceError(op string, err error) wire.Response {
	return errResponse(op, err, apperrors.MapToWireCode(err))
}

func errResponse(op string, err error, code string) wire.Response {
	return wire.Response{Type: wire.TypeError, Op: op, Error: err.Error(), Code: code}
}
