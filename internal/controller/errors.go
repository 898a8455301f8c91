package controller

import (
	"errors"
	"fmt"

	"github.com/cinesync/server/internal/catalog"
	"github.com/cinesync/server/internal/registry"
	"github.com/cinesync/server/internal/wire"
	"github.com/cinesync/server/pkg/wsrouter"
)

var errBadInput = errors.New("bad input")

// validateInput folds the first validation failure into a single errBadInput
// so the ws error handler can report it to the sender.
func (c *controller) validateInput(i any) error {
	validationErrors, ok := c.validate.Validate(i)
	if ok {
		return nil
	}

	return fmt.Errorf("%w: %s", errBadInput, validationErrors[0].Message)
}

// errorPayloadOf maps the error taxonomy onto the wire error event. Anything
// unrecognized is reported as Internal without leaking the error text.
func errorPayloadOf(err error) wire.ErrorPayload {
	switch {
	case errors.Is(err, registry.ErrRoomNotFound):
		return wire.ErrorPayload{Kind: wire.KindRoomNotFound, Message: "room not found"}
	case errors.Is(err, registry.ErrMembersLimitReached):
		return wire.ErrorPayload{Kind: wire.KindRoomFull, Message: "room is full"}
	case errors.Is(err, registry.ErrNotAuthorized):
		return wire.ErrorPayload{Kind: wire.KindNotAuthorized, Message: "only the host can perform this action"}
	case errors.Is(err, registry.ErrPeerNotInRoom):
		return wire.ErrorPayload{Kind: wire.KindPeerNotInRoom, Message: "target is not a member of this room"}
	case errors.Is(err, catalog.ErrInvalidContentReference):
		return wire.ErrorPayload{Kind: wire.KindInvalidContentReference, Message: "content reference could not be resolved"}
	case errors.Is(err, errBadInput),
		errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, wsrouter.ErrUnknownMessageType):
		return wire.ErrorPayload{Kind: wire.KindBadRequest, Message: err.Error()}
	default:
		return wire.ErrorPayload{Kind: wire.KindInternal, Message: "internal error"}
	}
}
