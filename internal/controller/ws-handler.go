package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/internal/wire"
	"github.com/cinesync/server/pkg/ctxlogger"
)

const handshakeTimeout = 30 * time.Second

type CreateRoomInput struct {
	ContentType string `json:"content_type" validate:"required,oneof=show movie"`
	ContentID   string `json:"content_id" validate:"required,max=64"`
	EpisodeID   string `json:"episode_id,omitempty" validate:"max=64"`
	Username    string `json:"username" validate:"required,max=24"`
}

type JoinRoomInput struct {
	Code     string `json:"code" validate:"required,max=16"`
	Username string `json:"username" validate:"required,max=24"`
}

// serveWS owns one member's connection for its whole lifetime: the first
// frame must be room.create or room.join, everything after that is routed
// through the ws mux. When the read loop ends, for whatever reason, the
// member has left.
func (c *controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))

	var frame wire.RawFrame
	if err := conn.ReadJSON(&frame); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read handshake frame", "error", err)
		conn.Close()
		return
	}

	roomCode, memberID, err := c.handshake(r.Context(), conn, &frame)
	if err != nil {
		// the member is not registered with the relay at this point, so a
		// direct write cannot race the write pump
		conn.WriteJSON(wire.Frame{Type: wire.TypeError, Payload: errorPayloadOf(err)})
		conn.Close()
		return
	}

	ctx := context.WithValue(r.Context(), roomCodeCtxKey, roomCode)
	ctx = context.WithValue(ctx, memberIdCtxKey, memberID)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_code", roomCode))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("member_id", memberID))

	defer c.roomService.Disconnect(ctx, roomCode, memberID)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "websocket connection closed", "error", err)
	}
}

func (c *controller) handshake(ctx context.Context, conn *websocket.Conn, frame *wire.RawFrame) (roomCode, memberID string, err error) {
	switch frame.Type {
	case wire.TypeRoomCreate:
		var input CreateRoomInput
		if err := unmarshalInput(frame.Payload, &input); err != nil {
			return "", "", err
		}
		if err := c.validateInput(input); err != nil {
			return "", "", err
		}

		resp, err := c.roomService.CreateRoom(ctx, &room.CreateRoomParams{
			Conn:        conn,
			Username:    input.Username,
			ContentType: input.ContentType,
			ContentID:   input.ContentID,
			EpisodeID:   input.EpisodeID,
		})
		if err != nil {
			return "", "", err
		}

		return resp.RoomCode, resp.MemberID, nil

	case wire.TypeRoomJoin:
		var input JoinRoomInput
		if err := unmarshalInput(frame.Payload, &input); err != nil {
			return "", "", err
		}
		if err := c.validateInput(input); err != nil {
			return "", "", err
		}

		resp, err := c.roomService.JoinRoom(ctx, &room.JoinRoomParams{
			Conn:     conn,
			Code:     input.Code,
			Username: input.Username,
		})
		if err != nil {
			return "", "", err
		}

		return resp.RoomCode, resp.MemberID, nil

	default:
		return "", "", fmt.Errorf("%w: expected %s or %s first", errBadInput, wire.TypeRoomCreate, wire.TypeRoomJoin)
	}
}

func unmarshalInput(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", errBadInput)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s", errBadInput, err)
	}

	return nil
}
