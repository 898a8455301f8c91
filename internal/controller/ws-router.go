package controller

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/wire"
	"github.com/cinesync/server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.SetReadTimeout(60 * time.Second)
	mux.SetErrorHandler(c.handleWSError)
	mux.Use(c.wsRequestIdMw())
	mux.Use(c.loggerWSMw())

	wsrouter.Handle(mux, wire.TypeAlive, c.handleAlive)
	wsrouter.Handle(mux, wire.TypeRoomLeave, c.handleRoomLeave)

	// chat
	wsrouter.Handle(mux, wire.TypeChatSend, c.handleChatSend)
	wsrouter.Handle(mux, wire.TypeReactionSend, c.handleReactionSend)

	// playback
	wsrouter.Handle(mux, wire.TypePlaybackPlay, c.handlePlaybackPlay)
	wsrouter.Handle(mux, wire.TypePlaybackPause, c.handlePlaybackPause)
	wsrouter.Handle(mux, wire.TypePlaybackSeek, c.handlePlaybackSeek)

	// voice
	wsrouter.Handle(mux, wire.TypeVoiceSignal, c.handleVoiceSignal)
	wsrouter.Handle(mux, wire.TypeVoiceSpeaking, c.handleVoiceSpeaking)
	wsrouter.Handle(mux, wire.TypeVoiceMute, c.handleToggleMute)
	wsrouter.Handle(mux, wire.TypeHostMuteUser, c.handleHostMuteUser)

	return mux
}

// handleWSError reports a failed request to the member who sent it. Other
// members never see another member's failures.
func (c *controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) {
	payload := errorPayloadOf(err)
	if payload.Kind == wire.KindInternal {
		c.logger.ErrorContext(ctx, "websocket handler failed", "error", err)
	} else {
		c.logger.DebugContext(ctx, "websocket request rejected", "kind", payload.Kind, "error", err)
	}

	memberID := c.getMemberIdFromCtx(ctx)
	if memberID == "" {
		return
	}

	c.sender.SendTo(c.getRoomCodeFromCtx(ctx), memberID, wire.Frame{
		Type:    wire.TypeError,
		Payload: payload,
	})
}
