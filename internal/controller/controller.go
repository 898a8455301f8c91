package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/registry"
	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/internal/wire"
	"github.com/cinesync/server/pkg/validator"
	"github.com/cinesync/server/pkg/wsrouter"
)

type iRoomService interface {
	CreateRoom(ctx context.Context, params *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(ctx context.Context, params *room.JoinRoomParams) (room.JoinRoomResponse, error)
	Disconnect(ctx context.Context, roomCode, memberID string)
	SendChat(ctx context.Context, params *room.SendChatParams) (registry.ChatMessage, error)
	SendReaction(ctx context.Context, params *room.SendReactionParams) error
	SetPlayback(ctx context.Context, params *room.SetPlaybackParams) (registry.Playback, error)
	ToggleMute(ctx context.Context, params *room.ToggleMuteParams) error
	HostMute(ctx context.Context, params *room.HostMuteParams) error
	SetSpeaking(ctx context.Context, params *room.SetSpeakingParams) error
	RelaySignal(ctx context.Context, params *room.RelaySignalParams) error
	GetRoom(ctx context.Context, code string) (registry.RoomSnapshot, error)
}

// iSender is the targeted-delivery half of the relay; handler errors go back
// to the originating member through it so conn writes stay on one goroutine.
type iSender interface {
	SendTo(roomCode string, memberID string, frame wire.Frame)
}

type controller struct {
	roomService iRoomService
	sender      iSender
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomService iRoomService, sender iSender, logger *slog.Logger) *controller {
	c := &controller{
		roomService: roomService,
		sender:      sender,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.New(),
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
