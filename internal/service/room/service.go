// Package room orchestrates the room registry, the event relay and the
// catalog collaborator behind the websocket controller.
package room

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/catalog"
	"github.com/cinesync/server/internal/registry"
	"github.com/cinesync/server/internal/wire"
)

type iRegistry interface {
	CreateRoom(ctx context.Context, params *registry.CreateRoomParams) (registry.RoomSnapshot, error)
	JoinRoom(ctx context.Context, params *registry.JoinRoomParams) (registry.RoomSnapshot, error)
	Leave(ctx context.Context, code, memberID string) (registry.LeaveResult, error)
	AppendChat(ctx context.Context, code, memberID, body string) (registry.ChatMessage, error)
	BroadcastReaction(ctx context.Context, code, memberID, emoji string) error
	SetPlayback(ctx context.Context, code, requesterID string, action registry.PlaybackAction, positionSeconds float64) (registry.Playback, error)
	SetSelfMute(ctx context.Context, code, memberID string, muted bool) error
	HostSetMute(ctx context.Context, code, requesterID, targetID string, muted bool) error
	SetSpeaking(ctx context.Context, code, memberID string, speaking bool) error
	RelaySignal(ctx context.Context, code, fromID, toID string, payload json.RawMessage) error
	SetContent(ctx context.Context, code string, content registry.ContentMeta) error
	Snapshot(ctx context.Context, code string) (registry.RoomSnapshot, error)
}

type iRelay interface {
	Register(memberID string, conn *websocket.Conn)
	Unregister(memberID string)
	Detach(memberID string)
	SendTo(roomCode string, memberID string, frame wire.Frame)
}

type iCatalog interface {
	Resolve(ctx context.Context, contentType, contentID, episodeID string) (catalog.Content, error)
}

type service struct {
	registry iRegistry
	relay    iRelay
	catalog  iCatalog
	logger   *slog.Logger
}

func NewService(reg iRegistry, relay iRelay, catalogClient iCatalog, logger *slog.Logger) *service {
	return &service{
		registry: reg,
		relay:    relay,
		catalog:  catalogClient,
		logger:   logger,
	}
}
