package room

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/registry"
	"github.com/cinesync/server/internal/wire"
)

type CreateRoomParams struct {
	Conn        *websocket.Conn
	Username    string
	ContentType string
	ContentID   string
	EpisodeID   string
}

type CreateRoomResponse struct {
	MemberID string
	RoomCode string
}

// CreateRoom registers the creator's connection, creates the room with the
// creator as host and kicks off the lazy catalog lookup for the room header.
func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	memberID := uuid.NewString()
	s.relay.Register(memberID, params.Conn)

	snapshot, err := s.registry.CreateRoom(ctx, &registry.CreateRoomParams{
		ContentType: params.ContentType,
		ContentID:   params.ContentID,
		EpisodeID:   params.EpisodeID,
		MemberID:    memberID,
		Username:    params.Username,
	})
	if err != nil {
		// detach rather than unregister: the controller still owes the
		// caller an error frame on this connection
		s.relay.Detach(memberID)
		return CreateRoomResponse{}, err
	}

	go s.resolveContent(context.WithoutCancel(ctx), snapshot.Code, memberID, params)

	return CreateRoomResponse{
		MemberID: memberID,
		RoomCode: snapshot.Code,
	}, nil
}

// resolveContent fetches the room-header metadata after creation. Failure is
// advisory: the creator gets one InvalidContentReference notice and the room
// keeps working without a header.
func (s *service) resolveContent(ctx context.Context, roomCode, creatorID string, params *CreateRoomParams) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	content, err := s.catalog.Resolve(ctx, params.ContentType, params.ContentID, params.EpisodeID)
	if err != nil {
		s.logger.WarnContext(ctx, "catalog lookup failed",
			"room_code", roomCode,
			"content_type", params.ContentType,
			"content_id", params.ContentID,
			"error", err,
		)
		s.relay.SendTo(roomCode, creatorID, wire.Frame{
			Type: wire.TypeError,
			Payload: wire.ErrorPayload{
				Kind:    wire.KindInvalidContentReference,
				Message: "content reference could not be resolved",
			},
		})
		return
	}

	if err := s.registry.SetContent(ctx, roomCode, registry.ContentMeta{
		Title:     content.Title,
		PosterURL: content.PosterURL,
	}); err != nil {
		// room already gone, nothing to attach the metadata to
		s.logger.DebugContext(ctx, "room vanished before catalog resolution", "room_code", roomCode)
	}
}

type JoinRoomParams struct {
	Conn     *websocket.Conn
	Code     string
	Username string
}

type JoinRoomResponse struct {
	MemberID string
	RoomCode string
}

// JoinRoom registers the connection first so the joiner's room.state snapshot
// has a live delivery path, then appends the member.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	memberID := uuid.NewString()
	s.relay.Register(memberID, params.Conn)

	snapshot, err := s.registry.JoinRoom(ctx, &registry.JoinRoomParams{
		Code:     params.Code,
		MemberID: memberID,
		Username: params.Username,
	})
	if err != nil {
		// detach rather than unregister: the controller still owes the
		// caller an error frame on this connection
		s.relay.Detach(memberID)
		return JoinRoomResponse{}, err
	}

	return JoinRoomResponse{
		MemberID: memberID,
		RoomCode: snapshot.Code,
	}, nil
}

// Disconnect treats a dropped or closed connection as a leave. It is
// idempotent; a member who already left is a no-op.
func (s *service) Disconnect(ctx context.Context, roomCode, memberID string) {
	if _, err := s.registry.Leave(ctx, roomCode, memberID); err != nil {
		s.logger.WarnContext(ctx, "failed to leave room", "room_code", roomCode, "member_id", memberID, "error", err)
	}

	s.relay.Unregister(memberID)
}

// GetRoom returns the room snapshot for the REST probe.
func (s *service) GetRoom(ctx context.Context, code string) (registry.RoomSnapshot, error) {
	return s.registry.Snapshot(ctx, code)
}
