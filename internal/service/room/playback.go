package room

import (
	"context"

	"github.com/cinesync/server/internal/registry"
)

type SetPlaybackParams struct {
	RoomCode        string
	SenderID        string
	Action          registry.PlaybackAction
	PositionSeconds float64
}

// SetPlayback applies a host play/pause/seek command. Non-host requests are
// rejected by the registry with ErrNotAuthorized; the caller is told rather
// than silently ignored.
func (s *service) SetPlayback(ctx context.Context, params *SetPlaybackParams) (registry.Playback, error) {
	return s.registry.SetPlayback(ctx, params.RoomCode, params.SenderID, params.Action, params.PositionSeconds)
}
