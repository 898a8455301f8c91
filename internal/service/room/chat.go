package room

import (
	"context"
	"fmt"

	"github.com/cinesync/server/internal/registry"
)

type SendChatParams struct {
	RoomCode string
	SenderID string
	Body     string
}

func (s *service) SendChat(ctx context.Context, params *SendChatParams) (registry.ChatMessage, error) {
	msg, err := s.registry.AppendChat(ctx, params.RoomCode, params.SenderID, params.Body)
	if err != nil {
		return registry.ChatMessage{}, fmt.Errorf("failed to append chat message: %w", err)
	}

	return msg, nil
}

type SendReactionParams struct {
	RoomCode string
	SenderID string
	Emoji    string
}

func (s *service) SendReaction(ctx context.Context, params *SendReactionParams) error {
	if err := s.registry.BroadcastReaction(ctx, params.RoomCode, params.SenderID, params.Emoji); err != nil {
		return fmt.Errorf("failed to broadcast reaction: %w", err)
	}

	return nil
}
