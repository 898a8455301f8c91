package room

import (
	"context"
	"encoding/json"
)

type ToggleMuteParams struct {
	RoomCode string
	SenderID string
	IsMuted  bool
}

func (s *service) ToggleMute(ctx context.Context, params *ToggleMuteParams) error {
	return s.registry.SetSelfMute(ctx, params.RoomCode, params.SenderID, params.IsMuted)
}

type HostMuteParams struct {
	RoomCode string
	SenderID string
	TargetID string
	IsMuted  bool
}

func (s *service) HostMute(ctx context.Context, params *HostMuteParams) error {
	return s.registry.HostSetMute(ctx, params.RoomCode, params.SenderID, params.TargetID, params.IsMuted)
}

type SetSpeakingParams struct {
	RoomCode   string
	SenderID   string
	IsSpeaking bool
}

func (s *service) SetSpeaking(ctx context.Context, params *SetSpeakingParams) error {
	return s.registry.SetSpeaking(ctx, params.RoomCode, params.SenderID, params.IsSpeaking)
}

type RelaySignalParams struct {
	RoomCode string
	SenderID string
	TargetID string
	Payload  json.RawMessage
}

// RelaySignal brokers one WebRTC signaling envelope between two peers of the
// same room. The payload passes through untouched.
func (s *service) RelaySignal(ctx context.Context, params *RelaySignalParams) error {
	return s.registry.RelaySignal(ctx, params.RoomCode, params.SenderID, params.TargetID, params.Payload)
}
