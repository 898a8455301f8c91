package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/registry"
	"github.com/cinesync/server/internal/service/room"
)

type EmptyInput struct{}

func (c *controller) handleAlive(_ context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return nil
}

func (c *controller) handleRoomLeave(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	// Disconnect closes the connection through the relay, which ends the
	// read loop; the deferred disconnect in serveWS is a no-op
	c.roomService.Disconnect(ctx, c.getRoomCodeFromCtx(ctx), c.getMemberIdFromCtx(ctx))

	return nil
}

type ChatSendInput struct {
	Body string `json:"body" validate:"required,max=2000"`
}

func (c *controller) handleChatSend(ctx context.Context, _ *websocket.Conn, input ChatSendInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if _, err := c.roomService.SendChat(ctx, &room.SendChatParams{
		RoomCode: c.getRoomCodeFromCtx(ctx),
		SenderID: c.getMemberIdFromCtx(ctx),
		Body:     input.Body,
	}); err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}

	return nil
}

type ReactionSendInput struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

func (c *controller) handleReactionSend(ctx context.Context, _ *websocket.Conn, input ReactionSendInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if err := c.roomService.SendReaction(ctx, &room.SendReactionParams{
		RoomCode: c.getRoomCodeFromCtx(ctx),
		SenderID: c.getMemberIdFromCtx(ctx),
		Emoji:    input.Emoji,
	}); err != nil {
		return fmt.Errorf("failed to send reaction: %w", err)
	}

	return nil
}

func (c *controller) handlePlaybackPlay(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.setPlayback(ctx, registry.PlaybackPlay, 0)
}

func (c *controller) handlePlaybackPause(ctx context.Context, _ *websocket.Conn, _ EmptyInput) error {
	return c.setPlayback(ctx, registry.PlaybackPause, 0)
}

type PlaybackSeekInput struct {
	PositionSeconds float64 `json:"position_seconds" validate:"min=0"`
}

func (c *controller) handlePlaybackSeek(ctx context.Context, _ *websocket.Conn, input PlaybackSeekInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	return c.setPlayback(ctx, registry.PlaybackSeek, input.PositionSeconds)
}

func (c *controller) setPlayback(ctx context.Context, action registry.PlaybackAction, positionSeconds float64) error {
	if _, err := c.roomService.SetPlayback(ctx, &room.SetPlaybackParams{
		RoomCode:        c.getRoomCodeFromCtx(ctx),
		SenderID:        c.getMemberIdFromCtx(ctx),
		Action:          action,
		PositionSeconds: positionSeconds,
	}); err != nil {
		return fmt.Errorf("failed to set playback: %w", err)
	}

	return nil
}

type VoiceSignalInput struct {
	TargetID string          `json:"target_id" validate:"required"`
	Payload  json.RawMessage `json:"payload" validate:"required"`
}

func (c *controller) handleVoiceSignal(ctx context.Context, _ *websocket.Conn, input VoiceSignalInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if err := c.roomService.RelaySignal(ctx, &room.RelaySignalParams{
		RoomCode: c.getRoomCodeFromCtx(ctx),
		SenderID: c.getMemberIdFromCtx(ctx),
		TargetID: input.TargetID,
		Payload:  input.Payload,
	}); err != nil {
		return fmt.Errorf("failed to relay signal: %w", err)
	}

	return nil
}

type VoiceSpeakingInput struct {
	IsSpeaking bool `json:"is_speaking"`
}

func (c *controller) handleVoiceSpeaking(ctx context.Context, _ *websocket.Conn, input VoiceSpeakingInput) error {
	if err := c.roomService.SetSpeaking(ctx, &room.SetSpeakingParams{
		RoomCode:   c.getRoomCodeFromCtx(ctx),
		SenderID:   c.getMemberIdFromCtx(ctx),
		IsSpeaking: input.IsSpeaking,
	}); err != nil {
		return fmt.Errorf("failed to set speaking: %w", err)
	}

	return nil
}

type ToggleMuteInput struct {
	IsMuted bool `json:"is_muted"`
}

func (c *controller) handleToggleMute(ctx context.Context, _ *websocket.Conn, input ToggleMuteInput) error {
	if err := c.roomService.ToggleMute(ctx, &room.ToggleMuteParams{
		RoomCode: c.getRoomCodeFromCtx(ctx),
		SenderID: c.getMemberIdFromCtx(ctx),
		IsMuted:  input.IsMuted,
	}); err != nil {
		return fmt.Errorf("failed to toggle mute: %w", err)
	}

	return nil
}

type HostMuteUserInput struct {
	TargetID string `json:"target_id" validate:"required"`
	IsMuted  bool   `json:"is_muted"`
}

func (c *controller) handleHostMuteUser(ctx context.Context, _ *websocket.Conn, input HostMuteUserInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}

	if err := c.roomService.HostMute(ctx, &room.HostMuteParams{
		RoomCode: c.getRoomCodeFromCtx(ctx),
		SenderID: c.getMemberIdFromCtx(ctx),
		TargetID: input.TargetID,
		IsMuted:  input.IsMuted,
	}); err != nil {
		return fmt.Errorf("failed to host-mute member: %w", err)
	}

	return nil
}
