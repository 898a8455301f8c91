// Package roomclient is a websocket client for the cinesync server. It keeps
// a single connection, dispatches server events to user callbacks and exposes
// a send helper per client event.
package roomclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout  = 10 * time.Second
	aliveInterval = 25 * time.Second
)

// Handlers holds the user callbacks. Nil callbacks are skipped. All callbacks
// run on the client's single read loop, so they must not block.
type Handlers struct {
	OnRoomState      func(RoomStatePayload)
	OnMemberJoined   func(MemberJoinedPayload)
	OnMemberLeft     func(MemberLeftPayload)
	OnChatMessage    func(ChatMessage)
	OnReaction       func(Reaction)
	OnPlaybackUpdate func(PlaybackUpdatePayload)
	OnMuteUpdate     func(MuteUpdatePayload)
	OnSpeaking       func(SpeakingPayload)
	OnMutedByHost    func(MutedByHostPayload)
	OnSignal         func(SignalPayload)
	OnError          func(ErrorPayload)
	OnDisconnect     func(error)
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Client struct {
	conn     *websocket.Conn
	handlers Handlers
	logger   *slog.Logger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Dial connects to the server's websocket endpoint. wsURL is the full
// endpoint url, e.g. ws://localhost:8080/api/v1/ws. The read loop starts
// immediately; the caller must send a room.create or room.join frame next,
// the server closes connections that send anything else first.
func Dial(ctx context.Context, wsURL string, handlers Handlers, opts ...Option) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	c := &Client{
		conn:     conn,
		handlers: handlers,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.readLoop()
	go c.aliveLoop()

	return c, nil
}

func (c *Client) CreateRoom(contentType, contentID, episodeID, username string) error {
	return c.send(TypeRoomCreate, map[string]string{
		"content_type": contentType,
		"content_id":   contentID,
		"episode_id":   episodeID,
		"username":     username,
	})
}

func (c *Client) JoinRoom(roomCode, username string) error {
	return c.send(TypeRoomJoin, map[string]string{
		"code":     roomCode,
		"username": username,
	})
}

func (c *Client) Leave() error {
	return c.send(TypeRoomLeave, nil)
}

func (c *Client) SendChat(body string) error {
	return c.send(TypeChatSend, map[string]string{"body": body})
}

func (c *Client) SendReaction(emoji string) error {
	return c.send(TypeReactionSend, map[string]string{"emoji": emoji})
}

// Play resumes playback at the current position. Host only.
func (c *Client) Play() error {
	return c.send(TypePlaybackPlay, nil)
}

// Pause stops playback at the current position. Host only.
func (c *Client) Pause() error {
	return c.send(TypePlaybackPause, nil)
}

func (c *Client) Seek(positionSeconds float64) error {
	return c.send(TypePlaybackSeek, map[string]float64{"position_seconds": positionSeconds})
}

// SendSignal forwards an opaque signaling payload to another room member.
func (c *Client) SendSignal(targetID string, payload json.RawMessage) error {
	return c.send(TypeVoiceSignal, map[string]any{
		"target_id": targetID,
		"payload":   payload,
	})
}

func (c *Client) SetSpeaking(speaking bool) error {
	return c.send(TypeVoiceSpeaking, map[string]bool{"is_speaking": speaking})
}

func (c *Client) SetMuted(muted bool) error {
	return c.send(TypeVoiceMute, map[string]bool{"is_muted": muted})
}

// MuteMember mutes or requests unmute of another member. Host only.
func (c *Client) MuteMember(memberID string, muted bool) error {
	return c.send(TypeHostMuteUser, map[string]any{
		"target_id": memberID,
		"is_muted":  muted,
	})
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) send(messageType string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", messageType, err)
		}
		raw = b
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(frame{Type: messageType, Payload: raw}); err != nil {
		return fmt.Errorf("write %s: %w", messageType, err)
	}

	return nil
}

func (c *Client) readLoop() {
	for {
		var f frame
		if err := c.conn.ReadJSON(&f); err != nil {
			select {
			case <-c.done:
			default:
				if c.handlers.OnDisconnect != nil {
					c.handlers.OnDisconnect(err)
				}
			}
			return
		}

		c.dispatch(f)
	}
}

func (c *Client) dispatch(f frame) {
	switch f.Type {
	case TypeRoomState:
		dispatchTo(c, f, c.handlers.OnRoomState)
	case TypeMemberJoined:
		dispatchTo(c, f, c.handlers.OnMemberJoined)
	case TypeMemberLeft:
		dispatchTo(c, f, c.handlers.OnMemberLeft)
	case TypeChatMessage:
		dispatchTo(c, f, c.handlers.OnChatMessage)
	case TypeReactionBroadcast:
		dispatchTo(c, f, c.handlers.OnReaction)
	case TypePlaybackUpdate:
		dispatchTo(c, f, c.handlers.OnPlaybackUpdate)
	case TypeVoiceMute:
		dispatchTo(c, f, c.handlers.OnMuteUpdate)
	case TypeVoiceSpeaking:
		dispatchTo(c, f, c.handlers.OnSpeaking)
	case TypeMutedByHost:
		dispatchTo(c, f, c.handlers.OnMutedByHost)
	case TypeVoiceSignal:
		dispatchTo(c, f, c.handlers.OnSignal)
	case TypeError:
		dispatchTo(c, f, c.handlers.OnError)
	default:
		c.logger.Debug("unknown server event", "type", f.Type)
	}
}

func dispatchTo[T any](c *Client, f frame, handler func(T)) {
	if handler == nil {
		return
	}

	var payload T
	if len(f.Payload) > 0 {
		if err := json.Unmarshal(f.Payload, &payload); err != nil {
			c.logger.Error("decode server event", "type", f.Type, "error", err)
			return
		}
	}

	handler(payload)
}

func (c *Client) aliveLoop() {
	ticker := time.NewTicker(aliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.send(TypeAlive, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
