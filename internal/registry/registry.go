// Package registry owns the table of active watch-together rooms and the
// authoritative state machine of each room. Mutations are applied atomically
// per room: the room's lock is held from validation through the event
// publishes the mutation produces, so every member observes the events of one
// room in the order the mutations were accepted. Rooms never share a lock, so
// unrelated rooms never contend.
package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cinesync/server/internal/wire"
	"github.com/cinesync/server/pkg/randstr"
)

// EventSink receives the events a mutation produced. Implementations must not
// block: they are invoked while the room's lock is held.
type EventSink interface {
	Broadcast(roomCode string, memberIDs []string, frame wire.Frame)
	SendTo(roomCode string, memberID string, frame wire.Frame)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	ChatLogLimit int
	CodeLength   int
	// MembersLimit caps the members of one room; 0 means unlimited.
	MembersLimit int
}

type Registry struct {
	table  roomTable
	sink   EventSink
	logger *slog.Logger
	gen    iGenerator

	chatLogLimit int
	codeLength   int
	membersLimit int
}

func New(sink EventSink, cfg *Config, logger *slog.Logger) *Registry {
	letterBytes := []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

	return &Registry{
		table:        roomTable{rooms: make(map[string]*room)},
		sink:         sink,
		logger:       logger,
		gen:          randstr.New(letterBytes),
		chatLogLimit: cfg.ChatLogLimit,
		codeLength:   cfg.CodeLength,
		membersLimit: cfg.MembersLimit,
	}
}

type CreateRoomParams struct {
	ContentType string
	ContentID   string
	EpisodeID   string
	MemberID    string
	Username    string
}

// CreateRoom allocates a fresh code, creates the room with the caller as its
// only member and host, and delivers the initial room.state snapshot to the
// caller.
func (r *Registry) CreateRoom(ctx context.Context, params *CreateRoomParams) (RoomSnapshot, error) {
	rm := &room{
		contentType: params.ContentType,
		contentID:   params.ContentID,
		episodeID:   params.EpisodeID,
		hostID:      params.MemberID,
		playback:    Playback{LastUpdatedAt: time.Now().UnixMilli()},
	}
	rm.addMember(params.MemberID, params.Username)

	// the new room's lock is taken before it becomes reachable through the
	// table, so the snapshot publish below still precedes any join
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r.table.insert(rm, func() string { return r.gen.GenerateRandomString(r.codeLength) })

	r.logger.InfoContext(ctx, "room created",
		"room_code", rm.code,
		"content_type", rm.contentType,
		"content_id", rm.contentID,
	)

	snapshot := rm.snapshot()
	r.sink.SendTo(rm.code, params.MemberID, wire.Frame{
		Type:    wire.TypeRoomState,
		Payload: RoomStatePayload{Room: snapshot, MemberID: params.MemberID},
	})

	return snapshot, nil
}

type JoinRoomParams struct {
	Code     string
	MemberID string
	Username string
}

// JoinRoom appends a non-host member, rejecting joins past the configured
// members limit. The joiner receives the room.state snapshot and everyone
// else receives room.member-joined, in that order relative to all other
// events of the room.
func (r *Registry) JoinRoom(ctx context.Context, params *JoinRoomParams) (RoomSnapshot, error) {
	var snapshot RoomSnapshot
	err := r.withRoom(params.Code, func(rm *room) error {
		if r.membersLimit > 0 && len(rm.members) >= r.membersLimit {
			return ErrMembersLimitReached
		}

		m := rm.addMember(params.MemberID, params.Username)

		snapshot = rm.snapshot()
		r.sink.SendTo(rm.code, params.MemberID, wire.Frame{
			Type:    wire.TypeRoomState,
			Payload: RoomStatePayload{Room: snapshot, MemberID: params.MemberID},
		})
		r.sink.Broadcast(rm.code, rm.memberIDsExcept(params.MemberID), wire.Frame{
			Type: wire.TypeMemberJoined,
			Payload: MemberJoinedPayload{
				Member:       rm.memberSummary(m),
				MembersCount: len(rm.members),
			},
		})

		return nil
	})
	if err != nil {
		return RoomSnapshot{}, err
	}

	r.logger.InfoContext(ctx, "member joined", "room_code", params.Code, "member_id", params.MemberID)

	return snapshot, nil
}

type LeaveResult struct {
	WasMember     bool
	RoomDestroyed bool
	NewHostID     string
}

// Leave removes the member, promotes the next-oldest member when the host
// departs, and destroys the room the moment it has no members. Leaving a room
// one is not in, or a room that no longer exists, is a no-op.
func (r *Registry) Leave(ctx context.Context, code, memberID string) (LeaveResult, error) {
	var result LeaveResult
	err := r.withRoom(code, func(rm *room) error {
		removed, newHostID, ok := rm.removeMember(memberID)
		if !ok {
			return nil
		}
		result.WasMember = true
		result.NewHostID = newHostID

		if len(rm.members) == 0 {
			r.table.remove(rm)
			result.RoomDestroyed = true
			return nil
		}

		r.sink.Broadcast(rm.code, rm.memberIDs(), wire.Frame{
			Type: wire.TypeMemberLeft,
			Payload: MemberLeftPayload{
				MemberID:     removed.id,
				Username:     removed.username,
				NewHostID:    newHostID,
				MembersCount: len(rm.members),
			},
		})

		return nil
	})
	if err != nil {
		// leaving twice is a no-op, not an error
		return result, nil
	}

	if result.RoomDestroyed {
		r.logger.InfoContext(ctx, "room destroyed", "room_code", code)
	}

	return result, nil
}

// AppendChat adds a message to the bounded chat log and broadcasts it.
func (r *Registry) AppendChat(ctx context.Context, code, memberID, body string) (ChatMessage, error) {
	var msg ChatMessage
	err := r.withRoom(code, func(rm *room) error {
		m := rm.memberByID(memberID)
		if m == nil {
			return ErrMemberNotFound
		}

		msg = rm.appendChat(m, body, uuid.NewString(), r.chatLogLimit)
		r.sink.Broadcast(rm.code, rm.memberIDs(), wire.Frame{
			Type:    wire.TypeChatMessage,
			Payload: msg,
		})

		return nil
	})

	return msg, err
}

// BroadcastReaction fans an ephemeral reaction out to the room. Nothing is
// stored; a reaction only exists long enough to be rendered.
func (r *Registry) BroadcastReaction(ctx context.Context, code, memberID, emoji string) error {
	return r.withRoom(code, func(rm *room) error {
		m := rm.memberByID(memberID)
		if m == nil {
			return ErrMemberNotFound
		}

		r.sink.Broadcast(rm.code, rm.memberIDs(), wire.Frame{
			Type: wire.TypeReactionBroadcast,
			Payload: Reaction{
				Emoji:     emoji,
				OriginID:  m.id,
				CreatedAt: time.Now().UnixMilli(),
			},
		})

		return nil
	})
}

type PlaybackAction string

const (
	PlaybackPlay  PlaybackAction = "play"
	PlaybackPause PlaybackAction = "pause"
	PlaybackSeek  PlaybackAction = "seek"
)

// SetPlayback applies a host-issued play/pause/seek command and rebroadcasts
// the resulting playback state. Non-host requests are rejected with
// ErrNotAuthorized and leave the state untouched.
func (r *Registry) SetPlayback(ctx context.Context, code, requesterID string, action PlaybackAction, positionSeconds float64) (Playback, error) {
	var playback Playback
	err := r.withRoom(code, func(rm *room) error {
		if rm.memberByID(requesterID) == nil {
			return ErrMemberNotFound
		}
		if rm.hostID != requesterID {
			return ErrNotAuthorized
		}

		now := time.Now()
		rm.advancePlayback(now)

		switch action {
		case PlaybackPlay:
			rm.playback.IsPlaying = true
		case PlaybackPause:
			rm.playback.IsPlaying = false
		case PlaybackSeek:
			rm.playback.PositionSeconds = positionSeconds
		}
		rm.playback.LastUpdatedAt = now.UnixMilli()

		playback = rm.playback
		r.sink.Broadcast(rm.code, rm.memberIDs(), wire.Frame{
			Type:    wire.TypePlaybackUpdate,
			Payload: PlaybackUpdatePayload{Playback: playback},
		})

		return nil
	})

	return playback, err
}

// SetSelfMute flips the caller's own mute flag. Self-targeting always
// succeeds regardless of host status.
func (r *Registry) SetSelfMute(ctx context.Context, code, memberID string, muted bool) error {
	return r.withRoom(code, func(rm *room) error {
		m := rm.memberByID(memberID)
		if m == nil {
			return ErrMemberNotFound
		}

		m.isMuted = muted
		r.sink.Broadcast(rm.code, rm.memberIDs(), wire.Frame{
			Type:    wire.TypeVoiceMuteRecv,
			Payload: MuteUpdatePayload{MemberID: m.id, IsMuted: muted},
		})

		return nil
	})
}

// HostSetMute is the host-override path. Forced mute applies immediately and
// unconditionally; requesting an unmute only delivers a consent prompt to the
// target and never changes state here. A host must use the self path for
// their own flag.
func (r *Registry) HostSetMute(ctx context.Context, code, requesterID, targetID string, muted bool) error {
	return r.withRoom(code, func(rm *room) error {
		if rm.memberByID(requesterID) == nil {
			return ErrMemberNotFound
		}
		if rm.hostID != requesterID || targetID == requesterID {
			return ErrNotAuthorized
		}

		target := rm.memberByID(targetID)
		if target == nil {
			return ErrPeerNotInRoom
		}

		r.sink.SendTo(rm.code, targetID, wire.Frame{
			Type:    wire.TypeMutedByHost,
			Payload: MutedByHostPayload{IsMuted: muted},
		})

		if !muted {
			// unmute stays a request until the target confirms via the
			// self path
			return nil
		}

		target.isMuted = true
		r.sink.Broadcast(rm.code, rm.memberIDs(), wire.Frame{
			Type:    wire.TypeVoiceMuteRecv,
			Payload: MuteUpdatePayload{MemberID: targetID, IsMuted: true},
		})

		return nil
	})
}

// SetSpeaking updates the advisory speaking flag and fans it out.
func (r *Registry) SetSpeaking(ctx context.Context, code, memberID string, speaking bool) error {
	return r.withRoom(code, func(rm *room) error {
		m := rm.memberByID(memberID)
		if m == nil {
			return ErrMemberNotFound
		}

		m.isSpeaking = speaking
		r.sink.Broadcast(rm.code, rm.memberIDs(), wire.Frame{
			Type:    wire.TypeVoiceSpeakingRecv,
			Payload: SpeakingPayload{MemberID: m.id, IsSpeaking: speaking},
		})

		return nil
	})
}

// RelaySignal forwards a WebRTC signaling payload verbatim to one named peer.
// The payload is never inspected; only co-membership of the two peers is
// enforced. Delivery is best-effort: a momentarily disconnected target simply
// misses the signal.
func (r *Registry) RelaySignal(ctx context.Context, code, fromID, toID string, payload json.RawMessage) error {
	return r.withRoom(code, func(rm *room) error {
		if rm.memberByID(fromID) == nil || rm.memberByID(toID) == nil {
			return ErrPeerNotInRoom
		}

		r.sink.SendTo(rm.code, toID, wire.Frame{
			Type:    wire.TypeVoiceSignalRecv,
			Payload: SignalPayload{FromID: fromID, Payload: payload},
		})

		return nil
	})
}

// SetContent attaches resolved catalog metadata so later snapshots carry the
// room-header title and poster. Lookup runs lazily after creation; members
// already in the room simply render without it.
func (r *Registry) SetContent(ctx context.Context, code string, content ContentMeta) error {
	return r.withRoom(code, func(rm *room) error {
		rm.content = content
		return nil
	})
}

// Snapshot returns the room's current state without mutating anything.
func (r *Registry) Snapshot(ctx context.Context, code string) (RoomSnapshot, error) {
	var snapshot RoomSnapshot
	err := r.withRoom(code, func(rm *room) error {
		snapshot = rm.snapshot()
		return nil
	})

	return snapshot, err
}

// withRoom runs fn with the room's lock held. The registry table lock is
// released before the room lock is taken, so no caller ever holds both except
// room destruction, which removes a room the caller already owns.
func (r *Registry) withRoom(code string, fn func(*room) error) error {
	rm, ok := r.table.get(code)
	if !ok {
		return ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.destroyed {
		return ErrRoomNotFound
	}

	return fn(rm)
}
