package roomclient

import (
	"encoding/json"
	"time"
)

// client -> server
const (
	TypeRoomCreate    = "room.create"
	TypeRoomJoin      = "room.join"
	TypeRoomLeave     = "room.leave"
	TypeChatSend      = "chat.send"
	TypeReactionSend  = "reaction.send"
	TypePlaybackPlay  = "playback.play"
	TypePlaybackPause = "playback.pause"
	TypePlaybackSeek  = "playback.seek"
	TypeVoiceSignal   = "voice.signal"
	TypeVoiceSpeaking = "voice.speaking"
	TypeVoiceMute     = "voice.toggle-mute"
	TypeHostMuteUser  = "host.mute-user"
	TypeAlive         = "alive"
)

// server -> client
const (
	TypeRoomState         = "room.state"
	TypeMemberJoined      = "room.member-joined"
	TypeMemberLeft        = "room.member-left"
	TypeChatMessage       = "chat.message"
	TypeReactionBroadcast = "reaction.broadcast"
	TypePlaybackUpdate    = "playback.update"
	TypeMutedByHost       = "voice.muted-by-host"
	TypeError             = "error"
)

type Member struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Color      string `json:"color"`
	IsHost     bool   `json:"is_host"`
	IsMuted    bool   `json:"is_muted"`
	IsSpeaking bool   `json:"is_speaking"`
}

type Playback struct {
	IsPlaying       bool    `json:"is_playing"`
	PositionSeconds float64 `json:"position_seconds"`
	LastUpdatedAt   int64   `json:"last_updated_at"`
}

// EffectivePosition extrapolates the position a late joiner should seek to.
// The server never extrapolates; reconciling elapsed wall time since the last
// host command is the client's job.
func (p Playback) EffectivePosition(now time.Time) float64 {
	if !p.IsPlaying || p.LastUpdatedAt == 0 {
		return p.PositionSeconds
	}

	elapsed := float64(now.UnixMilli()-p.LastUpdatedAt) / 1000
	if elapsed < 0 {
		elapsed = 0
	}

	return p.PositionSeconds + elapsed
}

type ChatMessage struct {
	ID       string `json:"id"`
	RoomCode string `json:"room_code"`
	MemberID string `json:"member_id"`
	Username string `json:"username"`
	Body     string `json:"body"`
	SentAt   int64  `json:"sent_at"`
}

type Reaction struct {
	Emoji     string `json:"emoji"`
	OriginID  string `json:"origin_id"`
	CreatedAt int64  `json:"created_at"`
}

type Content struct {
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
}

type Room struct {
	Code        string        `json:"code"`
	ContentType string        `json:"content_type"`
	ContentID   string        `json:"content_id"`
	EpisodeID   string        `json:"episode_id,omitempty"`
	HostID      string        `json:"host_id"`
	Members     []Member      `json:"members"`
	Playback    Playback      `json:"playback"`
	ChatLog     []ChatMessage `json:"chat_log"`
	Content     Content       `json:"content"`
}

type RoomStatePayload struct {
	Room     Room   `json:"room"`
	MemberID string `json:"member_id"`
}

type MemberJoinedPayload struct {
	Member       Member `json:"member"`
	MembersCount int    `json:"members_count"`
}

type MemberLeftPayload struct {
	MemberID     string `json:"member_id"`
	Username     string `json:"username"`
	NewHostID    string `json:"new_host_id,omitempty"`
	MembersCount int    `json:"members_count"`
}

type PlaybackUpdatePayload struct {
	Playback Playback `json:"playback"`
}

type MuteUpdatePayload struct {
	MemberID string `json:"member_id"`
	IsMuted  bool   `json:"is_muted"`
}

type SpeakingPayload struct {
	MemberID   string `json:"member_id"`
	IsSpeaking bool   `json:"is_speaking"`
}

type MutedByHostPayload struct {
	IsMuted bool `json:"is_muted"`
}

type SignalPayload struct {
	FromID  string          `json:"from_id"`
	Payload json.RawMessage `json:"payload"`
}

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
