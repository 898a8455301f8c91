package registry

import "encoding/json"

type Playback struct {
	IsPlaying       bool    `json:"is_playing"`
	PositionSeconds float64 `json:"position_seconds"`
	LastUpdatedAt   int64   `json:"last_updated_at"`
}

type Member struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Color      string `json:"color"`
	IsHost     bool   `json:"is_host"`
	IsMuted    bool   `json:"is_muted"`
	IsSpeaking bool   `json:"is_speaking"`
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

type ContentMeta struct {
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
}

type RoomSnapshot struct {
	Code        string        `json:"code"`
	ContentType string        `json:"content_type"`
	ContentID   string        `json:"content_id"`
	EpisodeID   string        `json:"episode_id,omitempty"`
	HostID      string        `json:"host_id"`
	Members     []Member      `json:"members"`
	Playback    Playback      `json:"playback"`
	ChatLog     []ChatMessage `json:"chat_log"`
	Content     ContentMeta   `json:"content"`
}

// wire payloads built by the registry

type RoomStatePayload struct {
	Room     RoomSnapshot `json:"room"`
	MemberID string       `json:"member_id"`
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
