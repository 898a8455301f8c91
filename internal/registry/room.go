package registry

import (
	"slices"
	"sync"
	"time"
)

// memberColors is cycled through in join order so a member's color is stable
// for the lifetime of the room.
var memberColors = []string{
	"e74c3c", "3498db", "2ecc71", "f1c40f", "9b59b6",
	"e67e22", "1abc9c", "fd79a8", "34495e", "7f8c8d",
}

type member struct {
	id         string
	username   string
	color      string
	isMuted    bool
	isSpeaking bool
}

// room is the authoritative state of one watch-together session. Every field
// is guarded by mu; mutations and the event publishes they produce happen
// under the same critical section so members observe them in acceptance
// order.
type room struct {
	mu sync.Mutex

	code        string
	contentType string
	contentID   string
	episodeID   string
	hostID      string
	members     []*member // join order
	playback    Playback
	chatLog     []ChatMessage
	content     ContentMeta
	colorSeq    int

	// set when the room is removed from the registry table; a caller that
	// grabbed the room pointer before removal must treat it as gone
	destroyed bool
}

func (rm *room) memberByID(id string) *member {
	for _, m := range rm.members {
		if m.id == id {
			return m
		}
	}

	return nil
}

func (rm *room) memberIDs() []string {
	ids := make([]string, len(rm.members))
	for i, m := range rm.members {
		ids[i] = m.id
	}

	return ids
}

func (rm *room) memberIDsExcept(exclude string) []string {
	ids := make([]string, 0, len(rm.members))
	for _, m := range rm.members {
		if m.id != exclude {
			ids = append(ids, m.id)
		}
	}

	return ids
}

func (rm *room) addMember(id, username string) *member {
	m := &member{
		id:       id,
		username: username,
		color:    memberColors[rm.colorSeq%len(memberColors)],
	}
	rm.colorSeq++
	rm.members = append(rm.members, m)

	return m
}

// removeMember deletes the member and reassigns host authority to the
// next-oldest remaining member when the host leaves. Join order is total, so
// the promotion is deterministic.
func (rm *room) removeMember(id string) (removed *member, newHostID string, ok bool) {
	idx := slices.IndexFunc(rm.members, func(m *member) bool { return m.id == id })
	if idx < 0 {
		return nil, "", false
	}

	removed = rm.members[idx]
	rm.members = slices.Delete(rm.members, idx, idx+1)

	if rm.hostID == id && len(rm.members) > 0 {
		rm.hostID = rm.members[0].id
		newHostID = rm.hostID
	}

	return removed, newHostID, true
}

func (rm *room) appendChat(m *member, body string, id string, limit int) ChatMessage {
	msg := ChatMessage{
		ID:       id,
		RoomCode: rm.code,
		MemberID: m.id,
		Username: m.username,
		Body:     body,
		SentAt:   time.Now().UnixMilli(),
	}

	rm.chatLog = append(rm.chatLog, msg)
	if limit > 0 && len(rm.chatLog) > limit {
		rm.chatLog = rm.chatLog[len(rm.chatLog)-limit:]
	}

	return msg
}

// advancePlayback folds elapsed wall time into the position while playing, so
// the stored position is current at the moment a new host command lands.
func (rm *room) advancePlayback(now time.Time) {
	if rm.playback.IsPlaying && rm.playback.LastUpdatedAt > 0 {
		elapsed := float64(now.UnixMilli()-rm.playback.LastUpdatedAt) / 1000
		if elapsed > 0 {
			rm.playback.PositionSeconds += elapsed
		}
	}
}

func (rm *room) memberSummary(m *member) Member {
	return Member{
		ID:         m.id,
		Username:   m.username,
		Color:      m.color,
		IsHost:     m.id == rm.hostID,
		IsMuted:    m.isMuted,
		IsSpeaking: m.isSpeaking,
	}
}

func (rm *room) snapshot() RoomSnapshot {
	members := make([]Member, len(rm.members))
	for i, m := range rm.members {
		members[i] = rm.memberSummary(m)
	}

	chatLog := make([]ChatMessage, len(rm.chatLog))
	copy(chatLog, rm.chatLog)

	return RoomSnapshot{
		Code:        rm.code,
		ContentType: rm.contentType,
		ContentID:   rm.contentID,
		EpisodeID:   rm.episodeID,
		HostID:      rm.hostID,
		Members:     members,
		Playback:    rm.playback,
		ChatLog:     chatLog,
		Content:     rm.content,
	}
}
