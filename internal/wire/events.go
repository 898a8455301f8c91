// Package wire defines the websocket framing shared by the server and the
// client SDK: one JSON object per frame, {"type": ..., "payload": ...}.
package wire

import "encoding/json"

// client -> server
const (
	TypeRoomCreate     = "room.create"
	TypeRoomJoin       = "room.join"
	TypeRoomLeave      = "room.leave"
	TypeChatSend       = "chat.send"
	TypeReactionSend   = "reaction.send"
	TypePlaybackPlay   = "playback.play"
	TypePlaybackPause  = "playback.pause"
	TypePlaybackSeek   = "playback.seek"
	TypeVoiceSignal    = "voice.signal"
	TypeVoiceSpeaking  = "voice.speaking"
	TypeVoiceMute      = "voice.toggle-mute"
	TypeHostMuteUser   = "host.mute-user"
	TypeAlive          = "alive"
)

// server -> client
const (
	TypeRoomState         = "room.state"
	TypeMemberJoined      = "room.member-joined"
	TypeMemberLeft        = "room.member-left"
	TypeChatMessage       = "chat.message"
	TypeReactionBroadcast = "reaction.broadcast"
	TypePlaybackUpdate    = "playback.update"
	TypeVoiceSignalRecv   = "voice.signal"
	TypeVoiceSpeakingRecv = "voice.speaking"
	TypeVoiceMuteRecv     = "voice.toggle-mute"
	TypeMutedByHost       = "voice.muted-by-host"
	TypeError             = "error"
)

type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// RawFrame is the inbound counterpart of Frame: the payload stays raw until
// the handler for the frame's type knows what to unmarshal it into.
type RawFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// error kinds carried in ErrorPayload.Kind
const (
	KindRoomNotFound            = "RoomNotFound"
	KindRoomFull                = "RoomFull"
	KindNotAuthorized           = "NotAuthorized"
	KindPeerNotInRoom           = "PeerNotInRoom"
	KindInvalidContentReference = "InvalidContentReference"
	KindBadRequest              = "BadRequest"
	KindInternal                = "Internal"
)

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
