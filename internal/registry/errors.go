package registry

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrPeerNotInRoom       = errors.New("peer not in room")
	ErrMembersLimitReached = errors.New("members limit reached")
)
