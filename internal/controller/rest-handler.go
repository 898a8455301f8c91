package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cinesync/server/internal/registry"
	"github.com/cinesync/server/pkg/rest"
)

type roomProbeResponse struct {
	Code        string `json:"code"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	MemberCount int    `json:"member_count"`
}

// getRoom lets the web app check a code before opening a socket, so a dead
// code gets a proper join screen instead of a failed websocket handshake.
func (c *controller) getRoom(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "room-code")

	snapshot, err := c.roomService.GetRoom(r.Context(), code)
	if err != nil {
		if errors.Is(err, registry.ErrRoomNotFound) {
			rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
			return
		}

		c.logger.ErrorContext(r.Context(), "failed to get room", "room_code", code, "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": roomProbeResponse{
		Code:        snapshot.Code,
		ContentType: snapshot.ContentType,
		ContentID:   snapshot.ContentID,
		MemberCount: len(snapshot.Members),
	}})
}
