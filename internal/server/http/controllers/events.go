package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/delivery"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/runtime"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

// EventsController handles the producer-facing publish endpoint.
type EventsController struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

func NewEventsController(rt *runtime.Runtime, logger logpkg.Logger) *EventsController {
	return &EventsController{rt: rt, logger: logger}
}

// RegisterRoutes registers event routes with the given mux.
func (c *EventsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/events/publish", c.handlePublish)
}

type publishReq struct {
	Channel string      `json:"channel"`
	Event   event.Event `json:"event"`
	// Invalidate additionally broadcasts cache-invalidation keys derived
	// from the event.
	Invalidate bool `json:"invalidate,omitempty"`
}

type publishResp struct {
	Seq uint64 `json:"seq"`
}

// handlePublish accepts one domain event for a channel and returns the
// assigned sequence number.
func (c *EventsController) handlePublish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req publishReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Event.TenantID == "" {
		req.Event.TenantID = tenantFrom(r, c.rt.Config().DefaultTenantName)
	}
	if req.Event.ActorID == "" {
		req.Event.ActorID = actorFrom(r)
	}

	seq, err := c.rt.Delivery().Publish(r.Context(), req.Channel, req.Event)
	if err != nil {
		switch {
		case errors.Is(err, delivery.ErrEmptyChannel),
			errors.Is(err, event.ErrMissingTenant),
			errors.Is(err, event.ErrMissingType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			c.logger.Error("publish failed",
				logpkg.Str("channel", req.Channel), logpkg.Str("tenant", req.Event.TenantID), logpkg.Err(err))
			writeError(w, http.StatusInternalServerError, "Failed to publish event")
		}
		return
	}
	if req.Invalidate {
		c.rt.Delivery().Invalidate(req.Event.TenantID, req.Channel, req.Event)
	}
	writeJSON(w, publishResp{Seq: seq})
}
