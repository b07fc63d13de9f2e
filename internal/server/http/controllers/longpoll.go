package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/event"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/runtime"
)

// LongPollController serves the fallback transport for clients that cannot
// hold a stream open.
type LongPollController struct {
	rt *runtime.Runtime
}

func NewLongPollController(rt *runtime.Runtime) *LongPollController {
	return &LongPollController{rt: rt}
}

// RegisterRoutes registers the poll route with the given mux.
func (c *LongPollController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/poll/", c.handlePoll)
}

type pollResp struct {
	Events      []event.Event `json:"events"`
	LastEventID string        `json:"lastEventId"`
}

// handlePoll blocks until buffered or fresh events match, or the configured
// timeout passes, then returns the events and the caller's next watermark.
// The channel rides the path: /v1/poll/{channel}.
func (c *LongPollController) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	channel := strings.TrimPrefix(r.URL.Path, "/v1/poll/")
	if channel == "" || strings.Contains(channel, "/") {
		writeError(w, http.StatusBadRequest, "channel is required")
		return
	}
	tenantID := tenantFrom(r, c.rt.Config().DefaultTenantName)
	scope := parseScope(r.URL.Query().Get("propertyId"))
	since := parseSince(r.URL.Query().Get("lastEventId"))

	events, watermark, err := c.rt.Delivery().Poll(r.Context(), tenantID, channel, scope, since)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if events == nil {
		events = []event.Event{}
	}
	writeJSON(w, pollResp{Events: events, LastEventID: watermark.UTC().Format(time.RFC3339Nano)})
}
