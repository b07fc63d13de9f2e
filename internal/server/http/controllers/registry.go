package controllers

import (
	"net/http"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/runtime"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general  *GeneralController
	events   *EventsController
	stream   *StreamController
	longpoll *LongPollController
}

// NewControllerRegistry initializes all controllers against the runtime.
func NewControllerRegistry(rt *runtime.Runtime, logger logpkg.Logger) *ControllerRegistry {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("http"))
	}
	return &ControllerRegistry{
		general:  NewGeneralController(rt),
		events:   NewEventsController(rt, logger),
		stream:   NewStreamController(rt, logger),
		longpoll: NewLongPollController(rt),
	}
}

// RegisterAllRoutes registers every endpoint with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.events.RegisterRoutes(mux)
	r.stream.RegisterRoutes(mux)
	r.longpoll.RegisterRoutes(mux)
}
