package api

import xhttp "SentiPulse/pkg/http"

// Router is every HTTP handler of the service.
type Router struct {
	xhttp.Handlers
}

// NewRouter registers the handlers in order. ws is nil when realtime push is disabled.
func NewRouter(
	health *HealthHandler,
	instruments *InstrumentHandler,
	messages *MessageHandler,
	sources *SourceHandler,
	users *UserHandler,
	dashboard *DashboardHandler,
	ws *WSHandler,
) *Router {
	hs := xhttp.Handlers{health, instruments, messages, sources, users, dashboard}
	if ws != nil {
		hs = append(hs, ws)
	}
	return &Router{Handlers: hs}
}
