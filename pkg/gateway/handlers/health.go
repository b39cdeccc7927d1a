package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/frontdeskhq/frontdesk/pkg/gateway/config"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/lifecycle"
	"github.com/frontdeskhq/frontdesk/pkg/gateway/voice/sessions"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports whether the gateway can take traffic: configuration
// must validate and the process must not be draining.
type ReadyHandler struct {
	Config        config.Config
	Lifecycle     *lifecycle.Lifecycle
	VoiceSessions *sessions.Tracker
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK             bool     `json:"ok"`
		Draining       bool     `json:"draining"`
		ActiveSessions int      `json:"active_sessions"`
		Issues         []string `json:"issues,omitempty"`
	}

	var issues []string
	if err := h.Config.Validate(); err != nil {
		issues = append(issues, err.Error())
	}
	draining := h.Lifecycle != nil && h.Lifecycle.IsDraining()
	if draining {
		issues = append(issues, "gateway is draining")
	}

	active := 0
	if h.VoiceSessions != nil {
		active = h.VoiceSessions.Count()
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:             ok,
		Draining:       draining,
		ActiveSessions: active,
		Issues:         issues,
	})
}
