package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/metrics"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/runtime"
)

// GeneralController handles health, tenant management, stats, and the
// metrics scrape endpoint.
type GeneralController struct {
	rt *runtime.Runtime
}

func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/tenants/create", c.handleTenantCreate)
	mux.HandleFunc("/v1/stats", c.handleStats)
	mux.Handle("/metrics", metrics.Handler())
}

// handleHealth returns 200 with {"status":"ok"} when storage responds.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

type tenantCreateReq struct {
	Tenant string `json:"tenant"`
	// MaxConnections caps concurrent connections; zero keeps the server default.
	MaxConnections int `json:"maxConnections,omitempty"`
}

// handleTenantCreate creates a tenant record if absent.
func (c *GeneralController) handleTenantCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req tenantCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Tenant == "" {
		writeError(w, http.StatusBadRequest, "tenant is required")
		return
	}
	if _, err := c.rt.EnsureTenant(req.Tenant); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create tenant")
		return
	}
	if req.MaxConnections > 0 {
		if _, err := c.rt.SetTenantMaxConnections(req.Tenant, req.MaxConnections); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to set tenant limits")
			return
		}
	}
	w.WriteHeader(http.StatusCreated)
}

// handleStats returns the engine's read-only snapshot.
func (c *GeneralController) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.rt.Delivery().Stats())
}
