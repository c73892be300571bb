package http

import (
	"net/http"
	"time"

	"github.com/plateful/auth/internal/auth/store"
	"github.com/plateful/auth/pkg/httpx"
	"github.com/plateful/auth/pkg/jwtx"
)

// HealthResponse is the body of the liveness and readiness probes.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always returns 200 while the process is running.
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/livez [get]
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks database connectivity and signing key availability.
//	@Tags			System
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse	"service not ready"
//	@Router			/readyz [get]
func ReadyzHandler(startTime time.Time, version string, st store.Store, keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &HealthChecks{Database: "ok", Signer: "ok"}
		status := "ok"
		code := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
