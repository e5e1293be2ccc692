package http

import (
	"net/http"
	"time"

	"github.com/sysdesk/sysdesk/pkg/httpx"
)

// LivezHandler godoc
//
//	@Summary		Liveness Endpoint
//	@Description	Returns 200 whenever the process is up, with uptime and version.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
