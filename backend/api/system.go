package api

import (
	"net/http"
	"strconv"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/internal/authstate"
)

func (s *Server) handleAppLogs(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.writeError(w, r, apperrors.NewValidation("since", "%q is not a sequence number", raw))
			return
		}
		since = parsed
	}
	writeJSON(w, http.StatusOK, s.app.Logger.EntriesSince(since))
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Telemetry.SnapshotSummary())
}

type healthStatus struct {
	Status     string             `json:"status"`
	Cluster    string             `json:"cluster"`
	Generation uint64             `json:"generation"`
	Auth       authstate.Snapshot `json:"auth"`
}

// handleHealth reports the process as healthy even when the cluster's
// credentials are invalid; the auth block says why requests are failing.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:     "ok",
		Cluster:    s.app.Credentials.Source().String(),
		Generation: s.app.Credentials.Generation(),
		Auth:       s.app.Auth.Snapshot(),
	}
	if !s.app.Auth.IsValid() {
		status.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, status)
}
