package api

import (
	"fmt"
	"net/http"

	"github.com/luxury-yacht/dashboard/backend/apperrors"
	"github.com/luxury-yacht/dashboard/backend/logstream"
	"github.com/luxury-yacht/dashboard/backend/podexec"
	"github.com/luxury-yacht/dashboard/backend/portforward"
)

// handleLogs streams container logs as chunked plain text. Once the first
// chunk is written the status is committed, so later read failures only show
// up in-band.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	opts, err := logstream.OptionsFromQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, apperrors.NewValidation("transport", "streaming is not supported by this connection"))
		return
	}

	target := logstream.Target{
		Namespace: r.PathValue("namespace"),
		Pod:       r.PathValue("pod"),
		Container: r.URL.Query().Get("container"),
	}
	out := &lazyHeaderWriter{w: w}
	err = s.app.Logs.Copy(r.Context(), target, opts, out, flusher.Flush)
	switch {
	case err == nil:
		out.commit()
	case !out.committed:
		s.writeError(w, r, err)
	default:
		s.app.Logger.Warn(fmt.Sprintf("[%s] log stream for %s/%s ended: %v", correlationID(r), target.Namespace, target.Pod, err), logSource)
	}
}

// lazyHeaderWriter sends the streaming headers with the first chunk so an
// open failure can still be reported with a proper status.
type lazyHeaderWriter struct {
	w         http.ResponseWriter
	committed bool
}

func (l *lazyHeaderWriter) commit() {
	if l.committed {
		return
	}
	l.committed = true
	l.w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	l.w.Header().Set("Cache-Control", "no-cache")
	l.w.Header().Set("X-Content-Type-Options", "nosniff")
	l.w.WriteHeader(http.StatusOK)
}

func (l *lazyHeaderWriter) Write(p []byte) (int, error) {
	l.commit()
	return l.w.Write(p)
}

func (s *Server) handleContainers(w http.ResponseWriter, r *http.Request) {
	containers, err := s.app.Logs.Containers(r.Context(), r.PathValue("namespace"), r.PathValue("pod"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, containers)
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	ports, err := s.app.PortForwards.TargetPorts(r.Context(), r.PathValue("namespace"), r.PathValue("pod"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ports)
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Container string   `json:"container"`
		Command   []string `json:"command"`
	}
	if err := decodeJSON(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.app.Exec.Exec(r.Context(), podexec.Request{
		Namespace: r.PathValue("namespace"),
		Pod:       r.PathValue("pod"),
		Container: body.Container,
		Command:   body.Command,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListPortForwards(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.PortForwards.List())
}

func (s *Server) handleStartPortForward(w http.ResponseWriter, r *http.Request) {
	var req portforward.Request
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	session, err := s.app.PortForwards.Start(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleStopPortForward(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.app.PortForwards.Stop(id) {
		s.writeError(w, r, &apperrors.NotFoundError{Kind: "port-forward", Name: id})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
