package api

import (
	"net/http"

	"github.com/luxury-yacht/dashboard/backend/resources/generic"
)

type objectRef struct {
	accessor  generic.Accessor
	namespace string
	name      string
}

func (s *Server) objectRef(r *http.Request) (objectRef, error) {
	accessor, err := s.app.Resources.Lookup(r.PathValue("kind"))
	if err != nil {
		return objectRef{}, err
	}
	return objectRef{
		accessor:  accessor,
		namespace: namespaceValue(r.PathValue("namespace")),
		name:      r.PathValue("name"),
	}, nil
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Resources.Kinds())
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	accessor, err := s.app.Resources.Lookup(r.PathValue("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := accessor.List(r.Context(), namespaceValue(r.URL.Query().Get("namespace")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ref, err := s.objectRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := ref.accessor.Get(r.Context(), ref.namespace, ref.name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ref, err := s.objectRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := ref.accessor.Delete(r.Context(), ref.namespace, ref.name); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	ref, err := s.objectRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	manifest, err := ref.accessor.Manifest(r.Context(), ref.namespace, ref.name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write([]byte(manifest))
}

func (s *Server) handleUpdateManifest(w http.ResponseWriter, r *http.Request) {
	ref, err := s.objectRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	detail, err := ref.accessor.UpdateManifest(r.Context(), ref.namespace, ref.name, string(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleNamespaceUsage(w http.ResponseWriter, r *http.Request) {
	usage, err := s.app.Resources.Metrics.NamespaceUsage(r.Context(), namespaceValue(r.PathValue("namespace")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, usage)
}
