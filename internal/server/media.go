package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// handleMedia serves a raw media file by run-relative path. The resolved
// path must stay inside the run's workspace; anything that escapes it is
// rejected.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := s.runID(w, r)
	if !ok {
		return
	}

	rel := r.PathValue("path")
	if rel == "" {
		s.errorResponse(w, http.StatusBadRequest, "missing media path")
		return
	}

	root := s.checkpoints.Dir(id.String())
	// Clean with a leading slash so "..", absolute paths, and empty
	// segments cannot climb out of the workspace.
	cleaned := filepath.Clean("/" + rel)
	full := filepath.Join(root, cleaned)
	if full != root && !strings.HasPrefix(full, root+string(os.PathSeparator)) {
		s.errorResponse(w, http.StatusBadRequest, "invalid media path")
		return
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		s.errorResponse(w, http.StatusNotFound, "media not found")
		return
	}

	http.ServeFile(w, r, full)
}
