package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/wonny/stockcast/internal/visualization"
	"github.com/wonny/stockcast/pkg/logger"
)

// VisualizationHandler serves rendered charts from the artifact directory
type VisualizationHandler struct {
	dir    string
	logger *logger.Logger
}

// NewVisualizationHandler creates a handler rooted at dir
func NewVisualizationHandler(dir string, log *logger.Logger) *VisualizationHandler {
	return &VisualizationHandler{dir: dir, logger: log}
}

// Get serves a chart by file name. Names that FileName could not have
// produced (including any path traversal) are 404.
// GET /visualizations/{filename}
func (h *VisualizationHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if !visualization.IsArtifactName(name) {
		respondError(w, http.StatusNotFound, "Visualization not found")
		return
	}

	path := filepath.Join(h.dir, name)
	f, err := os.Open(path)
	if err != nil {
		respondError(w, http.StatusNotFound, "Visualization not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		respondError(w, http.StatusNotFound, "Visualization not found")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
