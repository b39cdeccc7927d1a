package handlers

import (
	"net/http"
	"os"
	"path/filepath"
)

// PageHandler serves one static HTML file from the configured asset
// directory. The assets ship with the deployment, not this repository.
type PageHandler struct {
	Dir  string
	File string
}

func (h PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.Dir, h.File)
	if _, err := os.Stat(path); err != nil {
		writeErrorJSON(w, r, http.StatusNotFound, "page not found", "page_missing")
		return
	}
	http.ServeFile(w, r, path)
}
