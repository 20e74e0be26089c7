package api

import (
	_ "embed"
	"net/http"
)

//go:embed index.html
var indexPage []byte

// handleIndex serves the status page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}
