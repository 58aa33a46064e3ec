// Package site serves the embedded ranking page.
package site

import (
	"context"
	"net/http"
)

// Register attaches the ranking page to mux at GET / (exact match only, so
// unknown paths still 404).
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /{$}", http.FileServer(FS()))
}
