package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c *controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Get("/", c.handleHealth)
	r.HandleFunc("/ws", c.serveWS)

	return r
}

func (c *controller) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok":true,"msg":"watch party relay running"}`))
}
