// Package api handle requests to public endpoints.
package api

//
// api.go
// Copyright (C) 2025 Karol Będkowski <Karol Będkowski@kkomp>
//
// Distributed under terms of the GPLv3 license.
//

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/samber/do/v2"
)

const (
	helloMessage  = "Hello from Flask!"
	healthyStatus = "healthy"
)

// API is handler for all public endpoints.
type API struct {
	router *chi.Mux
}

func New(_ do.Injector) (API, error) {
	router := chi.NewRouter()
	router.Get("/", handleHello)
	router.Get("/health", handleHealth)

	return API{router}, nil
}

func (a *API) Routes() *chi.Mux {
	return a.router
}

//-------------------------------------------------------------

type messageResponse struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func handleHello(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, &messageResponse{Message: helloMessage})
}

// handleHealth report only that process is alive; database state is checked on mgmt /ready.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, &statusResponse{Status: healthyStatus})
}
