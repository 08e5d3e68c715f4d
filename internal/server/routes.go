package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/gosuda/mural/internal/api/v1"
	"github.com/gosuda/mural/internal/api/ws"
	"github.com/gosuda/mural/internal/realtime"
	"github.com/gosuda/mural/internal/store/postgres"
)

func registerAuthRoutes(api huma.API, authSvc v1.AuthService) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store *postgres.Store, registry *realtime.Registry) {
	v1.RegisterBoardRoutes(api, store, registry)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/board/{boardID}", hub.ServeBoard)
}
