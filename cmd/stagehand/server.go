package main

import (
	"net/http"

	"stagehand/internal/app/recommendations"
	"stagehand/internal/app/setlists"
	"stagehand/internal/app/songs"
	"stagehand/internal/app/templates"
	"stagehand/internal/app/users"
	"stagehand/internal/http/middleware"
	"stagehand/internal/httpapi"
	"stagehand/internal/store"
)

func newHTTPHandler(cfg Config, dataStore *store.Store) http.Handler {
	userSvc := users.New(dataStore)
	songSvc := songs.New(dataStore)
	setlistSvc := setlists.New(dataStore)
	templateSvc := templates.New(dataStore)
	recommendationSvc := recommendations.New(dataStore)

	handler := httpapi.New(userSvc, songSvc, setlistSvc, templateSvc, recommendationSvc).Routes()

	for _, wrap := range []func(http.Handler) http.Handler{
		middleware.CORS(cfg.AllowedOrigins),
		middleware.Recovery(),
		middleware.RequestLogging(),
	} {
		handler = wrap(handler)
	}

	return handler
}
