package server

import (
	"context"
	"net/http"

	"treetrack/internal/handlers"
	applog "treetrack/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")
	mux.HandleFunc("/healthz", handlers.Health)
	applog.Debug(context.Background(), "route registered", "path", "/healthz")
	mux.HandleFunc("/login", handlers.Login)
	applog.Debug(context.Background(), "route registered", "path", "/login")
	mux.HandleFunc("/signup", handlers.Signup)
	applog.Debug(context.Background(), "route registered", "path", "/signup")
	mux.HandleFunc("/logout", handlers.Logout)
	applog.Debug(context.Background(), "route registered", "path", "/logout")
	mux.HandleFunc("/api/plants", handlers.PlantResource)
	mux.HandleFunc("/api/plants/", handlers.PlantResource)
	applog.Debug(context.Background(), "route registered", "path", "/api/plants")
	return mux
}
