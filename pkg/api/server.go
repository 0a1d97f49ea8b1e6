/*
ebtd REST API

A thin HTTP surface over an elastic-binary-tree-backed key/value store.

Version: 1.0.0
Host: localhost:8080
BasePath: /api/v1

swagger:meta
*/
package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// StartServer starts the HTTP server with every route wired up. It blocks
// until the server exits.
func StartServer(backend Backend, config ServerConfig) error {
	metrics := NewMetrics()
	server := NewServer(backend, config, metrics)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		r.Get("/kv", metrics.InstrumentHandler("GET", "/api/v1/kv", server.handleRange))
		r.Get("/kv/le", metrics.InstrumentHandler("GET", "/api/v1/kv/le", server.handleLE))
		r.Get("/kv/ge", metrics.InstrumentHandler("GET", "/api/v1/kv/ge", server.handleGE))
		r.Put("/kv/{key}", metrics.InstrumentHandler("PUT", "/api/v1/kv/{key}", server.handlePut))
		r.Get("/kv/{key}", metrics.InstrumentHandler("GET", "/api/v1/kv/{key}", server.handleGet))
		r.Delete("/kv/{key}", metrics.InstrumentHandler("DELETE", "/api/v1/kv/{key}", server.handleDelete))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", config.Port)),
	))

	addr := fmt.Sprintf(":%d", config.Port)
	log.Printf("ebtd: listening on %s", addr)
	log.Printf("ebtd: metrics at http://localhost:%d/metrics", config.Port)
	return http.ListenAndServe(addr, r)
}
