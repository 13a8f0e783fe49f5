// Package rest wires the HTTP API: routing, middleware, and the
// request handlers for graphs, nodes, edges, scenarios, and
// comparisons.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"causemap/interfaces/http/rest/handlers"
	"causemap/interfaces/http/rest/middleware"
	"causemap/pkg/observability"
	"causemap/pkg/utils"
)

// Router assembles the HTTP handler tree.
type Router struct {
	graphs       *handlers.GraphHandler
	nodes        *handlers.NodeHandler
	edges        *handlers.EdgeHandler
	scenarios    *handlers.ScenarioHandler
	compare      *handlers.CompareHandler
	authenticate func(http.Handler) http.Handler
	tracer       *observability.Tracer
	logger       *zap.Logger
}

// NewRouter creates a new router instance.
func NewRouter(
	graphs *handlers.GraphHandler,
	nodes *handlers.NodeHandler,
	edges *handlers.EdgeHandler,
	scenarios *handlers.ScenarioHandler,
	compare *handlers.CompareHandler,
	authenticate func(http.Handler) http.Handler,
	tracer *observability.Tracer,
	logger *zap.Logger,
) *Router {
	return &Router{
		graphs:       graphs,
		nodes:        nodes,
		edges:        edges,
		scenarios:    scenarios,
		compare:      compare,
		authenticate: authenticate,
		tracer:       tracer,
		logger:       logger,
	}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.tracer != nil {
		router.Use(middleware.Tracing(rt.tracer))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://*.causemap.io"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authenticate)

		r.Route("/graphs", func(r chi.Router) {
			r.Post("/", rt.graphs.CreateGraph)
			r.Get("/", rt.graphs.ListGraphs)
			r.Get("/{graphID}", rt.graphs.GetGraph)
			r.Put("/{graphID}", rt.graphs.RenameGraph)
			r.Delete("/{graphID}", rt.graphs.DeleteGraph)

			r.Route("/{graphID}/nodes", func(r chi.Router) {
				r.Post("/", rt.nodes.AddNode)
				r.Put("/{nodeID}", rt.nodes.UpdateNode)
				r.Put("/{nodeID}/position", rt.nodes.MoveNode)
				r.Delete("/{nodeID}", rt.nodes.DeleteNode)
			})

			r.Route("/{graphID}/edges", func(r chi.Router) {
				r.Post("/", rt.edges.ConnectNodes)
				r.Put("/{edgeID}", rt.edges.UpdateEdge)
				r.Delete("/{edgeID}", rt.edges.DeleteEdge)
			})

			r.Post("/{graphID}/scenarios", rt.scenarios.CaptureScenario)
			r.Get("/{graphID}/scenarios", rt.scenarios.ListScenarios)
			r.Get("/{graphID}/compare/{scenarioID}", rt.compare.CompareGraphLive)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/{scenarioID}", rt.scenarios.GetScenario)
			r.Delete("/{scenarioID}", rt.scenarios.DeleteScenario)
		})

		r.Get("/compare", rt.compare.CompareScenarios)
		r.Get("/compare/summary", rt.compare.ComparisonSummary)
	})

	return router
}

func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","time":"` + utils.NowRFC3339() + `"}`))
}

func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready","time":"` + utils.NowRFC3339() + `"}`))
}
