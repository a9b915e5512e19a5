package api

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelforge/reelforge-api/config"
	"github.com/reelforge/reelforge-api/handlers"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/middleware"
	"github.com/reelforge/reelforge-api/pipeline"
)

func ListenAndServe(ctx context.Context, addr, apiToken string, editHandlers *handlers.EditHandlersCollection, engine *pipeline.Coordinator) error {
	router := NewEditAPIRouter(editHandlers, engine, apiToken)
	server := http.Server{Addr: addr, Handler: router}
	ctx, cancel := context.WithCancel(ctx)

	log.LogNoRequestID(
		"Starting ReelForge API!",
		"version", config.Version,
		"host", addr,
	)

	var err error
	go func() {
		err = server.ListenAndServe()
		cancel()
	}()

	<-ctx.Done()
	if err != nil {
		return err
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func NewEditAPIRouter(editHandlers *handlers.EditHandlersCollection, engine *pipeline.Coordinator, apiToken string) *httprouter.Router {
	router := httprouter.New()
	withLogging := middleware.LogRequest()
	withAuth := middleware.IsAuthorized
	capacity := &middleware.CapacityMiddleware{}
	withCapacityChecking := capacity.HasCapacity

	// Simple endpoint for healthchecks
	router.GET("/ok", withLogging(editHandlers.Ok()))

	// Edit pipeline API
	router.POST("/api/ai-edit/generate",
		withLogging(
			withAuth(
				apiToken,
				withCapacityChecking(
					engine,
					editHandlers.GenerateEdit(),
				),
			),
		),
	)
	router.GET("/api/ai-edit/plan/:jobID", withLogging(withAuth(apiToken, editHandlers.GetPlan())))
	router.POST("/api/ai-edit/apply/:jobID",
		withLogging(
			withAuth(
				apiToken,
				withCapacityChecking(
					engine,
					editHandlers.ApplyEdit(),
				),
			),
		),
	)
	router.GET("/api/edit/:jobID", withLogging(withAuth(apiToken, editHandlers.GetEditStatus())))

	// Chunked upload + analysis API
	router.POST("/api/media/:id/chunk/:num", withLogging(withAuth(apiToken, editHandlers.SaveChunk())))
	router.POST("/api/media/:id/assemble", withLogging(withAuth(apiToken, editHandlers.AssembleMedia())))
	router.POST("/api/media/:id/analyze", withLogging(withAuth(apiToken, editHandlers.AnalyzeMedia())))
	router.GET("/api/media/:id", withLogging(withAuth(apiToken, editHandlers.GetMedia())))

	// Rendered outputs, served straight off the storage root
	router.ServeFiles("/storage/*filepath", http.Dir(editHandlers.StorageRoot))

	return router
}

// ListenAndServeInternal serves the endpoints that must not be exposed
// publicly: prometheus metrics and the unauthenticated healthcheck.
func ListenAndServeInternal(ctx context.Context, addr string, editHandlers *handlers.EditHandlersCollection) error {
	router := httprouter.New()
	router.GET("/ok", editHandlers.Ok())
	router.Handler("GET", "/metrics", promhttp.Handler())

	server := http.Server{Addr: addr, Handler: router}
	ctx, cancel := context.WithCancel(ctx)

	log.LogNoRequestID("Starting internal listener", "host", addr)

	var err error
	go func() {
		err = server.ListenAndServe()
		cancel()
	}()

	<-ctx.Done()
	if err != nil {
		return err
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
