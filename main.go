package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	_ "github.com/lib/pq"
	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge-api/agent"
	"github.com/reelforge/reelforge-api/analysis"
	"github.com/reelforge/reelforge-api/api"
	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/config"
	"github.com/reelforge/reelforge-api/handlers"
	"github.com/reelforge/reelforge-api/metrics"
	"github.com/reelforge/reelforge-api/pipeline"
	"github.com/reelforge/reelforge-api/render"
	"github.com/reelforge/reelforge-api/store"
	"github.com/reelforge/reelforge-api/video"
)

func main() {
	err := flag.Set("logtostderr", "true")
	if err != nil {
		glog.Fatal(err)
	}
	vFlag := flag.Lookup("v")

	fs := flag.NewFlagSet("reelforge-api", flag.ExitOnError)
	cli := config.Cli{}

	version := fs.Bool("version", false, "print application version")

	fs.StringVar(&cli.HTTPAddress, "http-addr", "0.0.0.0:8989", "Address to bind the public HTTP API server to")
	fs.StringVar(&cli.HTTPInternalAddress, "http-internal-addr", "127.0.0.1:7979", "Address to bind the internal (metrics, healthcheck) HTTP server to")
	fs.StringVar(&cli.APIToken, "api-token", "IAmAuthorized", "Auth header value for API access")
	fs.StringVar(&cli.DatabaseURL, "database-url", "", "Postgres connection string for job and analysis state")
	fs.StringVar(&cli.StorageRoot, "storage-root", "storage", "Root directory for ingested media, temp files and rendered outputs")

	config.URLVarFlag(fs, &cli.VisionAPIURL, "vision-api-url", "", "Vision captioning API endpoint. Empty disables frame captioning.")
	fs.StringVar(&cli.VisionAPIKey, "vision-api-key", "", "API key for the vision captioning API")
	fs.StringVar(&cli.VisionModel, "vision-model", "", "Model name passed to the vision captioning API")
	config.URLVarFlag(fs, &cli.LLMAPIURL, "llm-api-url", "", "Chat completions API endpoint used for plan generation")
	fs.StringVar(&cli.LLMAPIKey, "llm-api-key", "", "API key for the chat completions API")
	fs.StringVar(&cli.LLMModel, "llm-model", "", "Model name passed to the chat completions API")
	config.URLVarFlag(fs, &cli.TranscriptionAPIURL, "transcription-api-url", "", "Speech-to-text API endpoint. Empty disables transcription.")
	fs.StringVar(&cli.TranscriptionAPIKey, "transcription-api-key", "", "API key for the speech-to-text API")
	config.URLVarFlag(fs, &cli.SceneAPIURL, "scene-api-url", "", "Scene extraction API endpoint. Empty falls back to time based scene partitioning.")
	fs.StringVar(&cli.SceneAPIKey, "scene-api-key", "", "API key for the scene extraction API")
	config.URLVarFlag(fs, &cli.ObjectStoreURL, "object-store-url", "", "Object storage API endpoint for uploading rendered outputs. Empty disables uploads.")
	fs.StringVar(&cli.ObjectStoreAPIKey, "object-store-api-key", "", "API key for the object storage API")
	fs.StringVar(&cli.ObjectStoreBucket, "object-store-bucket", "reelforge-outputs", "Default bucket for rendered output uploads")

	fs.IntVar(&cli.MaxFrames, "max-frames", 50, "Maximum captioned frames per video passed to the planning model")
	fs.IntVar(&cli.MaxScenes, "max-scenes", 20, "Maximum scenes per video passed to the planning model")
	fs.IntVar(&cli.MaxTranscriptSegments, "max-transcript-segments", 100, "Maximum transcript segments per video passed to the planning model")
	fs.Float64Var(&cli.FrameGranularitySecs, "frame-granularity", 1.0, "Seconds between sampled frames during media analysis")
	fs.IntVar(&config.MaxInFlightJobs, "max-inflight-jobs", 8, "Maximum number of concurrent edit jobs before the API returns 429s")
	fs.IntVar(&config.CaptionConcurrency, "caption-concurrency", 5, "Number of frames captioned in parallel during media analysis")

	// special parameters
	verbosity := fs.String("v", "", "Log verbosity.  {4|5|6}")
	_ = fs.String("config", "", "config file (optional)")

	err = ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("REELFORGE"),
	)
	if err != nil {
		glog.Fatalf("error parsing cli: %s", err)
	}
	if len(fs.Args()) > 0 {
		glog.Fatalf("unexpected extra arguments on command line: %v", fs.Args())
	}
	err = flag.CommandLine.Parse(nil)
	if err != nil {
		glog.Fatal(err)
	}

	if *version {
		fmt.Printf("reelforge-api version: %s\n", config.Version)
		return
	}

	if *verbosity != "" {
		err = vFlag.Value.Set(*verbosity)
		if err != nil {
			glog.Fatal(err)
		}
	}

	config.DefaultFrameGranularitySecs = cli.FrameGranularitySecs

	if cli.DatabaseURL == "" {
		glog.Fatal("-database-url is required")
	}
	db, err := sql.Open("postgres", cli.DatabaseURL)
	if err != nil {
		glog.Fatalf("error creating postgres connection: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	dataStore := store.NewStore(db)
	if err := dataStore.EnsureSchema(context.Background()); err != nil {
		glog.Fatalf("error creating database schema: %v", err)
	}

	if err := os.MkdirAll(cli.StorageRoot, 0755); err != nil {
		glog.Fatalf("error creating storage root: %v", err)
	}

	m := metrics.NewMetrics()

	fetcher := clients.NewBlobFetcher(cli.StorageRoot)
	visionClient := clients.NewVisionClient(cli.VisionAPIURL, cli.VisionAPIKey, cli.VisionModel)
	llmClient := clients.NewLLMClient(cli.LLMAPIURL, cli.LLMAPIKey, cli.LLMModel)
	transcriptionClient := clients.NewTranscriptionClient(cli.TranscriptionAPIURL, cli.TranscriptionAPIKey)
	sceneClient := clients.NewSceneExtractionClient(cli.SceneAPIURL, cli.SceneAPIKey)
	objectStoreClient := clients.NewObjectStoreClient(cli.ObjectStoreURL, cli.ObjectStoreAPIKey, cli.ObjectStoreBucket)
	callbackClient := clients.NewCallbackClient()

	if !llmClient.IsConfigured() {
		glog.Warning("llm-api-url is not set, plan generation will fail until it is configured")
	}

	prober := video.Probe{}
	sampler := analysis.NewFrameSampler(visionClient, dataStore.Frames)
	segmenter := analysis.NewSceneSegmenter(sceneClient, dataStore.Scenes)
	transcriber := analysis.NewTranscriber(transcriptionClient, dataStore.Transcripts)
	analyzer := analysis.NewAnalyzer(dataStore.Media, sampler, segmenter, transcriber)

	compressor := agent.NewCompressor(cli.MaxFrames, cli.MaxScenes, cli.MaxTranscriptSegments)
	editAgent := agent.NewStorytellingAgent(llmClient, compressor)
	renderer := render.NewRenderer(prober)

	engine := pipeline.NewCoordinator(fetcher, prober, analyzer, editAgent, renderer,
		objectStoreClient, callbackClient, dataStore, m, cli.StorageRoot)

	editHandlers := &handlers.EditHandlersCollection{
		Engine:      engine,
		Store:       dataStore,
		Fetcher:     fetcher,
		Prober:      prober,
		Analyzer:    analyzer,
		Metrics:     m,
		StorageRoot: cli.StorageRoot,
	}

	glog.Infof("Internal API connection can be made at %s", cli.OwnInternalURL())

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		return api.ListenAndServe(ctx, cli.HTTPAddress, cli.APIToken, editHandlers, engine)
	})

	group.Go(func() error {
		return api.ListenAndServeInternal(ctx, cli.HTTPInternalAddress, editHandlers)
	})

	group.Go(func() error {
		return handleSignals(ctx)
	})

	err = group.Wait()
	glog.Infof("Shutdown complete. Reason for shutdown: %s", err)
}

func handleSignals(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT)
	for {
		select {
		case s := <-c:
			return fmt.Errorf("caught signal=%v, attempting clean shutdown", s)
		case <-ctx.Done():
			return nil
		}
	}
}
