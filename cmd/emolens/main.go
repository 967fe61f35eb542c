package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"

	"emolens/internal/api"
	"emolens/internal/auth"
	"emolens/internal/camera"
	"emolens/internal/config"
	"emolens/internal/database"
	"emolens/internal/detection"
	"emolens/internal/logger"
	"emolens/internal/metrics"
	"emolens/internal/pipeline"
	"emolens/internal/stream"
	"emolens/internal/ws"
)

func main() {
	var (
		envF      = flag.String("env", ".env", "Optional .env file")
		httpPortF = flag.String("http-port", "", "HTTP port (overrides HTTP_ADDR port)")
		dbgF      = flag.Bool("debug", false, "Debug logging and route listing")
	)
	flag.Parse()

	cfg, err := config.Load(*envF)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emolens: %v\n", err)
		os.Exit(1)
	}
	if *httpPortF != "" {
		host, _, err := net.SplitHostPort(cfg.HTTPAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "emolens: invalid HTTP_ADDR %q: %v\n", cfg.HTTPAddr, err)
			os.Exit(1)
		}
		cfg.HTTPAddr = net.JoinHostPort(host, *httpPortF)
	}

	level := cfg.Log.Level
	if *dbgF {
		level = "debug"
	}
	log := logger.New(logger.Options{Level: level, File: cfg.Log.File, NoColor: !cfg.IsDev()})

	// Settings store
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.WithError(err).Fatal("Failed to create data directory")
	}
	db, err := database.New(cfg.DBPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		log.WithError(err).Fatal("Failed to migrate database")
	}
	loopCfg, err := db.LoadLoopConfig(cfg.Loop)
	if err != nil {
		log.WithError(err).Warn("Failed to load stored loop settings, using configuration")
		loopCfg = cfg.Loop
	}

	// Inference service
	client := detection.NewClient(detection.ClientConfig{
		BaseURL: cfg.Inference.BaseURL,
		Timeout: cfg.Inference.Timeout,
	})
	var prober detection.Prober = detection.NewHTTPProber(client)
	if cfg.Inference.HealthGRPCAddr != "" {
		grpcProber, err := detection.NewGRPCProber(cfg.Inference.HealthGRPCAddr, "")
		if err != nil {
			log.WithError(err).Fatal("Failed to create gRPC health prober")
		}
		defer grpcProber.Close()
		prober = grpcProber
	}
	health := detection.NewHealthMonitor(prober, cfg.Inference.HealthInterval, log)

	// Capture and detection
	capture := camera.NewSession(camera.SourceConfig{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
	}, nil, health, log)

	bus := pipeline.NewEventBus()
	ctrl := pipeline.NewController(capture, client, health, bus, loopCfg, log)
	capture.OnLost(ctrl.HandleCaptureLost)

	// Outputs
	mjpeg := stream.NewMJPEGStream(log)
	frameSocket := stream.NewFrameSocket(log)
	bus.Subscribe(pipeline.NewStreamingBridge(mjpeg, frameSocket))

	m := metrics.New()
	bus.Subscribe(m)
	health.OnChange(m.OnStatusChange)

	hub := ws.NewSessionHub(log)
	health.OnChange(hub.OnStatusChange)
	hubEvents, unsubscribeHub := bus.SubscribeChannel(64)
	go forwardEvents(hubEvents, hub)

	authenticator, err := auth.NewAuthenticator(cfg.Auth)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize authentication")
	}

	handler := api.NewRouter(api.Options{
		Controller:    ctrl,
		Status:        health,
		Catalog:       client,
		Settings:      db,
		Auth:          authenticator,
		RateLimit:     cfg.RateLimit,
		Metrics:       m.Handler(),
		VideoStream:   mjpeg,
		VideoSnapshot: stream.NewSnapshotHandler(mjpeg),
		VideoSocket:   frameSocket,
		SessionSocket: ws.NewHandler(hub, ctrl),
		Debug:         *dbgF,
		Log:           log,
	})

	log.WithFields(logrus.Fields{
		"inference": client.Endpoint(),
		"camera":    cfg.Camera.Device,
		"auth":      authenticator.IsEnabled(),
		"db":        cfg.DBPath,
	}).Info("emolens starting")

	// Create channel used by both the signal handler and server goroutines
	// to notify the main goroutine when to stop the server.
	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	wg.Add(1)
	go func() {
		defer wg.Done()
		health.Run(ctx)
	}()

	handleHTTPServer(ctx, cfg.HTTPAddr, handler, &wg, errc, log)

	// Wait for signal.
	log.Infof("exiting (%v)", <-errc)

	ctrl.Stop()
	unsubscribeHub()
	mjpeg.Close()
	frameSocket.Close()
	hub.Close()

	// Send cancellation signal to the goroutines.
	cancel()

	wg.Wait()
	bus.Close()
	log.Info("exited")
}

// forwardEvents drains bus events into the websocket hub off the loop goroutine
func forwardEvents(events <-chan *pipeline.Event, hub *ws.SessionHub) {
	for ev := range events {
		hub.OnEvent(ev)
	}
}
