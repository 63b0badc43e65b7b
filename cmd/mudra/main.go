package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/device"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	configPath := flag.String("config", filepath.Join(config.DataDir(), "config.yaml"), "path to the YAML config file")
	headless := flag.Bool("headless", false, "run without the tray menu")
	noCamera := flag.Bool("no-camera", false, "do not open the camera; gestures arrive only through the API")
	flag.Parse()

	fmt.Println("Mudra - Hand Gesture Device Control")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if closeLog := setupLogging(cfg.Log); closeLog != nil {
		defer closeLog()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.Store.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		st, err = store.New(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize store: %v", err)
		}
		defer st.Close()
	}

	sink := buildSinks(ctx, cfg)

	appCfg := app.Config{
		Pipeline:        cfg.Pipeline,
		Control:         cfg.Control,
		MotionThreshold: cfg.Camera.MotionThreshold,
		Sink:            sink,
		Store:           st,
	}
	if *noCamera {
		appCfg.Source = "api"
	} else {
		appCfg.Camera = capture.NewCamera(cfg.Camera)
		appCfg.Detector = newDetector(cfg.Detector)
	}

	a, err := app.New(appCfg)
	if err != nil {
		log.Fatalf("Failed to create app: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Close: %v", err)
		}
	}()

	if err := a.Start(); err != nil {
		log.Printf("Camera unavailable, continuing without it: %v", err)
	}
	defer a.Stop()

	if cfg.Server.Enabled {
		startServer(ctx, cfg, a, st)
	}

	if *headless || !cfg.Tray.Enabled {
		<-ctx.Done()
		log.Println("Shutting down")
		return
	}
	runTray(ctx, cfg, a)
}

// setupLogging points the standard logger at the configured file. It returns
// a function closing the file, or nil when logging to stderr.
func setupLogging(cfg config.LogConfig) func() {
	log.SetPrefix(cfg.Prefix)
	if cfg.File == "" {
		return nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Failed to open log file %s, logging to stderr: %v", cfg.File, err)
		return nil
	}
	log.SetOutput(f)
	return func() { f.Close() }
}

// buildSinks assembles every configured output behind its own breaker. The
// log sink is always first. Outputs that fail to open are skipped.
func buildSinks(ctx context.Context, cfg *config.Config) device.Sink {
	sinks := device.Multi{device.LogSink{}}
	breaker := cfg.Sinks.Breaker

	if cfg.Sinks.GPIO.Enabled {
		if s, err := device.NewGPIOSink(cfg.Sinks.GPIO); err != nil {
			log.Printf("GPIO disabled: %v", err)
		} else {
			sinks = append(sinks, device.NewBreaker(s, breaker))
		}
	}

	if cfg.Sinks.Serial.Enabled {
		if s, err := device.NewSerialSink(ctx, cfg.Sinks.Serial); err != nil {
			log.Printf("Serial disabled: %v", err)
		} else {
			sinks = append(sinks, device.NewBreaker(s, breaker))
		}
	}

	if cfg.Sinks.MQTT.Enabled {
		if s, err := device.NewMQTTSink(cfg.Sinks.MQTT); err != nil {
			log.Printf("MQTT disabled: %v", err)
		} else {
			sinks = append(sinks, device.NewBreaker(s, breaker))
		}
	}

	if cfg.Sinks.Plugins.Enabled {
		manager := plugin.NewManager(cfg.Sinks.Plugins.Dir)
		if err := manager.Discover(); err != nil {
			log.Printf("Plugin discovery failed: %v", err)
		} else {
			names := make([]string, 0)
			for _, p := range manager.List() {
				names = append(names, p.Manifest.Name)
			}
			log.Printf("Loaded %d plugins from %s: %s", len(names), manager.PluginDir(), strings.Join(names, ", "))
			s := device.NewPluginSink(manager, plugin.NewExecutor(cfg.Sinks.Plugins.TimeoutMs))
			sinks = append(sinks, device.NewBreaker(s, breaker))
		}
	}

	return sinks
}

// newDetector starts the MediaPipe detector, falling back to a mock that
// never sees hands.
func newDetector(cfg detector.Config) detector.Detector {
	d, err := detector.NewMediaPipeDetector(cfg)
	if err != nil {
		log.Printf("MediaPipe unavailable, using mock detector: %v", err)
		return detector.NewMockDetector()
	}
	return d
}

func startServer(ctx context.Context, cfg *config.Config, a *app.App, st *store.Store) {
	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:   staticDir,
		App:         a,
		Store:       st,
		InjectRate:  cfg.Server.InjectRate,
		InjectBurst: cfg.Server.InjectBurst,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Server.Addr)
		if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
			log.Printf("Server failed: %v", err)
		}
	}()

	if cfg.Server.Advertise {
		go func() {
			if err := server.Advertise(ctx, cfg.Server.Addr, map[string]string{"path": "/"}); err != nil {
				log.Printf("mDNS advertise failed: %v", err)
			}
		}()
	}
}

// runTray blocks on the tray menu until Quit or ctx is cancelled.
func runTray(ctx context.Context, cfg *config.Config, a *app.App) {
	t := tray.New(cfg.Control.MaxLevel)
	t.OnToggle(a.SetEnabled)
	t.OnDashboard(func() {
		if err := openBrowser(dashboardURL(cfg.Server.Addr)); err != nil {
			log.Printf("Failed to open dashboard: %v", err)
		}
	})

	unsubscribe := a.Subscribe(t.HandleEvent)
	defer unsubscribe()

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		return errors.New("unsupported platform " + runtime.GOOS)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(config.DataDir(), "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
