package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/gazescroll/internal/action"
	"github.com/ayusman/gazescroll/internal/app"
	"github.com/ayusman/gazescroll/internal/capture"
	"github.com/ayusman/gazescroll/internal/config"
	"github.com/ayusman/gazescroll/internal/detector"
	"github.com/ayusman/gazescroll/internal/hotkey"
	"github.com/ayusman/gazescroll/internal/plugin"
	"github.com/ayusman/gazescroll/internal/server"
	"github.com/ayusman/gazescroll/internal/store"
	"github.com/ayusman/gazescroll/internal/tray"
)

// pluginTimeoutMs bounds a single keyboard plugin call.
const pluginTimeoutMs = 2000

func main() {
	configPath := flag.String("config", "", "path to config.json (default ~/.gazescroll/config.json)")
	preview := flag.Bool("preview", false, "show the overlay in a local window instead of the tray")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "preview" {
			cfg.Preview = *preview
		}
	})

	setLogLevel(cfg.LogLevel)
	log.Info().Str("config", cfg.Path()).Msg("GazeScroll - Eye Tracking Scroll")

	// Initialize the store
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer st.Close()

	executor, err := newExecutor(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up key executor")
	}

	det := newDetector()

	a := app.New(app.Config{
		Camera:           capture.NewCamera(capture.Config{DeviceID: cfg.CameraID}),
		Detector:         det,
		Executor:         executor,
		Store:            st,
		FrameInterval:    cfg.FrameInterval(),
		CalibrationDelay: cfg.CalibrationDelay(),
		Gesture:          cfg.DetectorConfig(),
		HistoryRetention: cfg.HistoryRetention(),
	})

	webDir := findWebDir(cfg.StaticDir)
	if webDir != "" {
		log.Info().Str("dir", webDir).Msg("Serving control panel")
	}
	srv := server.New(server.Config{
		StaticDir:  webDir,
		Controller: a,
		Frames:     a,
	})
	go func() {
		if err := srv.ListenAndServe(cfg.Addr); err != nil {
			log.Error().Err(err).Msg("Server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Preview {
		keys := startHotkeys(cfg, a)
		if err := a.RunPreview(ctx); err != nil {
			log.Error().Err(err).Msg("Preview failed")
		}
		keys.Stop()
	} else {
		if err := a.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start camera")
		}

		t := tray.New(a)
		t.OnOpenPanel(func() { openBrowser("http://" + cfg.Addr) })
		t.OnQuit(stop)

		a.OnChange(func() { t.Refresh(a.IsActive(), a.Settings()) })

		keys := startHotkeys(cfg, a)

		go func() {
			<-ctx.Done()
			t.Quit()
		}()

		t.Run()
		keys.Stop()
		a.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("GazeScroll stopped")
}

// newDetector returns the MediaPipe face mesh when its script and Python
// dependencies are present, or a mock detector that never sees a face.
func newDetector() detector.Detector {
	mp, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err = mp.CheckDependencies(ctx)
		cancel()
	}
	if err != nil {
		log.Warn().Err(err).Msg("MediaPipe not available, using mock detector")
		return detector.NewMockDetector()
	}
	log.Info().Msg("Using MediaPipe face mesh")
	return mp
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// newExecutor returns the key executor selected in the config.
func newExecutor(cfg *config.Config) (action.Executor, error) {
	if cfg.Executor != config.ExecutorPlugin {
		return action.NewRobotgoExecutor(), nil
	}

	dir, err := cfg.ResolvePluginDir()
	if err != nil {
		return nil, err
	}
	mgr := plugin.NewManager(dir)
	if err := mgr.Discover(); err != nil {
		return nil, fmt.Errorf("discover plugins in %s: %w", dir, err)
	}
	log.Info().Str("dir", dir).Int("plugins", len(mgr.List())).Msg("Using keyboard plugin")

	return action.NewPluginExecutor(mgr, plugin.NewExecutor(pluginTimeoutMs)), nil
}

// startHotkeys registers the global shortcuts when enabled. The returned
// manager is safe to stop even when hotkeys are disabled.
func startHotkeys(cfg *config.Config, a *app.App) *hotkey.Manager {
	if !cfg.Hotkeys {
		return hotkey.NewManager(nil)
	}
	m := hotkey.NewManager(hotkey.DefaultBindings(a))
	if err := m.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to register hotkeys")
	}
	return m
}

// findWebDir returns the configured static directory, or searches "web",
// "../web", "../../web" and ~/.gazescroll/web. Returns the first existing
// directory or empty string if none found.
func findWebDir(configured string) string {
	if configured != "" {
		return configured
	}

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

	dir, err := config.Dir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(dir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to open browser")
	}
}
