package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	gomath "math"
	"os"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"projection-engine/config"
	"projection-engine/internal/opengl"
	"projection-engine/internal/window"
	"projection-engine/projection"
	"projection-engine/renderer"
	"projection-engine/scene"
	"projection-engine/telemetry"
	"projection-engine/video"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config overlaying the defaults")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "demo: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := config.Init(configPath); err != nil {
		return err
	}
	cfg := config.Cfg()

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	windowConfig := window.DefaultConfig()
	windowConfig.Title = cfg.Window.Title
	windowConfig.Width = cfg.Window.Width
	windowConfig.Height = cfg.Window.Height
	windowConfig.VSync = cfg.Window.VSync

	win, err := window.New(windowConfig)
	if err != nil {
		return err
	}
	defer win.Destroy()

	ctx, err := opengl.New(logger)
	if err != nil {
		return err
	}
	defer ctx.Release()
	runner, err := opengl.NewRunner(ctx)
	if err != nil {
		return err
	}
	defer runner.Release()

	// ── Scene setup ───────────────────────────────────────────────────────────
	width, height := win.GetFramebufferSize()
	camera := scene.NewOrbitCamera(mgl64.Vec3{}, cfg.Camera.Distance, scene.PerspectiveFrustum{
		Fov:         mgl64.DegToRad(cfg.Camera.Fov),
		AspectRatio: float64(width) / float64(max(height, 1)),
		Near:        cfg.Camera.Near,
		Far:         cfg.Camera.Far,
	})
	camera.Yaw, camera.Pitch = cfg.Camera.Yaw, cfg.Camera.Pitch
	camera.UpdatePosition()

	s := scene.NewScene(ctx, camera.Camera, logger)
	s.SkyColor = cfg.Scene.Sky()
	defer s.Release()
	if err := populate(s, cfg.Scene); err != nil {
		return err
	}

	re, err := renderer.NewRenderEngine(ctx, runner, s, width, height, logger)
	if err != nil {
		return err
	}
	defer re.Destroy()

	recorder, err := telemetry.NewRecorder(cfg.Telemetry.Dir)
	if err != nil {
		return err
	}
	defer recorder.Close()
	re.SetRecorder(recorder)

	// ── Projectors and their video ────────────────────────────────────────────
	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	projectors := make(map[string]*projection.Projector)
	for _, pc := range cfg.Projectors {
		opts := pc.Options()
		opts.Overlays = s.Overlays
		opts.Logger = logger.With("projector", pc.Name)
		if pc.Video.Dir != "" {
			mb := video.NewMailbox()
			player, err := video.NewPlayer(pc.Video.Dir, pc.Video.FPS, mb, opts.Logger)
			if err != nil {
				return fmt.Errorf("projector %q: %w", pc.Name, err)
			}
			opts.Source = mb
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := player.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("video player stopped", "projector", pc.Name, "err", err)
				}
			}()
		}
		p, err := re.AddProjector(opts)
		if err != nil {
			return fmt.Errorf("projector %q: %w", pc.Name, err)
		}
		p.SetSuspended(pc.Suspended)
		projectors[pc.Name] = p
		logger.Info("projector ready", "name", pc.Name, "id", p.ID(), "state", p.State())
	}

	var updates <-chan *config.Config
	if cfg.Watch.Enabled && configPath != "" {
		watcher, err := config.NewWatcher(configPath, cfg.Watch.Debounce, logger)
		if err != nil {
			return err
		}
		updates = watcher.Updates()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("config watcher stopped", "err", err)
			}
		}()
	}

	// ── Main loop ─────────────────────────────────────────────────────────────
	controller := NewCameraController()
	var hud DebugOverlay
	lastFrame := time.Now()
	lastTitle := lastFrame
	frames := 0

	for !win.ShouldClose() {
		win.PollEvents()
		if win.IsKeyPressed(window.KeyEscape) {
			break
		}

		now := time.Now()
		dt := now.Sub(lastFrame).Seconds()
		lastFrame = now

		select {
		case next := <-updates:
			reconfigure(projectors, next, logger)
		default:
		}

		if controller.Update(win, camera, dt) {
			for _, p := range projectors {
				p.SetSuspended(!p.Suspended())
			}
		}

		w, h := win.GetFramebufferSize()
		if w > 0 && h > 0 {
			camera.UpdateAspectRatio(w, h)
			if err := re.Resize(w, h); err != nil {
				return err
			}
		}

		if err := re.Render(); err != nil {
			logger.Error("render", "frame", re.Frame(), "err", err)
		}
		win.SwapBuffers()

		frames++
		if elapsed := now.Sub(lastTitle); elapsed >= time.Second {
			commands, stages := re.DrawStats()
			hud.Clear()
			hud.AddLine("%s", cfg.Window.Title)
			hud.AddLine("FPS: %d", int(gomath.Round(float64(frames)/elapsed.Seconds())))
			hud.AddLine("cmds: %d  stages: %d", commands, stages)
			for _, st := range re.Driver.Stats() {
				hud.AddLine("%s: %d/%d derived", st.Projector[:min(8, len(st.Projector))], st.Derived, st.Candidates)
			}
			win.SetTitle(hud.GetText(" | "))
			frames = 0
			lastTitle = now
		}
	}

	logger.Info("exiting", "frames", re.Frame(), "telemetry_rows", recorder.Rows())
	return nil
}

// populate fills s from a model file or with generated terrain.
func populate(s *scene.Scene, sc config.SceneConfig) error {
	var meshes []*scene.Mesh
	if sc.Model != "" {
		var err error
		if meshes, err = scene.LoadModel(sc.Model); err != nil {
			return err
		}
	} else {
		amp := sc.TerrainHeight
		freq := 2 * gomath.Pi / sc.TerrainSize * 3
		meshes = append(meshes, scene.CreateTerrain(sc.TerrainSize, sc.TerrainSize, sc.TerrainSubdivisions,
			func(x, z float64) float64 {
				return amp * gomath.Sin(x*freq) * gomath.Cos(z*freq*0.7)
			}))
	}
	for _, m := range meshes {
		if _, err := s.Add(m, mgl64.Ident4()); err != nil {
			return fmt.Errorf("scene: add %q: %w", m.Name, err)
		}
	}
	return nil
}

// reconfigure applies a reloaded config to the running projectors. Entries
// are matched by name; added or removed entries need a restart.
func reconfigure(projectors map[string]*projection.Projector, cfg *config.Config, logger *slog.Logger) {
	for name, p := range projectors {
		pc, ok := cfg.Projector(name)
		if !ok {
			logger.Warn("config: projector removed from file; restart to drop it", "name", name)
			continue
		}
		if err := apply(p, pc); err != nil {
			logger.Warn("config: projector update rejected", "name", name, "err", err)
			continue
		}
		logger.Info("config: projector updated", "name", name, "suspended", pc.Suspended)
	}
}

func apply(p *projection.Projector, pc config.ProjectorConfig) error {
	opts := pc.Options()
	// Order the two setters so near never meets far midway.
	setRange := []func() error{
		func() error { return p.SetFar(opts.Far) },
		func() error { return p.SetNear(opts.Near) },
	}
	if opts.Near < p.Near() {
		setRange[0], setRange[1] = setRange[1], setRange[0]
	}
	p.SetSuspended(pc.Suspended)
	return errors.Join(
		p.SetPose(opts.Position, opts.Direction, opts.Up),
		p.SetHorizontalFov(opts.HorizontalFov),
		p.SetVerticalFov(opts.VerticalFov),
		setRange[0](),
		setRange[1](),
		p.SetLens(pc.LensOrDefault()),
	)
}
