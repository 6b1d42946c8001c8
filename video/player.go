package video

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Player publishes an image sequence from a directory into a Mailbox at a
// fixed rate, looping, until its context is cancelled.
type Player struct {
	dir    string
	fps    float64
	mb     *Mailbox
	log    *slog.Logger
	frames []string
}

// NewPlayer lists the .jpg, .jpeg and .png files of dir in name order.
func NewPlayer(dir string, fps float64, mb *Mailbox, logger *slog.Logger) (*Player, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("video: frame rate must be positive, got %v", fps)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("video: read %q: %w", dir, err)
	}
	var frames []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := formatOf(e.Name()); ok {
			frames = append(frames, filepath.Join(dir, e.Name()))
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("video: no images in %q", dir)
	}
	slices.Sort(frames)
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{dir: dir, fps: fps, mb: mb, log: logger, frames: frames}, nil
}

func formatOf(name string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return FormatJPEG, true
	case ".png":
		return FormatPNG, true
	}
	return 0, false
}

func (p *Player) Len() int { return len(p.frames) }

// Run blocks publishing frames until ctx is done. Unreadable files are
// logged and skipped.
func (p *Player) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / p.fps))
	defer ticker.Stop()

	p.log.Info("video: player started", "dir", p.dir, "frames", len(p.frames), "fps", p.fps)
	for i := 0; ; i = (i + 1) % len(p.frames) {
		p.publish(p.frames[i])
		select {
		case <-ctx.Done():
			p.log.Info("video: player stopped", "dir", p.dir)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Player) publish(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		p.log.Warn("video: skipping frame", "path", path, "err", err)
		return
	}
	format, _ := formatOf(path)
	p.mb.Publish(&Frame{Data: data, Format: format, Timestamp: time.Now()})
}
