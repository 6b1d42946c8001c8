package projection

import (
	"fmt"
	"image"
	"log/slog"

	"projection-engine/gpu"
	"projection-engine/video"
)

// VideoTextureUpdater keeps one texture holding the latest frame of a
// video source. Every new frame replaces the texture wholesale.
type VideoTextureUpdater struct {
	ctx     gpu.Context
	source  video.Source
	texture gpu.Texture
	log     *slog.Logger

	created  int
	failures int
}

func newVideoTextureUpdater(ctx gpu.Context, source video.Source, logger *slog.Logger) *VideoTextureUpdater {
	return &VideoTextureUpdater{ctx: ctx, source: source, texture: ctx.DefaultTexture(), log: logger}
}

// Texture is the texture to project: the latest frame, or the context's
// default texture before the first one.
func (u *VideoTextureUpdater) Texture() gpu.Texture { return u.texture }

// Update takes a ready frame, if any, and swaps it in. Frames that fail to
// decode are logged and skipped, keeping the previous texture. Only texture
// creation failures are returned.
func (u *VideoTextureUpdater) Update() (bool, error) {
	if u.source == nil || !u.source.Ready() {
		return false, nil
	}
	f, err := u.source.Frame()
	if err != nil {
		u.failures++
		u.log.Warn("projection: video frame unavailable", "err", err)
		return false, nil
	}
	img, err := video.Decode(f, u.ctx.MaxTextureSize())
	if err != nil {
		u.failures++
		u.log.Warn("projection: dropping video frame", "seq", f.Seq, "err", err)
		return false, nil
	}

	if u.texture != u.ctx.DefaultTexture() {
		u.texture.Destroy()
	}
	u.texture = u.ctx.DefaultTexture()
	tex, err := u.ctx.CreateTexture(gpu.TextureDesc{
		Width:   img.Rect.Dx(),
		Height:  img.Rect.Dy(),
		Format:  gpu.RGBA8,
		Sampler: gpu.SamplerLinear,
		Pixels:  bottomUp(img),
	})
	if err != nil {
		return false, fmt.Errorf("projection: video texture: %w", err)
	}
	u.texture = tex
	u.created++
	return true, nil
}

// Created counts frame textures created so far.
func (u *VideoTextureUpdater) Created() int { return u.created }

// Failures counts frames that could not be used.
func (u *VideoTextureUpdater) Failures() int { return u.failures }

func (u *VideoTextureUpdater) release() {
	if u.texture != u.ctx.DefaultTexture() {
		u.texture.Destroy()
	}
	u.texture = u.ctx.DefaultTexture()
}

// bottomUp copies img into rows ordered bottom first, so v = 0 samples the
// bottom of the picture.
func bottomUp(img *image.RGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	row := w * 4
	out := make([]byte, row*h)
	for y := range h {
		src := img.Pix[y*img.Stride : y*img.Stride+row]
		copy(out[(h-1-y)*row:], src)
	}
	return out
}
