// Package video carries frames from an external producer to the render
// thread. Producers publish into a Mailbox; the render thread polls it once
// per frame and decodes whatever arrived last.
package video

import (
	"errors"
	"time"
)

var (
	// ErrNoFrame is returned by Source.Frame when nothing new was published.
	ErrNoFrame = errors.New("video: no frame ready")
	// ErrMalformedFrame marks frame data that cannot be turned into pixels.
	ErrMalformedFrame = errors.New("video: malformed frame")
)

type Format int

const (
	// FormatRGBA is tightly packed 8-bit RGBA, top row first.
	FormatRGBA Format = iota
	FormatJPEG
	FormatPNG
)

func (f Format) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	}
	return "unknown"
}

// Frame is one published image. Publishers must not modify Data after
// publishing it.
type Frame struct {
	Data []byte
	// Width and Height are required for FormatRGBA and informational otherwise.
	Width     int
	Height    int
	Format    Format
	Timestamp time.Time
	Seq       uint64
}

// Source is polled by the render thread. Ready reports whether a frame
// newer than the last one taken is waiting; Frame takes it.
type Source interface {
	Ready() bool
	Frame() (*Frame, error)
}
