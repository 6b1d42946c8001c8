// Package window opens the glfw window and OpenGL context the demo renders
// into. Library packages never import it, so they build without cgo.
package window

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// GL calls must come from the thread that made the context current.
func init() {
	runtime.LockOSThread()
}

// Window owns a glfw window and its OpenGL context.
type Window struct {
	Handle *glfw.Window
	Title  string

	// framebuffer size in pixels, which differs from the window size on
	// high-density displays
	fbWidth, fbHeight int
}

type Config struct {
	Width     int
	Height    int
	Title     string
	Resizable bool
	VSync     bool
}

func DefaultConfig() Config {
	return Config{
		Width:     1280,
		Height:    720,
		Title:     "Projection Engine",
		Resizable: true,
		VSync:     true,
	}
}

// New opens a window with a current OpenGL 4.1 core context.
func New(config Config) (*Window, error) {
	if config.Width <= 0 || config.Height <= 0 {
		return nil, fmt.Errorf("window size %dx%d", config.Width, config.Height)
	}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, boolToInt(config.Resizable))

	handle, err := glfw.CreateWindow(config.Width, config.Height, config.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	handle.MakeContextCurrent()
	glfw.SwapInterval(boolToInt(config.VSync))

	w := &Window{Handle: handle, Title: config.Title}
	w.fbWidth, w.fbHeight = handle.GetFramebufferSize()
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.fbWidth, w.fbHeight = width, height
	})
	return w, nil
}

func (w *Window) ShouldClose() bool { return w.Handle.ShouldClose() }
func (w *Window) PollEvents()       { glfw.PollEvents() }
func (w *Window) SwapBuffers()      { w.Handle.SwapBuffers() }

// GetFramebufferSize is the drawable size in pixels. It is 0x0 while the
// window is minimized.
func (w *Window) GetFramebufferSize() (int, int) {
	return w.fbWidth, w.fbHeight
}

func (w *Window) Destroy() {
	w.Handle.Destroy()
	glfw.Terminate()
}

func (w *Window) IsKeyPressed(key int) bool {
	return w.Handle.GetKey(glfw.Key(key)) == glfw.Press
}

func (w *Window) SetTitle(title string) {
	if title == w.Title {
		return
	}
	w.Handle.SetTitle(title)
	w.Title = title
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const (
	KeyEscape = int(glfw.KeyEscape)
	KeyW      = int(glfw.KeyW)
	KeyA      = int(glfw.KeyA)
	KeyS      = int(glfw.KeyS)
	KeyD      = int(glfw.KeyD)
	KeyP      = int(glfw.KeyP)
	KeyLeft   = int(glfw.KeyLeft)
	KeyRight  = int(glfw.KeyRight)
	KeyUp     = int(glfw.KeyUp)
	KeyDown   = int(glfw.KeyDown)
)
