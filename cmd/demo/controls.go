package main

import (
	"projection-engine/internal/window"
	"projection-engine/scene"
)

// CameraController orbits the main camera from the keyboard.
type CameraController struct {
	orbitSpeed float64 // radians per second
	zoomSpeed  float64 // fraction of the distance per second

	suspendWasDown bool
}

func NewCameraController() *CameraController {
	return &CameraController{orbitSpeed: 1.2, zoomSpeed: 0.8}
}

// Update moves camera and reports whether the suspend key was pressed
// this frame.
func (cc *CameraController) Update(win *window.Window, camera *scene.OrbitCamera, dt float64) (toggleSuspend bool) {
	// Cap dt so a hitch does not fling the camera
	if dt > 0.05 {
		dt = 0.05
	}

	var yaw, pitch float64
	if win.IsKeyPressed(window.KeyLeft) || win.IsKeyPressed(window.KeyA) {
		yaw -= cc.orbitSpeed * dt
	}
	if win.IsKeyPressed(window.KeyRight) || win.IsKeyPressed(window.KeyD) {
		yaw += cc.orbitSpeed * dt
	}
	if win.IsKeyPressed(window.KeyUp) {
		pitch += cc.orbitSpeed * dt
	}
	if win.IsKeyPressed(window.KeyDown) {
		pitch -= cc.orbitSpeed * dt
	}
	if yaw != 0 || pitch != 0 {
		camera.Orbit(yaw, pitch)
	}

	if win.IsKeyPressed(window.KeyW) {
		camera.Zoom(-camera.Distance * cc.zoomSpeed * dt)
	}
	if win.IsKeyPressed(window.KeyS) {
		camera.Zoom(camera.Distance * cc.zoomSpeed * dt)
	}

	down := win.IsKeyPressed(window.KeyP)
	toggleSuspend = down && !cc.suspendWasDown
	cc.suspendWasDown = down
	return toggleSuspend
}
