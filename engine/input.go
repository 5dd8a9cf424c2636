package engine

import (
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/window"
)

// dragMode is the camera action bound to the held mouse button.
type dragMode int

const (
	dragNone dragMode = iota
	dragOrbit
	dragPan
)

// orbitInput turns window mouse events into orbit camera motion: left drag orbits, right or
// middle drag pans and the wheel zooms.
type orbitInput struct {
	camera camera.Camera
	mode   dragMode
	lastX  int32
	lastY  int32
}

func newOrbitInput(c camera.Camera) *orbitInput {
	return &orbitInput{camera: c}
}

func (in *orbitInput) mouseButton(button window.MouseButton, down bool, x, y int32) {
	if !down {
		in.mode = dragNone
		return
	}
	switch button {
	case window.MouseButtonLeft:
		in.mode = dragOrbit
	case window.MouseButtonRight, window.MouseButtonMiddle:
		in.mode = dragPan
	}
	in.lastX, in.lastY = x, y
}

func (in *orbitInput) mouseMove(x, y int32) {
	dx, dy := float32(x-in.lastX), float32(y-in.lastY)
	in.lastX, in.lastY = x, y
	if in.mode == dragNone {
		return
	}

	// The controller exists once a scene has framed the camera.
	ctrl := in.camera.Controller()
	if ctrl == nil {
		return
	}
	switch in.mode {
	case dragOrbit:
		ctrl.Orbit(dx, dy)
	case dragPan:
		ctrl.Pan(dx, dy)
	}
}

func (in *orbitInput) scroll(delta float32) {
	if ctrl := in.camera.Controller(); ctrl != nil {
		ctrl.Zoom(delta)
	}
}
