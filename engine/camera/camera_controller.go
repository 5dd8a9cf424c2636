package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraController owns the positional state of an orbit camera: a target (pivot) and spherical
// coordinates (radius, azimuth, elevation) around it. Camera reads the position and target and
// computes its matrices from them.
type CameraController interface {
	// Position returns the camera's world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: world-space camera position
	Position() mgl32.Vec3

	// Target returns the look-at point.
	//
	// Returns:
	//   - mgl32.Vec3: world-space target position
	Target() mgl32.Vec3

	// SetTarget sets the look-at/pivot point and recomputes position from spherical coordinates.
	//
	// Parameters:
	//   - target: world-space coordinates
	SetTarget(target mgl32.Vec3)

	// Orbit rotates the camera around the target by a mouse drag delta in pixels, scaled by the
	// mouse sensitivity. Elevation is clamped to its bounds.
	//
	// Parameters:
	//   - dx: horizontal drag in pixels
	//   - dy: vertical drag in pixels
	Orbit(dx, dy float32)

	// Zoom scales the orbit radius by one zoom step per unit of delta.
	// Positive delta zooms in (closer to target).
	//
	// Parameters:
	//   - delta: zoom amount, typically a scroll wheel offset
	Zoom(delta float32)

	// Pan translates both position and target along the camera's local right and up axes.
	//
	// Parameters:
	//   - dx: right offset in pixels, scaled by the pan speed
	//   - dy: up offset in pixels, scaled by the pan speed
	Pan(dx, dy float32)

	// Radius returns the current orbit radius (distance from target).
	//
	// Returns:
	//   - float32: current distance from target
	Radius() float32

	// SetRadius sets the orbit radius directly, clamped to min/max bounds.
	//
	// Parameters:
	//   - radius: new distance from target
	SetRadius(radius float32)

	// SetRadiusBounds sets the zoom limits and re-clamps the current radius.
	//
	// Parameters:
	//   - minRadius: minimum distance from target
	//   - maxRadius: maximum distance from target
	SetRadiusBounds(minRadius, maxRadius float32)

	// Azimuth returns the current horizontal angle around the Y axis.
	//
	// Returns:
	//   - float32: azimuth in radians
	Azimuth() float32

	// SetAzimuth sets the horizontal angle directly and recomputes position.
	//
	// Parameters:
	//   - azimuth: new horizontal angle in radians
	SetAzimuth(azimuth float32)

	// Elevation returns the current vertical angle from the horizontal plane.
	//
	// Returns:
	//   - float32: elevation in radians
	Elevation() float32

	// SetElevation sets the vertical angle directly, clamped to min/max bounds.
	//
	// Parameters:
	//   - elevation: new vertical angle in radians
	SetElevation(elevation float32)

	// SetPanSpeed sets the world distance panned per pixel of drag.
	//
	// Parameters:
	//   - speed: the pan speed
	SetPanSpeed(speed float32)
}
