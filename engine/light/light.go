package light

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	mu *sync.Mutex

	direction mgl32.Vec3
	color     mgl32.Vec3
	intensity float32
	enabled   bool
}

// Light is the scene's single directional light, a distant source such as the sun with no
// position and no distance attenuation. It is written into the frame uniforms once per frame.
type Light interface {
	// Direction returns the normalized direction the light travels in (from the light toward the
	// scene).
	//
	// Returns:
	//   - mgl32.Vec3: normalized direction
	Direction() mgl32.Vec3

	// Color returns the linear RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: color as (r, g, b)
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier for the light.
	//
	// Returns:
	//   - float32: the intensity value
	Intensity() float32

	// Enabled returns whether this light is active for rendering.
	//
	// Returns:
	//   - bool: true if the light is enabled
	Enabled() bool

	// Count returns the number of lights shading the scene: 1 when enabled and 0 otherwise.
	// Shader variants are compiled for this count.
	//
	// Returns:
	//   - int: the light count
	Count() int

	// Radiance returns color scaled by intensity, or black when the light is disabled.
	//
	// Returns:
	//   - mgl32.Vec3: the radiance reaching a surface facing the light
	Radiance() mgl32.Vec3

	// SetDirection sets the direction of the light and normalizes it. A zero vector is ignored.
	//
	// Parameters:
	//   - direction: the new direction
	SetDirection(direction mgl32.Vec3)

	// SetColor sets the RGB color of the light.
	//
	// Parameters:
	//   - color: color as (r, g, b)
	SetColor(color mgl32.Vec3)

	// SetIntensity sets the scalar intensity multiplier. Negative values clamp to zero.
	//
	// Parameters:
	//   - intensity: the intensity value
	SetIntensity(intensity float32)

	// SetEnabled enables or disables the light for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// DefaultDirection points down and away from a viewer on +Z, lighting the front and top of a
// framed model.
var DefaultDirection = mgl32.Vec3{-0.5, -1, -0.6}.Normalize()

// NewLight creates a white directional light with any provided options applied.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		mu:        &sync.Mutex{},
		direction: DefaultDirection,
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 3.0,
		enabled:   true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.intensity
}

func (l *lightImpl) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *lightImpl) Count() int {
	if l.Enabled() {
		return 1
	}
	return 0
}

func (l *lightImpl) Radiance() mgl32.Vec3 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return mgl32.Vec3{}
	}
	return l.color.Mul(l.intensity)
}

func (l *lightImpl) SetDirection(direction mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.direction = normalizeOr(direction, l.direction)
}

func (l *lightImpl) SetColor(color mgl32.Vec3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = color
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.intensity = max(intensity, 0)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// normalizeOr returns v normalized, or fallback when v has no length.
func normalizeOr(v, fallback mgl32.Vec3) mgl32.Vec3 {
	if v.Len() < 1e-8 {
		return fallback
	}
	return v.Normalize()
}
