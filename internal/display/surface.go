package display

import (
	"github.com/memelens/memelens/internal/fetch"
	"github.com/memelens/memelens/internal/tracking"
)

// DefaultBaseSize is the surface height in target units.
const DefaultBaseSize = 0.3

// SurfaceTilt is the fixed rotation about X, in degrees, that lays the
// surface flat against the target's forward axis.
const SurfaceTilt = 90

type Vec3 struct {
	X, Y, Z float64
}

// Transform is a surface's local scale and Euler rotation (degrees).
type Transform struct {
	Scale    Vec3
	Rotation Vec3
}

// SurfaceTransform sizes a surface for a width x height image: the height
// is fixed at baseSize and the width follows the image aspect ratio.
func SurfaceTransform(width, height int, baseSize float64) Transform {
	aspect := 1.0
	if height > 0 {
		aspect = float64(width) / float64(height)
	}
	return Transform{
		Scale:    Vec3{X: baseSize * aspect, Y: baseSize, Z: 1},
		Rotation: Vec3{X: SurfaceTilt},
	}
}

// Surface is the displayable object anchored to a target.
type Surface interface {
	// Attach re-parents the surface onto target.
	Attach(target tracking.Target)
	SetVisible(visible bool)
	Bind(img *fetch.Image)
	SetTransform(t Transform)
	Destroy()
}

// SurfaceFactory creates a surface already placed at target.
type SurfaceFactory interface {
	NewSurface(target tracking.Target) (Surface, error)
}

// Camera is the tracking camera. It runs only while scanning.
type Camera interface {
	Activate() error
	Deactivate()
}

// Quitter ends the program.
type Quitter interface {
	Quit()
}

// Dispatcher starts a fetch. The result must be handed back through
// Controller.Complete on the controller's own goroutine.
type Dispatcher interface {
	Dispatch(req fetch.Request)
}
