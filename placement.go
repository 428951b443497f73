package vertical_arm

import (
	"fmt"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
	rutils "go.viam.com/rdk/utils"
)

// Placement is the position and orientation of a segment's primitive in world space.
// Position is the primitive's local origin: the min corner of a box, or the centre
// of the bottom face of a cylinder.
type Placement struct {
	Position    r3.Vector
	Orientation spatialmath.Orientation
}

// Pose returns the placement as a spatialmath pose.
func (p Placement) Pose() spatialmath.Pose {
	return spatialmath.NewPose(p.Position, p.orientation())
}

func (p Placement) orientation() spatialmath.Orientation {
	if p.Orientation == nil {
		return spatialmath.NewZeroOrientation()
	}
	return p.Orientation
}

func (p Placement) String() string {
	ov := p.orientation().OrientationVectorDegrees()
	return fmt.Sprintf("pos(%.3f, %.3f, %.3f) ov(%.3f, %.3f, %.3f, %.3f°)",
		p.Position.X, p.Position.Y, p.Position.Z, ov.OX, ov.OY, ov.OZ, ov.Theta)
}

// PlacementAlmostEqual reports whether two placements match within a small tolerance.
func PlacementAlmostEqual(a, b Placement) bool {
	return spatialmath.PoseAlmostEqualEps(a.Pose(), b.Pose(), 1e-6)
}

// yRotation is the joint rotation: angleDegrees about the horizontal Y axis.
func yRotation(angleDegrees float64) spatialmath.Orientation {
	return &spatialmath.R4AA{Theta: rutils.DegToRad(angleDegrees), RY: 1}
}

// jointTilt lays a joint cylinder on its side: 90° about the X axis.
func jointTilt() spatialmath.Orientation {
	return &spatialmath.R4AA{Theta: rutils.DegToRad(90), RX: 1}
}

// compose returns a∘b, i.e. b applied first, then a.
func compose(a, b spatialmath.Orientation) spatialmath.Orientation {
	return spatialmath.Compose(
		spatialmath.NewPoseFromOrientation(a),
		spatialmath.NewPoseFromOrientation(b),
	).Orientation()
}

func rotate(o spatialmath.Orientation, v r3.Vector) r3.Vector {
	return spatialmath.Compose(
		spatialmath.NewPoseFromOrientation(o),
		spatialmath.NewPoseFromPoint(v),
	).Point()
}

// placementToMap flattens a placement for sensor readings and DoCommand replies.
func placementToMap(p Placement) map[string]interface{} {
	ov := p.orientation().OrientationVectorDegrees()
	return map[string]interface{}{
		"x":     p.Position.X,
		"y":     p.Position.Y,
		"z":     p.Position.Z,
		"o_x":   ov.OX,
		"o_y":   ov.OY,
		"o_z":   ov.OZ,
		"theta": ov.Theta,
	}
}
