package vertical_arm

import (
	"fmt"

	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
)

// Geometry returns the collision geometry of the segment at its current placement.
// Joints are capsules. The base is a box around its cylinder, as are joints too
// short to hold a capsule of their radius.
func (s *Segment) Geometry() (spatialmath.Geometry, error) {
	pose := spatialmath.NewPose(s.Center(), s.Placement.orientation())
	switch s.Kind {
	case KindJoint:
		if s.Height >= 2*s.Radius {
			return spatialmath.NewCapsule(pose, s.Radius, s.Height, s.Name)
		}
		return spatialmath.NewBox(pose, r3.Vector{X: 2 * s.Radius, Y: 2 * s.Radius, Z: s.Height}, s.Name)
	case KindBase:
		return spatialmath.NewBox(pose, r3.Vector{X: 2 * s.Radius, Y: 2 * s.Radius, Z: s.Height}, s.Name)
	default:
		return spatialmath.NewBox(pose, s.Size, s.Name)
	}
}

// Geometries returns the geometry of every segment, in chain order.
func (c *ArmChain) Geometries() ([]spatialmath.Geometry, error) {
	out := make([]spatialmath.Geometry, 0, len(c.segments))
	for _, s := range c.segments {
		g, err := s.Geometry()
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", s.Name, err)
		}
		out = append(out, g)
	}
	return out, nil
}
