package vertical_arm

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/spatialmath"
)

// Segment names, in chain order.
const (
	SegmentBase      = "base"
	SegmentConnector = "connector"
	SegmentLink1     = "link1"
	SegmentJoint1    = "joint1"
	SegmentLink2     = "link2"
	SegmentJoint2    = "joint2"
	SegmentLink3     = "link3"
)

// NumJoints is the number of rotating joints in the chain.
const NumJoints = 2

// SegmentKind distinguishes the primitives that make up the arm.
type SegmentKind int

const (
	KindBase SegmentKind = iota
	KindConnector
	KindLink
	KindJoint
)

func (k SegmentKind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindConnector:
		return "connector"
	case KindLink:
		return "link"
	case KindJoint:
		return "joint"
	default:
		return "unknown"
	}
}

// PropagationMode selects how a joint rotation is pushed down the chain.
type PropagationMode string

const (
	// PropagationChained recomputes the whole chain from both joint angles,
	// so rotating joint 1 carries joint 2's rotation along.
	PropagationChained PropagationMode = "chained"

	// PropagationScripted re-poses everything below joint 1 with joint 1's
	// rotation alone, discarding the rotation previously applied at joint 2.
	// Kept for comparing against poses recorded before chained propagation.
	PropagationScripted PropagationMode = "scripted"
)

// ParsePropagationMode returns the mode named by s. The empty string selects PropagationChained.
func ParsePropagationMode(s string) (PropagationMode, error) {
	switch PropagationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", PropagationChained:
		return PropagationChained, nil
	case PropagationScripted:
		return PropagationScripted, nil
	default:
		return "", fmt.Errorf("propagation_mode must be %q or %q, got %q", PropagationChained, PropagationScripted, s)
	}
}

// Segment is one primitive of the arm. Links and the connector are boxes, the base
// and joints are cylinders.
type Segment struct {
	Name string
	Kind SegmentKind

	// Size is the box extent (links, connector).
	Size r3.Vector
	// Radius and Height describe cylinders (base, joints).
	Radius float64
	Height float64

	Placement Placement

	// upstream is the segment this one hangs from; relation only.
	upstream *Segment
	// joint is the 1-based joint index for joints, 0 otherwise.
	joint int
	// offset is the segment anchor in the frame of the nearest upstream joint
	// (world for segments above joint 1), with all joints at rest. The anchor is
	// the pivot for joints, the bottom-face centre for the base, and the centre
	// for boxes.
	offset r3.Vector
}

// Upstream returns the segment this one is attached to, or nil for the base.
func (s *Segment) Upstream() *Segment {
	return s.upstream
}

// JointIndex returns the 1-based joint index, or 0 if s is not a joint.
func (s *Segment) JointIndex() int {
	return s.joint
}

// Center returns the centre of the segment's primitive in world space.
func (s *Segment) Center() r3.Vector {
	o := s.Placement.orientation()
	switch s.Kind {
	case KindBase, KindJoint:
		return s.Placement.Position.Add(rotate(o, r3.Vector{Z: s.Height / 2}))
	default:
		return s.Placement.Position.Add(rotate(o, s.Size.Mul(0.5)))
	}
}

// ArmChain is the ordered kinematic chain Base, Connector, Link1, Joint1, Link2,
// Joint2, Link3. Its topology is fixed at construction; only placements change.
type ArmChain struct {
	dims     Dimensions
	mode     PropagationMode
	segments []*Segment
	byName   map[string]*Segment
	// angles holds the current joint angles in degrees.
	angles [NumJoints]float64
}

// NewArmChain builds the chain from dims and places every segment at rest.
func NewArmChain(dims Dimensions, mode PropagationMode) (*ArmChain, error) {
	dims = dims.WithDefaults()
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = PropagationChained
	}
	if _, err := ParsePropagationMode(string(mode)); err != nil {
		return nil, err
	}

	w := dims.LinkWidth
	base := &Segment{
		Name:   SegmentBase,
		Kind:   KindBase,
		Radius: dims.BaseRadius,
		Height: dims.BaseHeight,
	}
	connector := &Segment{
		Name:     SegmentConnector,
		Kind:     KindConnector,
		Size:     connectorSize,
		upstream: base,
		offset:   r3.Vector{Z: dims.BaseHeight - connectorDrop + connectorSize.Z/2},
	}
	link1 := &Segment{
		Name:     SegmentLink1,
		Kind:     KindLink,
		Size:     r3.Vector{X: w, Y: w, Z: dims.Link1Height},
		upstream: base,
		offset:   r3.Vector{Z: dims.BaseHeight + dims.Link1Height/2},
	}
	joint1 := &Segment{
		Name:     SegmentJoint1,
		Kind:     KindJoint,
		Radius:   dims.JointRadius,
		Height:   dims.JointLength,
		upstream: link1,
		joint:    1,
		offset:   r3.Vector{Z: dims.BaseHeight + dims.Link1Height},
	}
	link2 := &Segment{
		Name:     SegmentLink2,
		Kind:     KindLink,
		Size:     r3.Vector{X: w, Y: w, Z: dims.Link2Height},
		upstream: joint1,
		offset:   r3.Vector{Z: dims.JointRadius + dims.Link2Height/2},
	}
	joint2 := &Segment{
		Name:     SegmentJoint2,
		Kind:     KindJoint,
		Radius:   dims.JointRadius,
		Height:   dims.JointLength,
		upstream: link2,
		joint:    2,
		offset:   r3.Vector{Z: dims.JointRadius + dims.Link2Height},
	}
	link3 := &Segment{
		Name:     SegmentLink3,
		Kind:     KindLink,
		Size:     r3.Vector{X: w, Y: w, Z: dims.Link3Height},
		upstream: joint2,
		offset:   r3.Vector{Z: dims.Link3Height / 2},
	}

	c := &ArmChain{
		dims:     dims,
		mode:     mode,
		segments: []*Segment{base, connector, link1, joint1, link2, joint2, link3},
	}
	c.index()
	c.recompute()
	return c, nil
}

func (c *ArmChain) index() {
	c.byName = make(map[string]*Segment, len(c.segments))
	for _, s := range c.segments {
		c.byName[s.Name] = s
	}
}

// Dimensions returns the dimensions the chain was built with.
func (c *ArmChain) Dimensions() Dimensions {
	return c.dims
}

// Mode returns the propagation mode.
func (c *ArmChain) Mode() PropagationMode {
	return c.mode
}

// Segments returns the segments in chain order.
func (c *ArmChain) Segments() []*Segment {
	out := make([]*Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

// Segment returns the named segment.
func (c *ArmChain) Segment(name string) (*Segment, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// JointAngles returns the current angles of joint 1 and joint 2 in degrees.
func (c *ArmChain) JointAngles() (float64, float64) {
	return c.angles[0], c.angles[1]
}

// Placements returns every segment's placement keyed by segment name.
func (c *ArmChain) Placements() map[string]Placement {
	out := make(map[string]Placement, len(c.segments))
	for _, s := range c.segments {
		out[s.Name] = s.Placement
	}
	return out
}

// Downstream returns the segments moved by rotating the given joint, in chain order.
func (c *ArmChain) Downstream(joint int) ([]*Segment, error) {
	if joint < 1 || joint > NumJoints {
		return nil, errors.Wrapf(ErrInvalidJointIndex, "joint %d", joint)
	}
	var out []*Segment
	for _, s := range c.segments {
		if s.dependsOnJoint(joint) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (s *Segment) dependsOnJoint(joint int) bool {
	for cur := s; cur != nil; cur = cur.upstream {
		if cur.joint == joint {
			return true
		}
	}
	return false
}

// SetJointAngle rotates a joint to angleDegrees about the Y axis and recomputes
// every placement. The angle is absolute, not an increment. An invalid joint
// index or a non-finite angle leaves the chain untouched.
func (c *ArmChain) SetJointAngle(joint int, angleDegrees float64) error {
	if joint < 1 || joint > NumJoints {
		return errors.Wrapf(ErrInvalidJointIndex, "joint %d", joint)
	}
	if err := checkJointAngle(joint, angleDegrees); err != nil {
		return err
	}
	c.angles[joint-1] = angleDegrees
	if joint == 1 && c.mode == PropagationScripted {
		c.angles[1] = 0
	}
	c.recompute()
	return nil
}

// SetJointAngles sets both joint angles at once and recomputes the chain.
func (c *ArmChain) SetJointAngles(joint1Degrees, joint2Degrees float64) error {
	if err := checkJointAngle(1, joint1Degrees); err != nil {
		return err
	}
	if err := checkJointAngle(2, joint2Degrees); err != nil {
		return err
	}
	c.angles = [NumJoints]float64{joint1Degrees, joint2Degrees}
	c.recompute()
	return nil
}

func checkJointAngle(joint int, angleDegrees float64) error {
	if math.IsNaN(angleDegrees) || math.IsInf(angleDegrees, 0) {
		return errors.Wrapf(ErrInvalidJointAngle, "joint %d angle %v", joint, angleDegrees)
	}
	return nil
}

// ComputePose returns the placements the downstream segments of joint would have
// at angleDegrees, without changing c.
func (c *ArmChain) ComputePose(joint int, angleDegrees float64) (map[string]Placement, error) {
	next := c.Clone()
	if err := next.SetJointAngle(joint, angleDegrees); err != nil {
		return nil, err
	}
	moved, err := next.Downstream(joint)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Placement, len(moved))
	for _, s := range moved {
		out[s.Name] = s.Placement
	}
	return out, nil
}

// Reset returns every joint to zero.
func (c *ArmChain) Reset() {
	c.angles = [NumJoints]float64{}
	c.recompute()
}

// TipPose returns the pose of the top centre of Link3, oriented with Link3.
func (c *ArmChain) TipPose() spatialmath.Pose {
	joint2 := c.byName[SegmentJoint2]
	link3 := c.byName[SegmentLink3]
	o := link3.Placement.orientation()
	pivot := joint2.Center()
	return spatialmath.NewPose(pivot.Add(rotate(o, r3.Vector{Z: link3.Size.Z})), o)
}

// Clone returns a deep copy of the chain.
func (c *ArmChain) Clone() *ArmChain {
	out := &ArmChain{
		dims:     c.dims,
		mode:     c.mode,
		angles:   c.angles,
		segments: make([]*Segment, len(c.segments)),
	}
	copies := make(map[*Segment]*Segment, len(c.segments))
	for i, s := range c.segments {
		cp := *s
		out.segments[i] = &cp
		copies[s] = &cp
	}
	for _, s := range out.segments {
		if s.upstream != nil {
			s.upstream = copies[s.upstream]
		}
	}
	out.index()
	return out
}

// recompute places every segment top-down from the dimensions and joint angles.
func (c *ArmChain) recompute() {
	var origin r3.Vector
	frame := spatialmath.NewZeroOrientation()
	for _, s := range c.segments {
		anchor := origin.Add(rotate(frame, s.offset))
		switch s.Kind {
		case KindJoint:
			frame = compose(frame, yRotation(c.angles[s.joint-1]))
			origin = anchor
			o := compose(jointTilt(), frame)
			s.Placement = Placement{
				Position:    anchor.Sub(rotate(o, r3.Vector{Z: s.Height / 2})),
				Orientation: o,
			}
		case KindBase:
			s.Placement = Placement{Position: anchor, Orientation: frame}
		default:
			s.Placement = Placement{
				Position:    anchor.Sub(rotate(frame, s.Size.Mul(0.5))),
				Orientation: frame,
			}
		}
	}
}
