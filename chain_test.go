package vertical_arm

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.viam.com/rdk/spatialmath"
)

const tol = 1e-9

func assertVecNear(t *testing.T, want, got r3.Vector) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol, "x")
	assert.InDelta(t, want.Y, got.Y, tol, "y")
	assert.InDelta(t, want.Z, got.Z, tol, "z")
}

func newTestChain(t *testing.T, mode PropagationMode) *ArmChain {
	t.Helper()
	c, err := NewArmChain(DefaultDimensions, mode)
	require.NoError(t, err)
	return c
}

func TestRestLayout(t *testing.T) {
	c := newTestChain(t, PropagationChained)

	tests := []struct {
		name string
		want r3.Vector
	}{
		{SegmentBase, r3.Vector{}},
		{SegmentConnector, r3.Vector{X: -5, Y: -2.5, Z: 10}},
		{SegmentLink1, r3.Vector{X: -7.5, Y: -7.5, Z: 15}},
		{SegmentJoint1, r3.Vector{X: 0, Y: 12.5, Z: 115}},
		{SegmentLink2, r3.Vector{X: -7.5, Y: -7.5, Z: 127}},
		{SegmentJoint2, r3.Vector{X: 0, Y: 12.5, Z: 207}},
		{SegmentLink3, r3.Vector{X: -7.5, Y: -7.5, Z: 207}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := c.Segment(tt.name)
			require.True(t, ok)
			assertVecNear(t, tt.want, s.Placement.Position)
		})
	}

	link1, _ := c.Segment(SegmentLink1)
	assert.True(t, spatialmath.OrientationAlmostEqual(link1.Placement.Orientation, spatialmath.NewZeroOrientation()))

	joint1, _ := c.Segment(SegmentJoint1)
	assert.True(t, spatialmath.OrientationAlmostEqual(joint1.Placement.Orientation, jointTilt()))
	assertVecNear(t, r3.Vector{Z: 115}, joint1.Center())
}

func TestUpstreamRelations(t *testing.T) {
	c := newTestChain(t, PropagationChained)

	expected := map[string]string{
		SegmentConnector: SegmentBase,
		SegmentLink1:     SegmentBase,
		SegmentJoint1:    SegmentLink1,
		SegmentLink2:     SegmentJoint1,
		SegmentJoint2:    SegmentLink2,
		SegmentLink3:     SegmentJoint2,
	}
	for name, parent := range expected {
		s, ok := c.Segment(name)
		require.True(t, ok)
		require.NotNil(t, s.Upstream(), name)
		assert.Equal(t, parent, s.Upstream().Name, name)
	}

	base, _ := c.Segment(SegmentBase)
	assert.Nil(t, base.Upstream())

	names := []string{}
	for _, s := range c.Segments() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		SegmentBase, SegmentConnector, SegmentLink1, SegmentJoint1, SegmentLink2, SegmentJoint2, SegmentLink3,
	}, names)
}

func TestZeroAngleIsIdentity(t *testing.T) {
	for _, joint := range []int{1, 2} {
		c := newTestChain(t, PropagationChained)
		rest := c.Placements()

		require.NoError(t, c.SetJointAngle(joint, 0))

		for name, p := range c.Placements() {
			assert.True(t, PlacementAlmostEqual(rest[name], p), "joint %d segment %s", joint, name)
		}
	}
}

func TestReturnToZeroRestores(t *testing.T) {
	for _, mode := range []PropagationMode{PropagationChained, PropagationScripted} {
		t.Run(string(mode), func(t *testing.T) {
			c := newTestChain(t, mode)
			rest := c.Placements()

			require.NoError(t, c.SetJointAngle(1, 37))
			require.NoError(t, c.SetJointAngle(2, -64))
			require.NoError(t, c.SetJointAngle(1, 0))
			require.NoError(t, c.SetJointAngle(2, 0))

			for name, p := range c.Placements() {
				assert.True(t, PlacementAlmostEqual(rest[name], p), name)
			}
		})
	}
}

func TestOppositeRotationsCancel(t *testing.T) {
	const theta = 52.5
	c := newTestChain(t, PropagationChained)

	forward, err := c.ComputePose(1, theta)
	require.NoError(t, err)
	backward, err := c.ComputePose(1, -theta)
	require.NoError(t, err)

	for _, name := range []string{SegmentLink2, SegmentLink3} {
		o := compose(forward[name].Orientation, backward[name].Orientation)
		assert.True(t, spatialmath.OrientationAlmostEqual(o, spatialmath.NewZeroOrientation()), name)
	}

	// undoing the forward rotation about the pivot lands Link2 back at rest
	link2, _ := c.Segment(SegmentLink2)
	pivot := r3.Vector{Z: 115}
	undone := pivot.Add(rotate(yRotation(-theta), forward[SegmentLink2].Position.Sub(pivot)))
	assertVecNear(t, link2.Placement.Position, undone)
}

func TestJointTiltRetained(t *testing.T) {
	c := newTestChain(t, PropagationChained)
	require.NoError(t, c.SetJointAngle(1, 30))
	require.NoError(t, c.SetJointAngle(2, 45))

	joint1, _ := c.Segment(SegmentJoint1)
	joint2, _ := c.Segment(SegmentJoint2)

	assert.True(t, spatialmath.OrientationAlmostEqual(
		joint1.Placement.Orientation, compose(jointTilt(), yRotation(30))))
	assert.True(t, spatialmath.OrientationAlmostEqual(
		joint2.Placement.Orientation, compose(jointTilt(), compose(yRotation(30), yRotation(45)))))
}

func TestJoint1QuarterTurn(t *testing.T) {
	c := newTestChain(t, PropagationChained)
	require.NoError(t, c.SetJointAngle(1, 90))

	link2, _ := c.Segment(SegmentLink2)
	joint2, _ := c.Segment(SegmentJoint2)

	// +Z swings onto +X about the joint 1 pivot at z=115
	assertVecNear(t, r3.Vector{X: 52, Y: 0, Z: 115}, link2.Center())
	assertVecNear(t, r3.Vector{X: 92, Y: 0, Z: 115}, joint2.Center())
	assertVecNear(t, r3.Vector{X: 142, Y: 0, Z: 115}, c.TipPose().Point())
	assert.True(t, spatialmath.OrientationAlmostEqual(link2.Placement.Orientation, yRotation(90)))
}

func TestJoint2LeavesUpstreamAlone(t *testing.T) {
	c := newTestChain(t, PropagationChained)
	require.NoError(t, c.SetJointAngle(1, 20))
	before := c.Placements()

	require.NoError(t, c.SetJointAngle(2, 90))
	after := c.Placements()

	for _, name := range []string{SegmentBase, SegmentConnector, SegmentLink1, SegmentJoint1, SegmentLink2} {
		assert.True(t, PlacementAlmostEqual(before[name], after[name]), name)
	}
	assert.False(t, PlacementAlmostEqual(before[SegmentLink3], after[SegmentLink3]))

	link3, _ := c.Segment(SegmentLink3)
	assert.True(t, spatialmath.OrientationAlmostEqual(
		link3.Placement.Orientation, compose(yRotation(20), yRotation(90))))
}

func TestJoint2QuarterTurnFromRest(t *testing.T) {
	c := newTestChain(t, PropagationChained)
	require.NoError(t, c.SetJointAngle(2, 90))

	link3, _ := c.Segment(SegmentLink3)
	assertVecNear(t, r3.Vector{X: 25, Y: 0, Z: 207}, link3.Center())
	assertVecNear(t, r3.Vector{X: 50, Y: 0, Z: 207}, c.TipPose().Point())
}

func TestInvalidJointIndex(t *testing.T) {
	c := newTestChain(t, PropagationChained)
	require.NoError(t, c.SetJointAngle(1, 15))
	before := c.Placements()

	for _, joint := range []int{0, 3, -1} {
		err := c.SetJointAngle(joint, 45)
		assert.True(t, errors.Is(err, ErrInvalidJointIndex), "joint %d", joint)

		_, err = c.ComputePose(joint, 45)
		assert.True(t, errors.Is(err, ErrInvalidJointIndex), "joint %d", joint)
	}

	for name, p := range c.Placements() {
		assert.True(t, PlacementAlmostEqual(before[name], p), name)
	}
	j1, j2 := c.JointAngles()
	assert.Equal(t, 15.0, j1)
	assert.Equal(t, 0.0, j2)
}

func TestNonFiniteAngleRejected(t *testing.T) {
	c := newTestChain(t, PropagationChained)
	require.NoError(t, c.SetJointAngle(2, 40))
	before := c.Placements()

	for _, angle := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		for joint := 1; joint <= NumJoints; joint++ {
			err := c.SetJointAngle(joint, angle)
			assert.True(t, errors.Is(err, ErrInvalidJointAngle), "joint %d angle %v", joint, angle)
		}
		assert.True(t, errors.Is(c.SetJointAngles(angle, 0), ErrInvalidJointAngle))
		assert.True(t, errors.Is(c.SetJointAngles(0, angle), ErrInvalidJointAngle))

		_, err := c.ComputePose(1, angle)
		assert.True(t, errors.Is(err, ErrInvalidJointAngle))
	}

	for name, p := range c.Placements() {
		assert.True(t, PlacementAlmostEqual(before[name], p), name)
	}
	j1, j2 := c.JointAngles()
	assert.Equal(t, 0.0, j1)
	assert.Equal(t, 40.0, j2)
}

func TestPropagationModes(t *testing.T) {
	t.Run("chained keeps joint 2 rotation", func(t *testing.T) {
		c := newTestChain(t, PropagationChained)
		require.NoError(t, c.SetJointAngle(2, 45))
		require.NoError(t, c.SetJointAngle(1, 30))

		j1, j2 := c.JointAngles()
		assert.Equal(t, 30.0, j1)
		assert.Equal(t, 45.0, j2)

		link3, _ := c.Segment(SegmentLink3)
		assert.True(t, spatialmath.OrientationAlmostEqual(link3.Placement.Orientation, yRotation(75)))
	})

	t.Run("scripted drops joint 2 rotation", func(t *testing.T) {
		c := newTestChain(t, PropagationScripted)
		require.NoError(t, c.SetJointAngle(2, 45))
		require.NoError(t, c.SetJointAngle(1, 30))

		_, j2 := c.JointAngles()
		assert.Equal(t, 0.0, j2)

		link3, _ := c.Segment(SegmentLink3)
		assert.True(t, spatialmath.OrientationAlmostEqual(link3.Placement.Orientation, yRotation(30)))
	})

	t.Run("scripted joint 2 composes with link 2", func(t *testing.T) {
		scripted := newTestChain(t, PropagationScripted)
		chained := newTestChain(t, PropagationChained)
		for _, c := range []*ArmChain{scripted, chained} {
			require.NoError(t, c.SetJointAngle(1, -25))
			require.NoError(t, c.SetJointAngle(2, 60))
		}
		want := chained.Placements()
		for name, p := range scripted.Placements() {
			assert.True(t, PlacementAlmostEqual(want[name], p), name)
		}
	})
}

func TestComputePoseDoesNotMutate(t *testing.T) {
	c := newTestChain(t, PropagationChained)
	rest := c.Placements()

	moved, err := c.ComputePose(1, 45)
	require.NoError(t, err)
	assert.Len(t, moved, 4)
	for _, name := range []string{SegmentJoint1, SegmentLink2, SegmentJoint2, SegmentLink3} {
		assert.Contains(t, moved, name)
	}

	moved, err = c.ComputePose(2, 45)
	require.NoError(t, err)
	assert.Len(t, moved, 2)
	assert.Contains(t, moved, SegmentJoint2)
	assert.Contains(t, moved, SegmentLink3)

	for name, p := range c.Placements() {
		assert.True(t, PlacementAlmostEqual(rest[name], p), name)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := newTestChain(t, PropagationChained)
	clone := c.Clone()
	require.NoError(t, clone.SetJointAngle(1, 80))

	link2, _ := c.Segment(SegmentLink2)
	assertVecNear(t, r3.Vector{X: -7.5, Y: -7.5, Z: 127}, link2.Placement.Position)

	cl2, _ := clone.Segment(SegmentLink2)
	require.NotNil(t, cl2.Upstream())
	cj1, _ := clone.Segment(SegmentJoint1)
	assert.Same(t, cj1, cl2.Upstream())
}

func TestNewArmChainValidation(t *testing.T) {
	_, err := NewArmChain(Dimensions{LinkWidth: -1}, PropagationChained)
	assert.Error(t, err)

	_, err = NewArmChain(DefaultDimensions, "sideways")
	assert.Error(t, err)

	c, err := NewArmChain(Dimensions{}, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultDimensions, c.Dimensions())
	assert.Equal(t, PropagationChained, c.Mode())
}

func TestParsePropagationMode(t *testing.T) {
	m, err := ParsePropagationMode(" Scripted ")
	require.NoError(t, err)
	assert.Equal(t, PropagationScripted, m)

	m, err = ParsePropagationMode("")
	require.NoError(t, err)
	assert.Equal(t, PropagationChained, m)

	_, err = ParsePropagationMode("legacy")
	assert.Error(t, err)
}
