package vertical_arm

import (
	"fmt"
	"math"

	"go.viam.com/rdk/referenceframe"
	rutils "go.viam.com/rdk/utils"
)

// JointLimit bounds one joint, in degrees.
type JointLimit struct {
	MinDegrees float64 `json:"min_degs"`
	MaxDegrees float64 `json:"max_degs"`
}

// DefaultJointLimits allow a full turn either way on both joints.
var DefaultJointLimits = []JointLimit{
	{MinDegrees: -180, MaxDegrees: 180},
	{MinDegrees: -180, MaxDegrees: 180},
}

// Validate checks that the limit is a non-empty range within one turn either way.
func (l JointLimit) Validate() error {
	if l.MinDegrees >= l.MaxDegrees {
		return fmt.Errorf("invalid range: min (%.2f) must be less than max (%.2f)", l.MinDegrees, l.MaxDegrees)
	}
	if l.MinDegrees < -360 || l.MaxDegrees > 360 {
		return fmt.Errorf("limits must be between -360 and 360 degrees, got min=%.2f max=%.2f", l.MinDegrees, l.MaxDegrees)
	}
	return nil
}

// Clamp limits degrees to the range. The second return value reports whether clamping happened.
func (l JointLimit) Clamp(degrees float64) (float64, bool) {
	switch {
	case degrees < l.MinDegrees:
		return l.MinDegrees, true
	case degrees > l.MaxDegrees:
		return l.MaxDegrees, true
	default:
		return degrees, false
	}
}

// wrapDegrees maps an angle onto (-180, 180].
func wrapDegrees(degrees float64) float64 {
	wrapped := math.Mod(degrees, 360)
	if wrapped > 180 {
		wrapped -= 360
	} else if wrapped <= -180 {
		wrapped += 360
	}
	return wrapped
}

// InputsToDegrees converts the arm's two radian inputs to degrees.
func InputsToDegrees(inputs []referenceframe.Input) ([NumJoints]float64, error) {
	var out [NumJoints]float64
	if len(inputs) != NumJoints {
		return out, fmt.Errorf("expected %d joint positions, got %d", NumJoints, len(inputs))
	}
	for i, in := range inputs {
		if err := checkJointAngle(i+1, in); err != nil {
			return out, err
		}
		out[i] = rutils.RadToDeg(in)
	}
	return out, nil
}

// DegreesToInputs converts joint angles in degrees to radian inputs.
func DegreesToInputs(joint1Degrees, joint2Degrees float64) []referenceframe.Input {
	return []referenceframe.Input{
		rutils.DegToRad(joint1Degrees),
		rutils.DegToRad(joint2Degrees),
	}
}
