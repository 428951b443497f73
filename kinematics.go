package vertical_arm

import (
	"encoding/json"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/rdk/referenceframe"
)

const kinematicsModelName = "vertical_arm"

// Frame names in the generated kinematics model.
const (
	frameBaseLink  = "base_link"
	frameJoint1    = "joint1"
	frameUpperLink = "upper_link"
	frameJoint2    = "joint2"
	frameTipLink   = "tip_link"
)

type kinematicsFile struct {
	Name         string            `json:"name"`
	KinParamType string            `json:"kinematic_param_type"`
	Links        []kinematicsLink  `json:"links"`
	Joints       []kinematicsJoint `json:"joints"`
}

type kinematicsLink struct {
	ID          string              `json:"id"`
	Parent      string              `json:"parent"`
	Translation r3.Vector           `json:"translation"`
	Geometry    *kinematicsGeometry `json:"geometry,omitempty"`
}

type kinematicsJoint struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Parent string    `json:"parent"`
	Axis   r3.Vector `json:"axis"`
	Min    float64   `json:"min"` // degrees
	Max    float64   `json:"max"` // degrees
}

type kinematicsGeometry struct {
	Type        string    `json:"type"`
	X           float64   `json:"x"`
	Y           float64   `json:"y"`
	Z           float64   `json:"z"`
	Translation r3.Vector `json:"translation"`
}

// linkBox is a link's box, extending height from the start of the link frame.
func linkBox(width, height float64) *kinematicsGeometry {
	return &kinematicsGeometry{
		Type:        "box",
		X:           width,
		Y:           width,
		Z:           height,
		Translation: r3.Vector{Z: height / 2},
	}
}

// KinematicsJSON renders dims and limits as an SVA kinematics file. Both joints
// rotate about Y; the end effector is the top centre of Link3.
func KinematicsJSON(dims Dimensions, limits []JointLimit) ([]byte, error) {
	dims = dims.WithDefaults()
	if err := dims.Validate(); err != nil {
		return nil, err
	}
	if len(limits) != NumJoints {
		limits = DefaultJointLimits
	}

	w := dims.LinkWidth
	file := kinematicsFile{
		Name:         kinematicsModelName,
		KinParamType: "SVA",
		Links: []kinematicsLink{
			{
				ID:          frameBaseLink,
				Parent:      referenceframe.World,
				Translation: r3.Vector{Z: dims.BaseHeight + dims.Link1Height},
				Geometry:    linkBox(w, dims.BaseHeight+dims.Link1Height),
			},
			{
				ID:          frameUpperLink,
				Parent:      frameJoint1,
				Translation: r3.Vector{Z: dims.JointRadius + dims.Link2Height},
				Geometry:    linkBox(w, dims.JointRadius+dims.Link2Height),
			},
			{
				ID:          frameTipLink,
				Parent:      frameJoint2,
				Translation: r3.Vector{Z: dims.Link3Height},
				Geometry:    linkBox(w, dims.Link3Height),
			},
		},
		Joints: []kinematicsJoint{
			{
				ID:     frameJoint1,
				Type:   "revolute",
				Parent: frameBaseLink,
				Axis:   r3.Vector{Y: 1},
				Min:    limits[0].MinDegrees,
				Max:    limits[0].MaxDegrees,
			},
			{
				ID:     frameJoint2,
				Type:   "revolute",
				Parent: frameUpperLink,
				Axis:   r3.Vector{Y: 1},
				Min:    limits[1].MinDegrees,
				Max:    limits[1].MaxDegrees,
			},
		},
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal kinematics")
	}
	return data, nil
}

// NewKinematicsModel builds the referenceframe model for an arm named name.
func NewKinematicsModel(name string, dims Dimensions, limits []JointLimit) (referenceframe.Model, error) {
	data, err := KinematicsJSON(dims, limits)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = kinematicsModelName
	}
	model, err := referenceframe.UnmarshalModelJSON(data, name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse generated kinematics")
	}
	return model, nil
}
