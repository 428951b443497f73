package vertical_arm

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// Dimensions are the static sizes of the arm, in millimetres.
type Dimensions struct {
	BaseRadius  float64 `json:"base_radius_mm,omitempty"`
	BaseHeight  float64 `json:"base_height_mm,omitempty"`
	LinkWidth   float64 `json:"link_width_mm,omitempty"` // square cross-section
	Link1Height float64 `json:"link1_height_mm,omitempty"`
	Link2Height float64 `json:"link2_height_mm,omitempty"`
	Link3Height float64 `json:"link3_height_mm,omitempty"`
	JointRadius float64 `json:"joint_radius_mm,omitempty"`
	JointLength float64 `json:"joint_length_mm,omitempty"`
}

var DefaultDimensions = Dimensions{
	BaseRadius:  40,
	BaseHeight:  15,
	LinkWidth:   15,
	Link1Height: 100,
	Link2Height: 80,
	Link3Height: 50,
	JointRadius: 12,
	JointLength: 25,
}

// The connector is the small block sunk into the top of the base.
var connectorSize = r3.Vector{X: 10, Y: 5, Z: 10}

const connectorDrop = 5.0

// WithDefaults returns d with every zero field replaced by its default.
func (d Dimensions) WithDefaults() Dimensions {
	fill := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	fill(&d.BaseRadius, DefaultDimensions.BaseRadius)
	fill(&d.BaseHeight, DefaultDimensions.BaseHeight)
	fill(&d.LinkWidth, DefaultDimensions.LinkWidth)
	fill(&d.Link1Height, DefaultDimensions.Link1Height)
	fill(&d.Link2Height, DefaultDimensions.Link2Height)
	fill(&d.Link3Height, DefaultDimensions.Link3Height)
	fill(&d.JointRadius, DefaultDimensions.JointRadius)
	fill(&d.JointLength, DefaultDimensions.JointLength)
	return d
}

// Validate checks that every dimension is positive.
func (d Dimensions) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"base_radius_mm", d.BaseRadius},
		{"base_height_mm", d.BaseHeight},
		{"link_width_mm", d.LinkWidth},
		{"link1_height_mm", d.Link1Height},
		{"link2_height_mm", d.Link2Height},
		{"link3_height_mm", d.Link3Height},
		{"joint_radius_mm", d.JointRadius},
		{"joint_length_mm", d.JointLength},
	}
	for _, f := range fields {
		if f.value <= 0 {
			return fmt.Errorf("%s must be positive, got %.3f", f.name, f.value)
		}
	}
	return nil
}
