package vertical_arm

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
)

// segmentOrder is the chain order used when printing.
var segmentOrder = []string{
	SegmentBase, SegmentConnector, SegmentLink1, SegmentJoint1, SegmentLink2, SegmentJoint2, SegmentLink3,
}

// PlacementTable renders placements as a table, one row per segment in chain order.
func PlacementTable(placements map[string]Placement) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Segment", "Position", "Orientation"})
	for i, name := range segmentOrder {
		p, ok := placements[name]
		if !ok {
			continue
		}
		ov := p.orientation().OrientationVectorDegrees()
		t.AppendRow([]interface{}{
			fmt.Sprintf("%d", i),
			name,
			fmt.Sprintf("X:%.2f, Y:%.2f, Z:%.2f", p.Position.X, p.Position.Y, p.Position.Z),
			fmt.Sprintf("OX:%.3f, OY:%.3f, OZ:%.3f, Th:%.2f", ov.OX, ov.OY, ov.OZ, ov.Theta),
		})
	}
	return t.Render()
}

// TableHost prints a placement table on every recompute. It has no viewer.
type TableHost struct {
	w io.Writer
}

func NewTableHost(w io.Writer) *TableHost {
	return &TableHost{w: w}
}

func (h *TableHost) Recompute(ctx context.Context, placements map[string]Placement) error {
	_, err := fmt.Fprintln(h.w, PlacementTable(placements))
	return err
}

func (h *TableHost) FitView(ctx context.Context) error {
	return errors.Wrap(ErrHostUnavailable, "terminal output only")
}
