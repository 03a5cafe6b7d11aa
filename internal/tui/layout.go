package tui

import (
	"taskboard/internal/board"
	"taskboard/internal/dropzone"
	"taskboard/internal/gesture"
)

// Board geometry in pointer units. Thresholds are configured in the same
// units, so StepX/StepY decide how many key presses a gesture takes.
const (
	colUnits    = 300.0
	colGap      = 20.0
	headerUnits = 20.0
	rowUnits    = 20.0
	edgeUnits   = 5.0

	StepX = 30.0
	StepY = 10.0
)

func colX(ci int) float64 { return float64(ci) * (colUnits + colGap) }

func rowY(ri int) float64 { return headerUnits + float64(ri)*rowUnits }

// Zones lays out the drop zones of the assembled board: a header zone per
// container, and per row a before strip, a body and an after strip.
func Zones(cs []board.Container) []dropzone.Zone {
	var out []dropzone.Zone
	for ci, c := range cs {
		x := colX(ci)
		head := dropzone.IntoContainer(c.Key)
		if c.Empty() {
			head = dropzone.IntoEmptyContainer(c.Key)
			// The whole empty column accepts the drop, not only its header.
			out = append(out, dropzone.Zone{Target: head, Rect: dropzone.Rect{X: x, Y: 0, W: colUnits, H: headerUnits + 3*rowUnits}})
			continue
		}
		out = append(out, dropzone.Zone{Target: head, Rect: dropzone.Rect{X: x, Y: 0, W: colUnits, H: headerUnits}})
		for ri, r := range c.Rows {
			y := rowY(ri)
			id := r.Task.ID
			out = append(out,
				dropzone.Zone{Target: dropzone.BeforeSibling(id), Rect: dropzone.Rect{X: x, Y: y, W: colUnits, H: edgeUnits}},
				dropzone.Zone{Target: dropzone.IntoTask(id), Rect: dropzone.Rect{X: x, Y: y + edgeUnits, W: colUnits, H: rowUnits - 2*edgeUnits}},
				dropzone.Zone{Target: dropzone.AfterSibling(id), Rect: dropzone.Rect{X: x, Y: y + rowUnits - edgeUnits, W: colUnits, H: edgeUnits}},
			)
		}
	}
	return out
}

// RowCenter is the center of a row body, where a pick-up starts.
func RowCenter(ci, ri int) gesture.Point {
	return gesture.Point{X: colX(ci) + colUnits/2, Y: rowY(ri) + rowUnits/2}
}

// cellAt maps a pointer back to a column and row index (row -1 on the header).
func cellAt(p gesture.Point) (col, row int) {
	if p.X < 0 {
		col = -1
	} else {
		col = int(p.X / (colUnits + colGap))
	}
	if p.Y < headerUnits {
		return col, -1
	}
	return col, int((p.Y - headerUnits) / rowUnits)
}
