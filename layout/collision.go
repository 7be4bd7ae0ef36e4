package layout

import "sort"

// ShiftDirection selects which way a colliding event moves.
type ShiftDirection int

const (
	// ShiftDown moves the event toward the bottom of the frame; used
	// for top- and middle-anchored events.
	ShiftDown ShiftDirection = iota
	// ShiftUp moves the event toward the top; used for bottom-anchored
	// events so stacked subtitles grow upward.
	ShiftUp
)

// EventRect is one event's vertical footprint entering collision
// resolution.
type EventRect struct {
	Layer     int
	ReadOrder int

	// Fixed events (explicit \pos/\move) never move; others shift
	// around them.
	Fixed bool

	Top    float64
	Height float64

	Direction ShiftDirection
}

// Bottom returns the rect's lower edge.
func (r EventRect) Bottom() float64 {
	return r.Top + r.Height
}

// ResolveCollisions computes a vertical shift per event so that no two
// events on the same layer overlap. Events are processed in (layer,
// read order): fixed events claim their space first, then each movable
// event shifts in its direction until it clears everything already
// placed on its layer. The returned slice parallels the input.
func ResolveCollisions(rects []EventRect) []float64 {
	shifts := make([]float64, len(rects))

	order := make([]int, len(rects))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := rects[order[a]], rects[order[b]]
		if ra.Layer != rb.Layer {
			return ra.Layer < rb.Layer
		}
		if ra.Fixed != rb.Fixed {
			return ra.Fixed
		}
		return ra.ReadOrder < rb.ReadOrder
	})

	type placed struct {
		top, bottom float64
	}
	placedByLayer := make(map[int][]placed)

	for _, idx := range order {
		r := rects[idx]
		top, bottom := r.Top, r.Bottom()
		if !r.Fixed {
			existing := placedByLayer[r.Layer]
			for moved := true; moved; {
				moved = false
				for _, p := range existing {
					if bottom <= p.top || top >= p.bottom {
						continue
					}
					if r.Direction == ShiftUp {
						delta := bottom - p.top
						top -= delta
						bottom -= delta
					} else {
						delta := p.bottom - top
						top += delta
						bottom += delta
					}
					moved = true
				}
			}
		}
		shifts[idx] = top - r.Top
		placedByLayer[r.Layer] = append(placedByLayer[r.Layer], placed{top: top, bottom: bottom})
	}
	return shifts
}
