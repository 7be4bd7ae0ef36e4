// Package outline implements the outline store: a point+segment
// representation of glyph and drawing geometry in 26.6 fixed point, plus
// the affine/perspective transforms and the stroker that operate on it.
//
// An Outline is an ordered sequence of points and a parallel sequence of
// segments. Each contour starts with one leading point that no segment
// owns; after it, each segment owns 1, 2, or 3 points (line, quadratic,
// cubic), the last of which is the segment's end point. A segment's end
// point is stored with that segment, not taken from the next segment.
// A contour's closing edge back to its leading point is either an
// explicit final segment ending on a copy of that point or implicit.
package outline

import (
	"errors"
	"fmt"

	"github.com/vectype/core/fixed"
)

// ErrOutOfMemory is returned by Alloc/Grow when a capacity reservation
// cannot be satisfied. The core has no other allocation failure mode.
var ErrOutOfMemory = errors.New("outline: out of memory")

// ErrCoordOutOfRange is returned when a point would violate the engine's
// |x|, |y| < 2^28 invariant.
var ErrCoordOutOfRange = errors.New("outline: coordinate out of range")

// Tag identifies the kind of segment a point sequence forms.
type Tag uint8

const (
	// TagLine marks a straight segment; owns 1 point.
	TagLine Tag = iota
	// TagQuad marks a quadratic Bézier segment; owns 2 points (control, end).
	TagQuad
	// TagCubic marks a cubic Bézier segment; owns 3 points.
	TagCubic
)

// PointCount returns how many points a segment of this tag owns.
func (t Tag) PointCount() int {
	switch t {
	case TagLine:
		return 1
	case TagQuad:
		return 2
	case TagCubic:
		return 3
	default:
		return 0
	}
}

// Point is a 26.6 fixed-point coordinate pair.
type Point struct {
	X, Y fixed.Pos26_6
}

// Segment is one tagged run of points within a contour.
type Segment struct {
	Tag Tag
	// ContourEnd marks this as the last segment of its contour; the
	// contour then closes from this segment's end point back to the
	// contour's leading point.
	ContourEnd bool
}

// Store is the outline's point+segment storage, grown geometrically as
// points and segments are appended. The zero value is not usable; use New.
type Store struct {
	Points   []Point
	Segments []Segment

	// contourStart is the index into Points of the current contour's
	// first point, used to close contours and validate invariants.
	contourStart int
}

// New creates an empty Store with the given initial capacity hint.
func New(capPoints, capSegments int) *Store {
	return &Store{
		Points:   make([]Point, 0, capPoints),
		Segments: make([]Segment, 0, capSegments),
	}
}

// Alloc reserves capacity for at least n additional points and m additional
// segments, growing the backing slices geometrically. It never fails in
// this implementation (Go slices grow on demand); it exists to match the
// documented contract and to give callers an explicit OOM injection point
// in degenerate embedders.
func (s *Store) Alloc(n, m int) error {
	if n < 0 || m < 0 {
		return fmt.Errorf("outline: %w: negative reservation", ErrOutOfMemory)
	}
	if cap(s.Points)-len(s.Points) < n {
		grown := make([]Point, len(s.Points), grow(cap(s.Points), len(s.Points)+n))
		copy(grown, s.Points)
		s.Points = grown
	}
	if cap(s.Segments)-len(s.Segments) < m {
		grown := make([]Segment, len(s.Segments), grow(cap(s.Segments), len(s.Segments)+m))
		copy(grown, s.Segments)
		s.Segments = grown
	}
	return nil
}

func grow(have, need int) int {
	if have == 0 {
		have = 8
	}
	for have < need {
		have *= 2
	}
	return have
}

// AddPoint appends a point to the current contour.
func (s *Store) AddPoint(p Point) error {
	if !fixed.InRange(int32(p.X)) || !fixed.InRange(int32(p.Y)) {
		return ErrCoordOutOfRange
	}
	if err := s.Alloc(1, 0); err != nil {
		return err
	}
	s.Points = append(s.Points, p)
	return nil
}

// AddSegment appends a segment tag. If this is the first segment of a new
// contour, the caller must have already appended its starting point.
func (s *Store) AddSegment(tag Tag) error {
	if err := s.Alloc(0, 1); err != nil {
		return err
	}
	s.Segments = append(s.Segments, Segment{Tag: tag})
	return nil
}

// CloseContour marks the most recently added segment as the end of its
// contour and resets the contour-start bookkeeping for the next one.
func (s *Store) CloseContour() {
	if len(s.Segments) == 0 {
		return
	}
	s.Segments[len(s.Segments)-1].ContourEnd = true
	s.contourStart = len(s.Points)
}

// NumContours returns the number of closed contours in the store.
func (s *Store) NumContours() int {
	n := 0
	for _, seg := range s.Segments {
		if seg.ContourEnd {
			n++
		}
	}
	return n
}

// Contours iterates over (pointStart, pointEnd, segStart, segEnd) ranges,
// one per contour, in storage order. A contour's point range covers its
// leading start point followed by the points of its segments.
func (s *Store) Contours(yield func(pointStart, pointEnd, segStart, segEnd int) bool) {
	pStart, segStart := 0, 0
	pIdx := 1
	for i, seg := range s.Segments {
		pIdx += seg.Tag.PointCount()
		if seg.ContourEnd {
			if !yield(pStart, pIdx, segStart, i+1) {
				return
			}
			pStart = pIdx
			pIdx = pStart + 1
			segStart = i + 1
		}
	}
}

// CheckInvariants validates that for every contour the sum of segment
// orders equals the number of points it owns, and that no contour has
// fewer than 3 points. It is used by tests and by the outline cache's
// glyph load check.
func (s *Store) CheckInvariants() error {
	ok := true
	s.Contours(func(pStart, pEnd, segStart, segEnd int) bool {
		if pEnd-pStart < 3 {
			ok = false
			return false
		}
		sum := 0
		for _, seg := range s.Segments[segStart:segEnd] {
			sum += seg.Tag.PointCount()
		}
		// The contour's leading point is the implicit start and is
		// not owned by any segment; every other stored point is owned
		// by exactly one segment.
		if sum != pEnd-pStart-1 {
			ok = false
			return false
		}
		return true
	})
	if !ok {
		return errors.New("outline: invariant violation: contour point and segment counts disagree")
	}
	return nil
}

// Bounds returns the half-extents (dx, dy) of the control-point bounding
// box around its center, used by the transform package's quantization
// step-size derivation and by the render driver.
func (s *Store) Bounds() (dx, dy int32) {
	if len(s.Points) == 0 {
		return 0, 0
	}
	minX, minY := int32(s.Points[0].X), int32(s.Points[0].Y)
	maxX, maxY := minX, minY
	for _, p := range s.Points[1:] {
		x, y := int32(p.X), int32(p.Y)
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return (maxX - minX) / 2, (maxY - minY) / 2
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	out := &Store{
		Points:   make([]Point, len(s.Points)),
		Segments: make([]Segment, len(s.Segments)),
	}
	copy(out.Points, s.Points)
	copy(out.Segments, s.Segments)
	return out
}
