package raster

// AlphaRuns stores run-length-encoded coverage for one scanline,
// allowing independent fills to compose into the same row without
// rewriting every pixel. A plain run slice suffices: the rasterizer
// above never needs in-place run splitting.
type AlphaRuns struct {
	width int
	runs  []run
}

type run struct {
	start, length int
	alpha         uint8
}

// NewAlphaRuns creates an empty run list for a scanline of the given width.
func NewAlphaRuns(width int) *AlphaRuns {
	if width < 0 {
		width = 0
	}
	return &AlphaRuns{width: width}
}

// Reset clears the run list for reuse on the next scanline.
func (ar *AlphaRuns) Reset() {
	ar.runs = ar.runs[:0]
}

// Add appends a run of length pixels starting at x, all with the given
// alpha. Runs of alpha 0 are dropped: they need no representation.
func (ar *AlphaRuns) Add(x int, alpha uint8, length int) {
	if length <= 0 || alpha == 0 {
		return
	}
	ar.runs = append(ar.runs, run{start: x, length: length, alpha: alpha})
}

// IsEmpty reports whether the scanline has no non-zero coverage.
func (ar *AlphaRuns) IsEmpty() bool {
	return len(ar.runs) == 0
}

// CopyTo writes the decoded scanline into row, which must have at
// least ar.width elements. Positions with no run keep their existing
// value (callers zero the row first if they want a fresh scanline).
func (ar *AlphaRuns) CopyTo(row []uint8) {
	for _, r := range ar.runs {
		end := r.start + r.length
		if end > len(row) {
			end = len(row)
		}
		for x := r.start; x < end; x++ {
			if x >= 0 {
				row[x] = r.alpha
			}
		}
	}
}

// FromCoverage builds run-length encoding from a dense per-pixel
// coverage row, merging adjacent equal-alpha pixels into one run.
func FromCoverage(row []uint8) *AlphaRuns {
	ar := NewAlphaRuns(len(row))
	i := 0
	for i < len(row) {
		a := row[i]
		j := i + 1
		for j < len(row) && row[j] == a {
			j++
		}
		ar.Add(i, a, j-i)
		i = j
	}
	return ar
}
