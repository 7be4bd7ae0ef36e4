// Package driver ties the rendering core together: it walks the events
// active at a timestamp, advances the override-tag state machine, shapes
// and lays out each event's text, renders glyph and border bitmaps
// through the cache hierarchy, and emits the frame's positioned, colored
// alpha images.
package driver

import (
	"sync/atomic"

	"github.com/vectype/core/bitmap"
	"github.com/vectype/core/rendercache"
)

// ImageType classifies an emitted image's layer within its event.
type ImageType int

const (
	// ImageShadow is the shadow layer, emitted first.
	ImageShadow ImageType = iota
	// ImageOutline is the border layer.
	ImageOutline
	// ImageCharacter is the glyph fill layer, emitted last.
	ImageCharacter
)

// String returns the string representation of the image type.
func (t ImageType) String() string {
	switch t {
	case ImageShadow:
		return "Shadow"
	case ImageOutline:
		return "Outline"
	case ImageCharacter:
		return "Character"
	default:
		return "Unknown"
	}
}

// Image is one positioned, colored alpha bitmap ready for compositing.
// Color is packed 0xRRGGBBAA with alpha 0 meaning opaque. The pixel
// buffer is owned by the frame's composite cache entries; it stays
// valid until the frame's last Unref.
type Image struct {
	Bitmap *bitmap.Bitmap
	DstX   int32
	DstY   int32
	Color  uint32
	Type   ImageType
}

// Frame is one timestamp's ordered image list. Images appear in
// (layer, read order) event order with shadow, border, glyph layering
// inside each event. The frame holds references on the composite cache
// entries its images were cut from; Ref/Unref manage that chain.
type Frame struct {
	Images []Image

	refs       atomic.Int32
	hierarchy  *rendercache.Hierarchy
	composites []rendercache.CompositeKey
}

func newFrame(h *rendercache.Hierarchy, images []Image, composites []rendercache.CompositeKey) *Frame {
	f := &Frame{Images: images, hierarchy: h, composites: composites}
	f.refs.Store(1)
	return f
}

// Ref retains the frame's pixel data.
func (f *Frame) Ref() {
	f.refs.Add(1)
}

// Unref releases one reference. When the last reference drops, the
// frame releases its composites; entries the cache has already evicted
// are destroyed at that point.
func (f *Frame) Unref() {
	if f.refs.Add(-1) != 0 {
		return
	}
	for _, k := range f.composites {
		f.hierarchy.Composites.DecRef(k)
	}
	f.composites = nil
	f.Images = nil
}
