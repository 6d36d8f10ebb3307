package filterchain

import "image"

// Mask represents a stage-level alpha mask.
// Values range from 0 (stage output fully hidden) to 255 (fully shown).
type Mask struct {
	width  int
	height int
	data   []uint8
}

// NewMask creates a new mask with the given dimensions.
// All values are initialized to 255 (fully shown).
func NewMask(width, height int) *Mask {
	m := &Mask{
		width:  width,
		height: height,
		data:   make([]uint8, width*height),
	}
	m.Fill(255)
	return m
}

// NewMaskFromAlpha creates a mask from an image's alpha channel.
func NewMaskFromAlpha(img image.Image) *Mask {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := &Mask{width: w, height: h, data: make([]uint8, w*h)}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			_, _, _, a := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// a is 0-65535, shift by 8 to get 0-255
			mask.data[y*w+x] = uint8(a >> 8)
		}
	}

	return mask
}

// NewMaskFromLuminance creates a mask from an image's brightness:
// white shows the stage output, black hides it.
func NewMaskFromLuminance(img image.Image) *Mask {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	mask := &Mask{width: w, height: h, data: make([]uint8, w*h)}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			// BT.601 luma on 16-bit channels, shifted down to 0-255
			lum := (299*r + 587*g + 114*b) / 1000
			mask.data[y*w+x] = uint8(lum >> 8)
		}
	}

	return mask
}

// Bounds returns the mask dimensions as an image.Rectangle.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// Width returns the mask width.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height.
func (m *Mask) Height() int { return m.height }

// At returns the mask value at (x, y).
// Returns 0 for coordinates outside the mask bounds.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return 0
	}
	return m.data[y*m.width+x]
}

// Set sets the mask value at (x, y).
// Coordinates outside the mask bounds are ignored.
func (m *Mask) Set(x, y int, value uint8) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	m.data[y*m.width+x] = value
}

// Fill fills the entire mask with a value.
func (m *Mask) Fill(value uint8) {
	for i := range m.data {
		m.data[i] = value
	}
}

// Invert inverts all mask values (255 - value).
func (m *Mask) Invert() {
	for i := range m.data {
		m.data[i] = 255 - m.data[i]
	}
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	if m == nil {
		return nil
	}
	out := &Mask{width: m.width, height: m.height, data: make([]uint8, len(m.data))}
	copy(out.data, m.data)
	return out
}

// ApplyTo multiplies img's pixels by the mask, in place. img must be a
// private copy: a stage never applies its mask to a shared cache value.
// The image is premultiplied, so all four channels are scaled.
// Pixels outside the mask bounds are fully hidden.
func (m *Mask) ApplyTo(img *image.RGBA) {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			v := m.At(x-bounds.Min.X, y-bounds.Min.Y)
			i := img.PixOffset(x, y)
			if v == 255 {
				continue
			}
			if v == 0 {
				img.Pix[i+0] = 0
				img.Pix[i+1] = 0
				img.Pix[i+2] = 0
				img.Pix[i+3] = 0
				continue
			}
			img.Pix[i+0] = mulDiv255(img.Pix[i+0], v)
			img.Pix[i+1] = mulDiv255(img.Pix[i+1], v)
			img.Pix[i+2] = mulDiv255(img.Pix[i+2], v)
			img.Pix[i+3] = mulDiv255(img.Pix[i+3], v)
		}
	}
}

// mulDiv255 multiplies two bytes and divides by 255 using the fast
// shift approximation (maximum error +1, imperceptible for alpha work).
func mulDiv255(a, b uint8) uint8 {
	return uint8((uint16(a)*uint16(b) + 255) >> 8)
}
