package usecase

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const placeholderSize = 256

var (
	placeholderFill  = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
	placeholderLabel = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
)

// renderPlaceholder draws the tile shown when a tile is neither cached nor reachable:
// a flat grey square with a centred "Offline" label.
func renderPlaceholder() ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderSize, placeholderSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderFill), image.Point{}, draw.Src)

	const label = "Offline"
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(placeholderLabel),
		Face: basicfont.Face7x13,
	}
	width := d.MeasureString(label)
	d.Dot = fixed.Point26_6{
		X: fixed.I(placeholderSize/2) - width/2,
		Y: fixed.I(placeholderSize / 2),
	}
	d.DrawString(label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
