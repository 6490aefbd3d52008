package tile

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// Range is an inclusive rectangle of tile indexes at one zoom.
type Range struct {
	XMin, XMax uint32
	YMin, YMax uint32
}

func (r Range) Count() int {
	return int(r.XMax-r.XMin+1) * int(r.YMax-r.YMin+1)
}

// TileRange projects a region onto the slippy-map grid at zoom z.
// y grows southwards, so YMin comes from MaxLat and YMax from MinLat.
func TileRange(r Region, z maptile.Zoom) Range {
	n := math.Exp2(float64(z))

	return Range{
		XMin: lonToX(r.MinLon, n),
		XMax: lonToX(r.MaxLon, n),
		YMin: latToY(r.MaxLat, n),
		YMax: latToY(r.MinLat, n),
	}
}

func lonToX(lon, n float64) uint32 {
	return uint32(math.Floor((lon + 180) / 360 * n))
}

func latToY(lat, n float64) uint32 {
	rad := lat * math.Pi / 180
	return uint32(math.Floor((1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2 * n))
}

// URL builds the canonical tile URL under origin.
func URL(origin string, t maptile.Tile) string {
	return fmt.Sprintf("%s/%d/%d/%d.png", strings.TrimRight(origin, "/"), t.Z, t.X, t.Y)
}
