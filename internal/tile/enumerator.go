package tile

import (
	"iter"

	"github.com/paulmach/orb/maptile"
)

// Enumerate yields every tile of every region: region, then zoom, then x, then y.
// Tiles covered by more than one region are yielded once per region.
func Enumerate(regions []Region) iter.Seq[maptile.Tile] {
	return func(yield func(maptile.Tile) bool) {
		for _, r := range regions {
			for z := r.MinZoom; z <= r.MaxZoom; z++ {
				zoom := maptile.Zoom(z)
				rng := TileRange(r, zoom)
				for x := rng.XMin; x <= rng.XMax; x++ {
					for y := rng.YMin; y <= rng.YMax; y++ {
						if !yield(maptile.New(x, y, zoom)) {
							return
						}
					}
				}
			}
		}
	}
}

// Count returns the number of tiles Enumerate yields, without enumerating them.
func Count(regions []Region) int {
	total := 0
	for _, r := range regions {
		for z := r.MinZoom; z <= r.MaxZoom; z++ {
			total += TileRange(r, maptile.Zoom(z)).Count()
		}
	}
	return total
}
