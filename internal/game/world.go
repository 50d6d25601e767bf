package game

import "math/rand"

// Region is a named rectangle used for "you are here" labels.
type Region struct {
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether (x, y) lies in the region. The right and bottom
// edges are exclusive so neighbouring regions never overlap.
func (r Region) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Size is the wire form of the world bounds.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// World holds the fixed bounds and the immutable region layout.
type World struct {
	Width   float64
	Height  float64
	Regions []Region
}

var regionNames = [3][3]string{
	{"North West", "North", "North East"},
	{"West", "Center", "East"},
	{"South West", "South", "South East"},
}

// NewWorld creates a world of the given size tiled by a 3x3 grid of regions.
func NewWorld(width, height float64) World {
	xs := [4]float64{0, float64(int(width / 3)), float64(int(width*2/3 + 0.5)), width}
	ys := [4]float64{0, float64(int(height / 3)), float64(int(height*2/3 + 0.5)), height}

	regions := make([]Region, 0, 9)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			regions = append(regions, Region{
				Name:   regionNames[row][col],
				X:      xs[col],
				Y:      ys[row],
				Width:  xs[col+1] - xs[col],
				Height: ys[row+1] - ys[row],
			})
		}
	}
	return World{Width: width, Height: height, Regions: regions}
}

// DefaultWorld returns the standard 10000x10000 world.
func DefaultWorld() World {
	return NewWorld(WorldWidth, WorldHeight)
}

// Size returns the world bounds in wire form.
func (w World) Size() Size {
	return Size{Width: w.Width, Height: w.Height}
}

// RegionAt returns the region containing (x, y), if any.
func (w World) RegionAt(x, y float64) (Region, bool) {
	for _, r := range w.Regions {
		if r.Contains(x, y) {
			return r, true
		}
	}
	return Region{}, false
}

// RandomPosition returns a uniformly random position an entity can occupy.
func (w World) RandomPosition() (float64, float64) {
	x := EntityRadius + rand.Float64()*(w.Width-2*EntityRadius)
	y := EntityRadius + rand.Float64()*(w.Height-2*EntityRadius)
	return x, y
}

// ClampPosition clamps a position within world bounds, accounting for entity radius.
func (w World) ClampPosition(x, y float64) (float64, float64) {
	minX := EntityRadius
	maxX := w.Width - EntityRadius
	minY := EntityRadius
	maxY := w.Height - EntityRadius

	if x < minX {
		x = minX
	} else if x > maxX {
		x = maxX
	}
	if y < minY {
		y = minY
	} else if y > maxY {
		y = maxY
	}
	return x, y
}
