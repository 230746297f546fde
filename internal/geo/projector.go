// Package geo projects game coordinates onto the web map.
package geo

import (
	"math"

	"github.com/GriffinCanCode/minimap-tracker/internal/position"
)

// Web Mercator constants
const (
	TileSize    = 256
	EarthRadius = 6371000.0
)

// Point is a coordinate in map tile space.
type Point struct {
	X, Y float64
}

// LatLng is a geographic coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is the game-space rectangle covered by the map tiles.
type Bounds struct {
	Left, Right float64
	Top, Bottom float64
}

// Calibration ties the game rectangle to two tile-space corners.
type Calibration struct {
	Game        Bounds
	TopLeft     Point
	BottomRight Point
}

// DefaultCalibration matches the published world map tiles.
func DefaultCalibration() Calibration {
	return Calibration{
		Game:        Bounds{Left: 4812, Right: 13952, Top: 7944, Bottom: 4532},
		TopLeft:     Point{X: 127.23117148476692, Y: 127.33160664985246},
		BottomRight: Point{X: 127.7893259452204, Y: 127.53969981310864},
	}
}

// Projector converts validated positions to lat/lng. It holds no mutable
// state and is safe for concurrent use.
type Projector struct {
	cal Calibration
}

// NewProjector creates a projector for the given calibration.
func NewProjector(cal Calibration) *Projector {
	return &Projector{cal: cal}
}

// ToMap remaps a game position into tile space. Values outside the game
// rectangle extrapolate linearly.
func (p *Projector) ToMap(pos position.Position) Point {
	g := p.cal.Game
	return Point{
		X: lerp(p.cal.TopLeft.X, p.cal.BottomRight.X, inverseLerp(g.Left, g.Right, pos.X)),
		Y: lerp(p.cal.TopLeft.Y, p.cal.BottomRight.Y, inverseLerp(g.Top, g.Bottom, pos.Y)),
	}
}

// Project maps a game position to a geographic coordinate.
func (p *Projector) Project(pos position.Position) LatLng {
	return Unproject(p.ToMap(pos))
}

// Unproject applies the inverse spherical Mercator transform to a tile
// space point.
func Unproject(pt Point) LatLng {
	e := 0.5 / (math.Pi * EarthRadius)
	ux := (pt.X/TileSize - 0.5) / e
	uy := (pt.Y/TileSize - 0.5) / -e

	const deg = 180 / math.Pi
	return LatLng{
		Lat: (2*math.Atan(math.Exp(uy/EarthRadius)) - math.Pi/2) * deg,
		Lng: ux * deg / EarthRadius,
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func inverseLerp(a, b, v float64) float64 {
	return (v - a) / (b - a)
}
