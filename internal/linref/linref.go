// Package linref projects points onto polylines and expresses their location
// as a 1-D arc-length distance from the line start.
package linref

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ProjectDistance returns the arc-length distance from the first vertex of
// line to the closest-point projection of p onto the line, measured along the
// line's path. Distances are in the units of the projected coordinate system;
// no unit conversion is performed.
//
// A point far from every segment still yields the distance to the globally
// nearest point on the line. Whether the point belongs to this line at all is
// the caller's concern.
func ProjectDistance(line *geom.LineString, p *geom.Point) (float64, error) {
	coords := line.Coords()
	if len(coords) < 2 {
		return 0, eris.New("linref: line has fewer than two vertices")
	}

	px, py := p.X(), p.Y()

	best := math.Inf(1)
	bestAlong := 0.0
	along := 0.0

	for i := 0; i < len(coords)-1; i++ {
		ax, ay := coords[i][0], coords[i][1]
		bx, by := coords[i+1][0], coords[i+1][1]

		dist, t := pointToSegment(px, py, ax, ay, bx, by)
		segLen := math.Hypot(bx-ax, by-ay)

		if dist < best {
			best = dist
			bestAlong = along + t*segLen
		}
		along += segLen
	}

	return bestAlong, nil
}

// Length returns the total arc length of the line.
func Length(line *geom.LineString) float64 {
	coords := line.Coords()
	total := 0.0
	for i := 0; i < len(coords)-1; i++ {
		total += math.Hypot(coords[i+1][0]-coords[i][0], coords[i+1][1]-coords[i][1])
	}
	return total
}

// pointToSegment returns the distance from point (px,py) to segment (a,b) and
// the clamped projection parameter t in [0,1], where t=0 is at a and t=1 at b.
func pointToSegment(px, py, ax, ay, bx, by float64) (dist, t float64) {
	dx := bx - ax
	dy := by - ay

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		// Degenerate segment: both endpoints coincide.
		return math.Hypot(px-ax, py-ay), 0
	}

	t = ((px-ax)*dx + (py-ay)*dy) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	cx := ax + t*dx
	cy := ay + t*dy
	return math.Hypot(px-cx, py-cy), t
}
