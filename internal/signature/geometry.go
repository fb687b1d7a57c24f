package signature

import (
	"math"

	"golang.org/x/image/vector"
)

// kappa places cubic Bézier control points so that a quarter arc approximates a circle
const kappa = 0.5522847498

// capsule adds a closed path covering every point within r of segment a-b.
// A zero-length segment becomes a disc.
func capsule(z *vector.Rasterizer, a, b Point, r float64) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		dx, dy = 1, 0
	} else {
		dx, dy = dx/length, dy/length
	}
	// unit normal
	nx, ny := -dy, dx
	k := kappa * r

	moveTo(z, a.X+nx*r, a.Y+ny*r)
	lineTo(z, b.X+nx*r, b.Y+ny*r)

	// cap around b: +n -> +d -> -n
	cubeTo(z,
		b.X+nx*r+dx*k, b.Y+ny*r+dy*k,
		b.X+dx*r+nx*k, b.Y+dy*r+ny*k,
		b.X+dx*r, b.Y+dy*r)
	cubeTo(z,
		b.X+dx*r-nx*k, b.Y+dy*r-ny*k,
		b.X-nx*r+dx*k, b.Y-ny*r+dy*k,
		b.X-nx*r, b.Y-ny*r)

	lineTo(z, a.X-nx*r, a.Y-ny*r)

	// cap around a: -n -> -d -> +n
	cubeTo(z,
		a.X-nx*r-dx*k, a.Y-ny*r-dy*k,
		a.X-dx*r-nx*k, a.Y-dy*r-ny*k,
		a.X-dx*r, a.Y-dy*r)
	cubeTo(z,
		a.X-dx*r+nx*k, a.Y-dy*r+ny*k,
		a.X+nx*r-dx*k, a.Y+ny*r-dy*k,
		a.X+nx*r, a.Y+ny*r)

	z.ClosePath()
}

func moveTo(z *vector.Rasterizer, x, y float64) { z.MoveTo(float32(x), float32(y)) }

func lineTo(z *vector.Rasterizer, x, y float64) { z.LineTo(float32(x), float32(y)) }

func cubeTo(z *vector.Rasterizer, bx, by, cx, cy, dx, dy float64) {
	z.CubeTo(float32(bx), float32(by), float32(cx), float32(cy), float32(dx), float32(dy))
}
