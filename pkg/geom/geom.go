// Package geom provides plain, serializable mirrors of engine geometry types.
//
// The records hold float32 fields only and carry lowercase JSON tags, so they
// encode the same way in every codec format. The embedding engine owns the
// native types; conversion goes through the small Source interfaces (native
// to mirror) and the generic To functions (mirror to native):
//
//	pos := geom.FromVector3(player.Position())
//	native := geom.ToVector3(pos, engine.NewVec3)
//
// The records are independent values. An [SVector3] is not an [SVector2] with
// an extra field; use [SVector3.To2D] and [SVector2.To3D] to move between them.
package geom

import "math"

// SVector2 mirrors a 2D vector.
type SVector2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// SVector3 mirrors a 3D vector.
type SVector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// SQuaternion mirrors a rotation quaternion.
type SQuaternion struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// SColor mirrors an RGBA color with components in 0..1.
type SColor struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

// SRect mirrors an axis-aligned rectangle.
type SRect struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

// V2 returns a 2D vector.
func V2(x, y float32) SVector2 { return SVector2{X: x, Y: y} }

// V3 returns a 3D vector.
func V3(x, y, z float32) SVector3 { return SVector3{X: x, Y: y, Z: z} }

// V3XY returns a 3D vector on the z = 0 plane.
func V3XY(x, y float32) SVector3 { return SVector3{X: x, Y: y} }

// Quat returns a quaternion. It is not normalized; see [SQuaternion.Normalized].
func Quat(x, y, z, w float32) SQuaternion { return SQuaternion{X: x, Y: y, Z: z, W: w} }

// RGBA returns a color with the given alpha.
func RGBA(r, g, b, a float32) SColor { return SColor{R: r, G: g, B: b, A: a} }

// RGB returns an opaque color.
func RGB(r, g, b float32) SColor { return SColor{R: r, G: g, B: b, A: 1} }

// Rect returns a rectangle with its minimum corner at (x, y).
func Rect(x, y, width, height float32) SRect {
	return SRect{X: x, Y: y, Width: width, Height: height}
}

// Source interfaces are implemented by (or adapted from) native engine types.
type (
	// Vector2Source yields the components of a 2D vector.
	Vector2Source interface {
		XY() (x, y float32)
	}

	// Vector3Source yields the components of a 3D vector.
	Vector3Source interface {
		XYZ() (x, y, z float32)
	}

	// QuaternionSource yields the components of a quaternion.
	QuaternionSource interface {
		XYZW() (x, y, z, w float32)
	}

	// ColorSource yields the components of an RGBA color.
	ColorSource interface {
		RGBA() (r, g, b, a float32)
	}

	// RectSource yields the position and size of a rectangle.
	RectSource interface {
		Bounds() (x, y, width, height float32)
	}
)

// FromVector2 copies s into a mirror.
func FromVector2(s Vector2Source) SVector2 {
	x, y := s.XY()

	return V2(x, y)
}

// FromVector3 copies s into a mirror.
func FromVector3(s Vector3Source) SVector3 {
	x, y, z := s.XYZ()

	return V3(x, y, z)
}

// FromQuaternion copies s into a mirror.
func FromQuaternion(s QuaternionSource) SQuaternion {
	x, y, z, w := s.XYZW()

	return Quat(x, y, z, w)
}

// FromColor copies s into a mirror.
func FromColor(s ColorSource) SColor {
	r, g, b, a := s.RGBA()

	return RGBA(r, g, b, a)
}

// FromRect copies s into a mirror.
func FromRect(s RectSource) SRect {
	x, y, w, h := s.Bounds()

	return Rect(x, y, w, h)
}

// ToVector2 builds a native value from v.
func ToVector2[T any](v SVector2, build func(x, y float32) T) T {
	return build(v.X, v.Y)
}

// ToVector3 builds a native value from v.
func ToVector3[T any](v SVector3, build func(x, y, z float32) T) T {
	return build(v.X, v.Y, v.Z)
}

// ToQuaternion builds a native value from q.
func ToQuaternion[T any](q SQuaternion, build func(x, y, z, w float32) T) T {
	return build(q.X, q.Y, q.Z, q.W)
}

// ToColor builds a native value from c.
func ToColor[T any](c SColor, build func(r, g, b, a float32) T) T {
	return build(c.R, c.G, c.B, c.A)
}

// ToRect builds a native value from r.
func ToRect[T any](r SRect, build func(x, y, width, height float32) T) T {
	return build(r.X, r.Y, r.Width, r.Height)
}

// To2D drops the z component.
func (v SVector3) To2D() SVector2 { return SVector2{X: v.X, Y: v.Y} }

// To3D extends v with z.
func (v SVector2) To3D(z float32) SVector3 { return SVector3{X: v.X, Y: v.Y, Z: z} }

// The mirrors are their own sources, so values copy between mirror and
// native types in either direction with the same helpers.

// XY implements [Vector2Source].
func (v SVector2) XY() (x, y float32) { return v.X, v.Y }

// XYZ implements [Vector3Source].
func (v SVector3) XYZ() (x, y, z float32) { return v.X, v.Y, v.Z }

// XYZW implements [QuaternionSource].
func (q SQuaternion) XYZW() (x, y, z, w float32) { return q.X, q.Y, q.Z, q.W }

// RGBA implements [ColorSource].
func (c SColor) RGBA() (r, g, b, a float32) { return c.R, c.G, c.B, c.A }

// Bounds implements [RectSource].
func (r SRect) Bounds() (x, y, width, height float32) { return r.X, r.Y, r.Width, r.Height }

// Finite reports whether every component is a finite number. Non-finite
// values cannot be saved in JSON format.
func (v SVector2) Finite() bool { return finite(v.X, v.Y) }

// Finite reports whether every component is a finite number.
func (v SVector3) Finite() bool { return finite(v.X, v.Y, v.Z) }

// Finite reports whether every component is a finite number.
func (q SQuaternion) Finite() bool { return finite(q.X, q.Y, q.Z, q.W) }

// Finite reports whether every component is a finite number.
func (c SColor) Finite() bool { return finite(c.R, c.G, c.B, c.A) }

// Finite reports whether every component is a finite number.
func (r SRect) Finite() bool { return finite(r.X, r.Y, r.Width, r.Height) }

// Normalized returns q scaled to unit length. The zero quaternion is
// returned as the identity rotation.
func (q SQuaternion) Normalized() SQuaternion {
	n := norm(q.X, q.Y, q.Z, q.W)
	if n == 0 {
		return Quat(0, 0, 0, 1)
	}

	return Quat(q.X/n, q.Y/n, q.Z/n, q.W/n)
}

// Clamped returns c with every component limited to 0..1.
func (c SColor) Clamped() SColor {
	out := c

	for _, f := range out.fields() {
		*f = min(max(*f, 0), 1)
	}

	return out
}

// Contains reports whether the point p lies inside r. The minimum edges are
// inclusive and the maximum edges exclusive.
func (r SRect) Contains(p SVector2) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

func (c *SColor) fields() []*float32 { return []*float32{&c.R, &c.G, &c.B, &c.A} }

func finite(vals ...float32) bool {
	for _, f := range vals {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return false
		}
	}

	return true
}

func norm(vals ...float32) float32 {
	var sum float64

	for _, f := range vals {
		sum += float64(f) * float64(f)
	}

	return float32(math.Sqrt(sum))
}
