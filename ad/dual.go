// Package ad provides forward mode automatic differentiation. A Dual carries
// a primal value together with a number of directional derivatives which are
// propagated through arithmetic. A Dual without derivative slots behaves as a
// plain value, so the same evaluation code serves both the value-only and the
// derivative-carrying mode.
package ad

// Dual is a numeric value with directional derivatives
//
// f = Val, df/dp_i = Grad[i]
//
// where p_0 ... p_N are the currently active directions. A nil Grad means no
// direction is active.
type Dual struct {
	Val  float64
	Grad []float64
}

// Value returns a Dual holding v with no active directions.
func Value(v float64) Dual {
	return Dual{Val: v}
}

// Sized returns a Dual holding v with ndirs zeroed derivative slots.
func Sized(v float64, ndirs int) Dual {
	return Dual{Val: v, Grad: make([]float64, ndirs)}
}

// NumDirs returns the number of derivative slots.
func (d Dual) NumDirs() int {
	return len(d.Grad)
}

// SetValue changes the primal value without touching the derivative slots.
func (d *Dual) SetValue(v float64) {
	d.Val = v
}

// ADValue returns the derivative in direction dir. Directions beyond the
// allocated slots are zero.
func (d Dual) ADValue(dir int) float64 {
	if dir < len(d.Grad) {
		return d.Grad[dir]
	}
	return 0
}

// SetADValue sets the derivative in direction dir, growing the slot array if
// necessary.
func (d *Dual) SetADValue(dir int, v float64) {
	for len(d.Grad) <= dir {
		d.Grad = append(d.Grad, 0)
	}
	d.Grad[dir] = v
}

// FillADValue sets every derivative slot to v.
func (d *Dual) FillADValue(v float64) {
	for i := range d.Grad {
		d.Grad[i] = v
	}
}

// Zero resets the primal value and every derivative slot to the additive
// identity. The slots themselves remain allocated.
func (d *Dual) Zero() {
	d.Val = 0
	for i := range d.Grad {
		d.Grad[i] = 0
	}
}

// grad returns the derivative of d in direction i, treating missing slots as
// zero.
func (d Dual) grad(i int) float64 {
	if i < len(d.Grad) {
		return d.Grad[i]
	}
	return 0
}

// dirs returns the number of directions a combination of a and b carries.
func dirs(a, b Dual) int {
	if len(a.Grad) > len(b.Grad) {
		return len(a.Grad)
	}
	return len(b.Grad)
}

// Add returns d + o.
func (d Dual) Add(o Dual) Dual {
	n := dirs(d, o)
	if n == 0 {
		return Dual{Val: d.Val + o.Val}
	}
	g := make([]float64, n)
	for i := range g {
		g[i] = d.grad(i) + o.grad(i)
	}
	return Dual{Val: d.Val + o.Val, Grad: g}
}

// Sub returns d - o.
func (d Dual) Sub(o Dual) Dual {
	n := dirs(d, o)
	if n == 0 {
		return Dual{Val: d.Val - o.Val}
	}
	g := make([]float64, n)
	for i := range g {
		g[i] = d.grad(i) - o.grad(i)
	}
	return Dual{Val: d.Val - o.Val, Grad: g}
}

// Mul returns d * o using the product rule
//
// (d o)' = d' o + d o'
func (d Dual) Mul(o Dual) Dual {
	n := dirs(d, o)
	if n == 0 {
		return Dual{Val: d.Val * o.Val}
	}
	g := make([]float64, n)
	for i := range g {
		g[i] = d.grad(i)*o.Val + d.Val*o.grad(i)
	}
	return Dual{Val: d.Val * o.Val, Grad: g}
}

// Div returns d / o using the quotient rule
//
// (d / o)' = d' / o - d o' / o^2
func (d Dual) Div(o Dual) Dual {
	n := dirs(d, o)
	v := d.Val / o.Val
	if n == 0 {
		return Dual{Val: v}
	}
	g := make([]float64, n)
	for i := range g {
		g[i] = (d.grad(i) - v*o.grad(i)) / o.Val
	}
	return Dual{Val: v, Grad: g}
}

// Clone returns a copy of d with its own derivative slots. Assigning a Dual
// into a long-lived vector must go through Clone so that later in-place resets
// of that vector cannot clobber the seed vectors of the source.
func (d Dual) Clone() Dual {
	if len(d.Grad) == 0 {
		return Dual{Val: d.Val}
	}
	g := make([]float64, len(d.Grad))
	copy(g, d.Grad)
	return Dual{Val: d.Val, Grad: g}
}

// AddFloat returns d + f.
func (d Dual) AddFloat(f float64) Dual {
	r := d.Clone()
	r.Val += f
	return r
}

// SubFloat returns d - f.
func (d Dual) SubFloat(f float64) Dual {
	r := d.Clone()
	r.Val -= f
	return r
}

// MulFloat returns d * f.
func (d Dual) MulFloat(f float64) Dual {
	if len(d.Grad) == 0 {
		return Dual{Val: d.Val * f}
	}
	g := make([]float64, len(d.Grad))
	for i := range g {
		g[i] = d.Grad[i] * f
	}
	return Dual{Val: d.Val * f, Grad: g}
}

// Neg returns -d.
func (d Dual) Neg() Dual {
	return d.MulFloat(-1)
}
