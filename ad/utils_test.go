package ad

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// applyMatrix evaluates res = A y on duals, so the gradient slots of res
// carry the Jacobian A under any valid seeding of y.
func applyMatrix(a *mat.Dense, y []Dual) []Dual {
	r, c := a.Dims()
	res := make([]Dual, r)
	for i := 0; i < r; i++ {
		acc := Value(0)
		for j := 0; j < c; j++ {
			acc = acc.Add(y[j].MulFloat(a.At(i, j)))
		}
		res[i] = acc
	}
	return res
}

func TestDenseSeedExtractRoundTrip(t *testing.T) {
	const n = 4
	a := mat.NewDense(n, n, []float64{
		2, -1, 0, 3,
		1, 4, -2, 0,
		0, 5, 1, -1,
		-3, 0, 2, 6,
	})

	y := NewVector(n, n)
	CopyToAd([]float64{1, 2, 3, 4}, y, n)
	PrepareVectorSeedsForDenseMatrix(y, 0, n)

	res := applyMatrix(a, y)

	got := mat.NewDense(n, n, nil)
	ExtractDenseJacobianFromAd(res, 0, got)
	if !mat.EqualApprox(a, got, 1e-14) {
		t.Errorf("extracted jacobian differs:\ngot %v\nwant %v", mat.Formatted(got), mat.Formatted(a))
	}

	if diff := CompareDenseJacobianWithAd(res, 0, a); diff > 1e-14 {
		t.Errorf("compare reported %e for identical jacobians", diff)
	}
}

func TestBandSeedExtractRoundTrip(t *testing.T) {
	const (
		n  = 6
		kl = 1
		ku = 1
	)
	// Tridiagonal matrix
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, i, 4+float64(i))
		if i > 0 {
			a.Set(i, i-1, -1)
		}
		if i < n-1 {
			a.Set(i, i+1, -2)
		}
	}

	// Band compression needs only kl+ku+1 directions regardless of n.
	y := NewVector(n, kl+ku+1)
	CopyToAd([]float64{1, 1, 1, 1, 1, 1}, y, n)
	PrepareVectorSeedsForBandMatrix(y, 0, n, kl, ku, 0)

	res := applyMatrix(a, y)

	got := mat.NewBandDense(n, n, kl, ku, nil)
	ExtractBandedJacobianFromAd(res, 0, 0, got)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if j < i-kl || j > i+ku {
				continue
			}
			if math.Abs(got.At(i, j)-a.At(i, j)) > 1e-14 {
				t.Errorf("band entry (%d,%d): got %v, want %v", i, j, got.At(i, j), a.At(i, j))
			}
		}
	}

	if diff := CompareBandedJacobianWithAd(res, 0, 0, got); diff > 1e-14 {
		t.Errorf("compare reported %e for identical band jacobians", diff)
	}
}

func TestExtractDenseBlockFromBandedAd(t *testing.T) {
	const (
		n  = 5
		kl = 1
		ku = 1
	)
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, i, 3)
		if i > 0 {
			a.Set(i, i-1, 1)
		}
		if i < n-1 {
			a.Set(i, i+1, 2)
		}
	}

	y := NewVector(n, kl+ku+1)
	PrepareVectorSeedsForBandMatrix(y, 0, n, kl, ku, 0)
	res := applyMatrix(a, y)

	// Extract the 3x3 block starting at row 1
	got := mat.NewDense(3, 3, nil)
	ExtractDenseJacobianFromBandedAd(res, 1, 0, 0, kl, ku, got)
	want := a.Slice(1, 4, 1, 4)
	if !mat.EqualApprox(want, got, 1e-14) {
		t.Errorf("block extraction differs:\ngot %v\nwant %v", mat.Formatted(got), mat.Formatted(want))
	}
}

func TestCopyAndResetPreserveSeeds(t *testing.T) {
	y := NewVector(3, 3)
	PrepareVectorSeedsForDenseMatrix(y, 0, 3)
	CopyToAd([]float64{7, 8, 9}, y, 3)

	for j := 0; j < 3; j++ {
		if y[j].Val != float64(7+j) {
			t.Errorf("primal %d: got %v", j, y[j].Val)
		}
		if y[j].ADValue(j) != 1 {
			t.Errorf("seed %d lost by CopyToAd", j)
		}
	}

	dest := make([]float64, 3)
	CopyFromAd(y, dest, 3)
	if dest[0] != 7 || dest[1] != 8 || dest[2] != 9 {
		t.Errorf("CopyFromAd: got %v", dest)
	}

	ResetAd(y, 3)
	for j := 0; j < 3; j++ {
		if y[j].Val != 0 || y[j].ADValue(j) != 0 {
			t.Errorf("ResetAd left entry %d at %v", j, y[j])
		}
	}
}

func TestCompareMetric(t *testing.T) {
	// Relative where the AD value is nonzero, absolute otherwise.
	y := NewVector(1, 1)
	y[0].SetADValue(0, 2)
	analytic := mat.NewDense(1, 1, []float64{2.2})
	if diff := CompareDenseJacobianWithAd(y, 0, analytic); math.Abs(diff-0.1) > 1e-12 {
		t.Errorf("relative difference: got %v, want 0.1", diff)
	}

	y[0].SetADValue(0, 0)
	analytic.Set(0, 0, 0.5)
	if diff := CompareDenseJacobianWithAd(y, 0, analytic); math.Abs(diff-0.5) > 1e-12 {
		t.Errorf("absolute difference: got %v, want 0.5", diff)
	}
}
