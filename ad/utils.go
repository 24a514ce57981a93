package ad

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// NewVector returns a vector of n Duals, each carrying ndirs zeroed
// derivative slots.
func NewVector(n, ndirs int) []Dual {
	v := make([]Dual, n)
	for i := range v {
		v[i].Grad = make([]float64, ndirs)
	}
	return v
}

// CopyFromAd copies the primal values of the first size entries of adVec into
// dest.
func CopyFromAd(adVec []Dual, dest []float64, size int) {
	for i := 0; i < size; i++ {
		dest[i] = adVec[i].Val
	}
}

// CopyToAd copies the first size entries of src into the primal values of
// adVec without modifying its derivative slots, keeping seed vectors intact.
func CopyToAd(src []float64, adVec []Dual, size int) {
	for i := 0; i < size; i++ {
		adVec[i].SetValue(src[i])
	}
}

// ResetAd resets the first size entries of adVec, erasing both primal values
// and derivative slots.
func ResetAd(adVec []Dual, size int) {
	for i := 0; i < size; i++ {
		adVec[i].Zero()
	}
}

// PrepareVectorSeedsForDenseMatrix sets seed vectors on adVec so that one AD
// pass over a residual yields a dense Jacobian with cols columns: entry j is
// seeded in direction adDirOffset + j.
func PrepareVectorSeedsForDenseMatrix(adVec []Dual, adDirOffset, cols int) {
	for j := 0; j < cols; j++ {
		adVec[j].FillADValue(0)
		adVec[j].SetADValue(adDirOffset+j, 1)
	}
}

// PrepareVectorSeedsForBandMatrix sets seed vectors on adVec for computing a
// banded Jacobian by band compression: entry j is seeded in direction
//
//	adDirOffset + (diagDir + j) mod (lowerBW + upperBW + 1)
//
// so that no two columns inside one row's band share a direction. The number
// of directions used equals the bandwidth, independent of the matrix size.
func PrepareVectorSeedsForBandMatrix(adVec []Dual, adDirOffset, rows, lowerBW, upperBW, diagDir int) {
	stride := lowerBW + upperBW + 1
	for j := 0; j < rows; j++ {
		adVec[j].FillADValue(0)
		adVec[j].SetADValue(adDirOffset+(diagDir+j)%stride, 1)
	}
}

// ExtractDenseJacobianFromAd reads the Jacobian out of an AD residual vector
// whose seeds were set by PrepareVectorSeedsForDenseMatrix and writes it into
// dst. dst determines the number of rows and columns read.
func ExtractDenseJacobianFromAd(adVec []Dual, adDirOffset int, dst *mat.Dense) {
	r, c := dst.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, j, adVec[i].ADValue(adDirOffset+j))
		}
	}
}

// ExtractBandedJacobianFromAd reads a band matrix out of an AD residual
// vector whose seeds were set by PrepareVectorSeedsForBandMatrix with the same
// diagDir, applying the inverse of the seeding map.
func ExtractBandedJacobianFromAd(adVec []Dual, adDirOffset, diagDir int, dst *mat.BandDense) {
	r, _ := dst.Dims()
	kl, ku := dst.Bandwidth()
	stride := kl + ku + 1
	for i := 0; i < r; i++ {
		for off := -kl; off <= ku; off++ {
			col := i + off
			if col < 0 || col >= r {
				continue
			}
			dst.SetBand(i, col, adVec[i].ADValue(adDirOffset+(diagDir+col)%stride))
		}
	}
}

// ExtractDenseJacobianFromBandedAd reads a dense sub-block of a banded
// Jacobian out of band compressed AD seed vectors. The block starts at the
// given row of the band matrix; dst determines its size.
func ExtractDenseJacobianFromBandedAd(adVec []Dual, row, adDirOffset, diagDir, lowerBW, upperBW int, dst *mat.Dense) {
	r, c := dst.Dims()
	stride := lowerBW + upperBW + 1
	for i := 0; i < r; i++ {
		for off := -lowerBW; off <= upperBW; off++ {
			col := row + i + off
			local := col - row
			if local < 0 || local >= c {
				continue
			}
			dst.Set(i, local, adVec[row+i].ADValue(adDirOffset+(diagDir+col)%stride))
		}
	}
}

// relDiff is the comparison metric between an analytic and an AD Jacobian
// entry: relative where the AD entry is nonzero, absolute otherwise.
func relDiff(analytic, adVal float64) float64 {
	if adVal != 0 {
		return math.Abs((analytic - adVal) / adVal)
	}
	return math.Abs(analytic - adVal)
}

// CompareDenseJacobianWithAd compares an analytically computed dense Jacobian
// against one derived by AD with dense seeding. The AD Jacobian is treated as
// base; the maximum difference over all entries is returned. Diagnostic only.
func CompareDenseJacobianWithAd(adVec []Dual, adDirOffset int, analytic mat.Matrix) float64 {
	r, c := analytic.Dims()
	maxDiff := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if d := relDiff(analytic.At(i, j), adVec[i].ADValue(adDirOffset+j)); d > maxDiff {
				maxDiff = d
			}
		}
	}
	return maxDiff
}

// CompareBandedJacobianWithAd compares an analytically computed band matrix
// against an AD Jacobian derived with band compressed seeds and the same
// diagDir. Returns the maximum difference over all entries inside the band.
func CompareBandedJacobianWithAd(adVec []Dual, adDirOffset, diagDir int, analytic *mat.BandDense) float64 {
	r, _ := analytic.Dims()
	kl, ku := analytic.Bandwidth()
	stride := kl + ku + 1
	maxDiff := 0.0
	for i := 0; i < r; i++ {
		for off := -kl; off <= ku; off++ {
			col := i + off
			if col < 0 || col >= r {
				continue
			}
			adVal := adVec[i].ADValue(adDirOffset + (diagDir+col)%stride)
			if d := relDiff(analytic.At(i, col), adVal); d > maxDiff {
				maxDiff = d
			}
		}
	}
	return maxDiff
}
