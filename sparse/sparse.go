// Package sparse implements a coordinate list (COO) matrix meant for
// incrementally constructing a Jacobian, plus a packed compressed row form
// for repeated multiplication. Storage is a list of (row, column, value)
// tuples with a fixed capacity; exceeding the capacity is a programming error
// and panics.
package sparse

import "fmt"

// Matrix is a sparse matrix in coordinate list format. Elements can be
// accessed through At and AddElement. At performs a lookup first and returns
// the existing slot if found, otherwise it appends a new one. AddElement
// always appends a new slot without checking for duplicates.
//
// This format is an intermediate representation for building a matrix; convert
// to a Packed matrix for repeated multiplication.
type Matrix struct {
	rows   []int
	cols   []int
	values []float64
	n      int // index of the first unused slot
}

// New returns an empty Matrix with capacity for nnz non-zero elements.
func New(nnz int) *Matrix {
	m := &Matrix{}
	m.Resize(nnz)
	return m
}

// Resize resets the capacity. The matrix is reset to an empty state and all
// previous content is lost.
func (m *Matrix) Resize(nnz int) {
	m.rows = make([]int, nnz)
	m.cols = make([]int, nnz)
	m.values = make([]float64, nnz)
	m.n = 0
}

// Clear resets all elements without changing the capacity.
func (m *Matrix) Clear() {
	m.n = 0
}

// Capacity returns the maximum number of non-zero elements the matrix can
// hold, which is not the current number of non-zero elements.
func (m *Matrix) Capacity() int {
	return len(m.rows)
}

// NumNonZero returns the number of structurally non-zero elements.
func (m *Matrix) NumNonZero() int {
	return m.n
}

// AddElement appends a new element at the given position. It never coalesces
// with an existing slot and panics when the capacity is exhausted.
func (m *Matrix) AddElement(row, col int, val float64) {
	if m.n >= len(m.rows) {
		panic("sparse: matrix capacity exhausted")
	}
	m.rows[m.n] = row
	m.cols[m.n] = col
	m.values[m.n] = val
	m.n++
}

// At returns a pointer to the value slot at (row, col). Existing slots are
// found by a linear scan; if none matches, a new zero-valued slot is appended.
// Panics when a slot would have to be created beyond the capacity.
func (m *Matrix) At(row, col int) *float64 {
	for i := 0; i < m.n; i++ {
		if m.rows[i] == row && m.cols[i] == col {
			return &m.values[i]
		}
	}
	if m.n >= len(m.rows) {
		panic("sparse: matrix capacity exhausted")
	}
	m.rows[m.n] = row
	m.cols[m.n] = col
	m.values[m.n] = 0
	m.n++
	return &m.values[m.n-1]
}

// Get returns the value at (row, col), or 0 if the position is not populated.
// It never mutates the matrix.
func (m *Matrix) Get(row, col int) float64 {
	for i := 0; i < m.n; i++ {
		if m.rows[i] == row && m.cols[i] == col {
			return m.values[i]
		}
	}
	return 0
}

// Set stores val at (row, col) through the lookup-or-insert accessor.
func (m *Matrix) Set(row, col int, val float64) {
	*m.At(row, col) = val
}

// Add adds val to the slot at (row, col) through the lookup-or-insert
// accessor.
func (m *Matrix) Add(row, col int, val float64) {
	*m.At(row, col) += val
}

// MultiplyVector computes out = alpha*A*x + beta*out. The matrix contribution
// is an O(nnz) scatter over the populated slots only.
func (m *Matrix) MultiplyVector(x []float64, alpha, beta float64, out []float64) {
	if beta != 1 {
		for i := range out {
			out[i] *= beta
		}
	}
	for i := 0; i < m.n; i++ {
		out[m.rows[i]] += alpha * m.values[i] * x[m.cols[i]]
	}
}

// MultiplyAdd computes out += A*x over the populated slots.
func (m *Matrix) MultiplyAdd(x []float64, out []float64) {
	for i := 0; i < m.n; i++ {
		out[m.rows[i]] += m.values[i] * x[m.cols[i]]
	}
}

// MultiplySubtract computes out -= A*x over the populated slots.
func (m *Matrix) MultiplySubtract(x []float64, out []float64) {
	for i := 0; i < m.n; i++ {
		out[m.rows[i]] -= m.values[i] * x[m.cols[i]]
	}
}

// RowIndices returns the row indices of the populated slots.
func (m *Matrix) RowIndices() []int {
	return m.rows[:m.n]
}

// ColIndices returns the column indices of the populated slots.
func (m *Matrix) ColIndices() []int {
	return m.cols[:m.n]
}

// Values returns the values of the populated slots.
func (m *Matrix) Values() []float64 {
	return m.values[:m.n]
}

// String lists the populated slots as (row, col) value tuples.
func (m *Matrix) String() string {
	s := ""
	for i := 0; i < m.n; i++ {
		s += fmt.Sprintf("(%d, %d) %g\n", m.rows[i], m.cols[i], m.values[i])
	}
	return s
}
