package sparse

import "sort"

// Packed is a sparse matrix in compressed sparse row format. It is the
// conversion target for a builder Matrix and requires significantly less
// storage per multiplication. A Packed matrix is immutable once built.
type Packed struct {
	rowPtr []int
	colInd []int
	values []float64
	nrows  int
}

// Pack converts a builder Matrix into compressed sparse row format. Duplicate
// slots created by AddElement are coalesced by summation.
func Pack(m *Matrix) *Packed {
	n := m.NumNonZero()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rows, cols, vals := m.RowIndices(), m.ColIndices(), m.Values()
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if rows[ia] != rows[ib] {
			return rows[ia] < rows[ib]
		}
		return cols[ia] < cols[ib]
	})

	nrows := 0
	for i := 0; i < n; i++ {
		if rows[i]+1 > nrows {
			nrows = rows[i] + 1
		}
	}

	p := &Packed{nrows: nrows, rowPtr: make([]int, nrows+1)}
	prevRow, prevCol := -1, -1
	for _, idx := range order {
		r, c, v := rows[idx], cols[idx], vals[idx]
		if r == prevRow && c == prevCol {
			p.values[len(p.values)-1] += v
			continue
		}
		p.colInd = append(p.colInd, c)
		p.values = append(p.values, v)
		prevRow, prevCol = r, c
		p.rowPtr[r+1]++
	}
	for r := 0; r < nrows; r++ {
		p.rowPtr[r+1] += p.rowPtr[r]
	}
	return p
}

// NumNonZero returns the number of stored elements after coalescing.
func (p *Packed) NumNonZero() int {
	return len(p.values)
}

// MultiplyVector computes out = alpha*A*x + beta*out.
func (p *Packed) MultiplyVector(x []float64, alpha, beta float64, out []float64) {
	if beta != 1 {
		for i := range out {
			out[i] *= beta
		}
	}
	for r := 0; r < p.nrows; r++ {
		for i := p.rowPtr[r]; i < p.rowPtr[r+1]; i++ {
			out[r] += alpha * p.values[i] * x[p.colInd[i]]
		}
	}
}

// MultiplyAdd computes out += A*x.
func (p *Packed) MultiplyAdd(x []float64, out []float64) {
	for r := 0; r < p.nrows; r++ {
		for i := p.rowPtr[r]; i < p.rowPtr[r+1]; i++ {
			out[r] += p.values[i] * x[p.colInd[i]]
		}
	}
}

// MultiplySubtract computes out -= A*x.
func (p *Packed) MultiplySubtract(x []float64, out []float64) {
	for r := 0; r < p.nrows; r++ {
		for i := p.rowPtr[r]; i < p.rowPtr[r+1]; i++ {
			out[r] -= p.values[i] * x[p.colInd[i]]
		}
	}
}
