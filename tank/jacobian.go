package tank

import (
	"github.com/hammal/cstr/binding"
	"gonum.org/v1/gonum/mat"
)

// shiftedRows offsets the row index of a RowView, so that the binding model
// can write its block without knowing the surrounding layout.
type shiftedRows struct {
	jac binding.RowView
	off int
}

func (s shiftedRows) Set(row, col int, v float64) { s.jac.Set(s.off+row, col, v) }
func (s shiftedRows) Add(row, col int, v float64) { s.jac.Add(s.off+row, col, v) }

// addTimeDerivativeJacobian adds factor * dRes/dyDot into jac, indexed over
// the pure DOF block. The entries follow from the accumulation terms of the
// residual:
//
//	dRes_i/dcDot_i = factor * V
//	dRes_i/dqDot_{i,j} = factor * V * (1/beta - 1)
//	dRes_i/dvDot = factor * (c_i + (1/beta - 1) sum_j q_{i,j})
//	dRes_V/dvDot = factor
//
// The factor carries both the time transformation and any scaling the caller
// needs, e.g. alpha from the BDF discretization.
func (m *Model) addTimeDerivativeJacobian(factor float64, y, yDot []float64, jac binding.RowView) {
	nc := m.nComp
	c := y[nc : 2*nc]
	q := y[2*nc : 2*nc+m.strideBound]
	v := y[2*nc+m.strideBound]

	invBeta := 1/m.porosity().Val - 1
	timeV := factor * v
	vInvBeta := timeV * invBeta

	for i := 0; i < nc; i++ {
		jac.Add(i, i, timeV)
		qSum := 0.0
		for j := 0; j < m.nBound[i]; j++ {
			jac.Add(i, nc+m.boundOffset[i]+j, vInvBeta)
			qSum += q[m.boundOffset[i]+j]
		}
		jac.Add(i, nc+m.strideBound, factor*(c[i]+invBeta*qSum))
	}

	if m.strideBound > 0 {
		m.binding.JacobianAddDiscretized(factor, shiftedRows{jac: jac, off: nc})
	}

	jac.Add(nc+m.strideBound, nc+m.strideBound, factor)
}

// MultiplyWithJacobian computes ret = alpha * (dRes/dy) * yS + beta * ret over
// the full state layout. The inlet rows are the identity, and the inlet
// concentrations couple into the tank equations through the inflow.
func (m *Model) MultiplyWithJacobian(t float64, secIdx int, timeFactor float64, y, yDot, yS []float64, alpha, beta float64, ret []float64) {
	nc := m.nComp
	np := m.NumPureDofs()

	for i := 0; i < nc; i++ {
		ret[i] = alpha*yS[i] + beta*ret[i]
	}

	ysVec := mat.NewVecDense(np, yS[nc:nc+np])
	m.mulTmp.MulVec(m.jac, ysVec)
	for i := 0; i < np; i++ {
		ret[nc+i] = alpha*m.mulTmp.AtVec(i) + beta*ret[nc+i]
	}

	flowIn := m.flowIn.Val
	for i := 0; i < nc; i++ {
		ret[nc+i] -= alpha * flowIn * yS[i]
	}
}

// MultiplyWithDerivativeJacobian computes ret = (dRes/dyDot) * sDot. The
// derivative Jacobian is scattered into the sparse builder and applied from
// there; inlet rows have no time derivative and are zeroed.
func (m *Model) MultiplyWithDerivativeJacobian(t float64, secIdx int, timeFactor float64, y, yDot, sDot, ret []float64) {
	nc := m.nComp
	np := m.NumPureDofs()

	m.dotJac.Clear()
	m.addTimeDerivativeJacobian(timeFactor, y, yDot, binding.SparseRows{M: m.dotJac})

	for i := 0; i < nc; i++ {
		ret[i] = 0
	}
	m.dotJac.MultiplyVector(sDot[nc:nc+np], 1, 0, ret[nc:nc+np])
}
