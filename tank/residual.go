package tank

import (
	"fmt"

	"github.com/hammal/cstr/ad"
	"github.com/hammal/cstr/binding"
)

// residualImpl evaluates the full residual into res. The inlet block is the
// identity, the tank concentration equations balance accumulation against the
// convective in- and outflow, the bound state equations come from the binding
// model, and the last equation is the volume balance. With yDot == nil all
// time derivative terms vanish, which is the steady state form used during
// consistent initialization. When wantJac is set the analytic state Jacobian
// is assembled as a side effect.
func (m *Model) residualImpl(t float64, secIdx int, timeFactor ad.Dual, y []ad.Dual, yDot []float64, res []ad.Dual, wantJac bool) int {
	nc := m.nComp
	cIn := y[:nc]
	c := y[nc : 2*nc]
	v := y[2*nc+m.strideBound]

	vDot := 0.0
	if yDot != nil {
		vDot = yDot[2*nc+m.strideBound]
	}

	// Inlet DOFs pass through unchanged; the coupling into the tank
	// equations below carries the actual inflow.
	for i := 0; i < nc; i++ {
		res[i] = cIn[i].Clone()
	}

	// 1/beta - 1 converts bound state accumulation into liquid phase volume
	// units, with beta the porosity.
	invBeta := ad.Value(1).Div(m.porosity()).SubFloat(1)

	resC := res[nc : 2*nc]
	for i := 0; i < nc; i++ {
		if yDot != nil {
			// Product rule expansion of d/dt [V (c_i + invBeta sum_j q_{i,j})]:
			//
			//	timeFactor ((dc_i/dt + invBeta sum_j dq_{i,j}/dt) V
			//	            + dV/dt (c_i + invBeta sum_j q_{i,j}))
			qDotSum := 0.0
			qSum := ad.Dual{}
			for j := 0; j < m.nBound[i]; j++ {
				qDotSum += yDot[2*nc+m.boundOffset[i]+j]
				qSum = qSum.Add(y[2*nc+m.boundOffset[i]+j])
			}
			acc := invBeta.MulFloat(qDotSum).AddFloat(yDot[nc+i])
			carried := c[i].Add(invBeta.Mul(qSum)).MulFloat(vDot)
			resC[i] = timeFactor.Mul(v.Mul(acc).Add(carried))
		} else {
			resC[i] = ad.Dual{}
		}
		resC[i] = resC[i].Add(m.flowOut.Mul(c[i])).Sub(m.flowIn.Mul(cIn[i]))
	}

	if m.strideBound > 0 {
		var yDotTank []float64
		if yDot != nil {
			yDotTank = yDot[nc:]
		}
		m.binding.Residual(t, secIdx, timeFactor, y[nc:2*nc+m.strideBound], yDotTank, res[2*nc:2*nc+m.strideBound])
	}

	// Volume balance: timeFactor dV/dt - F_in + F_out + F_filter = 0
	res[2*nc+m.strideBound] = timeFactor.MulFloat(vDot).Sub(m.flowIn).Add(m.flowOut).Add(m.curFlowRateFilter)

	if wantJac {
		m.assembleJacobian(t, secIdx, y, yDot, invBeta.Val, vDot)
	}
	return 0
}

// assembleJacobian writes the closed form state Jacobian of the pure DOF
// block. The volume row has no state dependence; its only contribution lives
// in the time derivative Jacobian.
func (m *Model) assembleJacobian(t float64, secIdx int, y []ad.Dual, yDot []float64, invBeta, vDot float64) {
	nc := m.nComp
	m.jac.Zero()
	flowOut := m.flowOut.Val
	vDotInvBeta := vDot * invBeta

	for i := 0; i < nc; i++ {
		// dRes_i / dc_i
		m.jac.Set(i, i, vDot+flowOut)

		qDotSum := 0.0
		for j := 0; j < m.nBound[i]; j++ {
			// dRes_i / dq_{i,j}
			m.jac.Set(i, nc+m.boundOffset[i]+j, vDotInvBeta)
			if yDot != nil {
				qDotSum += yDot[2*nc+m.boundOffset[i]+j]
			}
		}

		// dRes_i / dV
		dcdt := 0.0
		if yDot != nil {
			dcdt = yDot[nc+i]
		}
		m.jac.Set(i, nc+m.strideBound, dcdt+invBeta*qDotSum)
	}

	if m.strideBound > 0 {
		for i := 0; i < nc+m.strideBound; i++ {
			m.bindY[i] = y[nc+i].Val
		}
		m.binding.AnalyticJacobian(t, secIdx, m.bindY, binding.DenseRows{M: m.jac, RowOff: nc})
	}
}

// residualValue evaluates in plain value mode through the scratch dual
// vectors. Sensitive parameter directions present in the parameter table are
// ignored on output.
func (m *Model) residualValue(t float64, secIdx int, timeFactor float64, y, yDot, res []float64, wantJac bool) int {
	n := m.NumDofs()
	for i := 0; i < n; i++ {
		m.valY[i] = ad.Value(y[i])
	}
	ret := m.residualImpl(t, secIdx, ad.Value(timeFactor), m.valY, yDot, m.valRes, wantJac)
	if res != nil {
		ad.CopyFromAd(m.valRes, res, n)
	}
	return ret
}

// residualLiftState evaluates with a plain state but active parameters, so
// that adRes accumulates the direct parameter derivatives dF/dp.
func (m *Model) residualLiftState(t float64, secIdx int, timeFactor ad.Dual, y, yDot []float64, adRes []ad.Dual, wantJac bool) int {
	n := m.NumDofs()
	for i := 0; i < n; i++ {
		m.valY[i] = ad.Value(y[i])
	}
	return m.residualImpl(t, secIdx, timeFactor, m.valY, yDot, adRes, wantJac)
}

// Residual evaluates the plain residual without touching the Jacobian.
func (m *Model) Residual(t float64, secIdx int, timeFactor float64, y, yDot, res []float64) int {
	return m.residualValue(t, secIdx, timeFactor, y, yDot, res, false)
}

// ResidualExt is the full dispatch entry point. With updateJacobian set the
// state Jacobian is reassembled (analytically or from AD, per the configured
// mode) and the cached factorization is invalidated. With paramSensitivity
// set the evaluation carries the AD directions of the sensitive parameters
// and adRes receives the active residual; otherwise adRes and adY may be nil
// in analytic mode.
func (m *Model) ResidualExt(t float64, secIdx int, timeFactor ad.Dual, y, yDot, res []float64, adRes, adY []ad.Dual, adDirOffset int, updateJacobian, paramSensitivity bool) int {
	n := m.NumDofs()

	if !updateJacobian {
		if paramSensitivity {
			ad.ResetAd(adRes, n)
			ret := m.residualLiftState(t, secIdx, timeFactor, y, yDot, adRes, false)
			if res != nil {
				ad.CopyFromAd(adRes, res, n)
			}
			return ret
		}
		return m.residualValue(t, secIdx, timeFactor.Val, y, yDot, res, false)
	}

	m.factorizeJac = true

	if m.jacMode == JacAnalytic {
		if paramSensitivity {
			ad.ResetAd(adRes, n)
			ret := m.residualLiftState(t, secIdx, timeFactor, y, yDot, adRes, true)
			if res != nil {
				ad.CopyFromAd(adRes, res, n)
			}
			return ret
		}
		return m.residualValue(t, secIdx, timeFactor.Val, y, yDot, res, true)
	}

	// AD Jacobian: load the current state into the seeded vector, keeping
	// the seed directions intact, and evaluate on the duals.
	ad.CopyToAd(y, adY, n)
	ad.ResetAd(adRes, n)
	tf := timeFactor
	if !paramSensitivity {
		tf = ad.Value(timeFactor.Val)
	}
	ret := m.residualImpl(t, secIdx, tf, adY, yDot, adRes, false)

	if m.jacMode == JacVerify {
		// Assemble the analytic Jacobian as well and report the largest
		// deviation. Diagnostic only; the AD result is kept.
		m.residualValue(t, secIdx, timeFactor.Val, y, yDot, nil, true)
		diff := ad.CompareDenseJacobianWithAd(adRes[m.nComp:], adDirOffset, m.jac)
		fmt.Printf("tank: unit %d jacobian verification: max difference %e\n", m.unit, diff)
	}
	if res != nil {
		ad.CopyFromAd(adRes, res, n)
	}
	ad.ExtractDenseJacobianFromAd(adRes[m.nComp:], adDirOffset, m.jac)
	return ret
}

// ResidualWithJacobian evaluates the residual and refreshes the state
// Jacobian.
func (m *Model) ResidualWithJacobian(t float64, secIdx int, timeFactor ad.Dual, y, yDot, res []float64, adRes, adY []ad.Dual, adDirOffset int) int {
	return m.ResidualExt(t, secIdx, timeFactor, y, yDot, res, adRes, adY, adDirOffset, true, false)
}
