package tank

// ConsistentInitialState patches the state so that the algebraic constraints
// hold at the start of a section. For V > 0 the system is a pure ODE in the
// tank concentrations and nothing needs fixing. For V = 0 the concentration
// equations degenerate to algebraic ones; inserting dV/dt = F_in - F_out -
// F_filter and dc_i/dt = 0 into the balance gives
//
//	c_i = c_in,i F_in / (dV/dt + F_out)
//
// which keeps the component masses V c_i consistent as the tank starts to
// fill. If the denominator vanishes too (a stagnant empty tank, F_in =
// F_filter and F_out arbitrary only through dV/dt + F_out = 0), every
// concentration satisfies the constraint and the state is left untouched.
func (m *Model) ConsistentInitialState(t float64, secIdx int, timeFactor float64, y []float64, errorTol float64) {
	nc := m.nComp
	v := y[2*nc+m.strideBound]
	if v != 0 {
		return
	}

	flowIn := m.flowIn.Val
	flowOut := m.flowOut.Val
	vDot := flowIn - flowOut - m.curFlowRateFilter.Val

	denom := vDot + flowOut
	if denom == 0 {
		return
	}

	factor := flowIn / denom
	for i := 0; i < nc; i++ {
		y[nc+i] = y[i] * factor
	}
}

// ConsistentInitialTimeDerivative computes a time derivative matching the
// residual at the given state. On entry the concentration slots of yDot hold
// the residual evaluated with a zero time derivative; they are overwritten in
// place.
//
// For V > 0 the concentration equations solve directly:
//
//	dc_i/dt = (-res_i - (F_in - F_out - F_filter) (c_i + invBeta sum_j q_{i,j})) / (timeFactor V)
//
// where F_in - F_out - F_filter equals timeFactor dV/dt by the volume
// equation, with the bound state derivatives taken as zero. For V = 0
// differentiating the constraint from ConsistentInitialState once in time
// couples only the inlet derivative, which is taken as zero here, so the
// concentration derivatives vanish.
func (m *Model) ConsistentInitialTimeDerivative(t float64, secIdx int, timeFactor float64, y, yDot []float64) {
	nc := m.nComp
	v := y[2*nc+m.strideBound]

	flowIn := m.flowIn.Val
	flowOut := m.flowOut.Val
	vBal := flowIn - flowOut - m.curFlowRateFilter.Val
	yDot[2*nc+m.strideBound] = vBal / timeFactor

	if v == 0 {
		for i := 0; i < nc; i++ {
			yDot[nc+i] = 0
		}
		return
	}

	invBeta := 1/m.porosity().Val - 1
	for i := 0; i < nc; i++ {
		qSum := 0.0
		for j := 0; j < m.nBound[i]; j++ {
			qSum += y[2*nc+m.boundOffset[i]+j]
		}
		yDot[nc+i] = (-yDot[nc+i] - vBal*(y[nc+i]+invBeta*qSum)) / (timeFactor * v)
	}
}

// LeanConsistentInitialState is the cheap variant used between sections; for
// this unit it coincides with the full computation.
func (m *Model) LeanConsistentInitialState(t float64, secIdx int, timeFactor float64, y []float64, errorTol float64) {
	m.ConsistentInitialState(t, secIdx, timeFactor, y, errorTol)
}

// LeanConsistentInitialTimeDerivative matches ConsistentInitialTimeDerivative
// with res holding the residual at a zero time derivative.
func (m *Model) LeanConsistentInitialTimeDerivative(t float64, timeFactor float64, y, yDot, res []float64) {
	nc := m.nComp
	copy(yDot[nc:2*nc], res[nc:2*nc])
	m.ConsistentInitialTimeDerivative(t, 0, timeFactor, y, yDot)
}
