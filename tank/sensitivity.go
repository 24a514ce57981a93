package tank

import (
	"github.com/hammal/cstr/ad"
	"github.com/hammal/cstr/binding"
	"gonum.org/v1/gonum/mat"
)

// ResidualSensFwdAdOnly evaluates the residual with active parameters into
// adRes. The gradient slots of adRes then hold the direct parameter
// derivatives dF/dp of all sensitive parameters.
func (m *Model) ResidualSensFwdAdOnly(t float64, secIdx int, timeFactor ad.Dual, y, yDot []float64, adRes []ad.Dual) int {
	ad.ResetAd(adRes, m.NumDofs())
	return m.residualLiftState(t, secIdx, timeFactor, y, yDot, adRes, false)
}

// ResidualSensFwdCombine assembles the forward sensitivity residuals
//
//	resS_p = (dRes/dy) yS_p + (dRes/dyDot) ySdot_p + dRes/dp_p
//
// from the current Jacobians and the parameter derivatives stored in adRes by
// a preceding ResidualSensFwdAdOnly or sensitivity-enabled residual call.
// tmp1 and tmp2 are caller provided scratch vectors of full state size.
func (m *Model) ResidualSensFwdCombine(t float64, secIdx int, timeFactor float64, y, yDot []float64, yS, ySdot, resS [][]float64, adRes []ad.Dual, tmp1, tmp2 []float64) int {
	n := m.NumDofs()
	for p := range yS {
		m.MultiplyWithJacobian(t, secIdx, timeFactor, y, yDot, yS[p], 1, 0, tmp1)
		m.MultiplyWithDerivativeJacobian(t, secIdx, timeFactor, y, yDot, ySdot[p], tmp2)
		out := resS[p]
		for i := 0; i < n; i++ {
			out[i] = tmp1[i] + tmp2[i] + adRes[i].ADValue(p)
		}
	}
	return 0
}

// ResidualSensFwdWithJacobian refreshes the state Jacobian and evaluates the
// parameter-active residual into adRes in one pass.
func (m *Model) ResidualSensFwdWithJacobian(t float64, secIdx int, timeFactor ad.Dual, y, yDot []float64, adRes, adY []ad.Dual, adDirOffset int) int {
	return m.ResidualExt(t, secIdx, timeFactor, y, yDot, nil, adRes, adY, adDirOffset, true, true)
}

// ConsistentInitialSensitivity computes sensitivity time derivatives matching
// the current consistent state. For each parameter direction p it solves
//
//	(dRes/dyDot) sDot_p = -(dRes/dy) s_p - dRes/dp_p
//
// on the pure DOF block, with the derivative Jacobian factorized once per
// call. adRes must hold the parameter derivatives from a preceding
// ResidualSensFwdAdOnly at the same state. The state Jacobian must be up to
// date; the cached solver factorization is invalidated. Returns 0 on success
// and 1 if the derivative Jacobian is singular.
func (m *Model) ConsistentInitialSensitivity(t float64, secIdx int, timeFactor float64, y, yDot []float64, sensY, sensYdot [][]float64, adRes []ad.Dual) int {
	nc := m.nComp
	np := m.NumPureDofs()
	n := m.NumDofs()

	m.jacFactMat.Zero()
	m.addTimeDerivativeJacobian(timeFactor, y, yDot, binding.DenseRows{M: m.jacFactMat})
	var lu mat.LU
	lu.Factorize(m.jacFactMat)
	m.factorizeJac = true

	ret := 0
	for p := range sensY {
		sY := sensY[p]
		sYdot := sensYdot[p]

		m.MultiplyWithJacobian(t, secIdx, timeFactor, y, yDot, sY, -1, 0, sYdot)
		for i := nc; i < n; i++ {
			sYdot[i] -= adRes[i].ADValue(p)
		}

		rhsVec := mat.NewVecDense(np, sYdot[nc:nc+np])
		if err := lu.SolveVecTo(m.solveTmp, false, rhsVec); err != nil {
			ret = 1
			continue
		}
		rhsVec.CopyVec(m.solveTmp)
	}
	return ret
}

// LeanConsistentInitialSensitivity coincides with the full computation for
// this unit.
func (m *Model) LeanConsistentInitialSensitivity(t float64, secIdx int, timeFactor float64, y, yDot []float64, sensY, sensYdot [][]float64, adRes []ad.Dual) int {
	return m.ConsistentInitialSensitivity(t, secIdx, timeFactor, y, yDot, sensY, sensYdot, adRes)
}
