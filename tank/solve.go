package tank

import (
	"github.com/hammal/cstr/binding"
	"gonum.org/v1/gonum/mat"
)

// LinearSolve solves (dRes/dy + alpha * timeFactor * dRes/dyDot) x = rhs in
// place. The inlet block is the identity with a coupling of -F_in into the
// tank equations, so it is eliminated by back substitution; only the pure DOF
// block goes through the factorization. The factorization is cached and only
// refreshed after a Jacobian update marked it stale. Returns 0 on success and
// 1 if the system matrix is singular.
func (m *Model) LinearSolve(t float64, timeFactor, alpha, tol float64, rhs, weight, y, yDot []float64) int {
	nc := m.nComp
	np := m.NumPureDofs()

	flowIn := m.flowIn.Val
	for i := 0; i < nc; i++ {
		rhs[nc+i] += flowIn * rhs[i]
	}

	if m.factorizeJac {
		m.factorizeJac = false
		m.jacFactMat.Copy(m.jac)
		m.addTimeDerivativeJacobian(alpha*timeFactor, y, yDot, binding.DenseRows{M: m.jacFactMat})
		m.jacFact.Factorize(m.jacFactMat)
	}

	rhsVec := mat.NewVecDense(np, rhs[nc:nc+np])
	if err := m.jacFact.SolveVecTo(m.solveTmp, false, rhsVec); err != nil {
		return 1
	}
	rhsVec.CopyVec(m.solveTmp)
	return 0
}
