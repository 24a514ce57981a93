// Package tank implements the residual and Jacobian evaluation core of a
// continuously stirred tank unit operation. The tank holds the DAE system
//
//	d(V c_i)/dt + (1/beta - 1) V dq_i/dt = c_in,i F_in - c_i F_out
//	dV/dt = F_in - F_out - F_filter
//
// over the state layout [inlet concentrations | tank concentrations | bound
// states | volume]. Bound state equations are owned by a binding model
// collaborator. The outer DAE integrator repeatedly calls the residual,
// Jacobian and linear solve entry points; the tank itself never steps time.
//
// A Model holds mutable per-instance scratch state and must not be shared
// across goroutines.
package tank

import (
	"errors"
	"fmt"

	"github.com/hammal/cstr/ad"
	"github.com/hammal/cstr/binding"
	"github.com/hammal/cstr/params"
	"github.com/hammal/cstr/sparse"
	"gonum.org/v1/gonum/mat"
)

// JacobianMode selects how the state Jacobian is obtained.
type JacobianMode int

const (
	// JacAnalytic assembles the Jacobian from closed form derivatives.
	JacAnalytic JacobianMode = iota
	// JacAD extracts the Jacobian from a forward mode AD evaluation.
	JacAD
	// JacVerify computes both, reports the largest deviation as a
	// diagnostic, and uses the AD result. It never alters control flow.
	JacVerify
)

// Model is the stirred tank unit operation. Structural fields are fixed by
// Configure for the lifetime of the instance; Reconfigure only re-reads
// scalar and vector parameters and the binding model.
type Model struct {
	unit int

	nComp       int
	nBound      []int
	boundOffset []int
	strideBound int

	binding binding.Model

	// Parameter table backing porosity and the flow rate filter; the
	// registry maps parameter identities to indices into it.
	table      []ad.Dual
	reg        *params.Registry
	sens       map[params.Ref]struct{}
	porosRef   params.Ref
	filterRefs []params.Ref

	flowIn            ad.Dual
	flowOut           ad.Dual
	curFlowRateFilter ad.Dual

	jacMode      JacobianMode
	jac          *mat.Dense
	jacFactMat   *mat.Dense
	jacFact      mat.LU
	factorizeJac bool

	// Builder matrix for the time derivative Jacobian dRes/dyDot.
	dotJac *sparse.Matrix

	// Scratch buffers sized once at configuration; the evaluation path does
	// not allocate.
	valY     []ad.Dual
	valRes   []ad.Dual
	bindY    []float64
	mulTmp   *mat.VecDense
	solveTmp *mat.VecDense
	initBuf  []float64
}

// New returns an unconfigured Model for the given unit operation index.
func New(unit int) *Model {
	return &Model{unit: unit, binding: &binding.Dummy{}}
}

// NumDofs returns the number of degrees of freedom including the purely
// algebraic inlet block.
func (m *Model) NumDofs() int {
	return 2*m.nComp + m.strideBound + 1
}

// NumPureDofs returns the number of degrees of freedom after eliminating the
// inlet block.
func (m *Model) NumPureDofs() int {
	return m.nComp + m.strideBound + 1
}

// RequiredADDirs returns the number of AD directions needed for one Jacobian
// evaluation pass.
func (m *Model) RequiredADDirs() int {
	return m.NumPureDofs()
}

// UsesAD reports whether residual evaluations need prepared AD vectors.
func (m *Model) UsesAD() bool {
	return m.jacMode != JacAnalytic
}

// SetFlowRates fixes the inlet and outlet volumetric flow rates for the
// current section.
func (m *Model) SetFlowRates(in, out ad.Dual) {
	m.flowIn = in.Clone()
	m.flowOut = out.Clone()
}

// UseAnalyticJacobian switches between analytic and AD Jacobian assembly. In
// verification mode the choice is pinned: both are always computed.
func (m *Model) UseAnalyticJacobian(analytic bool) {
	if m.jacMode == JacVerify {
		return
	}
	if analytic {
		m.jacMode = JacAnalytic
	} else {
		m.jacMode = JacAD
	}
}

// Mode returns the active Jacobian strategy.
func (m *Model) Mode() JacobianMode {
	return m.jacMode
}

func (m *Model) porosity() ad.Dual {
	return m.table[m.porosRef]
}

// Binding returns the configured binding model collaborator.
func (m *Model) Binding() binding.Model {
	return m.binding
}

// Configure reads the structural discretization (component count, bound state
// layout, Jacobian mode) and the binding model, then fixes all sizes. It must
// be called exactly once; use Reconfigure for parameter updates.
func (m *Model) Configure(pp params.Provider) error {
	nComp, err := pp.GetInt("NCOMP")
	if err != nil {
		return err
	}
	if nComp < 1 {
		return errors.New("tank: NCOMP must be at least 1")
	}
	m.nComp = nComp

	m.nBound = make([]int, nComp)
	if pp.Exists("NBOUND") {
		nBound, err := pp.GetIntArray("NBOUND")
		if err != nil {
			return err
		}
		if len(nBound) < nComp {
			return fmt.Errorf("tank: NBOUND requires %d entries", nComp)
		}
		copy(m.nBound, nBound)
	}

	// Prefix sum over the bound state counts
	m.boundOffset = make([]int, nComp)
	for i := 1; i < nComp; i++ {
		m.boundOffset[i] = m.boundOffset[i-1] + m.nBound[i-1]
	}
	m.strideBound = m.boundOffset[nComp-1] + m.nBound[nComp-1]

	nVar := m.NumPureDofs()
	m.jac = mat.NewDense(nVar, nVar, nil)
	m.jacFactMat = mat.NewDense(nVar, nVar, nil)
	m.dotJac = sparse.New(2*m.nComp + 2*m.strideBound + 1)

	m.valY = make([]ad.Dual, m.NumDofs())
	m.valRes = make([]ad.Dual, m.NumDofs())
	m.bindY = make([]float64, m.nComp+m.strideBound)
	m.mulTmp = mat.NewVecDense(nVar, nil)
	m.solveTmp = mat.NewVecDense(nVar, nil)

	m.jacMode = JacAnalytic
	if pp.Exists("USE_ANALYTIC_JACOBIAN") {
		analytic, err := pp.GetBool("USE_ANALYTIC_JACOBIAN")
		if err != nil {
			return err
		}
		if !analytic {
			m.jacMode = JacAD
		}
	}
	if pp.Exists("VERIFY_JACOBIAN") {
		verify, err := pp.GetBool("VERIFY_JACOBIAN")
		if err != nil {
			return err
		}
		if verify {
			m.jacMode = JacVerify
		}
	}

	if err := m.Reconfigure(pp); err != nil {
		return err
	}

	name := ""
	if pp.Exists("ADSORPTION_MODEL") {
		name, err = pp.GetString("ADSORPTION_MODEL")
		if err != nil {
			return err
		}
	}
	bnd, err := binding.New(name)
	if err != nil {
		return err
	}
	m.binding = bnd
	m.binding.ConfigureDiscretization(m.nComp, m.nBound, m.boundOffset)
	if pp.Exists("adsorption") {
		if err := pp.PushScope("adsorption"); err != nil {
			return err
		}
		err = m.binding.Configure(pp, m.unit)
		pp.PopScope()
		if err != nil {
			return err
		}
	} else if m.strideBound > 0 {
		return errors.New("tank: bound states configured without an adsorption scope")
	}

	if m.binding.HasAlgebraicEquations() {
		if size := m.binding.ConsistentInitializationWorkspaceSize(); size > 0 {
			m.initBuf = make([]float64, size)
		}
	}
	return nil
}

// Reconfigure re-reads porosity, the flow rate filter schedule and the
// binding model parameters without touching the structural layout.
func (m *Model) Reconfigure(pp params.Provider) error {
	m.table = nil
	m.reg = params.NewRegistry()
	m.sens = make(map[params.Ref]struct{})
	m.filterRefs = nil
	m.curFlowRateFilter = ad.Dual{}

	if pp.Exists("FLOWRATE_FILTER") {
		filter, err := pp.GetDoubleArray("FLOWRATE_FILTER")
		if err != nil {
			return err
		}
		for sec, v := range filter {
			ref := params.Ref(len(m.table))
			m.table = append(m.table, ad.Value(v))
			m.reg.Register(params.SectionDependent("FLOWRATE_FILTER", m.unit, sec), ref)
			m.filterRefs = append(m.filterRefs, ref)
		}
		m.curFlowRateFilter = m.table[m.filterRefs[0]].Clone()
	}

	porosity := 1.0
	if pp.Exists("POROSITY") {
		v, err := pp.GetDouble("POROSITY")
		if err != nil {
			return err
		}
		porosity = v
	}
	m.porosRef = params.Ref(len(m.table))
	m.table = append(m.table, ad.Value(porosity))
	m.reg.Register(params.Scalar("POROSITY", m.unit), m.porosRef)

	if m.binding != nil && pp.Exists("adsorption") {
		if err := pp.PushScope("adsorption"); err != nil {
			return err
		}
		err := m.binding.Reconfigure(pp, m.unit)
		pp.PopScope()
		return err
	}
	return nil
}

// NotifyDiscontinuousSectionTransition activates the flow rate filter of the
// entered section.
func (m *Model) NotifyDiscontinuousSectionTransition(t float64, secIdx int, adRes, adY []ad.Dual, adDirOffset int) {
	switch {
	case len(m.filterRefs) > 1:
		m.curFlowRateFilter = m.table[m.filterRefs[secIdx]].Clone()
	case len(m.filterRefs) == 1:
		m.curFlowRateFilter = m.table[m.filterRefs[0]].Clone()
	}
}

// PrepareADVectors sets the seed vectors on the AD state so that one AD pass
// yields the full dense Jacobian of the pure DOF block.
func (m *Model) PrepareADVectors(adRes, adY []ad.Dual, adDirOffset int) {
	if adY == nil {
		return
	}
	ad.PrepareVectorSeedsForDenseMatrix(adY[m.nComp:], adDirOffset, m.NumPureDofs())
}

// ApplyInitialCondition zeroes the full state and its time derivative.
func (m *Model) ApplyInitialCondition(y, yDot []float64) {
	for i := range y[:m.NumDofs()] {
		y[i] = 0
	}
	for i := range yDot[:m.NumDofs()] {
		yDot[i] = 0
	}
}

// ApplyInitialConditionFrom fills the state from the provider. INIT_STATE, if
// present, supplies the full state (and optionally the full time derivative in
// its second half); otherwise INIT_C, INIT_Q and INIT_VOLUME supply the tank
// concentrations, bound states and volume.
func (m *Model) ApplyInitialConditionFrom(pp params.Provider, y, yDot []float64) error {
	n := m.NumDofs()
	if pp.Exists("INIT_STATE") {
		initState, err := pp.GetDoubleArray("INIT_STATE")
		if err != nil {
			return err
		}
		if len(initState) < n {
			return fmt.Errorf("tank: INIT_STATE requires %d values", n)
		}
		copy(y[:n], initState)
		if len(initState) >= 2*n {
			copy(yDot[:n], initState[n:])
		}
		return nil
	}

	initC, err := pp.GetDoubleArray("INIT_C")
	if err != nil {
		return err
	}
	if len(initC) < m.nComp {
		return errors.New("tank: INIT_C does not contain enough values for all components")
	}
	copy(y[m.nComp:2*m.nComp], initC[:m.nComp])

	for i := 0; i < m.strideBound; i++ {
		y[2*m.nComp+i] = 0
	}
	if pp.Exists("INIT_Q") {
		initQ, err := pp.GetDoubleArray("INIT_Q")
		if err != nil {
			return err
		}
		if len(initQ) < m.strideBound {
			return fmt.Errorf("tank: INIT_Q requires %d values", m.strideBound)
		}
		copy(y[2*m.nComp:2*m.nComp+m.strideBound], initQ)
	}

	y[2*m.nComp+m.strideBound] = 0
	if pp.Exists("INIT_VOLUME") {
		v, err := pp.GetDouble("INIT_VOLUME")
		if err != nil {
			return err
		}
		y[2*m.nComp+m.strideBound] = v
	}
	return nil
}

func (m *Model) ownsUnit(id params.ID) bool {
	return id.Unit == m.unit || id.Unit == params.Indep
}

// HasParameter reports whether id addresses a parameter of this unit or its
// binding model.
func (m *Model) HasParameter(id params.ID) bool {
	if _, ok := m.reg.Lookup(id); ok {
		return true
	}
	return m.binding.HasParameter(id)
}

// SetParameter changes a parameter value by identity.
func (m *Model) SetParameter(id params.ID, value float64) bool {
	if !m.ownsUnit(id) {
		return false
	}
	if ref, ok := m.reg.Lookup(id); ok {
		m.table[ref].SetValue(value)
		return true
	}
	return m.binding.SetParameter(id, value)
}

// SetSensitiveParameter flags a parameter as sensitive and seeds its AD
// direction.
func (m *Model) SetSensitiveParameter(id params.ID, adDirection int, adValue float64) bool {
	if !m.ownsUnit(id) {
		return false
	}
	if ref, ok := m.reg.Lookup(id); ok {
		m.sens[ref] = struct{}{}
		m.table[ref].SetADValue(adDirection, adValue)
		return true
	}
	return m.binding.SetSensitiveParameter(id, adDirection, adValue)
}

// SetSensitiveParameterValue changes the value of a parameter only if it is
// currently flagged sensitive.
func (m *Model) SetSensitiveParameterValue(id params.ID, value float64) {
	if !m.ownsUnit(id) {
		return
	}
	if ref, ok := m.reg.Lookup(id); ok {
		if _, sens := m.sens[ref]; sens {
			m.table[ref].SetValue(value)
		}
		return
	}
	m.binding.SetSensitiveParameterValue(id, value)
}

// ClearSensParams removes the AD directions from all sensitive parameters.
func (m *Model) ClearSensParams() {
	for ref := range m.sens {
		m.table[ref].FillADValue(0)
	}
	m.sens = make(map[params.Ref]struct{})
	m.binding.ClearSensParams()
}

// AllParameterValues collects the current values of all parameters of this
// unit and its binding model.
func (m *Model) AllParameterValues() map[params.ID]float64 {
	vals := make(map[params.ID]float64)
	m.reg.Each(func(id params.ID, ref params.Ref) {
		vals[id] = m.table[ref].Val
	})
	for id, v := range m.binding.AllParameterValues() {
		vals[id] = v
	}
	return vals
}
