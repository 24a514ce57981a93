package binding

import (
	"fmt"

	"github.com/hammal/cstr/ad"
	"github.com/hammal/cstr/params"
)

// Linear is the linear adsorption isotherm
//
//	dq_i/dt = ka_i c_i - kd_i q_i
//
// in kinetic form, or the quasi-stationary constraint 0 = ka_i c_i - kd_i q_i
// when IS_KINETIC is false. The adsorption and desorption rates are per
// component; every bound state of a component shares them.
type Linear struct {
	nComp       int
	nBound      []int
	boundOffset []int
	kinetic     bool
	unit        int

	// Parameter table: kA for every component, then kD.
	table []ad.Dual
	reg   *params.Registry
	sens  map[params.Ref]struct{}
}

func (l *Linear) Name() string { return "LINEAR" }

// ConfigureDiscretization fixes the bound state layout. Called once before
// Configure.
func (l *Linear) ConfigureDiscretization(nComp int, nBound, boundOffset []int) {
	l.nComp = nComp
	l.nBound = nBound
	l.boundOffset = boundOffset
}

// Configure reads the isotherm coefficients and rebuilds the parameter
// registry.
func (l *Linear) Configure(pp params.Provider, unit int) error {
	l.unit = unit
	l.kinetic = true
	if pp.Exists("IS_KINETIC") {
		kin, err := pp.GetBool("IS_KINETIC")
		if err != nil {
			return err
		}
		l.kinetic = kin
	}

	kA, err := pp.GetDoubleArray("LIN_KA")
	if err != nil {
		return err
	}
	kD, err := pp.GetDoubleArray("LIN_KD")
	if err != nil {
		return err
	}
	if len(kA) < l.nComp || len(kD) < l.nComp {
		return fmt.Errorf("binding: LIN_KA and LIN_KD require %d values", l.nComp)
	}

	l.table = make([]ad.Dual, 2*l.nComp)
	l.reg = params.NewRegistry()
	l.sens = make(map[params.Ref]struct{})
	for i := 0; i < l.nComp; i++ {
		l.table[i] = ad.Value(kA[i])
		l.table[l.nComp+i] = ad.Value(kD[i])
		l.reg.Register(params.ComponentDependent("LIN_KA", unit, i), params.Ref(i))
		l.reg.Register(params.ComponentDependent("LIN_KD", unit, i), params.Ref(l.nComp+i))
	}
	return nil
}

// Reconfigure re-reads the coefficients without touching the layout.
func (l *Linear) Reconfigure(pp params.Provider, unit int) error {
	return l.Configure(pp, unit)
}

// HasAlgebraicEquations reports whether the bound states satisfy an
// instantaneous constraint instead of an ODE.
func (l *Linear) HasAlgebraicEquations() bool { return !l.kinetic }

func (l *Linear) ConsistentInitializationWorkspaceSize() int { return 0 }

// Residual evaluates the bound state equations. y starts at the liquid
// concentrations, res receives one entry per bound state.
func (l *Linear) Residual(t float64, secIdx int, timeFactor ad.Dual, y []ad.Dual, yDot []float64, res []ad.Dual) int {
	for i := 0; i < l.nComp; i++ {
		kA := l.table[i]
		kD := l.table[l.nComp+i]
		c := y[i]
		for j := 0; j < l.nBound[i]; j++ {
			r := l.boundOffset[i] + j
			q := y[l.nComp+r]
			// -(ka c - kd q)
			res[r] = kD.Mul(q).Sub(kA.Mul(c))
			if l.kinetic && yDot != nil {
				res[r] = res[r].Add(timeFactor.MulFloat(yDot[l.nComp+r]))
			}
		}
	}
	return 0
}

// AnalyticJacobian writes the derivatives of the bound state residuals with
// respect to the state into jac. Row 0 of jac is the first bound state
// equation; column i is tank concentration i, column nComp + r bound state r.
func (l *Linear) AnalyticJacobian(t float64, secIdx int, y []float64, jac RowView) {
	for i := 0; i < l.nComp; i++ {
		kA := l.table[i].Val
		kD := l.table[l.nComp+i].Val
		for j := 0; j < l.nBound[i]; j++ {
			r := l.boundOffset[i] + j
			jac.Set(r, i, -kA)
			jac.Set(r, l.nComp+r, kD)
		}
	}
}

// JacobianAddDiscretized adds the derivatives with respect to the state time
// derivative. Quasi-stationary bound states contribute nothing.
func (l *Linear) JacobianAddDiscretized(timeFactor float64, jac RowView) {
	if !l.kinetic {
		return
	}
	for i := 0; i < l.nComp; i++ {
		for j := 0; j < l.nBound[i]; j++ {
			r := l.boundOffset[i] + j
			jac.Add(r, l.nComp+r, timeFactor)
		}
	}
}

func (l *Linear) HasParameter(id params.ID) bool {
	_, ok := l.reg.Lookup(id)
	return ok
}

func (l *Linear) SetParameter(id params.ID, value float64) bool {
	ref, ok := l.reg.Lookup(id)
	if !ok {
		return false
	}
	l.table[ref].SetValue(value)
	return true
}

// SetSensitiveParameter flags id as sensitive and seeds its AD direction.
func (l *Linear) SetSensitiveParameter(id params.ID, adDirection int, adValue float64) bool {
	ref, ok := l.reg.Lookup(id)
	if !ok {
		return false
	}
	l.sens[ref] = struct{}{}
	l.table[ref].SetADValue(adDirection, adValue)
	return true
}

// SetSensitiveParameterValue changes the value of a parameter only if it is
// currently flagged sensitive.
func (l *Linear) SetSensitiveParameterValue(id params.ID, value float64) bool {
	ref, ok := l.reg.Lookup(id)
	if !ok {
		return false
	}
	if _, sens := l.sens[ref]; !sens {
		return false
	}
	l.table[ref].SetValue(value)
	return true
}

// ClearSensParams removes the AD directions from all sensitive parameters.
func (l *Linear) ClearSensParams() {
	for ref := range l.sens {
		l.table[ref].FillADValue(0)
	}
	l.sens = make(map[params.Ref]struct{})
}

func (l *Linear) AllParameterValues() map[params.ID]float64 {
	vals := make(map[params.ID]float64)
	l.reg.Each(func(id params.ID, ref params.Ref) {
		vals[id] = l.table[ref].Val
	})
	return vals
}
