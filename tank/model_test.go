package tank

import (
	"math"
	"testing"

	"github.com/hammal/cstr/ad"
	"github.com/hammal/cstr/params"
)

// newTestModel configures a two component tank without bound states.
func newTestModel(t *testing.T, extra map[string]any) *Model {
	t.Helper()
	data := map[string]any{"NCOMP": 2}
	for k, v := range extra {
		data[k] = v
	}
	m := New(0)
	if err := m.Configure(params.NewMapProvider(data)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return m
}

// newBindingModel configures a two component tank with one bound state per
// component and a kinetic linear isotherm.
func newBindingModel(t *testing.T, extra map[string]any) *Model {
	t.Helper()
	data := map[string]any{
		"NCOMP":            2,
		"NBOUND":           []int{1, 1},
		"POROSITY":         0.5,
		"ADSORPTION_MODEL": "LINEAR",
		"adsorption": map[string]any{
			"IS_KINETIC": true,
			"LIN_KA":     []float64{2, 3},
			"LIN_KD":     []float64{0.5, 1},
		},
	}
	for k, v := range extra {
		data[k] = v
	}
	m := New(0)
	if err := m.Configure(params.NewMapProvider(data)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return m
}

func TestConfigureSizes(t *testing.T) {
	m := newTestModel(t, nil)
	if m.NumDofs() != 5 {
		t.Errorf("NumDofs: got %d, want 5", m.NumDofs())
	}
	if m.NumPureDofs() != 3 {
		t.Errorf("NumPureDofs: got %d, want 3", m.NumPureDofs())
	}
	if m.UsesAD() {
		t.Errorf("default mode must be analytic")
	}

	mb := newBindingModel(t, nil)
	if mb.NumDofs() != 7 || mb.NumPureDofs() != 5 {
		t.Errorf("bound state layout: got %d/%d, want 7/5", mb.NumDofs(), mb.NumPureDofs())
	}
	if mb.RequiredADDirs() != 5 {
		t.Errorf("RequiredADDirs: got %d, want 5", mb.RequiredADDirs())
	}
}

func TestConfigureErrors(t *testing.T) {
	m := New(0)
	if err := m.Configure(params.NewMapProvider(map[string]any{"NCOMP": 0})); err == nil {
		t.Errorf("NCOMP 0 must fail")
	}

	m = New(0)
	err := m.Configure(params.NewMapProvider(map[string]any{
		"NCOMP":  3,
		"NBOUND": []int{1},
	}))
	if err == nil {
		t.Errorf("short NBOUND must fail")
	}

	m = New(0)
	err = m.Configure(params.NewMapProvider(map[string]any{
		"NCOMP":  1,
		"NBOUND": []int{1},
	}))
	if err == nil {
		t.Errorf("bound states without an adsorption scope must fail")
	}
}

func TestJacobianModeSelection(t *testing.T) {
	m := newTestModel(t, map[string]any{"USE_ANALYTIC_JACOBIAN": false})
	if m.Mode() != JacAD || !m.UsesAD() {
		t.Errorf("USE_ANALYTIC_JACOBIAN false must select AD mode")
	}
	m.UseAnalyticJacobian(true)
	if m.Mode() != JacAnalytic {
		t.Errorf("UseAnalyticJacobian did not switch modes")
	}

	m = newTestModel(t, map[string]any{"VERIFY_JACOBIAN": true})
	if m.Mode() != JacVerify {
		t.Errorf("VERIFY_JACOBIAN must select verification mode")
	}
	m.UseAnalyticJacobian(true)
	if m.Mode() != JacVerify {
		t.Errorf("verification mode must be pinned")
	}
}

func TestApplyInitialConditionFrom(t *testing.T) {
	m := newBindingModel(t, map[string]any{
		"INIT_C":      []float64{1, 2},
		"INIT_Q":      []float64{3, 4},
		"INIT_VOLUME": 5.0,
	})
	y := make([]float64, m.NumDofs())
	yDot := make([]float64, m.NumDofs())
	pp := params.NewMapProvider(map[string]any{
		"INIT_C":      []float64{1, 2},
		"INIT_Q":      []float64{3, 4},
		"INIT_VOLUME": 5.0,
	})
	if err := m.ApplyInitialConditionFrom(pp, y, yDot); err != nil {
		t.Fatalf("ApplyInitialConditionFrom: %v", err)
	}
	want := []float64{0, 0, 1, 2, 3, 4, 5}
	for i, w := range want {
		if y[i] != w {
			t.Errorf("y[%d]: got %v, want %v", i, y[i], w)
		}
	}

	// INIT_STATE takes precedence and can carry the time derivative.
	full := make([]float64, 2*m.NumDofs())
	for i := range full {
		full[i] = float64(i)
	}
	pp = params.NewMapProvider(map[string]any{"INIT_STATE": full})
	if err := m.ApplyInitialConditionFrom(pp, y, yDot); err != nil {
		t.Fatalf("INIT_STATE: %v", err)
	}
	if y[3] != 3 || yDot[2] != float64(m.NumDofs()+2) {
		t.Errorf("INIT_STATE not applied: y[3]=%v yDot[2]=%v", y[3], yDot[2])
	}

	pp = params.NewMapProvider(map[string]any{"INIT_C": []float64{1}})
	if err := m.ApplyInitialConditionFrom(pp, y, yDot); err == nil {
		t.Errorf("short INIT_C must fail")
	}
}

func TestParameterSurface(t *testing.T) {
	m := newBindingModel(t, map[string]any{
		"FLOWRATE_FILTER": []float64{0.1, 0.2},
	})

	porosity := params.Scalar("POROSITY", 0)
	if !m.HasParameter(porosity) {
		t.Fatalf("POROSITY not registered")
	}
	if !m.SetParameter(porosity, 0.25) {
		t.Fatalf("SetParameter POROSITY failed")
	}
	if m.AllParameterValues()[porosity] != 0.25 {
		t.Errorf("POROSITY update lost")
	}

	// Binding parameters are reachable through the unit.
	ka := params.ComponentDependent("LIN_KA", 0, 1)
	if !m.HasParameter(ka) {
		t.Errorf("binding parameter not visible")
	}
	if !m.SetParameter(ka, 9) {
		t.Errorf("binding parameter not settable")
	}

	// Parameters of other units are rejected.
	if m.SetParameter(params.Scalar("POROSITY", 1), 0.9) {
		t.Errorf("parameter of another unit accepted")
	}

	filter := params.SectionDependent("FLOWRATE_FILTER", 0, 1)
	if !m.SetSensitiveParameter(filter, 0, 1) {
		t.Fatalf("SetSensitiveParameter FLOWRATE_FILTER failed")
	}
	m.SetSensitiveParameterValue(filter, 0.3)
	if m.AllParameterValues()[filter] != 0.3 {
		t.Errorf("sensitive value update lost")
	}
	m.ClearSensParams()

	// Section transitions activate the filter of the entered section.
	m.NotifyDiscontinuousSectionTransition(0, 1, nil, nil, 0)
	if math.Abs(m.curFlowRateFilter.Val-0.3) > 1e-15 {
		t.Errorf("section transition: got filter %v, want 0.3", m.curFlowRateFilter.Val)
	}
}

func TestSetFlowRatesCopiesSeeds(t *testing.T) {
	m := newTestModel(t, nil)
	in := ad.Sized(1, 2)
	in.SetADValue(0, 1)
	m.SetFlowRates(in, ad.Value(1))
	in.FillADValue(0)
	if m.flowIn.ADValue(0) != 1 {
		t.Errorf("flow rate shares gradient storage with the caller")
	}
}
