// Package binding defines the adsorption model collaborator consumed by the
// stirred tank model. A binding model owns the residual and Jacobian
// contributions of the bound phase states and its own parameters.
package binding

import (
	"fmt"
	"strings"

	"github.com/hammal/cstr/ad"
	"github.com/hammal/cstr/params"
	"github.com/hammal/cstr/sparse"
	"gonum.org/v1/gonum/mat"
)

// RowView is a writable window into a Jacobian. Rows start at the first
// bound state equation; columns are in pure DOF coordinates, that is column 0
// is the first tank concentration.
type RowView interface {
	Set(row, col int, v float64)
	Add(row, col int, v float64)
}

// DenseRows is a RowView over a dense matrix with a row offset.
type DenseRows struct {
	M      *mat.Dense
	RowOff int
}

func (d DenseRows) Set(row, col int, v float64) {
	d.M.Set(d.RowOff+row, col, v)
}

func (d DenseRows) Add(row, col int, v float64) {
	d.M.Set(d.RowOff+row, col, d.M.At(d.RowOff+row, col)+v)
}

// SparseRows is a RowView over a builder matrix with a row offset.
type SparseRows struct {
	M      *sparse.Matrix
	RowOff int
}

func (s SparseRows) Set(row, col int, v float64) {
	s.M.Set(s.RowOff+row, col, v)
}

func (s SparseRows) Add(row, col int, v float64) {
	s.M.Add(s.RowOff+row, col, v)
}

// Model is the binding model collaborator interface. The residual is dual
// mode capable: state entries without derivative slots evaluate as plain
// values.
//
// In Residual, y starts at the liquid phase concentrations and spans
// nComp + strideBound entries (liquid then bound); yDot uses the same base
// and may be nil; res receives the strideBound bound state residuals.
type Model interface {
	Name() string
	ConfigureDiscretization(nComp int, nBound, boundOffset []int)
	Configure(pp params.Provider, unit int) error
	Reconfigure(pp params.Provider, unit int) error

	HasAlgebraicEquations() bool
	ConsistentInitializationWorkspaceSize() int

	Residual(t float64, secIdx int, timeFactor ad.Dual, y []ad.Dual, yDot []float64, res []ad.Dual) int
	AnalyticJacobian(t float64, secIdx int, y []float64, jac RowView)
	JacobianAddDiscretized(timeFactor float64, jac RowView)

	HasParameter(id params.ID) bool
	SetParameter(id params.ID, value float64) bool
	SetSensitiveParameter(id params.ID, adDirection int, adValue float64) bool
	SetSensitiveParameterValue(id params.ID, value float64) bool
	ClearSensParams()
	AllParameterValues() map[params.ID]float64
}

// New creates a binding model by name. The empty name and "NONE" yield the
// model without bound states.
func New(name string) (Model, error) {
	switch strings.ToUpper(name) {
	case "", "NONE":
		return &Dummy{}, nil
	case "LINEAR":
		return &Linear{}, nil
	}
	return nil, fmt.Errorf("binding: unknown binding model %q", name)
}

// Dummy is the binding model used when no adsorption model is configured. It
// has no bound states and no parameters.
type Dummy struct{}

func (Dummy) Name() string                                              { return "NONE" }
func (Dummy) ConfigureDiscretization(int, []int, []int)                 {}
func (Dummy) Configure(params.Provider, int) error                      { return nil }
func (Dummy) Reconfigure(params.Provider, int) error                    { return nil }
func (Dummy) HasAlgebraicEquations() bool                               { return false }
func (Dummy) ConsistentInitializationWorkspaceSize() int                { return 0 }
func (Dummy) AnalyticJacobian(float64, int, []float64, RowView)         {}
func (Dummy) JacobianAddDiscretized(float64, RowView)                   {}
func (Dummy) HasParameter(params.ID) bool                               { return false }
func (Dummy) SetParameter(params.ID, float64) bool                      { return false }
func (Dummy) SetSensitiveParameter(params.ID, int, float64) bool        { return false }
func (Dummy) SetSensitiveParameterValue(params.ID, float64) bool        { return false }
func (Dummy) ClearSensParams()                                          {}
func (Dummy) AllParameterValues() map[params.ID]float64                 { return nil }
func (Dummy) Residual(float64, int, ad.Dual, []ad.Dual, []float64, []ad.Dual) int {
	return 0
}
