// Package params defines parameter identity and the opaque key/value
// configuration access the models are configured from. Parameters are
// addressed by name plus unit, component, bound phase, reaction and section
// qualifiers; a registry maps identities to indices into the owning model's
// parameter table.
package params

// Indep marks a qualifier a parameter does not depend on.
const Indep = -1

// ID identifies a parameter of a unit operation.
type ID struct {
	Name       string
	Unit       int
	Comp       int
	BoundPhase int
	Reaction   int
	Section    int
}

// Scalar returns the identity of a parameter independent of every qualifier
// except the unit.
func Scalar(name string, unit int) ID {
	return ID{Name: name, Unit: unit, Comp: Indep, BoundPhase: Indep, Reaction: Indep, Section: Indep}
}

// SectionDependent returns the identity of a parameter depending on the unit
// and the section only.
func SectionDependent(name string, unit, section int) ID {
	return ID{Name: name, Unit: unit, Comp: Indep, BoundPhase: Indep, Reaction: Indep, Section: section}
}

// ComponentDependent returns the identity of a parameter depending on the
// unit and the component only.
func ComponentDependent(name string, unit, comp int) ID {
	return ID{Name: name, Unit: unit, Comp: comp, BoundPhase: Indep, Reaction: Indep, Section: Indep}
}

// ComponentBoundDependent returns the identity of a parameter depending on
// the unit, the component and the bound phase.
func ComponentBoundDependent(name string, unit, comp, boundPhase int) ID {
	return ID{Name: name, Unit: unit, Comp: comp, BoundPhase: boundPhase, Reaction: Indep, Section: Indep}
}

// Ref is an index into the parameter table of the model that registered the
// parameter.
type Ref int

// Registry maps parameter identities to table indices. The zero value is not
// usable; create one with NewRegistry.
type Registry struct {
	refs map[ID]Ref
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{refs: make(map[ID]Ref)}
}

// Clear drops all registered parameters.
func (r *Registry) Clear() {
	r.refs = make(map[ID]Ref)
}

// Register maps id to the given table index.
func (r *Registry) Register(id ID, ref Ref) {
	r.refs[id] = ref
}

// Lookup returns the table index registered for id.
func (r *Registry) Lookup(id ID) (Ref, bool) {
	ref, ok := r.refs[id]
	return ref, ok
}

// Each calls f for every registered parameter.
func (r *Registry) Each(f func(ID, Ref)) {
	for id, ref := range r.refs {
		f(id, ref)
	}
}
