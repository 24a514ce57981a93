package params

import "testing"

func TestProviderScopes(t *testing.T) {
	pp := NewMapProvider(map[string]any{
		"NCOMP": 2,
		"adsorption": map[string]any{
			"LIN_KA": []float64{1, 2},
		},
	})

	if !pp.Exists("NCOMP") {
		t.Fatalf("NCOMP missing at root scope")
	}
	n, err := pp.GetInt("NCOMP")
	if err != nil || n != 2 {
		t.Errorf("GetInt: got %d, %v", n, err)
	}

	if err := pp.PushScope("adsorption"); err != nil {
		t.Fatalf("push: %v", err)
	}
	if pp.Exists("NCOMP") {
		t.Errorf("root scope key visible inside nested scope")
	}
	ka, err := pp.GetDoubleArray("LIN_KA")
	if err != nil || len(ka) != 2 || ka[0] != 1 {
		t.Errorf("GetDoubleArray: got %v, %v", ka, err)
	}
	pp.PopScope()
	if !pp.Exists("NCOMP") {
		t.Errorf("root scope lost after pop")
	}

	if err := pp.PushScope("missing"); err == nil {
		t.Errorf("pushing a missing scope must fail")
	}
}

func TestProviderScalarPromotion(t *testing.T) {
	pp := NewMapProvider(map[string]any{
		"NBOUND":      1,
		"INIT_VOLUME": 2.5,
	})
	nb, err := pp.GetIntArray("NBOUND")
	if err != nil || len(nb) != 1 || nb[0] != 1 {
		t.Errorf("scalar int promotion: got %v, %v", nb, err)
	}
	v, err := pp.GetDoubleArray("INIT_VOLUME")
	if err != nil || len(v) != 1 || v[0] != 2.5 {
		t.Errorf("scalar double promotion: got %v, %v", v, err)
	}
}

func TestProviderMissingKey(t *testing.T) {
	pp := NewMapProvider(map[string]any{})
	if _, err := pp.GetDouble("POROSITY"); err == nil {
		t.Errorf("missing key must return an error")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	idA := Scalar("POROSITY", 0)
	idB := ComponentBoundDependent("LIN_KA", 0, 1, 0)
	r.Register(idA, 3)
	r.Register(idB, 7)

	if ref, ok := r.Lookup(idA); !ok || ref != 3 {
		t.Errorf("lookup A: got %v, %v", ref, ok)
	}
	if ref, ok := r.Lookup(idB); !ok || ref != 7 {
		t.Errorf("lookup B: got %v, %v", ref, ok)
	}
	// Same name but different unit is a different parameter.
	if _, ok := r.Lookup(Scalar("POROSITY", 1)); ok {
		t.Errorf("unit index must distinguish parameters")
	}

	seen := 0
	r.Each(func(ID, Ref) { seen++ })
	if seen != 2 {
		t.Errorf("Each visited %d entries, want 2", seen)
	}
}
