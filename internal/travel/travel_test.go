package travel

import (
	"math"
	"testing"
)

func TestModel_ArrivalOrdering(t *testing.T) {
	m := NewModel()

	arrivals := m.Travel(10, 100, false)
	if len(arrivals) != 2 {
		t.Fatalf("expected two phases, got %d", len(arrivals))
	}
	if arrivals[0] >= arrivals[1] {
		t.Errorf("mantle phase %v should beat crust phase %v", arrivals[0], arrivals[1])
	}

	if e, l := m.Earliest(10, 100), m.Latest(10, 100); e >= l {
		t.Errorf("Earliest %v should come before Latest %v", e, l)
	}
}

func TestModel_MonotonicWithDistance(t *testing.T) {
	m := NewModel()
	near := m.Earliest(10, 50)
	far := m.Earliest(10, 500)
	if near >= far {
		t.Errorf("closer targets must hear it sooner: %v vs %v", near, far)
	}
}

func TestModel_RoundedMemoKeys(t *testing.T) {
	m := NewModel()

	a := m.Travel(12, 100.2, false)
	b := m.Travel(8, 100.4, false)
	if a[0] != b[0] || a[1] != b[1] {
		t.Errorf("lookups inside one rounding cell should share an entry: %v vs %v", a, b)
	}

	crust := m.Travel(0, 340, false)
	if math.Abs(crust[1]-100) > 1 {
		t.Errorf("340 km over crust should take ~100 s, got %v", crust[1])
	}
}
