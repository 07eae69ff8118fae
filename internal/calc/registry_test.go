package calc

import (
	"errors"
	"testing"
)

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(NewMTBFCalculator()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	c, err := r.Get("mtbf")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if c.Info().ID != "mtbf" {
		t.Errorf("Get() returned calculator %q, want mtbf", c.Info().ID)
	}
}

func TestRegistry_DuplicateID(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(NewMTBFCalculator()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	err := r.Register(NewMTBFCalculator())
	if !errors.Is(err, ErrConflict) {
		t.Errorf("Register() duplicate error = %v, want ErrConflict", err)
	}
}

func TestRegistry_UnknownID(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("arrhenius")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_ListOrder(t *testing.T) {
	r := NewRegistry()
	for _, c := range []Calculator{
		NewDuaneCalculator(),
		NewMTBFCalculator(),
		NewAvailabilityCalculator(),
	} {
		if err := r.Register(c); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	infos := r.List()
	want := []string{"duane_model", "mtbf", "availability"}
	if len(infos) != len(want) {
		t.Fatalf("List() returned %d entries, want %d", len(infos), len(want))
	}
	for i, id := range want {
		if infos[i].ID != id {
			t.Errorf("List()[%d].ID = %q, want %q (registration order)", i, infos[i].ID, id)
		}
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	for _, id := range []string{"mtbf", "duane_model", "test_sample_size", "availability"} {
		if _, err := r.Get(id); err != nil {
			t.Errorf("Get(%q) error = %v", id, err)
		}
	}
}
