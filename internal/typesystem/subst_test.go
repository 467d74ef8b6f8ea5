package typesystem

import (
	"testing"
)

func TestReifyTransitive(t *testing.T) {
	m := NewSubstitutionMap()
	m.Assign(1, TVar{ID: 2})
	m.Assign(2, word)

	got := m.Reify(TTuple{Elements: []TupleElement{{Type: TVar{ID: 1}}}}, true)
	want := TTuple{Elements: []TupleElement{{Type: word}}}
	if !AreStructurallyEqual(got, want) {
		t.Errorf("Reify() = %s, want %s", got, want)
	}
}

func TestReifyKeepsOrDropsVariables(t *testing.T) {
	m := NewSubstitutionMap()
	m.Assign(1, word)
	open := TTuple{Elements: []TupleElement{{Type: TVar{ID: 1}}, {Type: TVar{ID: 5}}}}

	kept := m.Reify(open, true)
	if kept.Flags().HasVariable() != true {
		t.Errorf("kept reification should retain the unresolved variable, got %s", kept)
	}

	dropped := m.Reify(open, false)
	if dropped.Flags().HasVariable() {
		t.Errorf("substituting reification left a variable in %s", dropped)
	}
	if !dropped.Flags().HasError() {
		t.Errorf("unresolved variable should reify to the error type, got %s", dropped)
	}
}

func TestOptimizedIsIdempotent(t *testing.T) {
	m := NewSubstitutionMap()
	m.Assign(1, TVar{ID: 2})
	m.Assign(2, TTuple{Elements: []TupleElement{{Type: TVar{ID: 3}}}})
	m.Assign(3, word)

	o := m.Optimized()
	for _, v := range o.Variables() {
		bound, _ := o.Binding(v)
		once := o.Reify(bound, true)
		if !AreStructurallyEqual(bound, once) {
			t.Errorf("binding of %%%d is not fully compressed: %s vs %s", v, bound, once)
		}
	}

	typ := TVar{ID: 1}
	once := o.Reify(typ, true)
	twice := o.Reify(once, true)
	if !AreStructurallyEqual(once, twice) {
		t.Errorf("reify(reify(t)) = %s, want %s", twice, once)
	}
}

func TestReifyBreaksCycles(t *testing.T) {
	m := NewSubstitutionMap()
	m.Assign(1, TTuple{Elements: []TupleElement{{Type: TVar{ID: 2}}}})
	m.Assign(2, TVar{ID: 1})

	got := m.Reify(TVar{ID: 1}, true)
	// The cycle resolves to a fixed point instead of diverging.
	if !got.Flags().HasVariable() {
		t.Errorf("cyclic reification = %s, want a fixed point retaining the variable", got)
	}
}

func TestAssignTwicePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("second assignment should panic")
		}
	}()
	m := NewSubstitutionMap()
	m.Assign(1, word)
	m.Assign(1, float)
}
