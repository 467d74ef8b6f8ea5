package typesystem

import (
	"reflect"
	"sort"
)

// unionIsNormalized reports whether members are sorted by printed form
// with no duplicates and no nested unions.
func unionIsNormalized(members []Type) bool {
	prev := ""
	for i, m := range members {
		if _, ok := m.(TUnion); ok {
			return false
		}
		s := m.String()
		if i > 0 && s <= prev {
			return false
		}
		prev = s
	}
	return true
}

// NormalizeUnion creates a normalized union over types: nested unions are
// flattened, duplicates removed, and members sorted. A single surviving
// member is returned directly.
func NormalizeUnion(types []Type) Type {
	flat := []Type{}
	for _, t := range types {
		if u, ok := t.(TUnion); ok {
			flat = append(flat, u.Members...)
		} else {
			flat = append(flat, t)
		}
	}

	seen := make(map[string]bool)
	unique := []Type{}
	for _, t := range flat {
		s := t.String()
		if !seen[s] {
			seen[s] = true
			unique = append(unique, t)
		}
	}

	if len(unique) == 1 {
		return unique[0]
	}

	sort.Slice(unique, func(i, j int) bool {
		return unique[i].String() < unique[j].String()
	})

	return TUnion{Members: unique}
}

// Canonicalize rewrites t into the unique representative of its
// structural equivalence class: unions are normalized, bound-generic
// argument maps are ordered by key. Nominal equivalences (aliases,
// declared conformances) are the typed program's concern and are applied
// before this call.
func Canonicalize(t Type) Type {
	if t.Flags().IsCanonical() {
		return t
	}
	return Transform(t, func(u Type) (Type, TransformAction) {
		switch u := u.(type) {
		case TUnion:
			members := make([]Type, len(u.Members))
			for i, m := range u.Members {
				members[i] = Canonicalize(m)
			}
			return NormalizeUnion(members), StepOver
		case TBoundGeneric:
			args := make([]TypeArgument, len(u.Args))
			for i, a := range u.Args {
				args[i] = TypeArgument{Key: a.Key, Name: a.Name, Value: Canonicalize(a.Value)}
			}
			sort.SliceStable(args, func(i, j int) bool { return args[i].Key < args[j].Key })
			return TBoundGeneric{Base: Canonicalize(u.Base), Args: args}, StepOver
		default:
			return u, StepInto
		}
	})
}

// AreStructurallyEqual reports deep equality of two types as written,
// without canonicalizing first.
func AreStructurallyEqual(a, b Type) bool {
	return reflect.DeepEqual(a, b)
}

// AreCanonicallyEqual reports whether a and b share a canonical form.
func AreCanonicallyEqual(a, b Type) bool {
	if AreStructurallyEqual(a, b) {
		return true
	}
	return reflect.DeepEqual(Canonicalize(a), Canonicalize(b))
}
