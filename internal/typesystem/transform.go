package typesystem

// TransformAction tells Transform what to do with the value returned by a
// transformer.
type TransformAction uint8

const (
	// StepInto rebuilds the returned type's parts recursively.
	StepInto TransformAction = iota
	// StepOver uses the returned type as-is.
	StepOver
)

// Transformer rewrites a type, deciding whether its parts are visited.
type Transformer func(Type) (Type, TransformAction)

// Transform applies f to t in pre-order. It is the single mechanism
// through which substitutions and canonicalization walk types; variants
// are never mutated in place.
func Transform(t Type, f Transformer) Type {
	if t == nil {
		return nil
	}
	r, action := f(t)
	if action == StepOver {
		return r
	}
	switch r := r.(type) {
	case TVar, TGeneric, TProduct, TBuiltin, TError:
		return r
	case TTuple:
		elems := make([]TupleElement, len(r.Elements))
		for i, e := range r.Elements {
			elems[i] = TupleElement{Label: e.Label, Type: Transform(e.Type, f)}
		}
		return TTuple{Elements: elems}
	case TUnion:
		members := make([]Type, len(r.Members))
		for i, m := range r.Members {
			members[i] = Transform(m, f)
		}
		return TUnion{Members: members}
	case TLambda:
		inputs := transformParams(r.Inputs, f)
		var env Type
		if r.Environment != nil {
			env = Transform(r.Environment, f)
		}
		return TLambda{
			Inputs:      inputs,
			Environment: env,
			Output:      Transform(r.Output, f),
			Subscript:   r.Subscript,
		}
	case TMethod:
		return TMethod{
			Receiver:     Transform(r.Receiver, f),
			Inputs:       transformParams(r.Inputs, f),
			Output:       Transform(r.Output, f),
			Capabilities: r.Capabilities,
		}
	case TParameter:
		return TParameter{Access: r.Access, Bare: Transform(r.Bare, f)}
	case TRemote:
		return TRemote{Access: r.Access, Bare: Transform(r.Bare, f)}
	case TMetatype:
		return TMetatype{Instance: Transform(r.Instance, f)}
	case TExistential:
		if r.Base == nil {
			return r
		}
		return TExistential{Traits: r.Traits, Base: Transform(r.Base, f)}
	case TBoundGeneric:
		args := make([]TypeArgument, len(r.Args))
		for i, a := range r.Args {
			args[i] = TypeArgument{Key: a.Key, Name: a.Name, Value: Transform(a.Value, f)}
		}
		return TBoundGeneric{Base: Transform(r.Base, f), Args: args}
	default:
		return r
	}
}

func transformParams(params []CallableParam, f Transformer) []CallableParam {
	out := make([]CallableParam, len(params))
	for i, p := range params {
		out[i] = CallableParam{Label: p.Label, Type: Transform(p.Type, f), HasDefault: p.HasDefault}
	}
	return out
}

// FreeVariables returns the identities of the open variables mentioned by
// t, in first-occurrence order.
func FreeVariables(t Type) []VarID {
	seen := map[VarID]bool{}
	vars := []VarID{}
	Transform(t, func(u Type) (Type, TransformAction) {
		if v, ok := u.(TVar); ok {
			if !seen[v.ID] {
				seen[v.ID] = true
				vars = append(vars, v.ID)
			}
		}
		return u, StepInto
	})
	return vars
}
