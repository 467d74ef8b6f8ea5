package typesystem

import (
	"fmt"
	"strings"

	"github.com/veldlang/veld/internal/config"
)

// DeclRef identifies a declaration in the typed program. The zero value is
// no declaration.
type DeclRef uint32

// IsValid reports whether d refers to a declaration.
func (d DeclRef) IsValid() bool { return d != 0 }

// VarID is the identity of an open type variable.
type VarID uint64

// TypeFlags summarizes structural properties of a type. Flags are
// conservative unions over subterms: a constructor contains a variable iff
// any part does, and is canonical only if every part is.
type TypeFlags uint8

const (
	FlagCanonical TypeFlags = 1 << iota
	FlagHasVariable
	FlagHasError
)

// HasVariable reports whether the type mentions an open variable.
func (f TypeFlags) HasVariable() bool { return f&FlagHasVariable != 0 }

// HasError reports whether the type mentions the error type.
func (f TypeFlags) HasError() bool { return f&FlagHasError != 0 }

// IsCanonical reports whether the type is in canonical form.
func (f TypeFlags) IsCanonical() bool { return f&FlagCanonical != 0 }

func mergeFlags(parts ...TypeFlags) TypeFlags {
	merged := FlagCanonical
	for _, p := range parts {
		if !p.IsCanonical() {
			merged &^= FlagCanonical
		}
		merged |= p & (FlagHasVariable | FlagHasError)
	}
	return merged
}

// Type is the interface for all types in the system.
type Type interface {
	String() string
	Flags() TypeFlags
}

// TVar is an open type variable with a fresh identity.
type TVar struct {
	ID VarID
}

func (t TVar) String() string {
	// Normalize fresh variables under the test harness so golden output
	// stays deterministic.
	if config.IsTestMode {
		return "%?"
	}
	return fmt.Sprintf("%%%d", t.ID)
}

func (t TVar) Flags() TypeFlags { return FlagCanonical | FlagHasVariable }

// TGeneric is a generic parameter used as a skolem within its scope.
type TGeneric struct {
	Decl DeclRef
	Name string
}

func (t TGeneric) String() string   { return t.Name }
func (t TGeneric) Flags() TypeFlags { return FlagCanonical }

// TProduct is a nominal record type referencing its declaration.
type TProduct struct {
	Decl DeclRef
	Name string
}

func (t TProduct) String() string   { return t.Name }
func (t TProduct) Flags() TypeFlags { return FlagCanonical }

// BuiltinKind enumerates the built-in machine types.
type BuiltinKind uint8

const (
	BuiltinWord BuiltinKind = iota
	BuiltinFloat64
	BuiltinPtr
)

// TBuiltin is a built-in machine type.
type TBuiltin struct {
	Kind BuiltinKind
}

func (t TBuiltin) String() string {
	switch t.Kind {
	case BuiltinWord:
		return "Word"
	case BuiltinFloat64:
		return "Float64"
	case BuiltinPtr:
		return "Ptr"
	default:
		return "Builtin?"
	}
}

func (t TBuiltin) Flags() TypeFlags { return FlagCanonical }

// TError is the type of ill-formed terms. It propagates silently so a
// single failure does not cascade.
type TError struct{}

func (t TError) String() string   { return "<error>" }
func (t TError) Flags() TypeFlags { return FlagCanonical | FlagHasError }

// TupleElement is one ordered, optionally labeled element of a tuple.
type TupleElement struct {
	Label string
	Type  Type
}

// TTuple is an ordered, labeled sequence of element types.
type TTuple struct {
	Elements []TupleElement
}

func (t TTuple) String() string {
	parts := []string{}
	for _, e := range t.Elements {
		if e.Label != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", e.Label, e.Type))
		} else {
			parts = append(parts, e.Type.String())
		}
	}
	return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
}

func (t TTuple) Flags() TypeFlags {
	parts := make([]TypeFlags, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.Type.Flags()
	}
	return mergeFlags(parts...)
}

// TUnion is an unordered set of member types. The empty union is Never.
// Canonical unions are flat, deduplicated, and sorted.
type TUnion struct {
	Members []Type
}

func (t TUnion) String() string {
	if len(t.Members) == 0 {
		return "Never"
	}
	parts := []string{}
	for _, m := range t.Members {
		parts = append(parts, m.String())
	}
	return fmt.Sprintf("Union<%s>", strings.Join(parts, ", "))
}

func (t TUnion) Flags() TypeFlags {
	parts := make([]TypeFlags, 0, len(t.Members))
	for _, m := range t.Members {
		parts = append(parts, m.Flags())
	}
	f := mergeFlags(parts...)
	if !unionIsNormalized(t.Members) {
		f &^= FlagCanonical
	}
	return f
}

// Never returns the empty union.
func Never() TUnion { return TUnion{} }

// CallableParam is one labeled input of a lambda or method type. Its type
// is usually a TParameter carrying the passing convention. HasDefault
// marks parameters a call may leave out.
type CallableParam struct {
	Label      string
	Type       Type
	HasDefault bool
}

func formatParams(params []CallableParam) string {
	parts := []string{}
	for _, p := range params {
		if p.Label != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", p.Label, p.Type))
		} else {
			parts = append(parts, p.Type.String())
		}
	}
	return strings.Join(parts, ", ")
}

func paramLabels(params []CallableParam) []string {
	labels := make([]string, len(params))
	for i, p := range params {
		labels[i] = p.Label
	}
	return labels
}

// TLambda is the type of a function or subscript value: labeled inputs, an
// environment type, and an output. Subscript lambdas project rather than
// return.
type TLambda struct {
	Inputs      []CallableParam
	Environment Type
	Output      Type
	Subscript   bool
}

func (t TLambda) String() string {
	env := ""
	if t.Environment != nil {
		env = t.Environment.String()
	}
	sep := " -> "
	if t.Subscript {
		sep = ": "
	}
	return fmt.Sprintf("[%s](%s)%s%s", env, formatParams(t.Inputs), sep, t.Output)
}

func (t TLambda) Flags() TypeFlags {
	parts := make([]TypeFlags, 0, len(t.Inputs)+2)
	for _, p := range t.Inputs {
		parts = append(parts, p.Type.Flags())
	}
	if t.Environment != nil {
		parts = append(parts, t.Environment.Flags())
	}
	parts = append(parts, t.Output.Flags())
	return mergeFlags(parts...)
}

// Labels returns the label sequence of the lambda's inputs.
func (t TLambda) Labels() []string { return paramLabels(t.Inputs) }

// TMethod is the type of an unapplied method bundle: a receiver, labeled
// inputs, an output, and the set of capabilities the bundle implements.
type TMethod struct {
	Receiver     Type
	Inputs       []CallableParam
	Output       Type
	Capabilities AccessEffectSet
}

func (t TMethod) String() string {
	return fmt.Sprintf("method[%s](%s) -> %s { %s }", t.Receiver, formatParams(t.Inputs), t.Output, t.Capabilities)
}

func (t TMethod) Flags() TypeFlags {
	parts := make([]TypeFlags, 0, len(t.Inputs)+2)
	parts = append(parts, t.Receiver.Flags())
	for _, p := range t.Inputs {
		parts = append(parts, p.Type.Flags())
	}
	parts = append(parts, t.Output.Flags())
	return mergeFlags(parts...)
}

// Labels returns the label sequence of the method's inputs.
func (t TMethod) Labels() []string { return paramLabels(t.Inputs) }

// TParameter is the type of a parameter: an access effect applied to a
// bare type.
type TParameter struct {
	Access AccessEffect
	Bare   Type
}

func (t TParameter) String() string {
	return fmt.Sprintf("%s %s", t.Access, t.Bare)
}

func (t TParameter) Flags() TypeFlags { return mergeFlags(t.Bare.Flags()) }

// TRemote is a projection handle: a borrowed view of a value with a given
// access effect.
type TRemote struct {
	Access AccessEffect
	Bare   Type
}

func (t TRemote) String() string {
	return fmt.Sprintf("remote %s %s", t.Access, t.Bare)
}

func (t TRemote) Flags() TypeFlags { return mergeFlags(t.Bare.Flags()) }

// TMetatype is the type of a type.
type TMetatype struct {
	Instance Type
}

func (t TMetatype) String() string {
	return fmt.Sprintf("Metatype<%s>", t.Instance)
}

func (t TMetatype) Flags() TypeFlags { return mergeFlags(t.Instance.Flags()) }

// TraitRef names a trait declaration.
type TraitRef struct {
	Decl DeclRef
	Name string
}

// TExistential is a type erased behind an interface: either a set of
// traits, or a generic base (bound generic or metatype).
type TExistential struct {
	Traits []TraitRef
	Base   Type // nil unless the interface is a generic base
}

func (t TExistential) String() string {
	if t.Base != nil {
		return fmt.Sprintf("any %s", t.Base)
	}
	if len(t.Traits) == 0 {
		return "Any"
	}
	parts := []string{}
	for _, tr := range t.Traits {
		parts = append(parts, tr.Name)
	}
	return "any " + strings.Join(parts, " & ")
}

func (t TExistential) Flags() TypeFlags {
	if t.Base != nil {
		return mergeFlags(t.Base.Flags())
	}
	return FlagCanonical
}

// TypeArgument maps a generic parameter declaration to its argument.
type TypeArgument struct {
	Key   DeclRef
	Name  string
	Value Type
}

// TBoundGeneric is a generic type applied to arguments, stored as a
// mapping from parameter key to argument. Canonical form sorts the
// mapping by key.
type TBoundGeneric struct {
	Base Type
	Args []TypeArgument
}

func (t TBoundGeneric) String() string {
	parts := []string{}
	for _, a := range t.Args {
		parts = append(parts, a.Value.String())
	}
	return fmt.Sprintf("%s<%s>", t.Base, strings.Join(parts, ", "))
}

func (t TBoundGeneric) Flags() TypeFlags {
	parts := make([]TypeFlags, 0, len(t.Args)+1)
	parts = append(parts, t.Base.Flags())
	for _, a := range t.Args {
		parts = append(parts, a.Value.Flags())
	}
	f := mergeFlags(parts...)
	for i := 1; i < len(t.Args); i++ {
		if t.Args[i-1].Key >= t.Args[i].Key {
			f &^= FlagCanonical
			break
		}
	}
	return f
}

// Argument returns the argument bound to key, if any.
func (t TBoundGeneric) Argument(key DeclRef) (Type, bool) {
	for _, a := range t.Args {
		if a.Key == key {
			return a.Value, true
		}
	}
	return nil, false
}

// IsLeaf reports whether t has no structure to decompose: built-ins,
// nominal products, skolems, and the error type.
func IsLeaf(t Type) bool {
	switch t.(type) {
	case TBuiltin, TProduct, TGeneric, TError:
		return true
	default:
		return false
	}
}

// BareType strips a parameter or remote wrapper, returning the underlying
// type.
func BareType(t Type) Type {
	switch t := t.(type) {
	case TParameter:
		return t.Bare
	case TRemote:
		return t.Bare
	default:
		return t
	}
}
