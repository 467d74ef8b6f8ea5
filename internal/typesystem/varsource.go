package typesystem

// VarSource hands out fresh type-variable identities. One source is
// shared by the typed program and every solver working on it, so
// identities never collide across solver forks.
type VarSource struct {
	next VarID
}

// Fresh returns a variable with a new identity.
func (s *VarSource) Fresh() TVar {
	s.next++
	return TVar{ID: s.next}
}
