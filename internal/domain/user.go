package domain

// Identity describes who the current credential belongs to, as reported by
// the remote identity endpoint. It is derived fresh for every navigation.
type Identity struct {
	Authenticated bool
	Staff         bool
	Superuser     bool
	UserID        int64
	Username      string
	Email         string
}

// Anonymous is the identity of a caller without a usable credential.
var Anonymous = Identity{}

// Has reports whether the identity grants the capability.
func (i Identity) Has(c Capability) bool {
	if !i.Authenticated {
		return false
	}
	switch c {
	case CapabilityNone:
		return true
	case CapabilityStaff:
		return i.Staff
	default:
		return false
	}
}
