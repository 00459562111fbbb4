package domain

// Capability is a coarse permission tag gating access to a route.
type Capability string

const (
	CapabilityNone  Capability = ""
	CapabilityStaff Capability = "staff"
)

// Requirement states what a view needs before it may render.
type Requirement struct {
	// Protected routes need an authenticated identity.
	Protected bool
	// Capability is additionally required when non-empty.
	Capability Capability
}

var (
	Public        = Requirement{}
	Authenticated = Requirement{Protected: true}
	StaffOnly     = Requirement{Protected: true, Capability: CapabilityStaff}
)
