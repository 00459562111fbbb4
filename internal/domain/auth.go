package domain

// Pair holds the access and refresh tokens issued by the remote token endpoint.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether the pair carries no access token.
func (p Pair) Empty() bool {
	return p.Access == ""
}

// Role is the coarse UI hint stored next to the credential pair.
// It is never used as the source of truth for authorization.
type Role string

const (
	RoleNone  Role = ""
	RoleStaff Role = "staff"
)
