package domain

// Verdict is the outcome of a single route guard evaluation.
type Verdict int

const (
	VerdictLoading Verdict = iota
	VerdictAuthorized
	VerdictUnauthorized
	VerdictForbidden
)

func (v Verdict) String() string {
	switch v {
	case VerdictLoading:
		return "loading"
	case VerdictAuthorized:
		return "authorized"
	case VerdictUnauthorized:
		return "unauthorized"
	case VerdictForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can leave the verdict.
func (v Verdict) Terminal() bool {
	return v != VerdictLoading
}
