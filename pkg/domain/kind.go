package domain

import "strings"

// Kind is the institution category a linked account belongs to.
type Kind string

const (
	KindMpesa Kind = "mpesa"
	KindSBM   Kind = "sbm"
	KindCoop  Kind = "coop"
)

// Kinds returns every supported kind in display order.
func Kinds() []Kind {
	return []Kind{KindMpesa, KindSBM, KindCoop}
}

// ParseKind is case-insensitive and trims surrounding space.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case KindMpesa, KindSBM, KindCoop:
		return true
	}
	return false
}

// Label is the human-readable institution name.
func (k Kind) Label() string {
	switch k {
	case KindMpesa:
		return "M-Pesa"
	case KindSBM:
		return "SBM Bank"
	case KindCoop:
		return "Co-operative Bank"
	default:
		return string(k)
	}
}

func (k Kind) String() string { return string(k) }
