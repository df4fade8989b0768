package domain

import "fmt"

// VerificationLevel is the ordered identity-verification tier of an account.
// Higher levels imply more thorough checks, so levels compare numerically.
type VerificationLevel int

const (
	LevelNone VerificationLevel = iota
	LevelBasic
	LevelAccredited
	LevelInstitutional
)

var levelNames = map[VerificationLevel]string{
	LevelNone:          "none",
	LevelBasic:         "basic",
	LevelAccredited:    "accredited",
	LevelInstitutional: "institutional",
}

// ParseVerificationLevel maps the wire/storage form to a level.
func ParseVerificationLevel(s string) (VerificationLevel, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return LevelNone, fmt.Errorf("unknown verification level %q", s)
}

// AtLeast reports whether the level meets the given minimum tier.
func (l VerificationLevel) AtLeast(min VerificationLevel) bool { return l >= min }

// IsValid reports whether the level is one of the defined tiers.
func (l VerificationLevel) IsValid() bool {
	_, ok := levelNames[l]
	return ok
}

// String returns the storage form of the level.
func (l VerificationLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}
