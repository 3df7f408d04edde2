package enums

import "fmt"

// UserType separates clients posting projects from the craftsmen applying to them.
type UserType string

const (
	UserTypeIndividual UserType = "individual"
	UserTypeCraftsman  UserType = "craftsman"
)

var validUserTypes = []UserType{
	UserTypeIndividual,
	UserTypeCraftsman,
}

// String implements fmt.Stringer.
func (t UserType) String() string {
	return string(t)
}

// IsValid reports whether the value is known.
func (t UserType) IsValid() bool {
	for _, candidate := range validUserTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseUserType converts raw input into a UserType.
func ParseUserType(value string) (UserType, error) {
	for _, candidate := range validUserTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user type %q", value)
}
