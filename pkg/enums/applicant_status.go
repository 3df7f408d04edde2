package enums

import "fmt"

// ApplicantStatus tracks one craftsman's application on a project.
type ApplicantStatus string

const (
	ApplicantStatusPending  ApplicantStatus = "pending"
	ApplicantStatusAccepted ApplicantStatus = "accepted"
	ApplicantStatusRejected ApplicantStatus = "rejected"
)

var validApplicantStatuses = []ApplicantStatus{
	ApplicantStatusPending,
	ApplicantStatusAccepted,
	ApplicantStatusRejected,
}

// String implements fmt.Stringer.
func (s ApplicantStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s ApplicantStatus) IsValid() bool {
	for _, candidate := range validApplicantStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseApplicantStatus converts raw input into an ApplicantStatus.
func ParseApplicantStatus(value string) (ApplicantStatus, error) {
	for _, candidate := range validApplicantStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid applicant status %q", value)
}
