package enums

// NotificationKind labels the side-channel signals written for users.
type NotificationKind string

const (
	NotificationApplicantAccepted NotificationKind = "applicant_accepted"
	NotificationApplicantRejected NotificationKind = "applicant_rejected"
	NotificationProjectCompleted  NotificationKind = "project_completed"
	NotificationPaymentSettled    NotificationKind = "payment_settled"
)

// String implements fmt.Stringer.
func (k NotificationKind) String() string {
	return string(k)
}
