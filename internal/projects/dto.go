package projects

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlink/craftlink-backend/pkg/db/models"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
)

// CreateInput carries the fields an individual supplies when posting a project.
type CreateInput struct {
	Title          string
	Description    string
	Category       string
	BudgetMin      decimal.Decimal
	BudgetMax      decimal.Decimal
	BudgetCurrency string
	City           string
	State          string
	Country        string
	Deadline       *time.Time
	PostedBy       uuid.UUID
}

// ApplyInput carries a craftsman's application to a project.
type ApplyInput struct {
	ProjectID   uuid.UUID
	CraftsmanID uuid.UUID
	Proposal    string
}

// AssignInput selects the winning applicant for an open project.
type AssignInput struct {
	ProjectID   uuid.UUID
	CraftsmanID uuid.UUID
	ActorID     uuid.UUID
}

// Eligibility is the CheckCanApply verdict. Reason is set only when the
// application would be refused. ContactsRemaining is nil for unbounded plans.
type Eligibility struct {
	Allowed           bool           `json:"allowed"`
	Reason            pkgerrors.Code `json:"reason,omitempty"`
	ContactsRemaining *int           `json:"contacts_remaining,omitempty"`
	Unbounded         bool           `json:"unbounded"`
}

// OpenListing decorates a project with the calling craftsman's application state.
type OpenListing struct {
	Project        models.Project `json:"project"`
	AlreadyApplied bool           `json:"already_applied"`
}
