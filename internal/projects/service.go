package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/internal/plans"
	"github.com/craftlink/craftlink-backend/pkg/db"
	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
	"github.com/craftlink/craftlink-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// quotaLedger is the subscription surface the application gate needs.
type quotaLedger interface {
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	Debit(ctx context.Context, tx *gorm.DB, sub *models.Subscription) (bool, error)
	Release(ctx context.Context, tx *gorm.DB, subscriptionID uuid.UUID) error
}

// userDirectory resolves users for type checks.
type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// notifier delivers fire-and-forget side-channel signals. Failures are the
// notifier's problem, never the caller's.
type notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind enums.NotificationKind, body string)
}

// Service owns the project lifecycle and the subscription-gated application flow.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListOpen(ctx context.Context, viewerID uuid.UUID) ([]OpenListing, error)
	ListByPoster(ctx context.Context, posterID uuid.UUID) ([]models.Project, error)
	ListApplicants(ctx context.Context, projectID uuid.UUID) ([]models.ProjectApplicant, error)

	CheckCanApply(ctx context.Context, projectID, craftsmanID uuid.UUID) (*Eligibility, error)
	Apply(ctx context.Context, input ApplyInput) (*models.ProjectApplicant, error)
	Assign(ctx context.Context, input AssignInput) error
	Complete(ctx context.Context, projectID, actorID uuid.UUID) error
	SoftDelete(ctx context.Context, projectID, actorID uuid.UUID) error

	ListAppliedOpen(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error)
	ListAssigned(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error)
	ListCompletedFor(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error)
}

type service struct {
	repo    Repository
	ledger  quotaLedger
	users   userDirectory
	tx      txRunner
	notify  notifier
	metrics *metrics.MarketplaceMetrics
	logg    *logger.Logger
}

// ServiceParams collects the dependencies for NewService.
type ServiceParams struct {
	Repo     Repository
	Ledger   quotaLedger
	Users    userDirectory
	Tx       txRunner
	Notifier notifier
	Metrics  *metrics.MarketplaceMetrics
	Logger   *logger.Logger
}

// NewService builds the projects service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("projects repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("quota ledger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		ledger:  params.Ledger,
		users:   params.Users,
		tx:      params.Tx,
		notify:  params.Notifier,
		metrics: params.Metrics,
		logg:    params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Project, error) {
	if input.PostedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Title == "" || input.Description == "" || input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title, description and category are required")
	}

	poster, err := s.loadUser(ctx, input.PostedBy)
	if err != nil {
		return nil, err
	}
	if poster.UserType != enums.UserTypeIndividual {
		return nil, pkgerrors.New(pkgerrors.CodeNotAnIndividual, "only individuals can post projects")
	}

	currency := input.BudgetCurrency
	if currency == "" {
		currency = "EUR"
	}

	project := &models.Project{
		Title:          input.Title,
		Description:    input.Description,
		Category:       input.Category,
		BudgetMin:      input.BudgetMin,
		BudgetMax:      input.BudgetMax,
		BudgetCurrency: currency,
		City:           input.City,
		State:          input.State,
		Country:        input.Country,
		PostDate:       time.Now().UTC(),
		Deadline:       input.Deadline,
		Status:         enums.ProjectStatusOpen,
		PostedBy:       input.PostedBy,
	}
	created, err := s.repo.Create(ctx, project)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create project")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	project, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	return project, nil
}

func (s *service) ListOpen(ctx context.Context, viewerID uuid.UUID) ([]OpenListing, error) {
	open, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open projects")
	}

	applied := map[uuid.UUID]bool{}
	if viewerID != uuid.Nil {
		mine, err := s.repo.ListAppliedOpen(ctx, viewerID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list own applications")
		}
		for _, p := range mine {
			applied[p.ID] = true
		}
	}

	listings := make([]OpenListing, 0, len(open))
	for _, p := range open {
		listings = append(listings, OpenListing{Project: p, AlreadyApplied: applied[p.ID]})
	}
	return listings, nil
}

func (s *service) ListByPoster(ctx context.Context, posterID uuid.UUID) ([]models.Project, error) {
	projects, err := s.repo.ListByPoster(ctx, posterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user projects")
	}
	return projects, nil
}

func (s *service) ListApplicants(ctx context.Context, projectID uuid.UUID) ([]models.ProjectApplicant, error) {
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}
	applicants, err := s.repo.ListApplicants(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applicants")
	}
	return applicants, nil
}

// CheckCanApply reports whether a craftsman could apply right now. The
// verdict is advisory: Apply re-runs every check inside its transaction.
func (s *service) CheckCanApply(ctx context.Context, projectID, craftsmanID uuid.UUID) (*Eligibility, error) {
	user, err := s.loadUser(ctx, craftsmanID)
	if err != nil {
		return nil, err
	}
	if user.UserType != enums.UserTypeCraftsman {
		return &Eligibility{Reason: pkgerrors.CodeNotACraftsman}, nil
	}

	if projectID != uuid.Nil {
		if _, err := s.Get(ctx, projectID); err != nil {
			return nil, err
		}
		_, err := s.repo.FindApplicant(ctx, projectID, craftsmanID)
		if err == nil {
			return &Eligibility{Reason: pkgerrors.CodeAlreadyApplied}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing application")
		}
	}

	sub, err := s.ledger.GetActiveSubscription(ctx, craftsmanID)
	if err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeNoActiveSubscription) {
			return &Eligibility{Reason: pkgerrors.CodeNoActiveSubscription}, nil
		}
		return nil, err
	}

	plan, err := plans.Lookup(sub.PlanName)
	if err != nil {
		return nil, err
	}
	if plan.IsUnbounded() {
		return &Eligibility{Allowed: true, Unbounded: true}, nil
	}

	remaining := plan.ContactLimit - sub.ContactsUsed
	if remaining <= 0 {
		zero := 0
		return &Eligibility{Reason: pkgerrors.CodeContactLimitReached, ContactsRemaining: &zero}, nil
	}
	return &Eligibility{Allowed: true, ContactsRemaining: &remaining}, nil
}

// Apply inserts the applicant row and debits the quota ledger in one
// transaction; both happen or neither does.
func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.ProjectApplicant, error) {
	started := time.Now()
	applicant, err := s.apply(ctx, input)
	outcome := "applied"
	if err != nil {
		outcome = outcomeLabel(err)
	}
	s.metrics.IncApplication(outcome)
	s.metrics.ObserveApply(outcome, time.Since(started))
	return applicant, err
}

func (s *service) apply(ctx context.Context, input ApplyInput) (*models.ProjectApplicant, error) {
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if input.CraftsmanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	user, err := s.loadUser(ctx, input.CraftsmanID)
	if err != nil {
		return nil, err
	}
	if user.UserType != enums.UserTypeCraftsman {
		return nil, pkgerrors.New(pkgerrors.CodeNotACraftsman, "only craftsmen can apply")
	}

	var applicant *models.ProjectApplicant
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		project, err := repo.FindByID(ctx, input.ProjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
		}
		if project.Status != enums.ProjectStatusOpen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project is not open for applications")
		}

		if _, err := repo.FindApplicant(ctx, input.ProjectID, input.CraftsmanID); err == nil {
			return pkgerrors.New(pkgerrors.CodeAlreadyApplied, "already applied to this project")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing application")
		}

		sub, err := s.ledger.GetActiveSubscription(ctx, input.CraftsmanID)
		if err != nil {
			return err
		}

		subID := sub.ID
		row := &models.ProjectApplicant{
			ProjectID:       input.ProjectID,
			CraftsmanID:     input.CraftsmanID,
			Proposal:        input.Proposal,
			ApplicationDate: time.Now().UTC(),
			Status:          enums.ApplicantStatusPending,
			SubscriptionID:  &subID,
		}
		if _, err := repo.CreateApplicant(ctx, row); err != nil {
			if db.IsUniqueViolation(err, "ux_project_applicants_project_craftsman") {
				return pkgerrors.New(pkgerrors.CodeAlreadyApplied, "already applied to this project")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create applicant")
		}

		debited, err := s.ledger.Debit(ctx, tx, sub)
		if err != nil {
			return err
		}
		if !debited {
			return pkgerrors.New(pkgerrors.CodeContactLimitReached, "contact limit reached")
		}

		applicant = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applicant, nil
}

// Assign moves an open project to in-progress, accepting the chosen
// applicant and rejecting every other one.
func (s *service) Assign(ctx context.Context, input AssignInput) error {
	if input.ProjectID == uuid.Nil || input.CraftsmanID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "project id and craftsman id required")
	}

	var rejected []models.ProjectApplicant
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		project, err := repo.FindByID(ctx, input.ProjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
		}
		if input.ActorID != uuid.Nil && project.PostedBy != input.ActorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "project does not belong to user")
		}

		winner, err := repo.FindApplicant(ctx, input.ProjectID, input.CraftsmanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeApplicantNotFound, "craftsman has not applied to this project")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load applicant")
		}

		moved, err := repo.TransitionStatus(ctx, project.ID, enums.ProjectStatusOpen, enums.ProjectStatusInProgress, map[string]any{
			"assigned_to": input.CraftsmanID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition project")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project is not open")
		}

		if err := repo.UpdateApplicantStatus(ctx, winner.ID, enums.ApplicantStatusAccepted); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept applicant")
		}
		if err := repo.RejectOtherApplicants(ctx, project.ID, winner.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject other applicants")
		}

		all, err := repo.ListApplicants(ctx, project.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applicants")
		}
		for _, a := range all {
			if a.ID != winner.ID {
				rejected = append(rejected, a)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.notify.Notify(ctx, input.CraftsmanID, enums.NotificationApplicantAccepted, "your application was accepted")
	for _, a := range rejected {
		s.notify.Notify(ctx, a.CraftsmanID, enums.NotificationApplicantRejected, "your application was rejected")
	}
	return nil
}

// Complete moves an in-progress project to completed and returns one
// contact unit to the ledger that was debited at application time. A
// missing ledger is logged, never fatal.
func (s *service) Complete(ctx context.Context, projectID, actorID uuid.UUID) error {
	if projectID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}

	var assignedTo *uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		project, err := repo.FindByID(ctx, projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
		}
		if actorID != uuid.Nil && project.PostedBy != actorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "project does not belong to user")
		}

		now := time.Now().UTC()
		moved, err := repo.TransitionStatus(ctx, project.ID, enums.ProjectStatusInProgress, enums.ProjectStatusCompleted, map[string]any{
			"completion_date": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition project")
		}
		if !moved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project is not in progress")
		}

		assignedTo = project.AssignedTo
		if project.AssignedTo == nil {
			return nil
		}

		ledgerID, err := s.debitedLedger(ctx, repo, project.ID, *project.AssignedTo)
		if err != nil {
			s.logg.Warn(ctx, "completed project has no ledger to credit: "+err.Error())
			return nil
		}
		return s.ledger.Release(ctx, tx, ledgerID)
	})
	if err != nil {
		return err
	}

	if assignedTo != nil {
		s.notify.Notify(ctx, *assignedTo, enums.NotificationProjectCompleted, "the project you worked on was completed")
	}
	return nil
}

// debitedLedger finds the subscription that funded the winning application.
// Older applicant rows carry no ledger id; those fall back to the
// craftsman's currently active subscription.
func (s *service) debitedLedger(ctx context.Context, repo Repository, projectID, craftsmanID uuid.UUID) (uuid.UUID, error) {
	applicant, err := repo.FindApplicant(ctx, projectID, craftsmanID)
	if err == nil && applicant.SubscriptionID != nil {
		return *applicant.SubscriptionID, nil
	}
	sub, subErr := s.ledger.GetActiveSubscription(ctx, craftsmanID)
	if subErr != nil {
		if err != nil {
			return uuid.Nil, err
		}
		return uuid.Nil, subErr
	}
	return sub.ID, nil
}

// SoftDelete hides an open project; any other state is refused.
func (s *service) SoftDelete(ctx context.Context, projectID, actorID uuid.UUID) error {
	if projectID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}

	project, err := s.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if actorID != uuid.Nil && project.PostedBy != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "project does not belong to user")
	}

	deleted, err := s.repo.SoftDelete(ctx, projectID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "soft delete project")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeOnlyOpenDeletable, "only open projects can be deleted")
	}
	return nil
}

func (s *service) ListAppliedOpen(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error) {
	projects, err := s.repo.ListAppliedOpen(ctx, craftsmanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list applied projects")
	}
	return projects, nil
}

func (s *service) ListAssigned(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error) {
	projects, err := s.repo.ListAssigned(ctx, craftsmanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assigned projects")
	}
	return projects, nil
}

func (s *service) ListCompletedFor(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error) {
	projects, err := s.repo.ListCompletedFor(ctx, craftsmanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list completed projects")
	}
	return projects, nil
}

func (s *service) loadUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func outcomeLabel(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeAlreadyApplied:
			return "already_applied"
		case pkgerrors.CodeContactLimitReached:
			return "limit_reached"
		case pkgerrors.CodeNoActiveSubscription:
			return "no_subscription"
		case pkgerrors.CodeNotACraftsman:
			return "not_a_craftsman"
		}
	}
	return "error"
}
