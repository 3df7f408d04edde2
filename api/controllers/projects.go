package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftlink/craftlink-backend/api/middleware"
	"github.com/craftlink/craftlink-backend/api/responses"
	"github.com/craftlink/craftlink-backend/api/validators"
	"github.com/craftlink/craftlink-backend/internal/projects"
	"github.com/craftlink/craftlink-backend/pkg/db/models"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
	"github.com/craftlink/craftlink-backend/pkg/logger"
)

type createProjectRequest struct {
	Title          string          `json:"title" validate:"required"`
	Description    string          `json:"description" validate:"required"`
	Category       string          `json:"category" validate:"required"`
	BudgetMin      decimal.Decimal `json:"budget_min"`
	BudgetMax      decimal.Decimal `json:"budget_max"`
	BudgetCurrency string          `json:"budget_currency"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	Country        string          `json:"country"`
	Deadline       *time.Time      `json:"deadline,omitempty"`
}

type applyProjectRequest struct {
	Proposal string `json:"proposal"`
}

type assignProjectRequest struct {
	CraftsmanID uuid.UUID `json:"craftsman_id" validate:"required"`
}

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return id, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]any{"field": param})
	}
	return id, nil
}

// ProjectCreate posts a new project for the authenticated individual.
func ProjectCreate(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProjectRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.Create(r.Context(), projects.CreateInput{
			Title:          validators.SanitizeString(body.Title, 200),
			Description:    validators.SanitizeString(body.Description, 5000),
			Category:       validators.SanitizeString(body.Category, 100),
			BudgetMin:      body.BudgetMin,
			BudgetMax:      body.BudgetMax,
			BudgetCurrency: body.BudgetCurrency,
			City:           validators.SanitizeString(body.City, 100),
			State:          validators.SanitizeString(body.State, 100),
			Country:        validators.SanitizeString(body.Country, 100),
			Deadline:       body.Deadline,
			PostedBy:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, project)
	}
}

// ProjectList returns open projects, flagging the ones the caller already
// applied to.
func ProjectList(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		viewer, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listings, err := svc.ListOpen(r.Context(), viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listings)
	}
}

// ProjectDetail fetches a single project by id.
func ProjectDetail(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		project, err := svc.Get(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, project)
	}
}

// ProjectDelete soft-deletes an open project owned by the caller.
func ProjectDelete(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SoftDelete(r.Context(), projectID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ProjectApplicants lists the applications submitted to a project.
func ProjectApplicants(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		projectID, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applicants, err := svc.ListApplicants(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, applicants)
	}
}

// ProjectApply submits the caller's application and debits one contact.
func ProjectApply(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body applyProjectRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		applicant, err := svc.Apply(r.Context(), projects.ApplyInput{
			ProjectID:   projectID,
			CraftsmanID: actor,
			Proposal:    validators.SanitizeString(body.Proposal, 5000),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, applicant)
	}
}

// ProjectAssign picks the winning applicant and moves the project in progress.
func ProjectAssign(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body assignProjectRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Assign(r.Context(), projects.AssignInput{
			ProjectID:   projectID,
			CraftsmanID: body.CraftsmanID,
			ActorID:     actor,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "assigned"})
	}
}

// ProjectComplete closes out an in-progress project and releases the
// apply-time contact.
func ProjectComplete(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		projectID, err := pathUUID(r, "projectId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Complete(r.Context(), projectID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "completed"})
	}
}

// UserProjects lists the projects posted by a user.
func UserProjects(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		userID, err := pathUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByPoster(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CraftsmanCanApply reports the caller's application eligibility for a project.
func CraftsmanCanApply(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("project_id"))
		projectID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "project_id query parameter required"))
			return
		}

		verdict, err := svc.CheckCanApply(r.Context(), projectID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, verdict)
	}
}

// CraftsmanAppliedProjects lists still-open projects the caller applied to.
func CraftsmanAppliedProjects(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return craftsmanProjectListing(logg, func(r *http.Request, actor uuid.UUID) ([]models.Project, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable")
		}
		return svc.ListAppliedOpen(r.Context(), actor)
	})
}

// CraftsmanCurrentProjects lists in-progress projects assigned to the caller.
func CraftsmanCurrentProjects(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return craftsmanProjectListing(logg, func(r *http.Request, actor uuid.UUID) ([]models.Project, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable")
		}
		return svc.ListAssigned(r.Context(), actor)
	})
}

// CraftsmanProjectHistory lists completed projects the caller delivered.
func CraftsmanProjectHistory(svc projects.Service, logg *logger.Logger) http.HandlerFunc {
	return craftsmanProjectListing(logg, func(r *http.Request, actor uuid.UUID) ([]models.Project, error) {
		if svc == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "projects service unavailable")
		}
		return svc.ListCompletedFor(r.Context(), actor)
	})
}

func craftsmanProjectListing(logg *logger.Logger, fetch func(*http.Request, uuid.UUID) ([]models.Project, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := fetch(r, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
