package reviews

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
	pkgerrors "github.com/craftlink/craftlink-backend/pkg/errors"
)

type projectFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

// CreateInput carries a poster's review of the craftsman who completed
// their project.
type CreateInput struct {
	ProjectID  uuid.UUID
	ReviewerID uuid.UUID
	Rating     int
	Comment    string
}

// CraftsmanReviews bundles a craftsman's reviews with the aggregate rating.
type CraftsmanReviews struct {
	Items         []models.Review `json:"items"`
	AverageRating float64         `json:"average_rating"`
	Count         int64           `json:"count"`
}

// Service defines review operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Review, error)
	ListForCraftsman(ctx context.Context, craftsmanID uuid.UUID) (*CraftsmanReviews, error)
}

type service struct {
	repo     Repository
	projects projectFinder
}

// NewService wires review dependencies.
func NewService(repo Repository, projects projectFinder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reviews repository required")
	}
	if projects == nil {
		return nil, fmt.Errorf("project finder required")
	}
	return &service{repo: repo, projects: projects}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Review, error) {
	if input.ProjectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	if input.ReviewerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}

	project, err := s.projects.FindByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	if project.Status != enums.ProjectStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only completed projects can be reviewed")
	}
	if project.PostedBy != input.ReviewerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "project does not belong to user")
	}
	if project.AssignedTo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "project has no assigned craftsman")
	}

	if _, err := s.repo.FindByProjectAndReviewer(ctx, input.ProjectID, input.ReviewerID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "project already reviewed")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing review")
	}

	review := &models.Review{
		ProjectID:   input.ProjectID,
		CraftsmanID: *project.AssignedTo,
		ReviewerID:  input.ReviewerID,
		Rating:      input.Rating,
		Comment:     input.Comment,
	}
	created, err := s.repo.Create(ctx, review)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create review")
	}
	return created, nil
}

func (s *service) ListForCraftsman(ctx context.Context, craftsmanID uuid.UUID) (*CraftsmanReviews, error) {
	if craftsmanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "craftsman id required")
	}

	items, err := s.repo.ListForCraftsman(ctx, craftsmanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	avg, count, err := s.repo.AverageRating(ctx, craftsmanID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate rating")
	}
	return &CraftsmanReviews{Items: items, AverageRating: avg, Count: count}, nil
}
