package projects

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
)

// Repository exposes project and applicant persistence. Status transitions
// are compare-and-swap statements so concurrent writers cannot double-apply
// a transition.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListOpen(ctx context.Context) ([]models.Project, error)
	ListByPoster(ctx context.Context, posterID uuid.UUID) ([]models.Project, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.ProjectStatus, updates map[string]any) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)

	CreateApplicant(ctx context.Context, applicant *models.ProjectApplicant) (*models.ProjectApplicant, error)
	FindApplicant(ctx context.Context, projectID, craftsmanID uuid.UUID) (*models.ProjectApplicant, error)
	ListApplicants(ctx context.Context, projectID uuid.UUID) ([]models.ProjectApplicant, error)
	UpdateApplicantStatus(ctx context.Context, id uuid.UUID, status enums.ApplicantStatus) error
	RejectOtherApplicants(ctx context.Context, projectID, winnerID uuid.UUID) error

	ListAppliedOpen(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error)
	ListAssigned(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error)
	ListCompletedFor(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a projects repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) ListOpen(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_deleted = ?", enums.ProjectStatusOpen, false).
		Order("post_date DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) ListByPoster(ctx context.Context, posterID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("posted_by = ? AND is_deleted = ?", posterID, false).
		Order("post_date DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// TransitionStatus applies a from->to status change as a single guarded
// UPDATE. Extra column updates ride along in the same statement. Returns
// false when the row was not in the expected source state.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.ProjectStatus, updates map[string]any) (bool, error) {
	values := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND status = ? AND is_deleted = ?", id, from, false).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SoftDelete hides an open project. Returns false when the project is not
// currently open (or already deleted).
func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE projects
		SET is_deleted = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ? AND is_deleted = ?
	`, true, id, enums.ProjectStatusOpen, false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateApplicant(ctx context.Context, applicant *models.ProjectApplicant) (*models.ProjectApplicant, error) {
	if applicant.ID == uuid.Nil {
		applicant.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(applicant).Error; err != nil {
		return nil, err
	}
	return applicant, nil
}

func (r *repository) FindApplicant(ctx context.Context, projectID, craftsmanID uuid.UUID) (*models.ProjectApplicant, error) {
	var applicant models.ProjectApplicant
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND craftsman_id = ?", projectID, craftsmanID).
		First(&applicant).Error
	if err != nil {
		return nil, err
	}
	return &applicant, nil
}

func (r *repository) ListApplicants(ctx context.Context, projectID uuid.UUID) ([]models.ProjectApplicant, error) {
	var applicants []models.ProjectApplicant
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("application_date ASC").
		Find(&applicants).Error
	if err != nil {
		return nil, err
	}
	return applicants, nil
}

func (r *repository) UpdateApplicantStatus(ctx context.Context, id uuid.UUID, status enums.ApplicantStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.ProjectApplicant{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) RejectOtherApplicants(ctx context.Context, projectID, winnerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProjectApplicant{}).
		Where("project_id = ? AND id <> ?", projectID, winnerID).
		Updates(map[string]any{
			"status":     enums.ApplicantStatusRejected,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repository) ListAppliedOpen(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error) {
	return r.listJoinedApplications(ctx, craftsmanID, "projects.status = ?", enums.ProjectStatusOpen)
}

func (r *repository) ListAssigned(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? AND status = ? AND is_deleted = ?", craftsmanID, enums.ProjectStatusInProgress, false).
		Order("post_date DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) ListCompletedFor(ctx context.Context, craftsmanID uuid.UUID) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Where("assigned_to = ? AND status = ? AND is_deleted = ?", craftsmanID, enums.ProjectStatusCompleted, false).
		Order("completion_date DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) listJoinedApplications(ctx context.Context, craftsmanID uuid.UUID, cond string, args ...any) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Joins("JOIN project_applicants ON project_applicants.project_id = projects.id").
		Where("project_applicants.craftsman_id = ? AND projects.is_deleted = ?", craftsmanID, false).
		Where(cond, args...).
		Order("projects.post_date DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}
