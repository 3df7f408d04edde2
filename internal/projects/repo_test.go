package projects

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/craftlink/craftlink-backend/pkg/db/models"
	"github.com/craftlink/craftlink-backend/pkg/enums"
)

func setupProjectsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	projects := `
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  budget_min TEXT NOT NULL DEFAULT '0',
  budget_max TEXT NOT NULL DEFAULT '0',
  budget_currency TEXT NOT NULL DEFAULT 'EUR',
  city TEXT,
  state TEXT,
  country TEXT,
  post_date DATETIME NOT NULL,
  deadline DATETIME,
  status TEXT NOT NULL DEFAULT 'open',
  posted_by TEXT NOT NULL,
  assigned_to TEXT,
  completion_date DATETIME,
  is_deleted INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	applicants := `
CREATE TABLE IF NOT EXISTS project_applicants (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  craftsman_id TEXT NOT NULL,
  proposal TEXT,
  application_date DATETIME NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  subscription_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CONSTRAINT ux_project_applicants_project_craftsman UNIQUE (project_id, craftsman_id)
);`
	require.NoError(t, db.Exec(projects).Error)
	require.NoError(t, db.Exec(applicants).Error)
	return db
}

func seedProject(t *testing.T, db *gorm.DB, status enums.ProjectStatus, postedBy uuid.UUID) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:          uuid.New(),
		Title:       "Kitchen renovation",
		Description: "Replace cabinets and tiles",
		Category:    "carpentry",
		PostDate:    time.Now().UTC(),
		Status:      status,
		PostedBy:    postedBy,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func seedApplicant(t *testing.T, db *gorm.DB, projectID, craftsmanID uuid.UUID) *models.ProjectApplicant {
	t.Helper()
	subID := uuid.New()
	applicant := &models.ProjectApplicant{
		ID:              uuid.New(),
		ProjectID:       projectID,
		CraftsmanID:     craftsmanID,
		Proposal:        "I can start next week",
		ApplicationDate: time.Now().UTC(),
		Status:          enums.ApplicantStatusPending,
		SubscriptionID:  &subID,
	}
	require.NoError(t, db.Create(applicant).Error)
	return applicant
}

func TestFindByIDExcludesDeleted(t *testing.T) {
	db := setupProjectsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	project := seedProject(t, db, enums.ProjectStatusOpen, uuid.New())
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", project.ID).Update("is_deleted", true).Error)

	_, err := repo.FindByID(ctx, project.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTransitionStatusIsCompareAndSwap(t *testing.T) {
	db := setupProjectsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	project := seedProject(t, db, enums.ProjectStatusOpen, uuid.New())
	craftsman := uuid.New()

	moved, err := repo.TransitionStatus(ctx, project.ID, enums.ProjectStatusOpen, enums.ProjectStatusInProgress, map[string]any{
		"assigned_to": craftsman,
	})
	require.NoError(t, err)
	assert.True(t, moved)

	// a second writer racing the same transition loses
	moved, err = repo.TransitionStatus(ctx, project.ID, enums.ProjectStatusOpen, enums.ProjectStatusInProgress, nil)
	require.NoError(t, err)
	assert.False(t, moved)

	reloaded, err := repo.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProjectStatusInProgress, reloaded.Status)
	require.NotNil(t, reloaded.AssignedTo)
	assert.Equal(t, craftsman, *reloaded.AssignedTo)
}

func TestTransitionStatusWrongSourceState(t *testing.T) {
	db := setupProjectsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	project := seedProject(t, db, enums.ProjectStatusOpen, uuid.New())

	moved, err := repo.TransitionStatus(ctx, project.ID, enums.ProjectStatusInProgress, enums.ProjectStatusCompleted, nil)
	require.NoError(t, err)
	assert.False(t, moved)

	reloaded, err := repo.FindByID(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProjectStatusOpen, reloaded.Status)
}

func TestSoftDeleteOnlyOpen(t *testing.T) {
	db := setupProjectsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	open := seedProject(t, db, enums.ProjectStatusOpen, uuid.New())
	inProgress := seedProject(t, db, enums.ProjectStatusInProgress, uuid.New())

	deleted, err := repo.SoftDelete(ctx, open.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.SoftDelete(ctx, inProgress.ID)
	require.NoError(t, err)
	assert.False(t, deleted, "non-open projects must not be deletable")

	_, err = repo.FindByID(ctx, open.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCreateApplicantEnforcesUniqueness(t *testing.T) {
	db := setupProjectsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	project := seedProject(t, db, enums.ProjectStatusOpen, uuid.New())
	craftsman := uuid.New()
	seedApplicant(t, db, project.ID, craftsman)

	_, err := repo.CreateApplicant(ctx, &models.ProjectApplicant{
		ProjectID:       project.ID,
		CraftsmanID:     craftsman,
		ApplicationDate: time.Now().UTC(),
		Status:          enums.ApplicantStatusPending,
	})
	require.Error(t, err)
}

func TestRejectOtherApplicants(t *testing.T) {
	db := setupProjectsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	project := seedProject(t, db, enums.ProjectStatusOpen, uuid.New())
	winner := seedApplicant(t, db, project.ID, uuid.New())
	loserA := seedApplicant(t, db, project.ID, uuid.New())
	loserB := seedApplicant(t, db, project.ID, uuid.New())

	require.NoError(t, repo.UpdateApplicantStatus(ctx, winner.ID, enums.ApplicantStatusAccepted))
	require.NoError(t, repo.RejectOtherApplicants(ctx, project.ID, winner.ID))

	applicants, err := repo.ListApplicants(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, applicants, 3)
	for _, a := range applicants {
		switch a.ID {
		case winner.ID:
			assert.Equal(t, enums.ApplicantStatusAccepted, a.Status)
		case loserA.ID, loserB.ID:
			assert.Equal(t, enums.ApplicantStatusRejected, a.Status)
		}
	}
}

func TestCraftsmanListings(t *testing.T) {
	db := setupProjectsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	craftsman := uuid.New()

	applied := seedProject(t, db, enums.ProjectStatusOpen, uuid.New())
	seedApplicant(t, db, applied.ID, craftsman)

	current := seedProject(t, db, enums.ProjectStatusInProgress, uuid.New())
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", current.ID).Update("assigned_to", craftsman).Error)

	done := seedProject(t, db, enums.ProjectStatusCompleted, uuid.New())
	now := time.Now().UTC()
	require.NoError(t, db.Model(&models.Project{}).Where("id = ?", done.ID).
		Updates(map[string]any{"assigned_to": craftsman, "completion_date": now}).Error)

	open, err := repo.ListAppliedOpen(ctx, craftsman)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, applied.ID, open[0].ID)

	assigned, err := repo.ListAssigned(ctx, craftsman)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, current.ID, assigned[0].ID)

	completed, err := repo.ListCompletedFor(ctx, craftsman)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)
}
