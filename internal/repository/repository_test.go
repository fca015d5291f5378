package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"therapytrack/internal/models"
	"therapytrack/internal/testutil"
)

type fixture struct {
	users       *UserRepository
	children    *ChildRepository
	therapies   *TherapyRepository
	assessments *AssessmentRepository

	counselor *models.User
	parent    *models.User
	child     *models.Child
	therapy   *models.Therapy
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.OpenDB(t)
	ctx := context.Background()

	f := &fixture{
		users:       NewUserRepository(db),
		children:    NewChildRepository(db),
		therapies:   NewTherapyRepository(db),
		assessments: NewAssessmentRepository(db),
	}

	var err error
	f.counselor, err = f.users.CreateUser(ctx, "counselor@example.com", "hash", "Dr. Rivera", models.RoleCounselor)
	require.NoError(t, err)
	f.parent, err = f.users.CreateUser(ctx, "parent@example.com", "hash", "Sam Hart", models.RoleParent)
	require.NoError(t, err)

	f.child = &models.Child{ParentID: f.parent.ID, Fullname: "Alice Hart", ChildOrder: 1}
	require.NoError(t, f.children.CreateChild(ctx, f.child))

	f.therapy = &models.Therapy{ChildID: f.child.ID, CounselorID: f.counselor.ID, ParentID: f.parent.ID, Title: "Anxiety support"}
	require.NoError(t, f.therapies.CreateTherapy(ctx, f.therapy))
	return f
}

func TestUserRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.users.GetUserByEmail(ctx, "parent@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, f.parent.ID, got.ID)
	assert.Equal(t, models.RoleParent, got.Role)
	assert.Empty(t, got.OAuthProvider)

	missing, err := f.users.GetUserByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	users, err := f.users.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = f.users.CreateUser(ctx, "parent@example.com", "hash", "Someone Else", models.RoleParent)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepositoryOAuth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.CreateOAuthUser(ctx, "oauth@example.com", "OAuth User", models.RoleParent, "google", "sub-1")
	require.NoError(t, err)

	got, err := f.users.GetUserByOAuth(ctx, "google", "sub-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, f.users.LinkOAuthProvider(ctx, f.parent.ID, "google", "sub-2"))
	err = f.users.LinkOAuthProvider(ctx, f.parent.ID, "google", "sub-3")
	assert.ErrorIs(t, err, ErrOAuthAlreadyLinked)
}

func TestSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	_, err := f.users.CreateSession(ctx, "live", f.parent.ID, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = f.users.CreateSession(ctx, "stale", f.parent.ID, now.Add(-time.Hour))
	require.NoError(t, err)

	session, err := f.users.GetSession(ctx, "live")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, f.parent.ID, session.UserID)
	assert.False(t, session.IsExpired())

	n, err := f.users.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := f.users.GetSession(ctx, "stale")
	require.NoError(t, err)
	assert.Nil(t, gone)

	require.NoError(t, f.users.DeleteSession(ctx, "live"))
	gone, err = f.users.GetSession(ctx, "live")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestChildRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	birth := time.Date(2016, 5, 4, 0, 0, 0, 0, time.UTC)
	second := &models.Child{ParentID: f.parent.ID, ChildOrder: 2, BirthDate: &birth}
	require.NoError(t, f.children.CreateChild(ctx, second))

	got, err := f.children.GetChildByID(ctx, second.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Child #2", got.DisplayName())
	require.NotNil(t, got.BirthDate)
	assert.True(t, birth.Equal(*got.BirthDate))

	byParent, err := f.children.ListByParent(ctx, f.parent.ID)
	require.NoError(t, err)
	require.Len(t, byParent, 2)
	assert.Equal(t, f.child.ID, byParent[0].ID)

	byCounselor, err := f.children.ListByCounselor(ctx, f.counselor.ID)
	require.NoError(t, err)
	require.Len(t, byCounselor, 1)
	assert.Equal(t, "Alice Hart", byCounselor[0].Fullname)

	none, err := f.children.GetChildByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestTherapyRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.therapies.GetTherapyByID(ctx, f.therapy.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice Hart", got.ChildName)
	assert.Equal(t, f.counselor.ID, got.CounselorID)

	require.NoError(t, f.therapies.UpdateTherapy(ctx, f.therapy.ID, "Renamed", "weekly"))
	got, err = f.therapies.GetTherapyByID(ctx, f.therapy.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "weekly", got.Notes)

	byCounselor, err := f.therapies.ListByCounselor(ctx, f.counselor.ID)
	require.NoError(t, err)
	assert.Len(t, byCounselor, 1)

	byParent, err := f.therapies.ListByParent(ctx, f.parent.ID)
	require.NoError(t, err)
	assert.Len(t, byParent, 1)

	other, err := f.therapies.ListByParent(ctx, f.counselor.ID)
	require.NoError(t, err)
	assert.Empty(t, other)

	missing, err := f.therapies.GetTherapyByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAssessmentRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pretest := &models.Assessment{
		TherapyID:       f.therapy.ID,
		Kind:            models.KindPretest,
		Scores:          map[string]int{"emotional": 5, "conduct": 3},
		Interpretations: map[string]string{"emotional": "borderline"},
		Total:           8,
	}
	require.NoError(t, f.assessments.CreateAssessment(ctx, pretest))
	require.NotZero(t, pretest.ID)

	// one assessment of each kind per therapy
	dup := &models.Assessment{TherapyID: f.therapy.ID, Kind: models.KindPretest}
	assert.ErrorIs(t, f.assessments.CreateAssessment(ctx, dup), ErrDuplicate)

	got, err := f.assessments.GetAssessment(ctx, models.KindPretest, pretest.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pretest.Scores, got.Scores)
	assert.Equal(t, "borderline", got.Interpretations["emotional"])
	assert.Equal(t, 8, got.Total)

	wrongKind, err := f.assessments.GetAssessment(ctx, models.KindPosttest, pretest.ID)
	require.NoError(t, err)
	assert.Nil(t, wrongKind)

	pretest.Scores["peer"] = 2
	pretest.Total = 10
	require.NoError(t, f.assessments.UpdateAssessment(ctx, pretest))
	got, err = f.assessments.GetByTherapy(ctx, f.therapy.ID, models.KindPretest)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Total)
	assert.Equal(t, 2, got.Scores["peer"])

	observation := &models.Assessment{TherapyID: f.therapy.ID, Kind: models.KindObservation, Recommendation: "continue"}
	require.NoError(t, f.assessments.CreateAssessment(ctx, observation))

	all, err := f.assessments.ListByTherapy(ctx, f.therapy.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byCounselor, err := f.assessments.ListByCounselor(ctx, f.counselor.ID, models.KindPretest)
	require.NoError(t, err)
	require.Len(t, byCounselor, 1)
	assert.Equal(t, "Alice Hart", byCounselor[0].ChildName)

	byParent, err := f.assessments.ListByParent(ctx, f.parent.ID, models.KindObservation)
	require.NoError(t, err)
	require.Len(t, byParent, 1)
	assert.Equal(t, "continue", byParent[0].Recommendation)
	assert.Empty(t, byParent[0].Scores)
}
