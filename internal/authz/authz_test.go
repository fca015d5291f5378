package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"therapytrack/internal/models"
)

func TestCanEdit(t *testing.T) {
	therapy := &models.Therapy{ID: 1, CounselorID: 10, ParentID: 20}

	tests := []struct {
		name    string
		therapy *models.Therapy
		user    *models.User
		want    bool
	}{
		{"owning counselor", therapy, &models.User{ID: 10, Role: models.RoleCounselor}, true},
		{"other counselor", therapy, &models.User{ID: 11, Role: models.RoleCounselor}, false},
		{"parent of the child", therapy, &models.User{ID: 20, Role: models.RoleParent}, false},
		{"parent with counselor's id", therapy, &models.User{ID: 10, Role: models.RoleParent}, false},
		{"unknown role", therapy, &models.User{ID: 10, Role: "admin"}, false},
		{"user not loaded", therapy, nil, false},
		{"therapy not loaded", nil, &models.User{ID: 10, Role: models.RoleCounselor}, false},
		{"nothing loaded", nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanEdit(tt.therapy, tt.user))
		})
	}
}

func TestCanView(t *testing.T) {
	therapy := &models.Therapy{ID: 1, CounselorID: 10, ParentID: 20}

	assert.True(t, CanView(therapy, &models.User{ID: 10, Role: models.RoleCounselor}))
	assert.True(t, CanView(therapy, &models.User{ID: 20, Role: models.RoleParent}))
	assert.False(t, CanView(therapy, &models.User{ID: 21, Role: models.RoleParent}))
	assert.False(t, CanView(therapy, &models.User{ID: 20, Role: models.RoleCounselor}))
	assert.False(t, CanView(nil, &models.User{ID: 10, Role: models.RoleCounselor}))
	assert.False(t, CanView(therapy, nil))
}

func TestCanViewChild(t *testing.T) {
	child := &models.Child{ID: 3, ParentID: 20}

	assert.True(t, CanViewChild(child, &models.User{ID: 20, Role: models.RoleParent}))
	assert.False(t, CanViewChild(child, &models.User{ID: 20, Role: models.RoleCounselor}))
	assert.False(t, CanViewChild(nil, &models.User{ID: 20, Role: models.RoleParent}))
}

func TestActorFor(t *testing.T) {
	counselor := &models.User{ID: 1, Role: models.RoleCounselor}
	parent := &models.User{ID: 2, Role: models.RoleParent}

	a, err := ActorFor(counselor)
	require.NoError(t, err)
	assert.IsType(t, Counselor{}, a)
	assert.Same(t, counselor, a.Account())

	a, err = ActorFor(parent)
	require.NoError(t, err)
	assert.IsType(t, Parent{}, a)

	_, err = ActorFor(&models.User{Role: "admin"})
	assert.ErrorIs(t, err, ErrUnknownRole)

	_, err = ActorFor(nil)
	assert.Error(t, err)
}
