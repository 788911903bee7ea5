package thread

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiokit/community-api/internal/model"
	"github.com/studiokit/community-api/internal/repository/repositorytest"
	apperrors "github.com/studiokit/community-api/pkg/errors"
)

func TestCreateThreadAddsOwnerMembership(t *testing.T) {
	store := repositorytest.NewThreadStore()
	svc := NewService(store)
	creatorID := uuid.New()
	orgID := uuid.New()

	th, err := svc.CreateThread(context.Background(), orgID, model.ThreadKindClass, "Tuesday Vinyasa", model.VisibilityRoster, creatorID, nil)
	require.NoError(t, err)
	assert.Equal(t, orgID, th.OrganizationID)

	owner, err := store.GetMember(context.Background(), th.ID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, owner.Role)
	assert.True(t, owner.NotificationsEnabled)
}

func TestCreateThreadRejectsInvalidVisibility(t *testing.T) {
	svc := NewService(repositorytest.NewThreadStore())

	_, err := svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindDirect, "DM", model.VisibilityOrg, uuid.New(), nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidVisibility))

	_, err = svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindAnnouncement, "News", model.VisibilityPrivate, uuid.New(), nil)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrInvalidVisibility))
}

func TestAddMemberDuplicate(t *testing.T) {
	store := repositorytest.NewThreadStore()
	svc := NewService(store)

	th, err := svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindClass, "Class", model.VisibilityRoster, uuid.New(), nil)
	require.NoError(t, err)

	userID := uuid.New()
	_, err = svc.AddMember(context.Background(), th.ID, userID, model.RoleMember)
	require.NoError(t, err)

	_, err = svc.AddMember(context.Background(), th.ID, userID, model.RoleMember)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDuplicateMember))
}

func TestAddMemberArchivedThread(t *testing.T) {
	store := repositorytest.NewThreadStore()
	svc := NewService(store)
	ownerID := uuid.New()

	th, err := svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindClass, "Class", model.VisibilityRoster, ownerID, nil)
	require.NoError(t, err)
	require.NoError(t, svc.SetArchived(context.Background(), th.ID, true, ownerID))

	_, err = svc.AddMember(context.Background(), th.ID, uuid.New(), model.RoleMember)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrThreadLocked))
}

func TestRemoveMemberLastOwner(t *testing.T) {
	store := repositorytest.NewThreadStore()
	svc := NewService(store)
	ownerID := uuid.New()

	th, err := svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindClass, "Class", model.VisibilityRoster, ownerID, nil)
	require.NoError(t, err)

	err = svc.RemoveMember(context.Background(), th.ID, ownerID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrLastOwner))

	// A second owner releases the constraint.
	secondOwner := uuid.New()
	_, err = svc.AddMember(context.Background(), th.ID, secondOwner, model.RoleOwner)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMember(context.Background(), th.ID, ownerID))
}

func TestRemoveMemberAbsentIsNoOp(t *testing.T) {
	store := repositorytest.NewThreadStore()
	svc := NewService(store)

	th, err := svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindClass, "Class", model.VisibilityRoster, uuid.New(), nil)
	require.NoError(t, err)

	assert.NoError(t, svc.RemoveMember(context.Background(), th.ID, uuid.New()))
}

func TestSetLockedPermissions(t *testing.T) {
	store := repositorytest.NewThreadStore()
	svc := NewService(store)
	ownerID := uuid.New()

	th, err := svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindClass, "Class", model.VisibilityRoster, ownerID, nil)
	require.NoError(t, err)

	memberID := uuid.New()
	_, err = svc.AddMember(context.Background(), th.ID, memberID, model.RoleMember)
	require.NoError(t, err)

	err = svc.SetLocked(context.Background(), th.ID, true, memberID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrForbidden))

	err = svc.SetLocked(context.Background(), th.ID, true, uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrForbidden), "non-members cannot lock")

	require.NoError(t, svc.SetLocked(context.Background(), th.ID, true, ownerID))
	got, err := svc.GetThread(context.Background(), th.ID)
	require.NoError(t, err)
	assert.True(t, got.Locked)

	moderatorID := uuid.New()
	_, err = svc.AddMember(context.Background(), th.ID, moderatorID, model.RoleModerator)
	require.NoError(t, err)
	require.NoError(t, svc.SetLocked(context.Background(), th.ID, false, moderatorID))
}

func TestSetArchivedOwnerOnly(t *testing.T) {
	store := repositorytest.NewThreadStore()
	svc := NewService(store)
	ownerID := uuid.New()

	th, err := svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindRetreat, "Retreat", model.VisibilityRoster, ownerID, nil)
	require.NoError(t, err)

	moderatorID := uuid.New()
	_, err = svc.AddMember(context.Background(), th.ID, moderatorID, model.RoleModerator)
	require.NoError(t, err)

	err = svc.SetArchived(context.Background(), th.ID, true, moderatorID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrForbidden), "moderators cannot archive")

	require.NoError(t, svc.SetArchived(context.Background(), th.ID, true, ownerID))
	got, err := svc.GetThread(context.Background(), th.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)
}

func TestListThreadsForUserPaging(t *testing.T) {
	store := repositorytest.NewThreadStore()
	svc := NewService(store)
	userID := uuid.New()
	orgID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := svc.CreateThread(context.Background(), orgID, model.ThreadKindClass, "Class", model.VisibilityRoster, userID, nil)
		require.NoError(t, err)
	}
	// A thread in another org stays out of the listing.
	_, err := svc.CreateThread(context.Background(), uuid.New(), model.ThreadKindClass, "Elsewhere", model.VisibilityRoster, userID, nil)
	require.NoError(t, err)

	page1, err := svc.ListThreadsForUser(context.Background(), userID, orgID, "", 3)
	require.NoError(t, err)
	require.Len(t, page1.Threads, 3)
	require.NotEmpty(t, page1.NextCursor)

	page2, err := svc.ListThreadsForUser(context.Background(), userID, orgID, page1.NextCursor, 3)
	require.NoError(t, err)
	assert.Len(t, page2.Threads, 2)
	assert.Empty(t, page2.NextCursor)
}
