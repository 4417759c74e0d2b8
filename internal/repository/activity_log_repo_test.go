package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

func TestActivityLogRepositoryFiltersAndPages(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityLogRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	submissionID := uint(11)
	for i, action := range []string{"submission.finalized", "submission.archived", "submission.finalized", "account.approved"} {
		entry := models.ActivityLog{
			ActorID:    1,
			ActorRole:  models.RoleAdmin,
			Action:     action,
			EntityType: "submission",
			EntityID:   &submissionID,
			Metadata:   datatypes.JSONMap{"step": i},
			CreatedAt:  base.Add(time.Duration(i) * time.Hour),
		}
		if action == "account.approved" {
			entry.EntityType = "user"
			entry.EntityID = nil
		}
		require.NoError(t, repo.Create(ctx, &entry))
	}

	entries, total, err := repo.List(ctx, ActivityLogFilter{Action: "submission.finalized"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))

	entries, total, err = repo.List(ctx, ActivityLogFilter{EntityType: "submission", EntityID: &submissionID, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Len(t, entries, 1)
	require.Equal(t, "submission.finalized", entries[0].Action)

	since := base.Add(time.Hour)
	until := base.Add(2 * time.Hour)
	entries, total, err = repo.List(ctx, ActivityLogFilter{Since: &since, Until: &until})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "submission.finalized", entries[0].Action)
	require.Equal(t, "submission.archived", entries[1].Action)
}

func TestNotificationRepositoryInboxIsolation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	mine := models.Notification{UserID: 3, Type: "submission.received", Message: "received"}
	theirs := models.Notification{UserID: 4, Type: "submission.received", Message: "received"}
	require.NoError(t, repo.Create(ctx, &mine))
	require.NoError(t, repo.Create(ctx, &theirs))

	_, err := repo.MarkRead(ctx, theirs.ID, 3, time.Now())
	require.Error(t, err)

	updated, err := repo.MarkAllRead(ctx, 3, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	unread, err := repo.List(ctx, NotificationFilter{UserID: 4, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.False(t, unread[0].Read)

	count, err := repo.CountUnread(ctx, 3)
	require.NoError(t, err)
	require.Zero(t, count)
}
