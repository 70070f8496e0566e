package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/repository"
	"github.com/customeros/rfpstack/internal/testutil"
)

func newTimeline(t *testing.T) (*ChatTimeline, *repository.Repositories) {
	db := testutil.NewSQLiteDB(t, repository.AutoMigrate)
	repos := repository.InitRepositories(db)
	return NewChatTimeline(repos.ChatRepository), repos
}

func TestChatTimeline_RecentWindow(t *testing.T) {
	// Arrange
	ctx := context.Background()
	timeline, repos := newTimeline(t)
	session, err := timeline.StartSession(ctx)
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 9; i++ {
		require.NoError(t, repos.ChatRepository.AppendMessage(ctx, &models.ChatMessage{
			ChatSessionID: session.ID,
			Role:          enum.ChatRoleUser,
			Content:       string(rune('a' + i)),
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Act
	window, err := timeline.RecentWindow(ctx, session.ID)
	require.NoError(t, err)
	history, err := timeline.History(ctx, session.ID)
	require.NoError(t, err)

	// Assert
	require.Len(t, window, RecentWindowSize)
	assert.Equal(t, "d", window[0].Content)
	assert.Equal(t, "i", window[5].Content)
	assert.Equal(t, enum.ChatRoleUser, window[0].Role)
	assert.Len(t, history, 9)
}

func TestChatTimeline_GetSessionNotFound(t *testing.T) {
	timeline, _ := newTimeline(t)

	_, err := timeline.GetSession(context.Background(), "missing")

	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestChatTimeline_AppendToRfp(t *testing.T) {
	// Arrange
	ctx := context.Background()
	timeline, repos := newTimeline(t)
	session, err := timeline.StartSession(ctx)
	require.NoError(t, err)
	rfp := &models.RFP{Title: "Chairs", Description: "40 office chairs"}
	require.NoError(t, repos.RfpRepository.CreateForSession(ctx, session.ID, rfp))

	// Act
	message, err := timeline.AppendToRfp(ctx, rfp.ID, enum.ChatRoleSystem, "Got reply from: Acme")
	require.NoError(t, err)
	orphan, err := timeline.AppendToRfp(ctx, "no-such-rfp", enum.ChatRoleSystem, "ignored")
	require.NoError(t, err)

	// Assert
	require.NotNil(t, message)
	assert.Equal(t, session.ID, message.ChatSessionID)
	assert.False(t, message.IsRfp)
	assert.Nil(t, orphan)

	history, err := timeline.History(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, enum.ChatRoleSystem, history[0].Role)
}

func TestChatTimeline_ListSessions(t *testing.T) {
	ctx := context.Background()
	timeline, _ := newTimeline(t)
	_, err := timeline.StartSession(ctx)
	require.NoError(t, err)
	_, err = timeline.StartSession(ctx)
	require.NoError(t, err)

	sessions, err := timeline.ListSessions(ctx)

	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
