package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastevin/tastevin/internal/core"
	"github.com/tastevin/tastevin/internal/domain"
)

func frame(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func apply(t *testing.T, r *Reconciler, events ...any) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, r.Apply(frame(t, ev)))
	}
}

func baseSnapshot() core.MessageHistoryEvent {
	return core.MessageHistoryEvent{
		Type: core.EvMessageHistory,
		Snapshot: core.RoomSnapshot{
			SessionID:    "s1",
			HostID:       "host",
			ProductCount: 2,
			CustomTags:   []string{"decant"},
			Users: []core.PresenceDTO{
				{ConnID: "c1", UserID: "host", DisplayName: "Ava"},
				{ConnID: "c2", UserID: "b1", DisplayName: "Bo"},
			},
		},
		Messages: []domain.Message{
			{ID: "m1", Author: domain.UserAuthor("host"), Content: "welcome"},
		},
	}
}

func TestApply_SnapshotReplacesWholesale(t *testing.T) {
	r := New()
	apply(t, r, core.NewMessageEvent{
		Type:    core.EvNewMessage,
		Message: domain.Message{ID: "stale", Content: "from a previous life"},
	})
	apply(t, r, baseSnapshot())

	st := r.Snapshot()
	assert.Equal(t, domain.SessionID("s1"), st.SessionID)
	assert.Equal(t, domain.UserID("host"), st.HostID)
	require.Len(t, st.Messages, 1)
	assert.Equal(t, domain.MessageID("m1"), st.Messages[0].ID, "pre-snapshot state is discarded, not merged")
	assert.Len(t, st.Users, 2)
}

func TestApply_MessageLifecycle(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())
	apply(t, r,
		core.NewMessageEvent{Type: core.EvNewMessage, Message: domain.Message{ID: "m2", Content: "cherry"}},
		core.NewMessageEvent{Type: core.EvNewMessage, Message: domain.Message{ID: "m3", Content: "oak"}},
	)

	st := r.Snapshot()
	require.Len(t, st.Messages, 3)
	assert.Equal(t, domain.MessageID("m2"), st.Messages[1].ID, "arrival order is display order")

	apply(t, r, core.MessageUpdatedEvent{Type: core.EvMessageUpdated, Message: domain.Message{ID: "m2", Content: "sour cherry"}})
	assert.Equal(t, "sour cherry", r.Snapshot().Messages[1].Content)

	apply(t, r, core.MessageDeletedEvent{Type: core.EvMessageDeleted, MessageID: "m3"})
	assert.Len(t, r.Snapshot().Messages, 2)

	// Deleting an id that is already gone is a valid terminal state.
	apply(t, r, core.MessageDeletedEvent{Type: core.EvMessageDeleted, MessageID: "m3"})
	assert.Len(t, r.Snapshot().Messages, 2)
}

func TestApply_BulkErase(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())
	apply(t, r,
		core.NewMessageEvent{Type: core.EvNewMessage, Message: domain.Message{ID: "m2", Author: domain.UserAuthor("b1"), Content: "one"}},
		core.NewMessageEvent{Type: core.EvNewMessage, Message: domain.Message{ID: "m3", Author: domain.UserAuthor("b1"), Content: "two"}},
	)
	apply(t, r, core.MessagesErasedEvent{Type: core.EvMessagesErased, MessageIDs: []domain.MessageID{"m2", "m3"}})

	st := r.Snapshot()
	require.Len(t, st.Messages, 1)
	assert.Equal(t, domain.MessageID("m1"), st.Messages[0].ID)
}

func TestApply_AggregatesComeFromEvents(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())

	v := 80.0
	apply(t, r, core.RatingUpdatedEvent{
		Type:           core.EvRatingUpdated,
		UserID:         "b1",
		Rating:         &v,
		ProductIndex:   0,
		AverageRating:  70,
		AverageRatings: map[int]float64{0: 70},
	})

	st := r.Snapshot()
	// The event's aggregate is authoritative even though 80 is the
	// only rating this client can see.
	assert.InDelta(t, 70.0, st.AverageRatings[0], 1e-9)
	require.NotNil(t, st.Users[1].Ratings[0])
	assert.InDelta(t, 80.0, *st.Users[1].Ratings[0], 1e-9)

	// Clearing drops the entry.
	apply(t, r, core.RatingUpdatedEvent{
		Type:           core.EvRatingUpdated,
		UserID:         "b1",
		Rating:         nil,
		ProductIndex:   0,
		AverageRatings: map[int]float64{},
	})
	assert.NotContains(t, r.Snapshot().Users[1].Ratings, 0)
}

func TestApply_GradeDistribution(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())

	apply(t, r, core.ValueGradeUpdatedEvent{
		Type:          core.EvValueGradeUpdated,
		UserID:        "b1",
		ValueGrade:    domain.GradeGood,
		ProductIndex:  1,
		Distributions: map[int]map[domain.Grade]int{1: {domain.GradeGood: 1}},
	})

	st := r.Snapshot()
	assert.Equal(t, domain.GradeGood, st.Users[1].ValueGrades[1])
	assert.Equal(t, 1, st.GradeDistributions[1][domain.GradeGood])
}

func TestApply_MuteIsLocalFlagOnly(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())
	apply(t, r, core.NewMessageEvent{Type: core.EvNewMessage, Message: domain.Message{ID: "m2", Content: "still here"}})

	apply(t, r, core.SignalEvent{Type: core.EvYouWereMuted})
	st := r.Snapshot()
	assert.True(t, st.Muted)
	assert.Len(t, st.Messages, 2, "muting never removes rendered messages")

	apply(t, r, core.SignalEvent{Type: core.EvYouWereUnmuted})
	assert.False(t, r.Snapshot().Muted)
}

func TestApply_KickDiscardsStateAndDropsFurtherFrames(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())
	apply(t, r, core.YouWereKickedEvent{Type: core.EvYouWereKicked, Message: "you were removed"})

	st := r.Snapshot()
	assert.True(t, st.Kicked)
	assert.Empty(t, st.Messages)
	assert.Empty(t, st.SessionID)

	notices := r.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, "kicked", notices[0].Kind)
	assert.Empty(t, r.Notices(), "notices drain once")

	// Anything after the kick is dropped, including a new snapshot.
	apply(t, r, core.NewMessageEvent{Type: core.EvNewMessage, Message: domain.Message{ID: "m9", Content: "late"}})
	apply(t, r, baseSnapshot())
	st = r.Snapshot()
	assert.True(t, st.Kicked)
	assert.Empty(t, st.Messages)
}

func TestApply_ModerationRoster(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())

	apply(t, r, core.UserMutedEvent{Type: core.EvUserMuted, UserID: "b1", DisplayName: "Bo"})
	apply(t, r, core.UserMutedEvent{Type: core.EvUserMuted, UserID: "b1", DisplayName: "Bo"})
	assert.Len(t, r.Snapshot().MutedUsers, 1, "repeat mute events do not duplicate")

	apply(t, r, core.UserUnmutedEvent{Type: core.EvUserUnmuted, UserID: "b1"})
	assert.Empty(t, r.Snapshot().MutedUsers)

	apply(t, r, core.BannedUsersListEvent{
		Type:        core.EvBannedUsersList,
		MutedUsers:  []domain.ModerationRecord{{UserID: "x", DisplayName: "X"}},
		KickedUsers: []domain.ModerationRecord{{UserID: "y", DisplayName: "Y"}},
	})
	st := r.Snapshot()
	assert.Len(t, st.MutedUsers, 1)
	assert.Len(t, st.KickedUsers, 1)
}

func TestApply_SessionEndAndSummary(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())

	apply(t, r, core.SessionEndedEvent{Type: core.EvSessionEnded, HostName: "Ava", Message: "Ava ended the tasting session"})
	st := r.Snapshot()
	assert.True(t, st.Ended)
	require.Len(t, r.Notices(), 1)

	// A replayed end on rejoin carries wasAlreadyEnded and raises no
	// fresh banner.
	apply(t, r, core.SessionEndedEvent{Type: core.EvSessionEnded, WasAlreadyEnded: true})
	assert.Empty(t, r.Notices())

	apply(t, r, core.SummaryGeneratedEvent{Type: core.EvSummaryGenerated, SummaryID: "sum-1"})
	assert.Equal(t, "sum-1", r.Snapshot().SummaryID)
}

func TestApply_HostTransferAndRoomFields(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())

	apply(t, r, core.HostTransferredEvent{Type: core.EvHostTransferred, NewHostID: "b1", NewHostName: "Bo"})
	assert.Equal(t, domain.UserID("b1"), r.Snapshot().HostID)

	apply(t, r, core.LivestreamUpdatedEvent{Type: core.EvLivestreamUpdated, URL: "https://live.example"})
	assert.Equal(t, "https://live.example", r.Snapshot().LivestreamURL)

	apply(t, r, core.CustomTagsUpdatedEvent{Type: core.EvCustomTagsUpdated, Tags: []string{"decant", "value"}})
	assert.Equal(t, []string{"decant", "value"}, r.Snapshot().CustomTags)
}

func TestApply_ReadyCheckCycle(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())

	apply(t, r, core.SignalEvent{Type: core.EvReadyCheckStarted})
	assert.True(t, r.Snapshot().Ready.IsActive)

	apply(t, r, core.UserReadyEvent{Type: core.EvUserReady, UserID: "b1"})
	apply(t, r, core.UserReadyEvent{Type: core.EvUserReady, UserID: "b1"})
	assert.Len(t, r.Snapshot().Ready.ReadyUsers, 1)

	// The periodic state event is authoritative over accumulated deltas.
	apply(t, r, core.ReadyCheckStateEvent{Type: core.EvReadyCheckState, IsActive: true, ReadyUsers: []domain.UserID{"b1", "host"}})
	assert.Len(t, r.Snapshot().Ready.ReadyUsers, 2)

	apply(t, r, core.SignalEvent{Type: core.EvReadyCheckEnded})
	st := r.Snapshot()
	assert.False(t, st.Ready.IsActive)
	assert.Empty(t, st.Ready.ReadyUsers)
}

func TestApply_UnknownEventIgnored(t *testing.T) {
	r := New()
	apply(t, r, baseSnapshot())
	require.NoError(t, r.Apply([]byte(`{"type":"from_the_future","payload":42}`)))
	assert.Equal(t, domain.SessionID("s1"), r.Snapshot().SessionID)

	err := r.Apply([]byte(`not json`))
	assert.Error(t, err)
}

func TestSpoilerVisibility(t *testing.T) {
	r := New()
	snap := baseSnapshot()
	snap.Messages = []domain.Message{
		{ID: "m1", Phase: "nose", Content: "hidden ||cherry||", Spoilers: domain.ScanSpoilers("hidden ||cherry||")},
		{ID: "m2", Phase: "nose", Content: "also hidden"},
		{ID: "m3", Phase: "finish", Content: "later"},
	}
	apply(t, r, snap)

	// Hidden by default.
	assert.False(t, r.SpoilerVisible(snap.Messages[0]))

	// Phase preference shows everything in that phase.
	r.SetPhaseVisible("nose", true)
	assert.True(t, r.SpoilerVisible(snap.Messages[0]))
	assert.False(t, r.SpoilerVisible(snap.Messages[2]))
	r.SetPhaseVisible("nose", false)

	// A reveal point shows messages at or before it.
	apply(t, r, core.SpoilersRevealedEvent{Type: core.EvSpoilersRevealed, UserID: "host", UpToMessageID: "m2"})
	assert.True(t, r.SpoilerVisible(snap.Messages[0]))
	assert.True(t, r.SpoilerVisible(snap.Messages[1]))
	assert.False(t, r.SpoilerVisible(snap.Messages[2]))
}
