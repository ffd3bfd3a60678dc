package localstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"smart-time-tracker/src/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "tracker.db")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func record(domain string, seconds float64) models.LogRecord {
	return models.LogRecord{
		Domain:    domain,
		StartTime: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		Duration:  seconds,
	}
}

func TestSessionSlot(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	got, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	session := models.Session{Domain: "news.example", StartTime: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, s.SaveSession(ctx, session))

	got, err = s.LoadSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.Domain, got.Domain)
	assert.True(t, session.StartTime.Equal(got.StartTime))

	require.NoError(t, s.ClearSession(ctx))
	got, err = s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCommitSession(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, models.Session{Domain: "a.example", StartTime: time.Now()}))
	rec := record("a.example", 3)
	require.NoError(t, s.CommitSession(ctx, &rec))

	got, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Discarding commits clear the slot without queueing.
	require.NoError(t, s.SaveSession(ctx, models.Session{Domain: "b.example", StartTime: time.Now()}))
	require.NoError(t, s.CommitSession(ctx, nil))
	n, err = s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCommitSession_InvalidRecordKeepsSlot(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, models.Session{Domain: "a.example", StartTime: time.Now()}))
	bad := record("", 3)
	err := s.CommitSession(ctx, &bad)
	assert.ErrorIs(t, err, models.ErrValidation)

	got, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestQueue_SnapshotAndClearThrough(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, record("a.example", 1.5)))
	require.NoError(t, s.Append(ctx, record("b.example", 42)))

	batch, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)
	assert.Equal(t, "a.example", batch.Records[0].Domain)
	assert.Equal(t, 1.5, batch.Records[0].Duration)
	assert.Equal(t, "b.example", batch.Records[1].Domain)
	assert.True(t, batch.Records[1].StartTime.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)))

	// Appended while the snapshot is in flight.
	require.NoError(t, s.Append(ctx, record("c.example", 7)))

	cleared, err := s.ClearThrough(ctx, batch.Through)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	rest, err := s.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, rest.Records, 1)
	assert.Equal(t, "c.example", rest.Records[0].Domain)
}

func TestQueue_EmptySnapshot(t *testing.T) {
	s, _ := openTemp(t)

	batch, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batch.Records)
	assert.Zero(t, batch.Through)
}

func TestQueue_RejectsInvalidRecords(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Append(ctx, record("", 5)), models.ErrValidation)
	assert.ErrorIs(t, s.Append(ctx, record("a.example", 0)), models.ErrValidation)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestState_SurvivesReopen(t *testing.T) {
	s, path := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, record("example.com", 42)))
	require.NoError(t, s.SetToken(ctx, " tok "))
	require.NoError(t, s.SaveSession(ctx, models.Session{Domain: "a.example", StartTime: time.Now()}))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	batch, err := reopened.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	assert.Equal(t, "example.com", batch.Records[0].Domain)

	creds, err := reopened.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", creds.Token)

	session, err := reopened.LoadSession(ctx)
	require.NoError(t, err)
	assert.NotNil(t, session)
}

func TestCredentials(t *testing.T) {
	s, _ := openTemp(t)
	ctx := context.Background()

	creds, err := s.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, Credentials{}, creds)

	require.NoError(t, s.SetToken(ctx, "tok"))
	require.NoError(t, s.SetUserID(ctx, "user-aaaaaa"))
	creds, err = s.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, Credentials{Token: "tok", UserID: "user-aaaaaa"}, creds)

	require.NoError(t, s.ClearCredentials(ctx))
	creds, err = s.Credentials(ctx)
	require.NoError(t, err)
	assert.Equal(t, Credentials{}, creds)
}
