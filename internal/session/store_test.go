package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarthisside/annoted/internal/annotation"
	"github.com/omarthisside/annoted/internal/history"
)

const pageURL = "https://example.com/docs/guide"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord() *Record {
	return &Record{
		PageURL: pageURL,
		Commands: []*history.Command{
			history.AddStroke(&annotation.Annotation{
				ID:     "s1",
				Kind:   annotation.KindPen,
				Points: []annotation.Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
				Color:  annotation.ColorGreen,
				Width:  4,
			}),
		},
		Tools: annotation.DefaultToolState(),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(sampleRecord()))

	rec, err := s.Load(pageURL)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, pageURL, rec.PageURL)
	require.Len(t, rec.Commands, 1)
	assert.Equal(t, "s1", rec.Commands[0].Annotation.ID)
	assert.Equal(t, annotation.ColorGreen, rec.Commands[0].Annotation.Color)
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestLoadKeysOnNormalizedURL(t *testing.T) {
	s := openTestStore(t)
	rec := sampleRecord()
	rec.PageURL = pageURL + "?ref=abc#notes"
	require.NoError(t, s.Save(rec))

	got, err := s.Load(pageURL + "#other")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, pageURL, got.PageURL)
}

func TestLoadMissingIsNilNotError(t *testing.T) {
	s := openTestStore(t)
	rec, err := s.Load("https://example.com/never-saved")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(sampleRecord()))

	rec := sampleRecord()
	rec.Commands = append(rec.Commands, history.ClearAll())
	require.NoError(t, s.Save(rec))

	got, err := s.Load(pageURL)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Len(t, got.Commands, 2)
}

func TestCorruptRecordIsDeletedNotFatal(t *testing.T) {
	s := openTestStore(t)
	_, err := s.db.Exec(`INSERT INTO sessions (page_url, payload, updated_at) VALUES (?, ?, ?)`,
		pageURL, "{not json", time.Now())
	require.NoError(t, err)

	rec, err := s.Load(pageURL)
	require.NoError(t, err)
	assert.Nil(t, rec)

	// the poisoned row is gone, not waiting to fail again
	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n))
	assert.Zero(t, n)
}

func TestDeleteAndList(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Save(sampleRecord()))
	other := sampleRecord()
	other.PageURL = "https://example.com/other"
	require.NoError(t, s.Save(other))

	sums, err := s.List()
	require.NoError(t, err)
	assert.Len(t, sums, 2)

	require.NoError(t, s.Delete(pageURL))
	sums, err = s.List()
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, "https://example.com/other", sums[0].PageURL)
}

func TestPruneDropsStaleSessions(t *testing.T) {
	s := openTestStore(t)
	old := sampleRecord()
	old.UpdatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, s.Save(old))
	fresh := sampleRecord()
	fresh.PageURL = "https://example.com/fresh"
	require.NoError(t, s.Save(fresh))

	n, err := s.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := s.Load(pageURL)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDefaultWidth(t *testing.T) {
	s := openTestStore(t)

	_, ok := s.DefaultWidth()
	assert.False(t, ok)

	require.NoError(t, s.SaveDefaultWidth(6))
	w, ok := s.DefaultWidth()
	assert.True(t, ok)
	assert.Equal(t, 6, w)

	require.NoError(t, s.SaveDefaultWidth(2))
	w, _ = s.DefaultWidth()
	assert.Equal(t, 2, w)
}
