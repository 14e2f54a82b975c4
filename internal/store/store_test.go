package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/large-farva/bfrb-sense/internal/config"
)

func entryAt(ts string, duration string) Entry {
	return Entry{
		Behaviour: "Nail Biting",
		Location:  "Home",
		Mood:      "Anxious",
		Timestamp: ts,
		Duration:  duration,
		Date:      ts[:10],
	}
}

func TestNewKey(t *testing.T) {
	id1, k1 := NewKey("ada")
	_, k2 := NewKey("ada")
	assert.Equal(t, "users/ada/behaviors/"+id1, k1)
	assert.True(t, strings.HasPrefix(k2, "users/ada/behaviors/"))
	assert.NotEqual(t, k1, k2)
}

func TestDurationSeconds(t *testing.T) {
	cases := map[string]int{"1": 60, "15": 900, "00:01:30": 90, "01:00:00": 3600}
	for in, want := range cases {
		got, ok := DurationSeconds(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "abc", "1:2", "-3"} {
		_, ok := DurationSeconds(bad)
		assert.False(t, ok, bad)
	}
	assert.Equal(t, "01:02:03", FormatSeconds(3723))
}

func TestDateOf(t *testing.T) {
	assert.Equal(t, "2024-03-09", DateOf(time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)))
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "users/ada/behaviors/2", entryAt("2024-01-01T10:00:00.000Z", "2")))
	require.NoError(t, s.Put(ctx, "users/ada/behaviors/1", entryAt("2024-01-01T09:00:00.000Z", "1")))
	require.NoError(t, s.Put(ctx, "users/ada/behaviors/3", entryAt("2024-01-02T09:00:00.000Z", "1")))
	require.NoError(t, s.Put(ctx, "users/bob/behaviors/1", entryAt("2024-01-01T09:00:00.000Z", "1")))

	recs, err := s.List(ctx, UserPrefix("ada"), "2024-01-01")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "users/ada/behaviors/1", recs[0].Key)
	assert.Equal(t, "users/ada/behaviors/2", recs[1].Key)

	all, err := s.List(ctx, UserPrefix("ada"), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	e, err := s.Get(ctx, "users/bob/behaviors/1")
	require.NoError(t, err)
	assert.Equal(t, "Home", e.Location)

	_, err = s.Get(ctx, "users/bob/behaviors/404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFileStoreReplays(t *testing.T) {
	root := t.TempDir()
	s, err := OpenFile(root)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close())

	reopened, err := OpenFile(root)
	require.NoError(t, err)
	defer reopened.Close()

	recs, err := reopened.List(context.Background(), UserPrefix("ada"), "")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
	assert.Equal(t, root, reopened.Root())
}

func TestFileStoreRejectsCorruptLog(t *testing.T) {
	root := t.TempDir()
	s, err := OpenFile(root)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, os.WriteFile(s.Path, []byte("{not json\n"), 0o644))
	_, err = OpenFile(root)
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	s, err := New(config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New(config.StoreConfig{Driver: "file", Root: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)
	_ = s.Close()

	_, err = New(config.StoreConfig{Driver: "sql"})
	assert.Error(t, err)
}

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "bfrb.behaviors.ada", SubjectFor("bfrb.behaviors", "users/ada/behaviors/x"))
	assert.Equal(t, "bfrb.behaviors.a_b", SubjectFor("bfrb.behaviors", "users/a.b/behaviors/x"))
	assert.Equal(t, "bfrb.behaviors.unknown", SubjectFor("bfrb.behaviors", "orphan"))
}
