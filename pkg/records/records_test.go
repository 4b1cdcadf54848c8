package records

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/partygpt/pkg/chat"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn, err := DSNForFile(filepath.Join(t.TempDir(), "records.db"))
	require.NoError(t, err)
	s, err := NewSQLiteStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(session string, at time.Time) Record {
	return Record{
		SessionID: session,
		SavedAt:   at,
		Messages: []chat.Message{
			chat.NewMessage(chat.SenderUser, "hi there"),
			chat.NewMessage(chat.SenderAssistant, "hello, how is the party?"),
		},
	}
}

func TestSQLiteStoreSaveListGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	id1, err := s.Save(ctx, sampleRecord("s1", base))
	require.NoError(t, err)
	id2, err := s.Save(ctx, sampleRecord("s2", base.Add(time.Minute)))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "s2", list[0].SessionID)
	require.Equal(t, 2, list[0].MessageCount)

	list, err = s.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, ok, err := s.Get(ctx, id1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "s1", got.SessionID)
	require.True(t, base.Equal(got.SavedAt))
	require.Len(t, got.Messages, 2)
	require.Equal(t, chat.SenderAssistant, got.Messages[1].Sender)

	_, ok, err = s.Get(ctx, 9999)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSQLiteStoreRejectsEmptySession(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save(context.Background(), Record{})
	require.Error(t, err)
	_, err = NewSQLiteStore("")
	require.Error(t, err)
}

func TestWriteYAML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conversations")
	r := sampleRecord("abc/def", time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))

	path, err := WriteYAML(dir, r)
	require.NoError(t, err)
	require.Equal(t, "abc_def.yaml", filepath.Base(path))

	back, err := ReadYAML(path)
	require.NoError(t, err)
	require.Equal(t, "abc/def", back.SessionID)
	require.Len(t, back.Messages, 2)
	require.Equal(t, "hi there", back.Messages[0].Text)
	require.Equal(t, chat.SenderUser, back.Messages[0].Sender)

	_, err = WriteYAML("", r)
	require.Error(t, err)
}

func TestWriteYAMLOverwritesSameSession(t *testing.T) {
	dir := t.TempDir()
	r := sampleRecord("party-1", time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC))
	first, err := WriteYAML(dir, r)
	require.NoError(t, err)

	r.SavedAt = r.SavedAt.Add(time.Minute)
	r.Messages = append(r.Messages, chat.NewMessage(chat.SenderAssistant, "Goodbye!"))
	second, err := WriteYAML(dir, r)
	require.NoError(t, err)
	require.Equal(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	back, err := ReadYAML(second)
	require.NoError(t, err)
	require.Len(t, back.Messages, 3)
}

func TestSQLiteStoreSaveSameSessionReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000)

	r := sampleRecord("s1", base)
	id1, err := s.Save(ctx, r)
	require.NoError(t, err)

	r.SavedAt = base.Add(time.Second)
	r.Messages = append(r.Messages, chat.NewMessage(chat.SenderAssistant, "Goodbye!"))
	id2, err := s.Save(ctx, r)
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, 3, list[0].MessageCount)
	require.True(t, base.Add(time.Second).Equal(list[0].SavedAt))

	got, ok, err := s.Get(ctx, id1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Goodbye!", got.Messages[2].Text)
}
