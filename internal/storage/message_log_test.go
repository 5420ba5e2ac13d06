package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/fireside/backend/internal/model/chat"
)

func openTestLog(t *testing.T) *MessageLog {
	t.Helper()
	log, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestMessageLogAppendAndRead(t *testing.T) {
	log := openTestLog(t)
	base := time.Now().UTC()

	require.NoError(t, log.Append(chat.Message{
		ID: "m1", ChatID: "chat-1", Role: chat.RoleUser, Content: "hello", CreatedAt: base,
	}))
	require.NoError(t, log.Append(chat.Message{
		ID: "m2", ChatID: "chat-1", Role: chat.RoleAssistant, Content: "hi", CreatedAt: base.Add(time.Second),
	}))
	require.NoError(t, log.Append(chat.Message{
		ID: "m3", ChatID: "chat-2", Role: chat.RoleUser, Content: "other chat", CreatedAt: base,
	}))

	messages, err := log.Messages("chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "m1", messages[0].ID)
	require.Equal(t, "m2", messages[1].ID)
}

func TestMessageLogOrdersByTimestamp(t *testing.T) {
	log := openTestLog(t)
	base := time.Now().UTC()

	// Append newest first, the scan must still come back chronological.
	require.NoError(t, log.Append(chat.Message{
		ID: "late", ChatID: "chat-1", Role: chat.RoleAssistant, Content: "second", CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, log.Append(chat.Message{
		ID: "early", ChatID: "chat-1", Role: chat.RoleUser, Content: "first", CreatedAt: base,
	}))

	messages, err := log.Messages("chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "early", messages[0].ID)
	require.Equal(t, "late", messages[1].ID)
}

func TestMessageLogUnknownChat(t *testing.T) {
	log := openTestLog(t)

	messages, err := log.Messages("missing")
	require.NoError(t, err)
	require.Empty(t, messages)
}

func TestMessageLogSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	first, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, first.Append(chat.Message{
		ID: "m1", ChatID: "chat-1", Role: chat.RoleUser, Content: "hello", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, first.Close())

	second, err := Open(dir)
	require.NoError(t, err)
	defer second.Close()

	messages, err := second.Messages("chat-1")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	require.Equal(t, "hello", messages[0].Content)
}
