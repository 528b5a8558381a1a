package reading

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) (*Manager, *Session) {
	t.Helper()
	m := NewManager(0)
	s, err := m.Create("client-1", "test", "First. Second. Third.", 8)
	require.NoError(t, err)
	require.Len(t, s.Chunks, 3)
	return m, s
}

func TestCreate_InitialState(t *testing.T) {
	_, s := newTestSession(t)

	assert.Equal(t, 0, s.Index)
	assert.Equal(t, StateStopped, s.State)
	assert.Equal(t, "First.", s.Chunks[0].Text)
}

func TestCreate_TextTooLarge(t *testing.T) {
	m := NewManager(100)
	_, err := m.Create("c", "test", strings.Repeat("a", 101), 50)

	assert.ErrorIs(t, err, ErrTextTooLarge)
	_, err = m.Get("c")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCreate_EmptyText(t *testing.T) {
	m := NewManager(0)
	_, err := m.Create("c", "test", "   ", 50)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestCreate_ReplacesExistingSession(t *testing.T) {
	m, s := newTestSession(t)
	require.NoError(t, s.Seek(2))

	fresh, err := m.Create("client-1", "test", "New text here.", 100)
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.Index)

	got, err := m.Get("client-1")
	require.NoError(t, err)
	assert.Same(t, fresh, got)
}

func TestNextPrevious_ClampAtEdges(t *testing.T) {
	_, s := newTestSession(t)

	_, ok := s.Previous()
	assert.False(t, ok, "previous at first chunk returns none")
	assert.Equal(t, 0, s.Index)

	chunk, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, "Second.", chunk.Text)

	_, ok = s.Next()
	require.True(t, ok)
	assert.Equal(t, 2, s.Index)

	_, ok = s.Next()
	assert.False(t, ok, "next at last chunk returns none")
	assert.Equal(t, 2, s.Index, "index must not run past bounds")
}

func TestSeek_OutOfRangeLeavesStateUnchanged(t *testing.T) {
	_, s := newTestSession(t)
	require.NoError(t, s.Seek(1))
	s.SetState(StatePlaying)

	assert.ErrorIs(t, s.Seek(3), ErrIndexOutOfRange)
	assert.ErrorIs(t, s.Seek(-1), ErrIndexOutOfRange)
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, StatePlaying, s.GetState())
}

func TestChunkFinished_AutoAdvance(t *testing.T) {
	_, s := newTestSession(t)
	s.SetState(StatePlaying)

	next, ok, completed := s.ChunkFinished()
	require.True(t, ok)
	assert.False(t, completed)
	assert.Equal(t, "Second.", next.Text)

	_, ok, completed = s.ChunkFinished()
	require.True(t, ok)
	assert.False(t, completed)

	_, ok, completed = s.ChunkFinished()
	assert.False(t, ok)
	assert.True(t, completed, "finishing the last chunk completes the session")
	assert.Equal(t, StateStopped, s.GetState())
}

func TestChunkFinished_IgnoredWhenNotPlaying(t *testing.T) {
	_, s := newTestSession(t)

	_, ok, completed := s.ChunkFinished()
	assert.False(t, ok)
	assert.False(t, completed)
	assert.Equal(t, 0, s.Index)

	s.SetState(StatePaused)
	_, ok, _ = s.ChunkFinished()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Index)
}

func TestStateMachine_PlayPauseResumeStop(t *testing.T) {
	_, s := newTestSession(t)

	s.SetState(StatePlaying)
	assert.Equal(t, StatePlaying, s.GetState())
	s.SetState(StatePaused)
	assert.Equal(t, StatePaused, s.GetState())
	s.SetState(StatePlaying)
	assert.Equal(t, StatePlaying, s.GetState())
	s.SetState(StateStopped)
	assert.Equal(t, StateStopped, s.GetState())
}

func TestProgress(t *testing.T) {
	_, s := newTestSession(t)
	require.NoError(t, s.Seek(1))
	s.SetState(StatePlaying)

	p := s.Progress()
	assert.Equal(t, 1, p.Index)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, "Second.", p.Text)
	assert.Equal(t, StatePlaying, p.State)
	assert.InDelta(t, 66.6, p.Percent, 0.1)
}

func TestDelete(t *testing.T) {
	m, _ := newTestSession(t)
	m.Delete("client-1")

	_, err := m.Get("client-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Count())
}

func TestSnapshot_CopiesFields(t *testing.T) {
	_, s := newTestSession(t)
	s.SetState(StatePlaying)
	require.NoError(t, s.Seek(1))

	snap := s.Snapshot()
	assert.Equal(t, "client-1", snap.ID)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, StatePlaying, snap.State)

	// Later mutations do not leak into the copy.
	_, _, _ = s.ChunkFinished()
	assert.Equal(t, 1, snap.Index)
}

func TestSnapshot_SafeDuringPlayback(t *testing.T) {
	m := NewManager(0)
	s, err := m.Create("c", "test", strings.Repeat("One. ", 200), 8)
	require.NoError(t, err)
	s.SetState(StatePlaying)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, completed := s.ChunkFinished(); completed {
				return
			}
		}
	}()

	for i := 0; i < 100; i++ {
		snap := s.Snapshot()
		_, err := json.Marshal(&snap)
		assert.NoError(t, err)
	}
	<-done
}

func TestRestore(t *testing.T) {
	m := NewManager(0)

	m.Restore(nil)
	m.Restore(&Session{ID: "empty"})
	assert.Equal(t, 0, m.Count(), "empty snapshots are not restored")

	_, s := newTestSession(t)
	s.State = StatePlaying
	s.Index = 99

	m.Restore(s)
	got, err := m.Get("client-1")
	require.NoError(t, err)
	assert.Equal(t, StatePaused, got.State, "restored sessions come back paused")
	assert.Equal(t, 0, got.Index, "invalid snapshot index resets to zero")
}
