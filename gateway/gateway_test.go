package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	logger "github.com/EasterCompany/dex-assistant-service/log"
	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/EasterCompany/dex-assistant-service/worker"
)

type fakeProvider struct {
	reply string
	got   []interfaces.Message
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, messages []interfaces.Message) (string, error) {
	f.got = messages
	return f.reply, nil
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return []byte("audio:" + text), nil
}

func newTestServer(t *testing.T, provider interfaces.ChatProvider, tts interfaces.Synthesizer) (*Server, *websocket.Conn, func()) {
	t.Helper()

	pool := worker.New(1, 8)
	pool.Start()

	srv := NewServer(Deps{
		Config:   &config.AssistantConfig{GatewayAddr: "127.0.0.1:0", TTSVoice: "en_1"},
		Logger:   logger.NewConsole(),
		Reading:  reading.NewManager(0),
		Provider: provider,
		TTS:      tts,
		Pool:     pool,
	})

	httpSrv := httptest.NewServer(http.HandlerFunc(srv.serveWS))
	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		httpSrv.Close()
		pool.Stop()
	}
	return srv, conn, cleanup
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Envelope{Type: eventType, Data: data}))
}

// readUntil skips interleaved events (audio arrives asynchronously) until it
// sees the wanted type.
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var env Envelope
		require.NoError(t, conn.ReadJSON(&env), "waiting for %s", eventType)
		if env.Type == eventType {
			return env
		}
	}
}

func TestConnectSendsReady(t *testing.T) {
	_, conn, cleanup := newTestServer(t, &fakeProvider{reply: "hi"}, nil)
	defer cleanup()

	env := readUntil(t, conn, EventReady)
	var ready ReadyPayload
	require.NoError(t, json.Unmarshal(env.Data, &ready))
	assert.NotEmpty(t, ready.ClientID)
}

func TestChatRoundTrip(t *testing.T) {
	provider := &fakeProvider{reply: "pong"}
	_, conn, cleanup := newTestServer(t, provider, nil)
	defer cleanup()
	readUntil(t, conn, EventReady)

	send(t, conn, EventChat, ChatRequest{Text: "ping"})

	env := readUntil(t, conn, EventChatResponse)
	var resp ChatPayload
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "pong", resp.Text)
	require.NotEmpty(t, provider.got)
	assert.Equal(t, "ping", provider.got[len(provider.got)-1].Content)
}

func TestChatEmptyMessage(t *testing.T) {
	_, conn, cleanup := newTestServer(t, &fakeProvider{reply: "x"}, nil)
	defer cleanup()
	readUntil(t, conn, EventReady)

	send(t, conn, EventChat, ChatRequest{Text: "   "})

	env := readUntil(t, conn, EventError)
	var perr ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &perr))
	assert.Equal(t, "empty message", perr.Message)
}

func TestUnknownEventType(t *testing.T) {
	_, conn, cleanup := newTestServer(t, &fakeProvider{}, nil)
	defer cleanup()
	readUntil(t, conn, EventReady)

	send(t, conn, "bogus", struct{}{})

	env := readUntil(t, conn, EventError)
	var perr ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &perr))
	assert.Contains(t, perr.Message, "bogus")
}

func TestReadingFlow(t *testing.T) {
	_, conn, cleanup := newTestServer(t, &fakeProvider{}, fakeSynth{})
	defer cleanup()
	readUntil(t, conn, EventReady)

	send(t, conn, EventReadStart, ReadStartRequest{
		Text:         "First. Second. Third.",
		Source:       "test",
		MaxChunkSize: 8,
	})

	env := readUntil(t, conn, EventReadProgress)
	var progress reading.Progress
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.Equal(t, 3, progress.Total)
	assert.Equal(t, reading.StateStopped, progress.State)

	send(t, conn, EventReadPlay, struct{}{})

	env = readUntil(t, conn, EventReadChunk)
	var chunk ChunkPayload
	require.NoError(t, json.Unmarshal(env.Data, &chunk))
	assert.Equal(t, 0, chunk.Index)
	assert.Equal(t, "First.", chunk.Text)

	env = readUntil(t, conn, EventReadAudio)
	var audio AudioPayload
	require.NoError(t, json.Unmarshal(env.Data, &audio))
	assert.Equal(t, []byte("audio:First."), audio.Audio)

	// chunk_done advances while playing
	send(t, conn, EventChunkDone, struct{}{})
	env = readUntil(t, conn, EventReadChunk)
	require.NoError(t, json.Unmarshal(env.Data, &chunk))
	assert.Equal(t, 1, chunk.Index)
	assert.Equal(t, "Second.", chunk.Text)

	send(t, conn, EventChunkDone, struct{}{})
	readUntil(t, conn, EventReadChunk)

	// finishing the last chunk completes the session
	send(t, conn, EventChunkDone, struct{}{})
	env = readUntil(t, conn, EventReadComplete)
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.Equal(t, reading.StateStopped, progress.State)
}

func TestChunkDoneIgnoredWhenPaused(t *testing.T) {
	srv, conn, cleanup := newTestServer(t, &fakeProvider{}, nil)
	defer cleanup()
	ready := readUntil(t, conn, EventReady)
	var rp ReadyPayload
	require.NoError(t, json.Unmarshal(ready.Data, &rp))

	send(t, conn, EventReadStart, ReadStartRequest{Text: "First. Second.", MaxChunkSize: 8})
	readUntil(t, conn, EventReadProgress)

	send(t, conn, EventReadPlay, struct{}{})
	readUntil(t, conn, EventReadChunk)
	send(t, conn, EventReadPause, struct{}{})
	readUntil(t, conn, EventReadProgress)

	send(t, conn, EventChunkDone, struct{}{})
	send(t, conn, EventReadProgress, struct{}{})
	env := readUntil(t, conn, EventReadProgress)
	var progress reading.Progress
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.Equal(t, 0, progress.Index)
	assert.Equal(t, reading.StatePaused, progress.State)

	session, err := srv.Reading.Get(rp.ClientID)
	require.NoError(t, err)
	assert.Equal(t, reading.StatePaused, session.GetState())
}

func TestSeekOutOfRange(t *testing.T) {
	_, conn, cleanup := newTestServer(t, &fakeProvider{}, nil)
	defer cleanup()
	readUntil(t, conn, EventReady)

	send(t, conn, EventReadStart, ReadStartRequest{Text: "First. Second.", MaxChunkSize: 8})
	readUntil(t, conn, EventReadProgress)

	send(t, conn, EventReadSeek, SeekRequest{Index: 99})
	env := readUntil(t, conn, EventError)
	var perr ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &perr))
	assert.Contains(t, perr.Message, "out of range")
}

func TestControlWithoutSession(t *testing.T) {
	_, conn, cleanup := newTestServer(t, &fakeProvider{}, nil)
	defer cleanup()
	readUntil(t, conn, EventReady)

	send(t, conn, EventReadPlay, struct{}{})
	env := readUntil(t, conn, EventError)
	var perr ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &perr))
	assert.Contains(t, perr.Message, "no reading session")
}

func TestDisconnectDestroysSession(t *testing.T) {
	srv, conn, cleanup := newTestServer(t, &fakeProvider{}, nil)
	defer cleanup()
	ready := readUntil(t, conn, EventReady)
	var rp ReadyPayload
	require.NoError(t, json.Unmarshal(ready.Data, &rp))

	send(t, conn, EventReadStart, ReadStartRequest{Text: "First. Second.", MaxChunkSize: 8})
	readUntil(t, conn, EventReadProgress)
	assert.Equal(t, 1, srv.Reading.Count())

	conn.Close()
	assert.Eventually(t, func() bool {
		return srv.Reading.Count() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
