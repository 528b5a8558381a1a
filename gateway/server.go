package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/config"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	logger "github.com/EasterCompany/dex-assistant-service/log"
	"github.com/EasterCompany/dex-assistant-service/reading"
	"github.com/EasterCompany/dex-assistant-service/tools"
	"github.com/EasterCompany/dex-assistant-service/utils"
	"github.com/EasterCompany/dex-assistant-service/worker"
)

// Server accepts WebSocket clients and routes their events to the assistant
// pipeline. One reading session is held per connected client and torn down
// when the client disconnects.
type Server struct {
	Addr      string
	Logger    logger.Logger
	Reading   *reading.Manager
	Augmenter *tools.Augmenter
	Provider  interfaces.ChatProvider
	STT       interfaces.SpeechToText
	TTS       interfaces.Synthesizer
	Pool      *worker.Pool
	DB        cache.Cache
	Voice     string
	AudioTTL  time.Duration

	upgrader websocket.Upgrader
	clients  sync.Map
	handlers map[string]func(*Client, Envelope)
	httpSrv  *http.Server
}

// Deps carries everything the gateway needs to serve clients.
type Deps struct {
	Config    *config.AssistantConfig
	Logger    logger.Logger
	Reading   *reading.Manager
	Augmenter *tools.Augmenter
	Provider  interfaces.ChatProvider
	STT       interfaces.SpeechToText
	TTS       interfaces.Synthesizer
	Pool      *worker.Pool
	DB        cache.Cache
}

// NewServer wires a gateway server from its dependencies.
func NewServer(d Deps) *Server {
	s := &Server{
		Addr:      d.Config.GatewayAddr,
		Logger:    d.Logger,
		Reading:   d.Reading,
		Augmenter: d.Augmenter,
		Provider:  d.Provider,
		STT:       d.STT,
		TTS:       d.TTS,
		Pool:      d.Pool,
		DB:        d.DB,
		Voice:     d.Config.TTSVoice,
		AudioTTL:  time.Duration(d.Config.AudioTTLMinutes) * time.Minute,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The gateway binds to loopback; browser origin checks do not
			// apply to the desktop clients it serves.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.handlers = map[string]func(*Client, Envelope){
		EventChat:         s.handleChat,
		EventAudio:        s.handleAudio,
		EventReadStart:    s.handleReadStart,
		EventReadPlay:     s.handleReadPlay,
		EventReadPause:    s.handleReadPause,
		EventReadStop:     s.handleReadStop,
		EventReadNext:     s.handleReadNext,
		EventReadPrev:     s.handleReadPrev,
		EventReadSeek:     s.handleReadSeek,
		EventReadProgress: s.handleReadProgress,
		EventReadEnd:      s.handleReadEnd,
		EventChunkDone:    s.handleChunkDone,
	}
	return s
}

// Start begins listening for WebSocket connections. It blocks until the
// listener fails or Shutdown is called.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	s.httpSrv = &http.Server{Addr: s.Addr, Handler: mux}
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not serve gateway on %s: %w", s.Addr, err)
	}
	return nil
}

// Shutdown stops the listener and closes every connected client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.clients.Range(func(_, value any) bool {
		if c, ok := value.(*Client); ok {
			c.conn.Close()
		}
		return true
	})
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ClientCount reports the number of connected clients.
func (s *Server) ClientCount() int {
	count := 0
	s.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Error("upgrading gateway connection", err)
		return
	}

	client := newClient(uuid.NewString(), conn, s)
	s.clients.Store(client.ID, client)
	s.Logger.Post(fmt.Sprintf("Gateway client connected: `%s`", client.ID))

	go client.writePump()
	client.Send(mustEnvelope(EventReady, ReadyPayload{ClientID: client.ID}))
	client.readPump()
}

// disconnect tears down a client: the reading session is destroyed and its
// chat history is left in the cache.
func (s *Server) disconnect(c *Client) {
	if _, loaded := s.clients.LoadAndDelete(c.ID); !loaded {
		return
	}
	close(c.done)
	c.conn.Close()
	s.Reading.Delete(c.ID)
	if s.DB != nil {
		if err := s.DB.DeleteReadingSession(c.ID); err != nil {
			s.Logger.Error(fmt.Sprintf("deleting reading session for %s", c.ID), err)
		}
	}
	s.Logger.Post(fmt.Sprintf("Gateway client disconnected: `%s`", c.ID))
}

// dispatch routes one inbound envelope to its handler. A panicking handler
// must not take the whole connection down, so each event runs behind a
// recover that reports a generic error to the client.
func (s *Server) dispatch(c *Client, env Envelope) {
	utils.IncrementEventsReceived()
	defer func() {
		if r := recover(); r != nil {
			s.Logger.Error(fmt.Sprintf("handler for %q panicked", env.Type), fmt.Errorf("%v", r))
			c.sendError("internal error")
		}
	}()

	handler, ok := s.handlers[env.Type]
	if !ok {
		c.sendError(fmt.Sprintf("unknown event type %q", env.Type))
		return
	}
	handler(c, env)
}
