// Package worker runs synthesis and transcription jobs on a fixed pool.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/EasterCompany/dex-assistant-service/cache"
	"github.com/EasterCompany/dex-assistant-service/interfaces"
	logger "github.com/EasterCompany/dex-assistant-service/log"
)

// Job is a unit of work processed by the pool.
type Job interface {
	Process()
}

// Pool manages a fixed set of workers and a queue of jobs.
type Pool struct {
	JobQueue   chan Job
	MaxWorkers int
}

// New creates a new Pool.
func New(maxWorkers, queueSize int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		JobQueue:   make(chan Job, queueSize),
		MaxWorkers: maxWorkers,
	}
}

// Start creates and starts the worker goroutines.
func (p *Pool) Start() {
	for i := 1; i <= p.MaxWorkers; i++ {
		go p.worker(i)
	}
}

// Submit adds a job to the queue, dropping it when the queue is full so a
// stalled TTS engine cannot back-pressure the event loop.
func (p *Pool) Submit(job Job) bool {
	select {
	case p.JobQueue <- job:
		return true
	default:
		return false
	}
}

// Stop closes the queue; workers drain what is left and exit.
func (p *Pool) Stop() {
	close(p.JobQueue)
}

// worker continuously processes jobs from the queue.
func (p *Pool) worker(id int) {
	for job := range p.JobQueue {
		job.Process()
	}
}

// SynthesisJob renders one reading chunk as audio and reports completion.
// OnAudio firing is what drives a playing session's auto-advance.
type SynthesisJob struct {
	Ctx        context.Context
	SessionID  string
	ChunkIndex int
	Text       string
	Voice      string
	TTS        interfaces.Synthesizer
	DB         cache.Cache
	AudioTTL   time.Duration
	Logger     logger.Logger
	OnAudio    func(sessionID string, chunkIndex int, audio []byte)
	OnError    func(sessionID string, chunkIndex int, err error)
}

// Process synthesizes the chunk, optionally persists the clip, and hands the
// audio to the delivery callback.
func (j SynthesisJob) Process() {
	audio, err := j.TTS.Synthesize(j.Ctx, j.Text, j.Voice)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error(fmt.Sprintf("synthesizing chunk %d for session %s", j.ChunkIndex, j.SessionID), err)
		}
		if j.OnError != nil {
			j.OnError(j.SessionID, j.ChunkIndex, err)
		}
		return
	}

	if j.DB != nil {
		key := fmt.Sprintf("%s:%d", j.SessionID, j.ChunkIndex)
		if err := j.DB.SaveAudio(key, audio, j.AudioTTL); err != nil && j.Logger != nil {
			j.Logger.Error(fmt.Sprintf("caching audio for session %s chunk %d", j.SessionID, j.ChunkIndex), err)
		}
	}

	if j.OnAudio != nil {
		j.OnAudio(j.SessionID, j.ChunkIndex, audio)
	}
}

// TranscriptionJob converts one client audio clip into text.
type TranscriptionJob struct {
	Ctx          context.Context
	ClientID     string
	Audio        []byte
	STT          interfaces.SpeechToText
	Logger       logger.Logger
	OnTranscript func(clientID, transcript string)
	OnError      func(clientID string, err error)
}

// Process runs the transcription and delivers the final transcript.
func (j TranscriptionJob) Process() {
	transcript, err := j.STT.Transcribe(j.Ctx, j.Audio)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error(fmt.Sprintf("transcribing audio for client %s", j.ClientID), err)
		}
		if j.OnError != nil {
			j.OnError(j.ClientID, err)
		}
		return
	}

	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		if j.OnError != nil {
			j.OnError(j.ClientID, fmt.Errorf("no speech detected"))
		}
		return
	}

	if j.OnTranscript != nil {
		j.OnTranscript(j.ClientID, transcript)
	}
}
