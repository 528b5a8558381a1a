package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	audio []byte
	err   error
}

func (f *fakeSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	return f.audio, f.err
}

type fakeSTT struct {
	transcript string
	err        error
}

func (f *fakeSTT) Transcribe(ctx context.Context, audio []byte) (string, error) {
	return f.transcript, f.err
}

func (f *fakeSTT) StreamingTranscribe(ctx context.Context, r io.Reader, tc chan<- string, ec chan<- error) {
	close(tc)
}

func TestPool_ProcessesJobs(t *testing.T) {
	pool := New(2, 8)
	pool.Start()
	defer pool.Stop()

	var wg sync.WaitGroup
	wg.Add(1)

	job := SynthesisJob{
		Ctx:       context.Background(),
		SessionID: "s1",
		Text:      "Hello.",
		TTS:       &fakeSynth{audio: []byte("wav")},
		OnAudio: func(sessionID string, chunkIndex int, audio []byte) {
			assert.Equal(t, "s1", sessionID)
			assert.Equal(t, []byte("wav"), audio)
			wg.Done()
		},
	}
	require.True(t, pool.Submit(job))

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("synthesis job never completed")
	}
}

func TestPool_SubmitDropsWhenFull(t *testing.T) {
	pool := New(1, 1)
	// Pool not started: the queue holds one job and then overflows.
	require.True(t, pool.Submit(SynthesisJob{}))
	assert.False(t, pool.Submit(SynthesisJob{}))
}

func TestSynthesisJob_ErrorPath(t *testing.T) {
	var gotErr error
	job := SynthesisJob{
		Ctx:       context.Background(),
		SessionID: "s1",
		TTS:       &fakeSynth{err: errors.New("engine offline")},
		OnAudio: func(string, int, []byte) {
			t.Fatal("OnAudio must not fire on error")
		},
		OnError: func(_ string, _ int, err error) { gotErr = err },
	}
	job.Process()
	assert.ErrorContains(t, gotErr, "engine offline")
}

func TestTranscriptionJob(t *testing.T) {
	var got string
	job := TranscriptionJob{
		Ctx:      context.Background(),
		ClientID: "c1",
		Audio:    []byte("opus"),
		STT:      &fakeSTT{transcript: "  hello world  "},
		OnTranscript: func(_, transcript string) {
			got = transcript
		},
	}
	job.Process()
	assert.Equal(t, "hello world", got)
}

func TestTranscriptionJob_EmptyTranscript(t *testing.T) {
	var gotErr error
	job := TranscriptionJob{
		Ctx:      context.Background(),
		ClientID: "c1",
		STT:      &fakeSTT{transcript: "   "},
		OnTranscript: func(string, string) {
			t.Fatal("empty transcripts must not be delivered")
		},
		OnError: func(_ string, err error) { gotErr = err },
	}
	job.Process()
	assert.ErrorContains(t, gotErr, "no speech")
}
