package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSlowSubscriber is returned by Send when the stream buffer is full.
	ErrSlowSubscriber = errors.New("realtime: subscriber buffer full")
	// ErrStreamClosed is returned by Send after the stream ended.
	ErrStreamClosed = errors.New("realtime: stream closed")
)

var (
	connectedFrame = []byte("data: {\"type\":\"connected\"}\n\n")
	heartbeatFrame = []byte(":heartbeat\n\n")
)

// FlushWriter is the buffered connection writer a stream pumps into.
type FlushWriter interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Stream is one open server-sent-event connection.
type Stream struct {
	id        string
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	heartbeat time.Duration
}

// NewStream allocates a stream with a bounded frame buffer.
func NewStream(bufferSize int, heartbeat time.Duration) *Stream {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Stream{
		id:        uuid.NewString(),
		frames:    make(chan []byte, bufferSize),
		done:      make(chan struct{}),
		heartbeat: heartbeat,
	}
}

// ID identifies the stream inside a registry.
func (s *Stream) ID() string {
	return s.id
}

// Send queues frame without blocking.
func (s *Stream) Send(frame []byte) error {
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}
	select {
	case s.frames <- frame:
		return nil
	case <-s.done:
		return ErrStreamClosed
	default:
		return ErrSlowSubscriber
	}
}

// Close ends the stream. Safe to call more than once.
func (s *Stream) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Done is closed once the stream has ended.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Run writes the connected frame, then queued frames and heartbeats until ctx is
// cancelled, the stream is closed or a write fails.
func (s *Stream) Run(ctx context.Context, w FlushWriter) error {
	defer s.Close()

	if err := writeFrame(w, connectedFrame); err != nil {
		return err
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case frame := <-s.frames:
			if err := writeFrame(w, frame); err != nil {
				return err
			}
		case <-ticker.C:
			if err := writeFrame(w, heartbeatFrame); err != nil {
				return err
			}
		}
	}
}

func writeFrame(w FlushWriter, frame []byte) error {
	if _, err := w.Write(frame); err != nil {
		return err
	}
	return w.Flush()
}
