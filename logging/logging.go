package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gammazero/deque"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var ErrClosed = errors.New("logging service closed")

type Options struct {
	Service       string
	Path          string
	Level         string
	FlushInterval time.Duration
	MaxBuffered   int
	// Sink replaces the file or stdout output when set.
	Sink io.Writer
}

// Service owns a logrus logger whose output is buffered in memory and
// written out either when the flush timer fires or the buffer fills up.
type Service struct {
	logger *log.Logger
	out    *bufferedWriter
	base   *log.Entry
	once   sync.Once
}

func New(opts Options) (*Service, error) {
	level, err := log.ParseLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("unknown logging level %q: %w", opts.Level, err)
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}
	if opts.MaxBuffered <= 0 {
		opts.MaxBuffered = 256
	}

	var sink io.Writer = os.Stdout
	var closer io.Closer
	switch {
	case opts.Sink != nil:
		sink = opts.Sink
	case opts.Path != "":
		lj := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    32, // megabytes
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		}
		sink, closer = lj, lj
	}

	out := &bufferedWriter{
		sink:     sink,
		closer:   closer,
		interval: opts.FlushInterval,
		max:      opts.MaxBuffered,
	}
	logger := log.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&log.TextFormatter{
		PadLevelText:    true,
		DisableColors:   true,
		TimestampFormat: time.DateTime,
	})

	return &Service{
		logger: logger,
		out:    out,
		base:   logger.WithField("service", defaultString(opts.Service, "nightlife")),
	}, nil
}

// Entry returns a logger tagged with the component name.
func (s *Service) Entry(component string) *log.Entry {
	return s.base.WithField("component", component)
}

func (s *Service) Logger() *log.Logger {
	return s.logger
}

// Flush writes every buffered line to the sink.
func (s *Service) Flush() error {
	return s.out.Flush()
}

// Close flushes what is buffered, stops the timer and releases the sink.
// Lines logged after Close are dropped.
func (s *Service) Close() error {
	var err error
	s.once.Do(func() {
		err = s.out.Close()
	})
	return err
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type bufferedWriter struct {
	mu       sync.Mutex
	lines    deque.Deque[[]byte]
	sink     io.Writer
	closer   io.Closer
	interval time.Duration
	max      int
	timer    *time.Timer
	closed   bool
}

func (w *bufferedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, ErrClosed
	}

	line := make([]byte, len(p))
	copy(line, p)
	w.lines.PushBack(line)

	if w.lines.Len() >= w.max {
		return len(p), w.flushLocked()
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.interval, w.onTimer)
	}
	return len(p), nil
}

func (w *bufferedWriter) onTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timer = nil
	if w.closed {
		return
	}
	if err := w.flushLocked(); err != nil {
		fmt.Fprintf(os.Stderr, "logging: flush failed: %v\n", err)
	}
}

func (w *bufferedWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *bufferedWriter) flushLocked() error {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	for w.lines.Len() > 0 {
		if _, err := w.sink.Write(w.lines.Front()); err != nil {
			return err
		}
		w.lines.PopFront()
	}
	return nil
}

func (w *bufferedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	err := w.flushLocked()
	w.closed = true
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (w *bufferedWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines.Len()
}
