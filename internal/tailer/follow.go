// Package tailer reads lines appended to the game client log.
//
// Poller tracks a byte offset and is driven by the caller on a fixed
// interval. Follower wraps nxadm/tail and pushes lines as filesystem
// notifications arrive.
package tailer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nxadm/tail"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// errBuffer is how many follow errors are queued before new ones are dropped.
const errBuffer = 16

// FollowOptions controls a Follower. The zero value follows from the
// current end of the file and waits for the file to appear.
type FollowOptions struct {
	// FromStart delivers the existing content before new lines.
	FromStart bool

	// MustExist makes Follow fail when the file is missing.
	MustExist bool

	// Poll stats the file periodically instead of using inotify. Useful on
	// network shares where notifications are not delivered.
	Poll bool
}

// Follower delivers lines appended to a file. The client log is rotated by
// the game on restart, so the file is always reopened when it is replaced
// or truncated.
type Follower struct {
	tail   *tail.Tail
	cancel context.CancelFunc
	lines  chan string
	errs   chan error
	done   chan struct{}

	dropped  atomic.Int64
	stopOnce sync.Once
	stopErr  error
}

// Follow starts following path. Lines stop when ctx is done or Stop is
// called; either way Stop must be called to release the file watch.
func Follow(ctx context.Context, path string, opts FollowOptions) (*Follower, error) {
	whence := io.SeekEnd
	if opts.FromStart {
		whence = io.SeekStart
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		Poll:      opts.Poll,
		MustExist: opts.MustExist,
		Location:  &tail.SeekInfo{Whence: whence},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("following %s: %w", path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	f := &Follower{
		tail:   t,
		cancel: cancel,
		lines:  make(chan string),
		errs:   make(chan error, errBuffer),
		done:   make(chan struct{}),
	}
	go f.pump(ctx)
	return f, nil
}

// Lines returns the channel of cleaned, non-empty lines. It is closed when
// the follower stops.
func (f *Follower) Lines() <-chan string {
	return f.lines
}

// Errors returns read errors. When nobody drains it, errors beyond the
// buffer are counted by DroppedErrors and discarded.
func (f *Follower) Errors() <-chan error {
	return f.errs
}

// DroppedErrors returns how many errors were discarded because the error
// channel was full.
func (f *Follower) DroppedErrors() int64 {
	return f.dropped.Load()
}

// Stop ends following and waits for the delivery goroutine. Safe to call
// multiple times; later calls return the first result.
func (f *Follower) Stop() error {
	f.stopOnce.Do(func() {
		f.cancel()
		<-f.done
		f.stopErr = f.tail.Stop()
		f.tail.Cleanup()
	})
	return f.stopErr
}

func (f *Follower) pump(ctx context.Context) {
	defer close(f.done)
	defer close(f.lines)
	defer close(f.errs)

	for {
		var line *tail.Line
		var ok bool
		select {
		case <-ctx.Done():
			return
		case line, ok = <-f.tail.Lines:
			if !ok {
				return
			}
		}

		if line.Err != nil {
			f.report(line.Err)
			continue
		}

		text := cleanLine(line.Text)
		if text == "" {
			continue
		}
		select {
		case f.lines <- text:
		case <-ctx.Done():
			return
		}
	}
}

func (f *Follower) report(err error) {
	select {
	case f.errs <- fmt.Errorf("tail: %w", err):
	default:
		f.dropped.Add(1)
	}
}

// cleanLine strips a CR terminator and a leading BOM and replaces invalid
// UTF-8 with U+FFFD, matching what Poller produces.
func cleanLine(s string) string {
	s = strings.TrimSuffix(s, "\r")
	s, _, err := transform.String(unicode.UTF8.NewDecoder(), s)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(s, "\uFEFF")
}
