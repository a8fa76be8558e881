package tailer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func appendTo(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func nextLine(t *testing.T, f *Follower) string {
	t.Helper()
	select {
	case line, ok := <-f.Lines():
		if !ok {
			t.Fatal("Lines channel closed")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for line")
	}
	return ""
}

func TestFollow_NewLines(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "Client.txt")
	appendTo(t, logFile, "")

	f, err := Follow(context.Background(), logFile, FollowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Stop()

	// Give the watch a moment to register
	time.Sleep(100 * time.Millisecond)
	appendTo(t, logFile, "2024/01/15 10:00:02 1 a [INFO Client 1] : You have entered Strand Map.\r\n")

	if got := nextLine(t, f); got != "2024/01/15 10:00:02 1 a [INFO Client 1] : You have entered Strand Map." {
		t.Errorf("got %q, CR should be stripped", got)
	}
}

func TestFollow_SkipsExistingContent(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "Client.txt")
	appendTo(t, logFile, "old1\nold2\n")

	f, err := Follow(context.Background(), logFile, FollowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Stop()

	time.Sleep(100 * time.Millisecond)
	appendTo(t, logFile, "new\n")

	if got := nextLine(t, f); got != "new" {
		t.Errorf("got %q, want %q", got, "new")
	}
}

func TestFollow_FromStart(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "Client.txt")
	appendTo(t, logFile, "\uFEFFexisting1\n\nexisting2\n")

	f, err := Follow(context.Background(), logFile, FollowOptions{FromStart: true})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Stop()

	// The BOM is stripped and the blank line skipped.
	for _, want := range []string{"existing1", "existing2"} {
		if got := nextLine(t, f); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestFollower_StopMultipleTimes(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "Client.txt")
	appendTo(t, logFile, "")

	f, err := Follow(context.Background(), logFile, FollowOptions{})
	if err != nil {
		t.Fatal(err)
	}

	first := f.Stop()
	if second := f.Stop(); second != first {
		t.Errorf("second Stop() = %v, want first result %v", second, first)
	}

	select {
	case _, ok := <-f.Lines():
		if ok {
			t.Error("expected Lines channel to be closed")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for Lines channel to close")
	}
	if n := f.DroppedErrors(); n != 0 {
		t.Errorf("DroppedErrors() = %d, want 0", n)
	}
}

func TestFollow_ContextCancel(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "Client.txt")
	appendTo(t, logFile, "")

	ctx, cancel := context.WithCancel(context.Background())
	f, err := Follow(ctx, logFile, FollowOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer f.Stop()

	cancel()

	select {
	case _, ok := <-f.Lines():
		if ok {
			t.Error("expected Lines channel to be closed after context cancel")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for Lines channel to close")
	}
}

func TestFollow_MustExist(t *testing.T) {
	_, err := Follow(context.Background(), "/nonexistent/path/Client.txt", FollowOptions{MustExist: true})
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestFollow_WaitsForMissingFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "Client.txt")

	f, err := Follow(context.Background(), logFile, FollowOptions{})
	if err != nil {
		t.Fatalf("Follow() error = %v, want nil for missing file", err)
	}
	defer f.Stop()

	time.Sleep(100 * time.Millisecond)
	appendTo(t, logFile, "created\n")

	if got := nextLine(t, f); got != "created" {
		t.Errorf("got %q, want %q", got, "created")
	}
}

func TestCleanLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "You have entered Glacier Map.", "You have entered Glacier Map."},
		{"crlf", "line\r", "line"},
		{"bom", "\uFEFFline", "line"},
		{"invalid utf8", "bad\xffbyte", "bad\uFFFDbyte"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanLine(tt.in); got != tt.want {
				t.Errorf("cleanLine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
