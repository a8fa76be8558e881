package tailer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(data); err != nil {
		t.Fatal(err)
	}
}

func TestPoller_SeekEndSkipsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	appendFile(t, path, "old line\n")

	p := NewPoller(path)
	if err := p.SeekEnd(); err != nil {
		t.Fatalf("SeekEnd() error = %v", err)
	}
	if p.Offset() != int64(len("old line\n")) {
		t.Errorf("Offset() = %d, want %d", p.Offset(), len("old line\n"))
	}

	res, err := p.Poll()
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if len(res.Lines) != 0 {
		t.Errorf("Poll() lines = %v, want none", res.Lines)
	}

	appendFile(t, path, "new line\r\n\nsecond\n")
	res, err = p.Poll()
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	want := []string{"new line", "second"}
	if !reflect.DeepEqual(res.Lines, want) {
		t.Errorf("Poll() lines = %q, want %q", res.Lines, want)
	}
}

func TestPoller_SeekEndMissingFile(t *testing.T) {
	p := NewPoller(filepath.Join(t.TempDir(), "Client.txt"))
	err := p.SeekEnd()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("SeekEnd() error = %v, want fs.ErrNotExist", err)
	}
	if p.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", p.Offset())
	}

	_, err = p.Poll()
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Poll() error = %v, want fs.ErrNotExist", err)
	}
}

func TestPoller_FileAppearsLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	p := NewPoller(path)
	_ = p.SeekEnd()

	appendFile(t, path, "first\n")
	res, err := p.Poll()
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if !reflect.DeepEqual(res.Lines, []string{"first"}) {
		t.Errorf("Poll() lines = %q, want [first]", res.Lines)
	}
}

func TestPoller_TruncationResetsOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	appendFile(t, path, "aaaaaaaaaaaaaaaaaaaa\nbbbbbbbbbbbbbbbbbbbb\n")

	p := NewPoller(path)
	if err := p.SeekEnd(); err != nil {
		t.Fatal(err)
	}

	// Simulate rotation: the file is replaced by a shorter one.
	if err := os.WriteFile(path, []byte("short\n"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := p.Poll()
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if !res.Truncated {
		t.Error("Poll() Truncated = false, want true")
	}
	if !reflect.DeepEqual(res.Lines, []string{"short"}) {
		t.Errorf("Poll() lines = %q, want [short]", res.Lines)
	}
	if p.Offset() != int64(len("short\n")) {
		t.Errorf("Offset() = %d, want %d", p.Offset(), len("short\n"))
	}
}

func TestPoller_TruncatedToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	appendFile(t, path, "some content\n")

	p := NewPoller(path)
	_ = p.SeekEnd()

	if err := os.Truncate(path, 0); err != nil {
		t.Fatal(err)
	}
	res, err := p.Poll()
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if !res.Truncated {
		t.Error("Poll() Truncated = false, want true")
	}
	if p.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", p.Offset())
	}
}

func TestPoller_IncompleteLineHeldBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	appendFile(t, path, "")

	p := NewPoller(path)
	_ = p.SeekEnd()

	appendFile(t, path, "complete\npart")
	res, err := p.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Lines, []string{"complete"}) {
		t.Errorf("Poll() lines = %q, want [complete]", res.Lines)
	}
	if p.Offset() != int64(len("complete\n")) {
		t.Errorf("Offset() = %d, want %d", p.Offset(), len("complete\n"))
	}

	appendFile(t, path, "ial\n")
	res, err = p.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Lines, []string{"partial"}) {
		t.Errorf("Poll() lines = %q, want [partial]", res.Lines)
	}
}

func TestPoller_InvalidUTF8Replaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	appendFile(t, path, "")

	p := NewPoller(path)
	_ = p.SeekEnd()

	appendFile(t, path, "bad \xff byte\n")
	res, err := p.Poll()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"bad � byte"}
	if !reflect.DeepEqual(res.Lines, want) {
		t.Errorf("Poll() lines = %q, want %q", res.Lines, want)
	}
}

func TestPoller_StripsBOMAtStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Client.txt")
	p := NewPoller(path)
	_ = p.SeekEnd()

	appendFile(t, path, "\xef\xbb\xbffirst\n")
	res, err := p.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Lines, []string{"first"}) {
		t.Errorf("Poll() lines = %q, want [first]", res.Lines)
	}
}
