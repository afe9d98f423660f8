package logx

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewInDirWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closer, err := NewInDir(dir, "run.log")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Printf("stage=%s", "narration")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "stage=narration") {
		t.Fatalf("unexpected log contents %q", data)
	}
}

func TestPrefixed(t *testing.T) {
	var buf bytes.Buffer
	base := log.New(&buf, "", 0)
	Prefixed(base, "[render] ").Printf("segment %03d", 2)
	if got := strings.TrimSpace(buf.String()); got != "[render] segment 002" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestOrDiscardNil(t *testing.T) {
	OrDiscard(nil).Printf("ignored %d", 1)
}
