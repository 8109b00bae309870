package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWriterLogIsImmediatelyQueryable(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testLogger())

	e := w.Log("MESSAGE_SENT", ControlAuditAccountability,
		Actor{NodeID: "NODE-ALPHA", Role: "operator"},
		Action{Operation: "send", Resource: "message:abc", Outcome: OutcomeSuccess},
		nil,
	)

	got, ok := w.Get(e.EventID)
	if !ok {
		t.Fatal("expected event to be immediately queryable after Log")
	}
	if got.Hash != e.Hash {
		t.Error("queried event hash mismatch")
	}
}

func TestWriterPersistsToJSONL(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	w.Log("MESSAGE_SENT", ControlAuditAccountability,
		Actor{NodeID: "NODE-ALPHA", Role: "operator"},
		Action{Operation: "send", Resource: "message:abc", Outcome: OutcomeSuccess},
		nil,
	)

	cancel()
	w.Close()

	day := time.Now().UTC().Format("2006-01-02")
	path := filepath.Join(dir, "audit-"+day+".jsonl")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading persisted audit file: %v", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	if !scanner.Scan() {
		t.Fatal("expected at least one line in the persisted audit file")
	}

	var decoded Event
	if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
		t.Fatalf("decoding persisted event: %v, raw=%s", err, scanner.Bytes())
	}
	if decoded.EventType != "MESSAGE_SENT" {
		t.Errorf("persisted EventType = %q, want MESSAGE_SENT", decoded.EventType)
	}
}

func TestWriterStats(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, testLogger())

	w.Log("MESSAGE_SENT", ControlAuditAccountability, Actor{NodeID: "NODE-ALPHA", Role: "operator"}, Action{Operation: "send", Resource: "r", Outcome: OutcomeSuccess}, nil)
	w.Log("MESSAGE_DENIED", ControlAccessControl, Actor{NodeID: "NODE-ALPHA", Role: "operator"}, Action{Operation: "send", Resource: "r", Outcome: OutcomeFailure}, nil)

	st := w.Stats()
	if st.TotalEvents != 2 {
		t.Errorf("TotalEvents = %d, want 2", st.TotalEvents)
	}
}
