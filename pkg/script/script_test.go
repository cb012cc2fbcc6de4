package script

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labforge/synthrig/pkg/steps"
)

func sampleCommands() []steps.Primitive {
	return []steps.Primitive{
		&steps.CmdSetStirRate{Vessel: "reactor", StirSpeed: 250},
		&steps.CmdMove{From: "water_flask", To: "reactor", Volume: 20, MoveSpeed: 40},
		&steps.CmdWait{Duration: 5 * time.Minute},
		&steps.SeparatePhases{
			SeparationVessel: "separator",
			UpperPhaseVessel: "reactor",
			LowerPhaseVessel: "waste1",
			DeadVolumeVessel: "waste1",
		},
		&steps.CmdChillerStop{Vessel: "separator"},
	}
}

func writeSample(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "run.script")
	w, err := NewWriter(path, "run-42")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.AppendAll(sampleCommands()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestScriptRoundTrip(t *testing.T) {
	path := writeSample(t, t.TempDir())

	s, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s.RunID != "run-42" {
		t.Errorf("run id = %q, want run-42", s.RunID)
	}

	want := sampleCommands()
	if len(s.Commands) != len(want) {
		t.Fatalf("got %d commands, want %d", len(s.Commands), len(want))
	}
	for i, cmd := range s.Commands {
		if cmd.Kind() != want[i].Kind() {
			t.Fatalf("command %d kind = %v, want %v", i, cmd.Kind(), want[i].Kind())
		}
	}

	mv := s.Commands[1].(*steps.CmdMove)
	if mv.From != "water_flask" || mv.To != "reactor" || mv.Volume != 20 || mv.MoveSpeed != 40 {
		t.Errorf("move round trip = %+v", mv)
	}
	w := s.Commands[2].(*steps.CmdWait)
	if w.Duration != 5*time.Minute {
		t.Errorf("wait duration = %v, want 5m", w.Duration)
	}
	sp := s.Commands[3].(*steps.SeparatePhases)
	if sp.SeparationVessel != "separator" || sp.UpperPhaseVessel != "reactor" {
		t.Errorf("phase split round trip = %+v", sp)
	}
}

func TestScriptSequenceNumbers(t *testing.T) {
	path := writeSample(t, t.TempDir())

	s, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Entry 0 is the header; commands count from 1.
	if s.Entries[0].Seq != 0 || s.Entries[0].Kind != steps.KindInvalid {
		t.Fatalf("header entry = %+v", s.Entries[0])
	}
	for i := 1; i < len(s.Entries); i++ {
		if s.Entries[i].Seq != uint64(i) {
			t.Fatalf("entry %d seq = %d", i, s.Entries[i].Seq)
		}
	}
}

func TestScriptRejectsCorruption(t *testing.T) {
	path := writeSample(t, t.TempDir())

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	// Flip a payload byte somewhere past the header entry.
	raw[len(raw)/2] ^= 0xff
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err = Read(path)
	if err == nil {
		t.Fatal("corrupted script must not read cleanly")
	}
}

func TestScriptRejectsTruncation(t *testing.T) {
	path := writeSample(t, t.TempDir())

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if err := os.WriteFile(path, raw[:len(raw)-5], 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err = Read(path)
	if err == nil {
		t.Fatal("truncated script must not read cleanly")
	}
}

func TestScriptRejectsMissingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.script")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("headerless script must not read cleanly")
	}
}

func TestScriptStats(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "run.script"), "run-42")
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	if err := w.AppendAll(sampleCommands()); err != nil {
		t.Fatalf("append: %v", err)
	}
	stats := w.Stats()
	if stats.Entries != uint64(len(sampleCommands()))+1 {
		t.Errorf("entries = %d", stats.Entries)
	}
	if stats.BytesRaw == 0 || stats.BytesCompressed == 0 {
		t.Errorf("stats not tracked: %+v", stats)
	}
}

func TestExportJSON(t *testing.T) {
	path := writeSample(t, t.TempDir())
	s, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportJSON(&buf, s); err != nil {
		t.Fatalf("export: %v", err)
	}

	var out struct {
		RunID    string `json:"run_id"`
		Commands []struct {
			Seq  uint64 `json:"seq"`
			Kind string `json:"kind"`
		} `json:"commands"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if out.RunID != "run-42" {
		t.Errorf("run id = %q", out.RunID)
	}
	if len(out.Commands) != len(sampleCommands()) {
		t.Fatalf("exported %d commands, want %d", len(out.Commands), len(sampleCommands()))
	}
	if out.Commands[0].Kind != "CmdSetStirRate" {
		t.Errorf("first kind = %q", out.Commands[0].Kind)
	}
	if !strings.Contains(buf.String(), "water_flask") {
		t.Error("export should carry the command payloads")
	}
}
