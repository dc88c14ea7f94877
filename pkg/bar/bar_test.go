package bar

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"gitlab.com/tinyland/lab/barpulse/pkg/notify"
	"gitlab.com/tinyland/lab/barpulse/pkg/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recordingSink hands every emitted line to the test.
type recordingSink struct {
	began chan struct{}
	lines chan []Block
	err   error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{began: make(chan struct{}), lines: make(chan []Block, 16)}
}

func (s *recordingSink) Begin() error {
	close(s.began)
	return nil
}

func (s *recordingSink) Emit(blocks []Block) error {
	if s.err != nil {
		return s.err
	}
	s.lines <- blocks
	return nil
}

func blockText(blocks []Block, name string) (string, bool) {
	for _, b := range blocks {
		if b.Name == name {
			return b.FullText, true
		}
	}
	return "", false
}

func waitLine(t *testing.T, s *recordingSink) []Block {
	t.Helper()
	select {
	case l := <-s.lines:
		return l
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an emitted line")
		return nil
	}
}

// --- Blocks ---

func TestBlocksOrder(t *testing.T) {
	snap := state.Snapshot{Title: "vim", Clock: "Mon 01 Jan 12:00", Power: state.NewCharging(85)}

	tests := []struct {
		name string
		opts Options
		load bool
		want []string
	}{
		{"default", Options{}, false, []string{"title", "test", "datetime"}},
		{"power", Options{Power: true}, false, []string{"title", "test", "power", "datetime"}},
		{"load without sample", Options{Load: true}, false, []string{"title", "test", "datetime"}},
		{"everything", Options{Power: true, Load: true}, true, []string{"title", "test", "power", "load", "datetime"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snap
			if tt.load {
				s.Load = state.Load{Load1: 1, MemUsedPct: 2, Initialized: true}
			}
			blocks := Blocks(s, tt.opts)
			var got []string
			for _, b := range blocks {
				got = append(got, b.Name)
				if b.Separator {
					t.Errorf("block %q has separator=true", b.Name)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("names = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlocksFields(t *testing.T) {
	blocks := Blocks(state.Snapshot{Title: "Terminal", Clock: "Mon 01 Jan 12:00"}, Options{})
	title, dt := blocks[0], blocks[len(blocks)-1]
	if title.Align != "left" || title.MinWidth != 1700 {
		t.Errorf("title = %+v, want align=left min_width=1700", title)
	}
	if dt.MinWidth != 100 || dt.Align != "" {
		t.Errorf("datetime = %+v, want min_width=100 and no align", dt)
	}
	if blocks[1].FullText != "⚗" {
		t.Errorf("test block = %q, want ⚗", blocks[1].FullText)
	}
}

func TestPowerText(t *testing.T) {
	tests := []struct {
		p    state.Power
		want string
	}{
		{state.NewCharging(85), "⚡85%"},
		{state.NewDischarging(85), "85%"},
		{state.NewDischarging(0), "0%"},
		{state.NewCharging(100), "⚡100%"},
	}
	for _, tt := range tests {
		if got := PowerText(tt.p); got != tt.want {
			t.Errorf("PowerText(%v) = %q, want %q", tt.p, got, tt.want)
		}
	}
}

func TestLoadText(t *testing.T) {
	got := LoadText(state.Load{Load1: 1.234, MemUsedPct: 45.4})
	if got != "1.23 45%" {
		t.Errorf("LoadText = %q, want %q", got, "1.23 45%")
	}
}

// --- I3bar ---

func TestI3barPreambleExact(t *testing.T) {
	var buf bytes.Buffer
	if err := NewI3bar(&buf).Begin(); err != nil {
		t.Fatal(err)
	}
	want := "{\"version\": 1}\n[\n[]\n"
	if buf.String() != want {
		t.Errorf("preamble = %q, want %q", buf.String(), want)
	}
}

func TestI3barEmitLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewI3bar(&buf)
	blocks := Blocks(state.Snapshot{Title: "Terminal", Clock: "Mon 01 Jan 12:00"}, Options{})
	if err := s.Emit(blocks); err != nil {
		t.Fatal(err)
	}

	want := `,[{"full_text":"Terminal","name":"title","separator":false,"align":"left","min_width":1700},` +
		`{"full_text":"⚗","name":"test","separator":false},` +
		`{"full_text":"Mon 01 Jan 12:00","name":"datetime","separator":false,"min_width":100}]` + "\n"
	if buf.String() != want {
		t.Errorf("line =\n%s\nwant\n%s", buf.String(), want)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(bytes.TrimPrefix(buf.Bytes(), []byte(",")), &decoded); err != nil {
		t.Fatalf("line is not a JSON array: %v", err)
	}
	if len(decoded) != 3 {
		t.Errorf("decoded %d blocks, want 3", len(decoded))
	}
}

func TestI3barNoHTMLEscaping(t *testing.T) {
	var buf bytes.Buffer
	s := NewI3bar(&buf)
	if err := s.Emit(Blocks(state.Snapshot{Title: "<a & b>"}, Options{})); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"full_text":"<a & b>"`) {
		t.Errorf("title was escaped: %s", buf.String())
	}
}

func TestI3barIdenticalSnapshotsIdenticalBytes(t *testing.T) {
	snap := state.Snapshot{Title: "x", Clock: "Tue 02 Jan 09:30", Power: state.NewCharging(7)}
	opts := Options{Power: true}

	var a, b bytes.Buffer
	if err := NewI3bar(&a).Emit(Blocks(snap, opts)); err != nil {
		t.Fatal(err)
	}
	if err := NewI3bar(&b).Emit(Blocks(snap, opts)); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Errorf("lines differ:\n%s\n%s", a.String(), b.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestI3barWriteError(t *testing.T) {
	s := NewI3bar(failingWriter{})
	if err := s.Begin(); err == nil {
		t.Error("Begin on a broken writer should fail")
	}
}

// --- Preview ---

func TestPreviewRender(t *testing.T) {
	p := NewPreview(&bytes.Buffer{})
	out := p.Render(Blocks(state.Snapshot{Title: "Terminal", Clock: "Mon 01 Jan 12:00", Power: state.NewCharging(50)}, Options{Power: true}))
	for _, want := range []string{"Terminal", "⚗", "⚡50%", "Mon 01 Jan 12:00"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q: %q", want, out)
		}
	}
	if strings.Contains(out, "\n") {
		t.Errorf("Render() should be one line: %q", out)
	}
}

func TestPreviewEmptyTitlePlaceholder(t *testing.T) {
	out := NewPreview(&bytes.Buffer{}).Render(Blocks(state.Snapshot{}, Options{}))
	if !strings.Contains(out, "-") {
		t.Errorf("Render() = %q, want placeholder for empty title", out)
	}
}

func TestPreviewEmitWritesLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPreview(&buf)
	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := p.Emit(Blocks(state.Snapshot{Title: "a"}, Options{})); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("output = %q, want exactly one line", buf.String())
	}
}

// --- Emitter ---

func TestEmitterPreambleOnlyWhenClosedImmediately(t *testing.T) {
	var buf bytes.Buffer
	n := notify.New()
	n.Close()

	if err := NewEmitter(state.New(""), n.C(), NewI3bar(&buf), Options{}, nil).Run(); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
	if buf.String() != Preamble {
		t.Errorf("output = %q, want only the preamble", buf.String())
	}
}

func TestEmitterCoalescesBurst(t *testing.T) {
	var buf bytes.Buffer
	n := notify.New()
	for range 5 {
		n.Notify()
	}
	n.Close()

	e := NewEmitter(state.New("Mon 01 Jan 12:00"), n.C(), NewI3bar(&buf), Options{}, nil)
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 3 preamble + 1 emission:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[3], ",[") {
		t.Errorf("emission = %q, want prefix ,[", lines[3])
	}
	if e.Emitted() != 1 {
		t.Errorf("Emitted() = %d, want 1", e.Emitted())
	}
}

func TestEmitterEndToEnd(t *testing.T) {
	rec := state.New("Sun 31 Dec 23:59")
	n := notify.New()
	sink := newRecordingSink()
	e := NewEmitter(rec, n.C(), sink, Options{}, nil)

	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	rec.SetTitle("Terminal")
	n.Notify()
	first := waitLine(t, sink)
	if got, _ := blockText(first, NameTitle); got != "Terminal" {
		t.Errorf("title = %q, want Terminal", got)
	}

	rec.SetClock("Mon 01 Jan 12:00")
	n.Notify()
	second := waitLine(t, sink)
	if got, _ := blockText(second, NameDatetime); got != "Mon 01 Jan 12:00" {
		t.Errorf("datetime = %q, want Mon 01 Jan 12:00", got)
	}
	if got, _ := blockText(second, NameTitle); got != "Terminal" {
		t.Errorf("title = %q, want it to persist as Terminal", got)
	}

	n.Close()
	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestEmitterNoLinesBeforeFirstSignal(t *testing.T) {
	n := notify.New()
	sink := newRecordingSink()
	done := make(chan error, 1)
	go func() { done <- NewEmitter(state.New(""), n.C(), sink, Options{}, nil).Run() }()

	<-sink.began
	select {
	case l := <-sink.lines:
		t.Fatalf("unexpected line before any signal: %+v", l)
	case <-time.After(50 * time.Millisecond):
	}

	n.Close()
	if err := <-done; err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestEmitterSinkErrorStops(t *testing.T) {
	n := notify.New()
	n.Notify()
	sink := newRecordingSink()
	sink.err = errors.New("stdout closed")

	err := NewEmitter(state.New(""), n.C(), sink, Options{}, nil).Run()
	if !errors.Is(err, sink.err) {
		t.Errorf("Run = %v, want %v", err, sink.err)
	}
	n.Close()
}
