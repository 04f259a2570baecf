package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"go.uber.org/multierr"

	"github.com/valpere/doctran/internal/document"
	"github.com/valpere/doctran/internal/orchestrator"
	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
)

type mockTranslator struct {
	mu            sync.Mutex
	reqs          []translator.Request
	translateFunc func(req translator.Request) (string, error)
}

func (m *mockTranslator) TranslateOne(_ context.Context, req translator.Request) (string, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	if m.translateFunc != nil {
		return m.translateFunc(req)
	}
	return strings.ToUpper(req.Text), nil
}

func (m *mockTranslator) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestService_TranslateRecordsAndCaches(t *testing.T) {
	st := newTestStore(t)
	m := &mockTranslator{}
	svc := New(m, Options{Backend: "mock", ChunkSize: 11, Store: st})
	ctx := context.Background()
	in := Input{Text: "hello there world", SourceLang: "en", TargetLang: "uk"}

	out, err := svc.Translate(ctx, in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Cached || out.Text != "HELLO THERE WORLD" || out.Chunks != 2 {
		t.Errorf("unexpected outcome %+v / %+v", out, out.JobResult)
	}
	calls := m.calls()

	job, chunks, err := st.GetJob(ctx, out.ID)
	if err != nil {
		t.Fatalf("job not recorded: %v", err)
	}
	if job.Status != store.StatusCompleted || job.Backend != "mock" || job.SourceChars != 17 || len(chunks) != 2 {
		t.Errorf("unexpected history %+v %+v", job, chunks)
	}
	if chunks[0].Source != "hello there" || chunks[0].Translation != "HELLO THERE" {
		t.Errorf("unexpected chunk record %+v", chunks[0])
	}

	again, err := svc.Translate(ctx, in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !again.Cached || again.Text != out.Text {
		t.Errorf("expected memory hit, got %+v", again)
	}
	if m.calls() != calls {
		t.Error("a memory hit must not call the backend")
	}

	in.NoCache = true
	if fresh, _ := svc.Translate(ctx, in, nil); fresh.Cached {
		t.Error("NoCache must bypass memory")
	}
}

func TestService_PartialFailureIsNotCached(t *testing.T) {
	st := newTestStore(t)
	m := &mockTranslator{translateFunc: func(req translator.Request) (string, error) {
		if req.Text == "bad" {
			return "", translator.NewError(translator.KindNetwork, "mock", errors.New("down"))
		}
		return req.Text, nil
	}}
	svc := New(m, Options{ChunkSize: 4, Store: st})

	out, err := svc.Translate(context.Background(), Input{Text: "good bad", SourceLang: "en", TargetLang: "de"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Failed != 1 || !strings.Contains(out.Text, "[TRANSLATION ERROR:") {
		t.Errorf("unexpected outcome %+v", out.JobResult)
	}
	stats, _ := st.MemoryStats(context.Background())
	if stats.TotalEntries != 0 {
		t.Error("results with failed chunks must not enter the memory")
	}
}

func TestService_FailedJobRecorded(t *testing.T) {
	st := newTestStore(t)
	m := &mockTranslator{translateFunc: func(translator.Request) (string, error) {
		return "", translator.NewError(translator.KindAuth, "mock", errors.New("bad key"))
	}}
	svc := New(m, Options{ChunkSize: 6, Store: st})

	out, err := svc.Translate(context.Background(), Input{Text: "hello world", SourceLang: "en", TargetLang: "uk"}, nil)
	if translator.KindOf(err) != translator.KindEmpty {
		t.Fatalf("expected all-chunks-failed error, got %v", err)
	}
	if !IsFatal(err) {
		t.Errorf("auth errors inside the job error should be fatal: %v", err)
	}
	job, _, gerr := st.GetJob(context.Background(), out.ID)
	if gerr != nil {
		t.Fatalf("failed job not recorded: %v", gerr)
	}
	if job.Status != store.StatusFailed || !strings.Contains(job.Error, "bad key") {
		t.Errorf("unexpected record %+v", job)
	}
}

func TestService_GlossaryForwarded(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.AddGlossaryTerm(context.Background(), "en", "uk", "chunk", "фрагмент"); err != nil {
		t.Fatal(err)
	}
	m := &mockTranslator{}
	svc := New(m, Options{Store: st})

	if _, err := svc.Translate(context.Background(), Input{Text: "a chunk", SourceLang: "en", TargetLang: "uk", NoCache: true}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.reqs[0].Glossary["chunk"]; got != "фрагмент" {
		t.Errorf("expected glossary term in request, got %v", m.reqs[0].Glossary)
	}
}

func TestService_InvalidLanguages(t *testing.T) {
	svc := New(&mockTranslator{}, Options{})

	if _, err := svc.Translate(context.Background(), Input{Text: "x", TargetLang: "not a tag!"}, nil); err == nil {
		t.Error("expected invalid target language error")
	}
	if _, err := svc.Translate(context.Background(), Input{Text: "x", SourceLang: "??", TargetLang: "uk"}, nil); err == nil {
		t.Error("expected invalid source language error")
	}
}

func TestService_AutoWithoutDetector(t *testing.T) {
	m := &mockTranslator{}
	svc := New(m, Options{})

	out, err := svc.Translate(context.Background(), Input{Text: "hola", TargetLang: "en"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SourceLang != "auto" || m.reqs[0].SourceLang != "auto" {
		t.Errorf("expected auto to be passed through, got %q", out.SourceLang)
	}
}

func TestService_EmptyInput(t *testing.T) {
	svc := New(&mockTranslator{}, Options{})
	_, err := svc.Translate(context.Background(), Input{Text: " ", TargetLang: "en"}, nil)
	if !errors.Is(err, orchestrator.ErrNoText) {
		t.Errorf("expected ErrNoText, got %v", err)
	}
}

func TestService_TranslateFromSource(t *testing.T) {
	st := newTestStore(t)
	m := &mockTranslator{}
	svc := New(m, Options{Backend: "mock", ChunkSize: 20, Store: st})

	out, err := svc.Translate(context.Background(), Input{
		Source:     document.FromString("first paragraph\n\n\nsecond one"),
		SourceLang: "en",
		TargetLang: "uk",
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Text != "FIRST PARAGRAPH SECOND ONE" || out.Chunks != 2 {
		t.Errorf("unexpected outcome %+v", out.JobResult)
	}

	// The drained text is what the memory is keyed on.
	cached, ok, err := st.LookupMemory(context.Background(), "first paragraph\n\nsecond one", "en", "uk")
	if err != nil || !ok || cached != out.Text {
		t.Errorf("memory lookup = %q, %v, %v", cached, ok, err)
	}
}

type brokenSource struct{}

func (brokenSource) Segments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if !yield("ok", nil) {
			return
		}
		yield("", errors.New("disk gone"))
	}
}

func TestService_SourceErrorStopsBeforeDispatch(t *testing.T) {
	m := &mockTranslator{}
	svc := New(m, Options{Backend: "mock"})

	out, err := svc.Translate(context.Background(), Input{Source: brokenSource{}, TargetLang: "uk"}, nil)
	if err == nil || !strings.Contains(err.Error(), "disk gone") {
		t.Fatalf("expected source error, got %v", err)
	}
	if out != nil || m.calls() != 0 {
		t.Errorf("nothing should run: outcome %+v, %d calls", out, m.calls())
	}
}

func TestIsFatal(t *testing.T) {
	auth := translator.NewError(translator.KindAuth, "mock", errors.New("bad key"))
	network := translator.NewError(translator.KindNetwork, "mock", errors.New("reset"))

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"auth", auth, true},
		{"wrapped auth", fmt.Errorf("chunk 2: %w", auth), true},
		{"missing key", fmt.Errorf("setup: %w", translator.ErrNoAPIKey), true},
		{"network", network, false},
		{"auth after network in chunk list", multierr.Combine(fmt.Errorf("chunk 0: %w", network), fmt.Errorf("chunk 1: %w", auth)), true},
		{"only network chunks", multierr.Combine(network, network), false},
		{"job error over chunk list", translator.NewError(translator.KindEmpty, "job", fmt.Errorf("all 2 chunks failed: %w", multierr.Combine(network, auth))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestService_SingleAuthChunkCompletesButIsFatal(t *testing.T) {
	m := &mockTranslator{translateFunc: func(translator.Request) (string, error) {
		return "", translator.NewError(translator.KindAuth, "mock", errors.New("bad key"))
	}}
	svc := New(m, Options{Backend: "mock"})

	out, err := svc.Translate(context.Background(), Input{Text: "hello", SourceLang: "en", TargetLang: "uk"}, nil)
	if err != nil {
		t.Fatalf("a single failed chunk is rendered as a marker, got %v", err)
	}
	if out.Failed != 1 || !IsFatal(out.Errors) {
		t.Errorf("expected one fatal chunk error, got %d: %v", out.Failed, out.Errors)
	}
}
