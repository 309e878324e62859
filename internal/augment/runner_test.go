package augment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const breach = "```json\n{\"findings\":[{\"complies\":true,\"message\":\"ok\"},{\"complies\":false,\"message\":\"El título no describe el contenido\",\"snippet\":\"Notas varias\",\"suggestion\":\"Usa un título descriptivo\"}]}\n```"

const compliant = `{"findings":[{"complies":true,"message":"cumple"}]}`

type reply struct {
	out string
	err error
}

// fakeCapability answers from a script; the last reply repeats.
type fakeCapability struct {
	mu      sync.Mutex
	calls   int
	replies []reply
	delay   time.Duration
	block   bool
	prompts []Prompt
}

func (f *fakeCapability) Available() bool { return true }

func (f *fakeCapability) Complete(ctx context.Context, p Prompt, _ Constraints) (string, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, p)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i].out, f.replies[i].err
}

func (f *fakeCapability) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	s.data[key] = value
	return nil
}

func augmentedRule() *lint.Rule {
	return &lint.Rule{
		ID:          "CUN-GS-006",
		Domain:      "GENERALSTRUCTURE",
		Name:        "Coherencia del título",
		Description: "El título debe describir el contenido.",
		Severity:    core.SeverityInfo,
		CheckType:   lint.CheckLLMSemantic,
		Augment:     lint.AugmentConfig{Enabled: true, Mode: "validator", MaxChars: 100},
	}
}

var lctx = core.LintContext{Language: "es", Variant: core.VariantOfficial}

func newDoc() *document.Document {
	return document.New("Notas varias\n\nEl texto trata sobre otra cosa.")
}

func TestRunner_Unavailable(t *testing.T) {
	r := New(Config{})
	_, ok := r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	assert.False(t, ok)
	assert.Equal(t, Stats{Skipped: 1}, r.Stats())

	_, err := r.Complete(context.Background(), "k", Prompt{}, Constraints{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRunner_Breach(t *testing.T) {
	capability := &fakeCapability{replies: []reply{{out: breach}}}
	r := New(Config{Capability: capability})

	f, ok := r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	require.True(t, ok)
	assert.Equal(t, "GENERALSTRUCTURE:CUN-GS-006:llm", f.ID)
	assert.Equal(t, "CUN-GS-006", f.RuleID)
	assert.True(t, f.LLMGenerated())
	assert.Equal(t, core.SeverityInfo, f.Severity)
	assert.Equal(t, "El título no describe el contenido", f.Message)
	assert.Equal(t, "Usa un título descriptivo", f.Suggestion)
	require.NotNil(t, f.Position)
	assert.Equal(t, 0, f.Position.Start)
	assert.Equal(t, 1, f.Position.Line)
	assert.Equal(t, "Notas varias", f.Snippet)

	require.Len(t, capability.prompts, 1)
	assert.Contains(t, capability.prompts[0].System, "JSON_FINDINGS_V1")
	assert.Contains(t, capability.prompts[0].User, "CUN-GS-006")
	assert.Contains(t, capability.prompts[0].User, "Notas varias")
}

func TestRunner_CacheReuse(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		wantOK bool
	}{
		{name: "breach", answer: breach, wantOK: true},
		{name: "compliant", answer: compliant, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capability := &fakeCapability{replies: []reply{{out: tt.answer}}}
			r := New(Config{Capability: capability})

			first, ok1 := r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
			second, ok2 := r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
			assert.Equal(t, tt.wantOK, ok1)
			assert.Equal(t, tt.wantOK, ok2)
			assert.Equal(t, first, second)
			assert.Equal(t, 1, capability.Calls())
			assert.Equal(t, int64(1), r.Stats().CacheHits)
		})
	}
}

func TestRunner_CacheKeyedByVariant(t *testing.T) {
	capability := &fakeCapability{replies: []reply{{out: breach}}}
	r := New(Config{Capability: capability})

	intl := lctx
	intl.Variant = core.VariantInternational
	r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	r.Run(context.Background(), augmentedRule(), newDoc(), intl)
	r.Run(context.Background(), augmentedRule(), document.New("Otro documento"), lctx)
	assert.Equal(t, 3, capability.Calls())
}

func TestRunner_ConcurrentCallsShareOneInvocation(t *testing.T) {
	capability := &fakeCapability{replies: []reply{{out: breach}}, delay: 30 * time.Millisecond}
	r := New(Config{Capability: capability})
	doc := newDoc()

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = r.Run(context.Background(), augmentedRule(), doc, lctx)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, capability.Calls())
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestRunner_Failures(t *testing.T) {
	transport := errors.New("connection reset")
	tests := []struct {
		name      string
		capab     *fakeCapability
		timeout   time.Duration
		wantOK    bool
		wantCalls int
	}{
		{
			name:      "retry succeeds",
			capab:     &fakeCapability{replies: []reply{{err: transport}, {out: breach}}},
			wantOK:    true,
			wantCalls: 2,
		},
		{
			name:      "retry fails",
			capab:     &fakeCapability{replies: []reply{{err: transport}}},
			wantCalls: 2,
		},
		{
			name:      "timeout retried once",
			capab:     &fakeCapability{block: true},
			timeout:   20 * time.Millisecond,
			wantCalls: 2,
		},
		{
			name:      "unparseable answer not retried",
			capab:     &fakeCapability{replies: []reply{{out: "lo siento, no puedo"}}},
			wantCalls: 1,
		},
		{
			name:      "missing complies not retried",
			capab:     &fakeCapability{replies: []reply{{out: `{"findings":[{"message":"x"}]}`}}},
			wantCalls: 1,
		},
		{
			name:      "invalid response error not retried",
			capab:     &fakeCapability{replies: []reply{{err: ErrInvalidResponse}}},
			wantCalls: 1,
		},
		{
			name:      "empty answer not retried",
			capab:     &fakeCapability{replies: []reply{{out: ""}}},
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Config{Capability: tt.capab, Timeout: tt.timeout, RetryBackoff: time.Millisecond})
			_, ok := r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantCalls, tt.capab.Calls())
			if !tt.wantOK {
				assert.Equal(t, int64(1), r.Stats().Failures)
			}
		})
	}
}

func TestRunner_FailuresAreNotCached(t *testing.T) {
	capability := &fakeCapability{replies: []reply{{out: "nada"}, {out: breach}}}
	r := New(Config{Capability: capability})

	_, ok := r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	assert.False(t, ok)
	_, ok = r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	assert.True(t, ok)
	assert.Equal(t, 2, capability.Calls())
}

func TestRunner_CallerContext(t *testing.T) {
	capability := &fakeCapability{replies: []reply{{out: breach}}, delay: 50 * time.Millisecond}
	r := New(Config{Capability: capability})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, ok := r.Run(ctx, augmentedRule(), newDoc(), lctx)
	assert.False(t, ok)
}

func TestRunner_PersistentStore(t *testing.T) {
	store := &memStore{}
	capability := &fakeCapability{replies: []reply{{out: breach}}}

	first := New(Config{Capability: capability, Store: store})
	f1, ok := first.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	require.True(t, ok)
	require.Len(t, store.data, 1)
	for _, raw := range store.data {
		assert.NotContains(t, string(raw), "Notas varias")
	}

	second := New(Config{Capability: capability, Store: store})
	f2, ok := second.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	require.True(t, ok)
	assert.Equal(t, 1, capability.Calls())
	assert.Equal(t, int64(1), second.Stats().CacheHits)
	assert.Equal(t, f1.ID, f2.ID)
	assert.Equal(t, f1.Message, f2.Message)
	assert.True(t, f2.LLMGenerated())
	assert.Empty(t, f2.Snippet)
}

func TestRunner_CacheExpiry(t *testing.T) {
	capability := &fakeCapability{replies: []reply{{out: compliant}}}
	r := New(Config{Capability: capability, CacheTTL: time.Minute})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.cache.now = func() time.Time { return now }

	r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	now = now.Add(30 * time.Second)
	r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	assert.Equal(t, 1, capability.Calls())

	now = now.Add(time.Minute)
	r.Run(context.Background(), augmentedRule(), newDoc(), lctx)
	assert.Equal(t, 2, capability.Calls())
}

func TestRunner_Complete(t *testing.T) {
	capability := &fakeCapability{replies: []reply{{out: "respuesta"}}}
	r := New(Config{Capability: capability})

	for i := 0; i < 2; i++ {
		out, err := r.Complete(context.Background(), "plan", Prompt{User: "hola"}, Constraints{})
		require.NoError(t, err)
		assert.Equal(t, "respuesta", out)
	}
	assert.Equal(t, 1, capability.Calls())
}

func TestAugmentationError(t *testing.T) {
	err := error(&AugmentationError{Kind: KindTimeout, RuleID: "CUN-GS-006", Err: context.DeadlineExceeded})
	assert.ErrorIs(t, err, core.ErrAugmentation)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "CUN-GS-006")
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("CUN-GS-006", 1, core.VariantOfficial)
	assert.Equal(t, a, Fingerprint("CUN-GS-006", 1, core.VariantOfficial))
	assert.NotEqual(t, a, Fingerprint("CUN-GS-007", 1, core.VariantOfficial))
	assert.NotEqual(t, a, Fingerprint("CUN-GS-006", 2, core.VariantOfficial))
	assert.NotEqual(t, a, Fingerprint("CUN-GS-006", 1, core.VariantInternational))
}

func TestBuildPrompt_Truncates(t *testing.T) {
	rule := augmentedRule()
	rule.Augment.MaxChars = 5
	p, c := BuildPrompt(rule, document.New("abcdefghij"), lctx, 0)
	assert.Equal(t, 5, c.MaxChars)
	assert.Contains(t, p.User, "abcde")
	assert.NotContains(t, p.User, "abcdef")
	assert.Equal(t, lint.DefaultOutputFormat, c.OutputFormat)
}

func TestRegisterTemplate(t *testing.T) {
	RegisterTemplate("test_only", "Plantilla {rule_id} {document}")
	assert.Contains(t, Templates(), "test_only")
	assert.Contains(t, Templates(), DefaultTemplateID)

	rule := augmentedRule()
	rule.Augment.PromptTemplateID = "test_only"
	p, _ := BuildPrompt(rule, document.New("texto"), lctx, 0)
	assert.Equal(t, "Plantilla CUN-GS-006 texto", p.User)

	rule.Augment.PromptTemplateID = "missing"
	p, _ = BuildPrompt(rule, document.New("texto"), lctx, 0)
	assert.Contains(t, p.User, "Evalúa si el siguiente documento cumple")
}
