package governance

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Lllllllleong/architecturereview/internal/cost"
	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/Lllllllleong/architecturereview/internal/inference"
	"github.com/Lllllllleong/architecturereview/internal/models"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type staticSource struct {
	policies []Policy
	err      error
	calls    int
}

func (s *staticSource) Policies(_ context.Context, ids []string) ([]Policy, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	want := make(map[string]bool)
	for _, id := range ids {
		want[id] = true
	}
	var out []Policy
	for _, p := range s.policies {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

type judge struct {
	text  string
	calls int
	last  inference.Request
}

func (j *judge) Invoke(_ context.Context, _ string, req inference.Request) (*inference.Response, error) {
	j.calls++
	j.last = req
	return &inference.Response{Text: j.text}, nil
}

var policies = []Policy{
	{ID: "enc-at-rest", Title: "Encryption at rest", Description: "All data stores must use CMEK.", Severity: "High"},
	{ID: "multi-az", Title: "Multi-AZ", Description: "Production databases span two zones.", Severity: "Medium"},
}

const judgement = "```json\n" + `{"violations": [
  {"policyId": "enc-at-rest", "description": "Cloud SQL uses Google-managed keys.", "correction": "Enable CMEK.", "severity": "high"},
  {"policyId": "made-up", "title": "Hallucinated", "description": "x", "correction": "y", "severity": "Low"}
]}` + "\n```"

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, time.Hour), mr
}

func TestQuery_ReturnsKnownViolations(t *testing.T) {
	j := &judge{text: judgement}
	ledger := cost.NewLedger(cost.DefaultPricing())
	m := NewMatcher(&staticSource{policies: policies}, j, "gemini-2.5-flash", nil)

	got, err := m.Query(context.Background(), []string{"enc-at-rest", "multi-az"}, "Cloud SQL in us-central1-a", ledger, quiet)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("violations = %+v", got)
	}
	v := got[0]
	if v.PolicyID != "enc-at-rest" || v.Title != "Encryption at rest" || v.Severity != models.SeverityHigh {
		t.Errorf("violation = %+v", v)
	}
	if !j.last.JSONResponse || !strings.Contains(j.last.Prompt, "Cloud SQL in us-central1-a") {
		t.Error("judge request missing JSON mode or context")
	}
	if ledger.Len() != 2 {
		t.Errorf("expected table read + inference items, got %+v", ledger.Items())
	}
}

func TestQuery_NoPolicies(t *testing.T) {
	src := &staticSource{policies: policies}
	got, err := NewMatcher(src, &judge{}, "m", nil).Query(context.Background(), nil, "ctx", cost.NewLedger(cost.DefaultPricing()), quiet)
	if err != nil || got != nil || src.calls != 0 {
		t.Errorf("Query = %v, %v (source calls %d)", got, err, src.calls)
	}
}

func TestQuery_UnknownPolicyIDsSkipModel(t *testing.T) {
	j := &judge{text: judgement}
	got, err := NewMatcher(&staticSource{policies: policies}, j, "m", nil).
		Query(context.Background(), []string{"missing"}, "ctx", cost.NewLedger(cost.DefaultPricing()), quiet)
	if err != nil || len(got) != 0 || j.calls != 0 {
		t.Errorf("Query = %v, %v (judge calls %d)", got, err, j.calls)
	}
}

func TestQuery_SourceFailureIsExternal(t *testing.T) {
	_, err := NewMatcher(&staticSource{err: errors.New("unavailable")}, &judge{}, "m", nil).
		Query(context.Background(), []string{"enc-at-rest"}, "ctx", cost.NewLedger(cost.DefaultPricing()), quiet)
	if !errors.Is(err, errs.ErrExternalCall) {
		t.Fatalf("expected ErrExternalCall, got %v", err)
	}
}

func TestQuery_MalformedJudgement(t *testing.T) {
	_, err := NewMatcher(&staticSource{policies: policies}, &judge{text: "no violations found"}, "m", nil).
		Query(context.Background(), []string{"enc-at-rest"}, "ctx", cost.NewLedger(cost.DefaultPricing()), quiet)
	if !errors.Is(err, errs.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestQuery_CachesResults(t *testing.T) {
	cache, mr := newRedisCache(t)
	j := &judge{text: judgement}
	m := NewMatcher(&staticSource{policies: policies}, j, "m", cache)
	ctx := context.Background()

	first, err := m.Query(ctx, []string{"multi-az", "enc-at-rest"}, "ctx", cost.NewLedger(cost.DefaultPricing()), quiet)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Query(ctx, []string{"enc-at-rest", "multi-az"}, "ctx", cost.NewLedger(cost.DefaultPricing()), quiet)
	if err != nil {
		t.Fatal(err)
	}
	if j.calls != 1 {
		t.Errorf("judge calls = %d, want 1", j.calls)
	}
	if len(first) != 1 || len(second) != 1 || second[0].PolicyID != first[0].PolicyID {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := m.Query(ctx, []string{"enc-at-rest"}, "ctx", cost.NewLedger(cost.DefaultPricing()), quiet); err != nil {
		t.Fatal(err)
	}
	if j.calls != 2 {
		t.Errorf("expired entry should be recomputed, judge calls = %d", j.calls)
	}
}

func TestQuery_CacheOutageIsIgnored(t *testing.T) {
	cache, mr := newRedisCache(t)
	mr.Close()
	j := &judge{text: judgement}
	var logs bytes.Buffer
	logCtx := slog.New(slog.NewJSONHandler(&logs, nil)).With("runId", "run-7")
	got, err := NewMatcher(&staticSource{policies: policies}, j, "m", cache).
		Query(context.Background(), []string{"enc-at-rest"}, "ctx", cost.NewLedger(cost.DefaultPricing()), logCtx)
	if err != nil || len(got) != 1 {
		t.Fatalf("Query = %v, %v", got, err)
	}
	out := logs.String()
	if !strings.Contains(out, "Governance cache read failed.") || !strings.Contains(out, `"runId":"run-7"`) {
		t.Errorf("cache failure not logged with run attributes: %s", out)
	}
}

func TestCacheKey_OrderInsensitive(t *testing.T) {
	a := CacheKey([]string{"b", "a"}, "text")
	b := CacheKey([]string{"a", "b"}, "text")
	c := CacheKey([]string{"a", "b"}, "other")
	if a != b || a == c {
		t.Errorf("keys: %s %s %s", a, b, c)
	}
}

func TestRedisCache_EmptyResultIsAHit(t *testing.T) {
	cache, _ := newRedisCache(t)
	ctx := context.Background()
	if err := cache.Set(ctx, "k", nil); err != nil {
		t.Fatal(err)
	}
	got, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok || len(got) != 0 {
		t.Errorf("Get = %v, %v, %v", got, ok, err)
	}
	if _, ok, _ := cache.Get(ctx, "absent"); ok {
		t.Error("absent key reported as hit")
	}
}
