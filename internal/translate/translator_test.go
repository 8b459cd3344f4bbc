package translate_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dubber/internal/config"
	"dubber/internal/segment"
	"dubber/internal/services"
	"dubber/internal/translate"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*translate.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Translation{
		APIKey:         "test-key",
		BaseURL:        server.URL + "/v1",
		Model:          "test-model",
		SourceLang:     "en",
		TargetLang:     "de",
		TimeoutSeconds: 5,
	}
	client, err := translate.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, server
}

func TestTranslateSegmentsPreservesOrderAndTiming(t *testing.T) {
	translations := map[string]string{
		"Hello.":  "Hallo.",
		"Bye.":    "Tschüss.",
		"Thanks.": "Danke.",
	}
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content
		if !strings.Contains(prompt, "German") {
			http.Error(w, "prompt missing target language", http.StatusBadRequest)
			return
		}
		for source, target := range translations {
			if strings.HasSuffix(prompt, source) {
				json.NewEncoder(w).Encode(chatResponse(target))
				return
			}
		}
		http.Error(w, "unknown text", http.StatusBadRequest)
	})

	in := []segment.Segment{
		{Index: 1, StartSec: 0, EndSec: 2, SourceText: "Hello."},
		{Index: 2, StartSec: 2, EndSec: 4, SourceText: "Bye."},
		{Index: 3, StartSec: 5, EndSec: 7, SourceText: "Thanks."},
	}
	out, err := client.TranslateSegments(context.Background(), in)
	if err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("segment count = %d, want 3", len(out))
	}
	wantTargets := []string{"Hallo.", "Tschüss.", "Danke."}
	for i, seg := range out {
		if seg.Index != in[i].Index || seg.StartSec != in[i].StartSec || seg.EndSec != in[i].EndSec {
			t.Errorf("segment %d metadata changed: %+v", in[i].Index, seg)
		}
		if seg.TargetText != wantTargets[i] {
			t.Errorf("segment %d target = %q, want %q", seg.Index, seg.TargetText, wantTargets[i])
		}
	}
	// Input untouched.
	if in[0].TargetText != "" {
		t.Error("input slice was mutated")
	}
}

func TestTranslateSegmentsEmptyTextSkipsCall(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(chatResponse("unexpected"))
	})

	in := []segment.Segment{{Index: 1, StartSec: 0, EndSec: 1, SourceText: "   "}}
	out, err := client.TranslateSegments(context.Background(), in)
	if err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no provider calls, got %d", calls)
	}
	if out[0].TargetText != "" {
		t.Fatalf("target = %q, want empty", out[0].TargetText)
	}
}

func TestTranslateSegmentsSurfacesFailingIndex(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt := req.Messages[len(req.Messages)-1].Content
		if strings.HasSuffix(prompt, "Second.") {
			http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(chatResponse("ok"))
	})

	in := []segment.Segment{
		{Index: 1, StartSec: 0, EndSec: 1, SourceText: "First."},
		{Index: 2, StartSec: 1, EndSec: 2, SourceText: "Second."},
	}
	_, err := client.TranslateSegments(context.Background(), in)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "segment 2") {
		t.Fatalf("error should name segment 2: %v", err)
	}
}

func TestTranslateSegmentsRejectsEmptyTranslation(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse("   "))
	})
	in := []segment.Segment{{Index: 7, StartSec: 0, EndSec: 1, SourceText: "Hello."}}
	_, err := client.TranslateSegments(context.Background(), in)
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "segment 7") {
		t.Fatalf("error should name segment 7: %v", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := translate.New(config.Translation{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRoundTripCountMatchesSubtitles(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse("übersetzt"))
	})
	in := make([]segment.Segment, 0, 10)
	for i := 1; i <= 10; i++ {
		in = append(in, segment.Segment{
			Index:      i,
			StartSec:   float64(i),
			EndSec:     float64(i) + 0.9,
			SourceText: fmt.Sprintf("Line %d.", i),
		})
	}
	out, err := client.TranslateSegments(context.Background(), in)
	if err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("count = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i].Index != in[i].Index {
			t.Fatalf("index set changed at position %d", i)
		}
	}
}
