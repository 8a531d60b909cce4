package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/v0xg/uxspec/internal/scanner"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParseSpecJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "bare object", in: `{"purpose":"login"}`, want: "login"},
		{name: "fenced", in: "```json\n{\"purpose\":\"signup\"}\n```", want: "signup"},
		{name: "surrounding text", in: `Here it is: {"purpose":"a {b} c","components":[]} done`, want: "a {b} c"},
		{name: "escaped quote", in: `x {"purpose":"say \"}\" now"} y`, want: `say "}" now`},
		{name: "no object", in: "nothing", wantErr: true},
		{name: "unterminated", in: `{"purpose":"x"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := parseSpecJSON(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", spec)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if spec["purpose"] != tt.want {
				t.Errorf("purpose = %v, want %q", spec["purpose"], tt.want)
			}
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	req := &Request{Screen: &scanner.ScreenRecord{ID: "1:1", Name: "Login"}, Objective: "let runners buy shoes"}
	got, err := buildUserPrompt(req)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, `"name": "Login"`) || !strings.HasSuffix(got, "Product objective: let runners buy shoes") {
		t.Errorf("prompt = %s", got)
	}
}

func TestDownscale(t *testing.T) {
	wide := testPNG(t, 400, 200)
	out, err := Downscale(wide, 100)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("size = %v", img.Bounds())
	}

	narrow := testPNG(t, 50, 50)
	same, err := Downscale(narrow, 100)
	if err != nil || !bytes.Equal(same, narrow) {
		t.Errorf("narrow image changed (err %v)", err)
	}

	if _, err := Downscale([]byte("not png"), 100); err == nil {
		t.Error("expected decode error")
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Name: "claude", APIKey: "k"}, false},
		{Config{Name: "anthropic", APIKey: "k"}, false},
		{Config{Name: "openai", APIKey: "k"}, false},
		{Config{Name: "gpt", APIKey: "k"}, false},
		{Config{Name: "claude"}, true},
		{Config{Name: "openai"}, true},
		{Config{Name: "llama", APIKey: "k"}, true},
	}
	for _, tt := range tests {
		_, err := NewProvider(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewProvider(%+v) err = %v", tt.cfg, err)
		}
	}
}

func TestOpenAIAnalyze(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"{\"purpose\":\"Sign in\"}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider(Config{APIKey: "k", BaseURL: srv.URL + "/v1", MaxWidth: 64})
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Analyze(context.Background(), &Request{
		Screen:     &scanner.ScreenRecord{ID: "1:1", Name: "Login"},
		Screenshot: testPNG(t, 128, 64),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Spec["purpose"] != "Sign in" || res.ID != "chatcmpl-1" || res.Provider != "openai" {
		t.Errorf("result = %+v", res)
	}

	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", body["messages"])
	}
	user, _ := msgs[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("user content parts = %v", user["content"])
	}
	img, _ := parts[1].(map[string]any)
	url, _ := img["image_url"].(map[string]any)
	if s, _ := url["url"].(string); !strings.HasPrefix(s, "data:image/png;base64,") {
		t.Errorf("image part = %v", img)
	}
}

func TestClaudeAnalyze(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"Spec: {\"purpose\":\"Browse\"}"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`)
	}))
	defer srv.Close()

	p, err := NewClaudeProvider(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Analyze(context.Background(), &Request{
		Screen:     &scanner.ScreenRecord{ID: "2:2", Name: "Catalog"},
		Screenshot: testPNG(t, 32, 32),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Spec["purpose"] != "Browse" || res.ID != "msg_1" {
		t.Errorf("result = %+v", res)
	}

	msgs, _ := body["messages"].([]any)
	first, _ := msgs[0].(map[string]any)
	content, _ := first["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("content = %v", first["content"])
	}
	if block, _ := content[0].(map[string]any); block["type"] != "image" {
		t.Errorf("first block = %v", block)
	}
}
