package assist

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fieldvoice/internal/domain"
)

func testClient(url string) *Client {
	return NewClient(Config{
		APIBase: url,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestText_RequestShape(t *testing.T) {
	var got domain.TextExchangeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/text" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(domain.TextExchangeResponse{
			Reply:          "handled",
			SafetyWarnings: []string{"冷媒"},
		})
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Text(context.Background(), domain.TextExchangeRequest{
		Message:     "真空引きの手順を教えて",
		Model:       "CS-X400D2",
		CurrentStep: "真空引き",
		ChatHistory: []domain.Turn{{Role: domain.RoleUser, Content: "earlier"}},
	})
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if resp.Reply != "handled" {
		t.Errorf("expected reply, got %q", resp.Reply)
	}
	if len(resp.SafetyWarnings) != 1 {
		t.Errorf("expected safety warning passthrough")
	}
	if got.Message != "真空引きの手順を教えて" || got.Model != "CS-X400D2" {
		t.Errorf("request fields lost: %+v", got)
	}
	if len(got.ChatHistory) != 1 {
		t.Errorf("history not attached: %+v", got.ChatHistory)
	}
}

func TestText_EmptyHistoryIsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"chat_history":[]`) {
			t.Errorf("nil history must encode as empty array: %s", body)
		}
		json.NewEncoder(w).Encode(domain.TextExchangeResponse{Reply: "ok"})
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Text(context.Background(), domain.TextExchangeRequest{Message: "hi"}); err != nil {
		t.Fatalf("Text: %v", err)
	}
}

func TestVoice_MultipartShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("audio part missing: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "RIFFdata" {
			t.Errorf("audio bytes corrupted: %q", data)
		}
		if header.Filename != "recording.wav" {
			t.Errorf("unexpected filename %s", header.Filename)
		}
		if r.FormValue("model") != "CS-X400D2" {
			t.Errorf("model field missing")
		}
		if r.FormValue("current_step") != "配管接続" {
			t.Errorf("current_step field missing")
		}
		json.NewEncoder(w).Encode(domain.VoiceExchangeResponse{
			Transcript: "ガス漏れの確認方法は",
			Reply:      "石鹸水で確認してください",
			AudioURL:   "/api/v1/chat/audio/abc",
		})
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Voice(context.Background(),
		domain.Clip{Data: []byte("RIFFdata"), MIMEType: "audio/wav", Filename: "recording.wav"},
		domain.JobContext{Model: "CS-X400D2", Step: "配管接続"},
	)
	if err != nil {
		t.Fatalf("Voice: %v", err)
	}
	if resp.Transcript == "" || resp.Reply == "" {
		t.Errorf("incomplete response: %+v", resp)
	}
}

func TestVoice_OmitsAbsentContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		if _, ok := r.MultipartForm.Value["model"]; ok {
			t.Error("absent model must not be sent")
		}
		if _, ok := r.MultipartForm.Value["current_step"]; ok {
			t.Error("absent step must not be sent")
		}
		json.NewEncoder(w).Encode(domain.VoiceExchangeResponse{Transcript: "t", Reply: "r"})
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL).Voice(context.Background(),
		domain.Clip{Data: []byte("x"), Filename: "recording.wav"}, domain.JobContext{}); err != nil {
		t.Fatalf("Voice: %v", err)
	}
}

func TestDo_SurfacesDetailMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "機種が見つかりません"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Text(context.Background(), domain.TextExchangeRequest{Message: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "機種が見つかりません") {
		t.Errorf("detail message not surfaced: %v", err)
	}
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/models" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []domain.EquipmentModel{{Model: "CS-X400D2", Manufacturer: "Panasonic"}},
		})
	}))
	defer srv.Close()

	models, err := testClient(srv.URL).Models(context.Background())
	if err != nil {
		t.Fatalf("Models: %v", err)
	}
	if len(models) != 1 || models[0].Model != "CS-X400D2" {
		t.Errorf("unexpected models: %+v", models)
	}
}

func TestResolveAudioURL(t *testing.T) {
	c := testClient("http://assist.local")
	if got := c.ResolveAudioURL("/api/v1/chat/audio/x"); got != "http://assist.local/api/v1/chat/audio/x" {
		t.Errorf("relative URL not resolved: %s", got)
	}
	if got := c.ResolveAudioURL("https://cdn.example/a.mp3"); got != "https://cdn.example/a.mp3" {
		t.Errorf("absolute URL must pass through: %s", got)
	}
	if got := c.ResolveAudioURL(""); got != "" {
		t.Errorf("empty URL must pass through: %s", got)
	}
}
