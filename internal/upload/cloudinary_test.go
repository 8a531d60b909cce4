package upload

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func cloudinaryServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/image/upload" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("upload_preset") != "ux-specs-preset" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"Upload preset not found"}}`)
			return
		}
		if !strings.HasPrefix(r.FormValue("file"), "data:image/png;base64,") {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"Invalid file"}}`)
			return
		}
		fmt.Fprintf(w, `{"secure_url":"https://res.cloudinary.com/demo/%s.png"}`, r.FormValue("folder"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCloudinaryPut(t *testing.T) {
	srv := cloudinaryServer(t)
	c := &Cloudinary{CloudName: "demo", UploadPreset: "ux-specs-preset", Folder: "figma-screens", BaseURL: srv.URL}

	url, err := c.Put(context.Background(), "Login", []byte("png"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "https://res.cloudinary.com/demo/figma-screens.png" {
		t.Errorf("url = %q", url)
	}
}

func TestCloudinaryPutError(t *testing.T) {
	srv := cloudinaryServer(t)
	c := &Cloudinary{CloudName: "demo", UploadPreset: "other", BaseURL: srv.URL}

	_, err := c.Put(context.Background(), "Login", []byte("png"))
	if err == nil || !strings.Contains(err.Error(), "Upload preset not found") {
		t.Fatalf("err = %v", err)
	}

	if _, err := (&Cloudinary{}).Put(context.Background(), "x", nil); err == nil {
		t.Error("expected config error")
	}
}

func TestRelayThroughBroker(t *testing.T) {
	srv := cloudinaryServer(t)
	relay := &Relay{Store: &Cloudinary{CloudName: "demo", UploadPreset: "ux-specs-preset", BaseURL: srv.URL}, Logger: quiet}
	b := NewBroker(relay, 5*time.Second, quiet)
	relay.Reply = b.Dispatch

	url, err := b.Upload(context.Background(), "1:1", "Login", []byte("png"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://res.cloudinary.com/demo/.png" {
		t.Errorf("url = %q", url)
	}
}

func TestRelayUploadFailure(t *testing.T) {
	srv := cloudinaryServer(t)
	relay := &Relay{Store: &Cloudinary{CloudName: "demo", UploadPreset: "bad", BaseURL: srv.URL}, Logger: quiet}
	b := NewBroker(relay, 5*time.Second, quiet)
	relay.Reply = b.Dispatch

	if _, err := b.Upload(context.Background(), "1:1", "Login", []byte("png")); err == nil {
		t.Fatal("expected upload error")
	}
}

func TestRelayRejectsBadMessages(t *testing.T) {
	r := &Relay{Store: &Cloudinary{}, Reply: func(Message) bool { return true }}
	if err := r.Post(context.Background(), Message{Type: TypeUploadComplete}); err == nil {
		t.Error("expected error for reply message")
	}
	if err := r.Post(context.Background(), Message{Type: TypeUploadImage, ImageData: "%%%"}); err == nil {
		t.Error("expected error for invalid base64")
	}
}
