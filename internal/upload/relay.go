package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
)

// Store hosts image bytes and returns a public URL
type Store interface {
	Put(ctx context.Context, name string, png []byte) (string, error)
}

// Relay is an in-process Outbox: it uploads each posted image to a Store
// in the background and replies through Reply.
type Relay struct {
	Store  Store
	Reply  func(Message) bool
	Logger *slog.Logger
}

// Post starts the upload and returns immediately
func (r *Relay) Post(ctx context.Context, msg Message) error {
	if msg.Type != TypeUploadImage {
		return fmt.Errorf("relay cannot handle message type %q", msg.Type)
	}
	if r.Reply == nil {
		return fmt.Errorf("relay has no reply handler")
	}
	png, err := base64.StdEncoding.DecodeString(msg.ImageData)
	if err != nil {
		return fmt.Errorf("invalid image data: %w", err)
	}

	go func() {
		out := Message{RequestID: msg.RequestID, FrameID: msg.FrameID}
		url, err := r.Store.Put(ctx, msg.FrameName, png)
		if err != nil {
			r.logger().Warn("image_upload_failed", "frame_id", msg.FrameID, "error", err)
			out.Type, out.Error = TypeUploadError, err.Error()
		} else {
			out.Type, out.ImageURL = TypeUploadComplete, url
		}
		r.Reply(out)
	}()
	return nil
}

func (r *Relay) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
