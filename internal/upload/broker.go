// Package upload correlates asynchronous screenshot uploads with their
// replies. Requests go out through an Outbox; replies come back through
// Broker.Dispatch and are matched by request id.
package upload

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message types exchanged with the uploader
const (
	TypeUploadImage    = "upload-image"
	TypeUploadComplete = "upload-complete"
	TypeUploadError    = "upload-error"
)

// ErrTimeout is returned when no reply arrives before the deadline
var ErrTimeout = errors.New("timed out waiting for image upload")

// Message is both the outbound upload request and the inbound reply
type Message struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	FrameID   string `json:"frameId"`
	FrameName string `json:"frameName,omitempty"`
	ImageData string `json:"imageData,omitempty"` // base64 PNG
	ImageURL  string `json:"imageUrl,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Outbox delivers upload requests to whatever performs the upload
type Outbox interface {
	Post(ctx context.Context, msg Message) error
}

type reply struct {
	url string
	err error
}

type pending struct {
	frameID string
	done    chan reply
}

// Broker keeps the table of in-flight uploads
type Broker struct {
	out     Outbox
	timeout time.Duration
	newID   func() string
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*pending
}

// NewBroker creates a broker posting to out. timeout bounds each upload.
func NewBroker(out Outbox, timeout time.Duration, logger *slog.Logger) *Broker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		out:     out,
		timeout: timeout,
		newID:   func() string { return uuid.Must(uuid.NewV7()).String() },
		logger:  logger,
		pending: make(map[string]*pending),
	}
}

// Upload posts png and waits for its correlated reply, the deadline, or
// ctx cancellation, whichever comes first.
func (b *Broker) Upload(ctx context.Context, frameID, frameName string, png []byte) (string, error) {
	id := b.newID()
	p := &pending{frameID: frameID, done: make(chan reply, 1)}

	b.mu.Lock()
	b.pending[id] = p
	b.mu.Unlock()
	defer b.remove(id)

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err := b.out.Post(ctx, Message{
		Type:      TypeUploadImage,
		RequestID: id,
		FrameID:   frameID,
		FrameName: frameName,
		ImageData: base64.StdEncoding.EncodeToString(png),
	})
	if err != nil {
		return "", fmt.Errorf("failed to post upload request: %w", err)
	}

	select {
	case r := <-p.done:
		return r.url, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		return "", ctx.Err()
	}
}

// Dispatch resolves the pending upload a reply belongs to. It reports false
// for messages that match no in-flight request.
func (b *Broker) Dispatch(msg Message) bool {
	if msg.Type != TypeUploadComplete && msg.Type != TypeUploadError {
		return false
	}

	b.mu.Lock()
	p, ok := b.pending[msg.RequestID]
	if ok {
		delete(b.pending, msg.RequestID)
	}
	b.mu.Unlock()

	if !ok {
		b.logger.Debug("upload_reply_unmatched", "request_id", msg.RequestID, "frame_id", msg.FrameID)
		return false
	}
	if msg.FrameID != "" && msg.FrameID != p.frameID {
		b.logger.Warn("upload_reply_frame_mismatch", "request_id", msg.RequestID, "want", p.frameID, "got", msg.FrameID)
	}

	if msg.Type == TypeUploadError {
		reason := msg.Error
		if reason == "" {
			reason = "image upload failed"
		}
		p.done <- reply{err: errors.New(reason)}
	} else {
		p.done <- reply{url: msg.ImageURL}
	}
	return true
}

// InFlight is the number of uploads awaiting a reply
func (b *Broker) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Broker) remove(id string) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}
