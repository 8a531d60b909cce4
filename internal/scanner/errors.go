package scanner

import (
	"errors"
	"fmt"

	"github.com/v0xg/uxspec/internal/design"
)

// StructuralError is returned when a screen's tree cannot be walked
type StructuralError = design.StructuralError

// ErrTimeout reports an external call that exceeded its time budget
var ErrTimeout = errors.New("external call timed out")

// ErrDuplicateScreen reports a screen id seen twice in one scan
var ErrDuplicateScreen = errors.New("duplicate screen id")

// ExportError wraps a failed screenshot export
type ExportError struct {
	NodeID string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export screenshot of %s: %v", e.NodeID, e.Err)
}

func (e *ExportError) Unwrap() error { return e.Err }

// UploadError wraps a failed screenshot upload
type UploadError struct {
	NodeID string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload screenshot of %s: %v", e.NodeID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ScreenFailure records a screen excluded from a scan
type ScreenFailure struct {
	ScreenID string `json:"screen_id"`
	Name     string `json:"name"`
	Page     string `json:"page"`
	Err      error  `json:"-"`
}

func (f ScreenFailure) Error() string {
	return fmt.Sprintf("screen %q (%s) on page %q: %v", f.Name, f.ScreenID, f.Page, f.Err)
}

func (f ScreenFailure) Unwrap() error { return f.Err }
