package scanner

import (
	"github.com/v0xg/uxspec/internal/classify"
)

// Dimensions is the size of a screen
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Connection is an outbound navigation edge of a screen
type Connection struct {
	Trigger       string  `json:"trigger"`
	DestinationID string  `json:"destination_id"`
	Transition    *string `json:"transition"`
}

// ScreenRecord is everything extracted from one screen
type ScreenRecord struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	Page            string                   `json:"page"`
	Dimensions      Dimensions               `json:"dimensions"`
	Position        classify.Position        `json:"position"`
	FigmaURL        string                   `json:"figma_url,omitempty"`
	ScreenshotURL   string                   `json:"screenshot_url,omitempty"`
	ContentAnalysis classify.ContentAnalysis `json:"content_analysis"`
	Connections     []Connection             `json:"connections"`
}

// Flow is a resolved navigation from one screen to another
type Flow struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Trigger string `json:"trigger"`
}

// PageBreakdown counts the screens found on a page
type PageBreakdown struct {
	Name        string            `json:"name"`
	ScreenCount int               `json:"screen_count"`
	PageType    classify.PageType `json:"page_type"`
}

// Metadata describes the scanned document
type Metadata struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	FileKey     string `json:"figma_file_key,omitempty"`
	SourceURL   string `json:"figma_url,omitempty"`
	TotalPages  int    `json:"total_pages"`
	ExtractedAt string `json:"extracted_at"`
	CurrentPage string `json:"current_page"`
}

// DesignSystem is a placeholder for colors, typography and components.
// Extraction is not implemented; the lists are always empty.
type DesignSystem struct {
	Colors     []any `json:"colors"`
	Typography []any `json:"typography"`
	Components []any `json:"components"`
}

// EmptyDesignSystem returns a DesignSystem that serialises as empty lists
func EmptyDesignSystem() DesignSystem {
	return DesignSystem{Colors: []any{}, Typography: []any{}, Components: []any{}}
}

// ProjectRecord is the aggregate of a project scan
type ProjectRecord struct {
	Metadata       Metadata          `json:"metadata"`
	Screens        []ScreenRecord    `json:"screens"`
	PagesBreakdown []PageBreakdown   `json:"pages_breakdown"`
	Flows          map[string][]Flow `json:"flows"`
	DesignSystem   DesignSystem      `json:"design_system"`
}

// Summary is the short form of a scan reported back to a user interface
type Summary struct {
	ProjectName    string          `json:"project_name"`
	TotalScreens   int             `json:"total_screens"`
	TotalPages     int             `json:"total_pages"`
	PagesBreakdown []PageBreakdown `json:"pages_breakdown"`
}

// Summary condenses the project record
func (p *ProjectRecord) Summary() Summary {
	return Summary{
		ProjectName:    p.Metadata.Name,
		TotalScreens:   len(p.Screens),
		TotalPages:     p.Metadata.TotalPages,
		PagesBreakdown: p.PagesBreakdown,
	}
}

// Screen returns the screen with the given id, or nil
func (p *ProjectRecord) Screen(id string) *ScreenRecord {
	for i := range p.Screens {
		if p.Screens[i].ID == id {
			return &p.Screens[i]
		}
	}
	return nil
}
