package webhook

import (
	"fmt"

	"github.com/v0xg/uxspec/internal/classify"
	"github.com/v0xg/uxspec/internal/scanner"
)

// Payload types understood by the analysis workflow
const (
	TypeContextualAnalysis   = "contextual_analysis"
	TypeSingleScreenAnalysis = "single_screen_analysis"
	TypeProjectScan          = "project_scan"
)

// Payload is the outbound wire shape. Exactly one of ProjectData and
// ScreenData is set.
type Payload struct {
	Type        string `json:"type"`
	ProjectData any    `json:"project_data,omitempty"`
	ScreenData  any    `json:"screen_data,omitempty"`
	Source      string `json:"source,omitempty"`
}

// UserContext is the business context a user supplies for an analysis
type UserContext struct {
	ProjectObjective string   `json:"project_objective"`
	TargetUsers      string   `json:"target_users"`
	ProjectType      string   `json:"project_type"`
	DetailLevel      string   `json:"detail_level"`
	Integrations     []string `json:"integrations"`
}

// Validate checks that every field is present. Values are not interpreted.
func (c UserContext) Validate() error {
	missing := []string{}
	if c.ProjectObjective == "" {
		missing = append(missing, "project_objective")
	}
	if c.TargetUsers == "" {
		missing = append(missing, "target_users")
	}
	if c.ProjectType == "" {
		missing = append(missing, "project_type")
	}
	if c.DetailLevel == "" {
		missing = append(missing, "detail_level")
	}
	if c.Integrations == nil {
		missing = append(missing, "integrations")
	}
	if len(missing) > 0 {
		return fmt.Errorf("user context missing %v", missing)
	}
	return nil
}

// BusinessContext is UserContext as the workflow expects it
type BusinessContext struct {
	ProjectObjective     string   `json:"project_objective"`
	TargetUsers          string   `json:"target_users"`
	ProjectType          string   `json:"project_type"`
	DetailLevel          string   `json:"detail_level"`
	RequiredIntegrations []string `json:"required_integrations"`
}

// AnalysisOptions selects what the workflow includes
type AnalysisOptions struct {
	IncludeScreenshots  bool `json:"include_screenshots"`
	IncludeDesignSystem bool `json:"include_design_system"`
	IncludeUserFlows    bool `json:"include_user_flows"`
}

// ContextualProject is the project_data of a contextual analysis
type ContextualProject struct {
	FileKey         string                 `json:"figma_file_key"`
	BusinessContext BusinessContext        `json:"business_context"`
	Options         AnalysisOptions        `json:"options"`
	Project         *scanner.ProjectRecord `json:"project,omitempty"`
}

// SingleScreen is the screen_data of a single screen analysis
type SingleScreen struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	ScreenshotURL   string                   `json:"screenshot_url"`
	FigmaURL        string                   `json:"figma_url"`
	Dimensions      scanner.Dimensions       `json:"dimensions"`
	ContentAnalysis classify.ContentAnalysis `json:"content_analysis"`
}

// ContextualAnalysis builds the payload of a contextual analysis. project
// may be nil when the workflow fetches the file itself.
func ContextualAnalysis(fileKey string, uc UserContext, project *scanner.ProjectRecord) Payload {
	return Payload{
		Type: TypeContextualAnalysis,
		ProjectData: ContextualProject{
			FileKey: fileKey,
			BusinessContext: BusinessContext{
				ProjectObjective:     uc.ProjectObjective,
				TargetUsers:          uc.TargetUsers,
				ProjectType:          uc.ProjectType,
				DetailLevel:          uc.DetailLevel,
				RequiredIntegrations: uc.Integrations,
			},
			Options: AnalysisOptions{
				IncludeScreenshots:  true,
				IncludeDesignSystem: true,
				IncludeUserFlows:    true,
			},
			Project: project,
		},
	}
}

// SingleScreenAnalysis builds the payload of a single screen analysis
func SingleScreenAnalysis(s *scanner.ScreenRecord, source string) Payload {
	figmaURL := s.FigmaURL
	if figmaURL == "" {
		figmaURL = scanner.NodeURL("unknown", s.ID)
	}
	return Payload{
		Type: TypeSingleScreenAnalysis,
		ScreenData: SingleScreen{
			ID:              s.ID,
			Name:            s.Name,
			ScreenshotURL:   s.ScreenshotURL,
			FigmaURL:        figmaURL,
			Dimensions:      s.Dimensions,
			ContentAnalysis: s.ContentAnalysis,
		},
		Source: source,
	}
}

// ProjectScan builds the payload carrying a whole project record
func ProjectScan(p *scanner.ProjectRecord, source string) Payload {
	return Payload{Type: TypeProjectScan, ProjectData: p, Source: source}
}
