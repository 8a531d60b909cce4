package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/v0xg/uxspec/internal/scanner"
	"github.com/v0xg/uxspec/internal/webhook"
)

// estimatedDuration is what the analysis workflow usually takes
const estimatedDuration = "12-15 minutes"

func analyzeCmd() *cobra.Command {
	var (
		uc             webhook.UserContext
		integrations   string
		includeProject bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <file-key>",
		Short: "Start a contextual analysis of a design file",
		Long: `Sends the file key and business context to the analysis webhook.
With --include-project the file is scanned first and the project record is
sent along.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uc.Integrations = splitList(integrations)
			if err := uc.Validate(); err != nil {
				return err
			}
			d, err := setup(cmd, false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			fileKey := args[0]

			var project *scanner.ProjectRecord
			if includeProject {
				doc, err := loadDocument(ctx, d, fileKey)
				if err != nil {
					return err
				}
				fileKey = doc.FileKey
				res, err := scanDocument(ctx, d, doc, "", nil)
				if err != nil {
					return err
				}
				project = &res.Project
			}

			done := step("Sending contextual analysis")
			env, err := d.Webhook.Send(ctx, webhook.ContextualAnalysis(fileKey, uc, project))
			done(err, "")
			if err != nil {
				return fmt.Errorf("webhook failed: %w", err)
			}

			fmt.Fprintf(os.Stderr, "✓ Workflow %s started, estimated duration %s\n", workflowOf(env), estimatedDuration)
			if env.Message != "" {
				fmt.Fprintf(os.Stderr, "  %s\n", env.Message)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&uc.ProjectObjective, "objective", "", "Project objective (required)")
	f.StringVar(&uc.TargetUsers, "users", "", "Target users (required)")
	f.StringVar(&uc.ProjectType, "type", "", "Project type, e.g. saas or ecommerce (required)")
	f.StringVar(&uc.DetailLevel, "detail", "standard", "Detail level of the specification")
	f.StringVar(&integrations, "integrations", "", "Comma separated required integrations")
	f.BoolVar(&includeProject, "include-project", false, "Scan the file and send the project record")
	return cmd
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
