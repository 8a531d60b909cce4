package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0xg/uxspec/internal/design"
	"github.com/v0xg/uxspec/internal/gifgen"
	"github.com/v0xg/uxspec/internal/overlay"
	"github.com/v0xg/uxspec/internal/scanner"
)

func flowsCmd() *cobra.Command {
	var page string
	cmd := &cobra.Command{
		Use:   "flows <source>",
		Short: "List the navigation flows between screens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(cmd, false)
			if err != nil {
				return err
			}
			doc, err := loadDocument(cmd.Context(), d, args[0])
			if err != nil {
				return err
			}
			res, err := scanDocument(cmd.Context(), d, doc, page, nil)
			if err != nil {
				return err
			}

			flows := res.Project.Flows
			if len(flows) == 0 {
				fmt.Println("No flows found")
				return nil
			}
			for _, s := range res.Project.Screens {
				for _, f := range flows[s.ID] {
					fmt.Printf("%s → %s (%s)\n", f.From, f.To, f.Trigger)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&page, "page", "p", "", "Only scan the page with this name")
	return cmd
}

func flowgifCmd() *cobra.Command {
	var (
		output string
		delay  time.Duration
		width  uint
	)
	cmd := &cobra.Command{
		Use:   "flowgif <source> <start-screen-id>",
		Short: "Render a navigation flow as an animated GIF",
		Long: `Follows the first connection of each screen from the start screen,
exports a screenshot of every screen on the path and assembles them into a GIF.
Pass --markers to highlight the interactive elements of each screen.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := setup(cmd, false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			doc, err := loadDocument(ctx, d, args[0])
			if err != nil {
				return err
			}
			res, err := scanDocument(ctx, d, doc, "", nil)
			if err != nil {
				return err
			}
			path := scanner.FlowPath(&res.Project, args[1])
			if len(path) == 0 {
				return fmt.Errorf("screen %s not found", args[1])
			}

			exp, release, err := d.Exporter(doc.FileKey)
			if err != nil {
				return fmt.Errorf("exporter init failed: %w", err)
			}
			defer release()
			if exp == nil {
				return fmt.Errorf("flowgif needs a screenshot exporter (api or browser)")
			}

			sc := scanner.New(scanner.Options{Exporter: exp, Timeout: d.Config.Figma.ExportTimeout, Logger: d.Logger})
			pngs := make([][]byte, 0, len(path))
			for i, screen := range path {
				node, _ := doc.FindNode(screen.ID)
				done := step("Exporting screen %d/%d: %s", i+1, len(path), screen.Name)
				png, err := exportScreen(ctx, sc, node)
				if err == nil && d.Config.AI.Markers {
					png, err = overlay.MarkPNG(png, screen)
				}
				done(err, "")
				if err != nil {
					return err
				}
				pngs = append(pngs, png)
			}

			frames, err := gifgen.DecodeFrames(pngs)
			if err != nil {
				return err
			}
			done := step("Generating GIF")
			size, err := gifgen.Generate(frames, output, gifgen.Options{FrameDelay: delay, MaxWidth: width})
			done(err, "%d frames", len(frames))
			if err != nil {
				return fmt.Errorf("GIF generation failed: %w", err)
			}

			fmt.Fprintf(os.Stderr, "\n✓ Created %s (%.1f KB)\n", output, float64(size)/1024)
			fmt.Fprintf(os.Stderr, "  Flow: %s\n", flowNames(path))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "flow.gif", "Output file path")
	cmd.Flags().DurationVar(&delay, "delay", 1500*time.Millisecond, "How long each screen is shown")
	cmd.Flags().UintVar(&width, "width", 800, "Maximum GIF width")
	return cmd
}

func exportScreen(ctx context.Context, sc *scanner.Scanner, node *design.Node) ([]byte, error) {
	if node == nil {
		return nil, fmt.Errorf("screen node missing from document")
	}
	return sc.Screenshot(ctx, node)
}

func flowNames(path []*scanner.ScreenRecord) string {
	names := make([]string, len(path))
	for i, s := range path {
		names[i] = s.Name
	}
	return strings.Join(names, " → ")
}
