package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"labeltool/internal/assist"
	"labeltool/internal/labels"
	"labeltool/internal/maskregions"
	"labeltool/internal/polyedit"
	"labeltool/internal/proposal"
	"labeltool/internal/regions"
	"labeltool/internal/scene"
	"labeltool/internal/tools"
	"labeltool/pkg/geometry"
)

// sourceMask marks labels imported from a mask image.
const sourceMask = "import:mask"

// hitTolerance is the pick distance of the default selection tool.
const hitTolerance = 5

func inspectCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <image>",
		Short: "List the labels of an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openScene(args[0])
			if err != nil {
				return err
			}
			printLabels(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func printLabels(out io.Writer, s *scene.Scene) {
	h := s.Header()
	fmt.Fprintf(out, "%s: %d labels, complete=%v\n", h.ImageID, len(h.Labels), h.Complete)
	for _, e := range s.Roots() {
		info := e.Model().Info()
		c := e.Centroid()
		fmt.Fprintf(out, "  %-40s %-18s %-12s %-12s (%.1f, %.1f)",
			scene.IDOf(e), info.LabelType, info.LabelClass, info.Source, c.X, c.Y)
		if p, ok := e.(*scene.PolygonEntity); ok {
			fmt.Fprintf(out, " regions=%d area=%.1f", len(p.Regions()), regions.Area(p.Regions()))
		}
		fmt.Fprintln(out)
	}
}

func fromMaskCommand(a *app) *cobra.Command {
	var class string

	cmd := &cobra.Command{
		Use:   "from-mask <image> <mask>",
		Short: "Add a polygon label traced from a binary mask image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := maskregions.Load(args[1])
			if err != nil {
				return err
			}
			rs, err := maskregions.FromImage(img)
			if err != nil {
				return err
			}
			if len(rs) == 0 {
				return fmt.Errorf("mask %s has no foreground", args[1])
			}

			s, err := a.openScene(args[0])
			if err != nil {
				return err
			}
			flush := a.attachStore(s, args[0])

			e := s.GetOrCreate(labels.NewPolygon(rs, labels.ClassID(class), sourceMask))
			s.AddRoot(e)
			fmt.Fprintf(cmd.OutOrStdout(), "added %s: %d regions, area %.1f\n",
				scene.IDOf(e), len(rs), regions.Area(rs))
			return flush()
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "Label class of the new label")
	return cmd
}

func proposeCommand(a *app) *cobra.Command {
	var (
		class       string
		margin      int
		timeout     time.Duration
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "propose <image> <x,y> <x,y> <x,y> <x,y>",
		Short: "Add a label proposed from four extreme points",
		Args:  cobra.ExactArgs(1 + assist.GesturePoints),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := parsePoints(args[1:])
			if err != nil {
				return err
			}
			s, err := a.openScene(args[0])
			if err != nil {
				return err
			}
			flush := a.attachStore(s, args[0])

			registry := prometheus.NewRegistry()
			metrics, err := assist.NewMetrics(registry)
			if err != nil {
				return err
			}

			// Results are applied on this goroutine, which owns the scene.
			loop := make(chan func(), 16)
			backend := proposal.NewBackend(proposal.BoxSegmenter{Margin: margin},
				proposal.WithDispatch(func(fn func()) { loop <- fn }))
			defer backend.Close()

			svc := assist.NewService(backend,
				assist.WithPollInterval(a.settings.Assist.PollInterval),
				assist.WithMetrics(metrics))
			defer svc.Shutdown()
			backend.SetReceiver(svc.OnSuccess)

			manager := tools.NewManager(func() tools.Tool { return tools.NewSelectTool(s, hitTolerance) })
			manager.SetTool(assist.NewTool(s, svc, manager, labels.ClassID(class)))
			for _, p := range points {
				manager.Move(p)
				manager.LeftClick(p, tools.Event{Button: 1})
			}
			manager.ResetTool()

			if err := waitForProposals(svc, loop, timeout); err != nil {
				return err
			}

			if e := s.SelectedEntity(); e != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "proposed %s\n", scene.IDOf(e))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no region proposed")
			}
			if showMetrics {
				if err := printMetrics(cmd.OutOrStdout(), registry); err != nil {
					return err
				}
			}
			return flush()
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "Label class of the proposed label")
	cmd.Flags().IntVar(&margin, "margin", 2, "Empty pixels kept around the proposal mask")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Give up waiting for the proposal after this long")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print assisted request metrics")
	return cmd
}

// waitForProposals runs delivered results until no request is open. When
// timed polling is disabled the open requests are polled here instead.
func waitForProposals(svc *assist.Service, loop <-chan func(), timeout time.Duration) error {
	deadline := time.After(timeout)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for len(svc.OpenRequests()) > 0 {
		select {
		case fn := <-loop:
			fn()
		case <-ticker.C:
			if !svc.Polling() {
				svc.PollNow()
			}
		case <-deadline:
			return fmt.Errorf("no proposal within %v", timeout)
		}
	}
	return nil
}

func printMetrics(out io.Writer, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var pairs []string
			for _, l := range m.GetLabel() {
				pairs = append(pairs, l.GetName()+"="+l.GetValue())
			}
			sort.Strings(pairs)
			value := m.GetCounter().GetValue() + m.GetGauge().GetValue()
			fmt.Fprintf(out, "%s{%s} %g\n", mf.GetName(), strings.Join(pairs, ","), value)
		}
	}
	return nil
}

func drawCommand(a *app) *cobra.Command {
	var (
		class  string
		mode   string
		target string
	)

	cmd := &cobra.Command{
		Use:   "draw <image> <x,y> <x,y> <x,y>...",
		Short: "Sketch a polygon and combine it with a label",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMode(mode)
			if err != nil {
				return err
			}
			points, err := parsePoints(args[1:])
			if err != nil {
				return err
			}
			s, err := a.openScene(args[0])
			if err != nil {
				return err
			}

			var entity *scene.PolygonEntity
			if target != "" {
				e, ok := s.EntityByID(target)
				if !ok {
					return fmt.Errorf("no label %q", target)
				}
				if entity, ok = e.(*scene.PolygonEntity); !ok {
					return fmt.Errorf("label %q is not a polygon", target)
				}
			}
			flush := a.attachStore(s, args[0])

			manager := tools.NewManager(func() tools.Tool { return tools.NewSelectTool(s, hitTolerance) })
			edit := polyedit.NewEditTool(s, manager, entity, a.settings.EditSettings())
			edit.SetMode(m)
			edit.SetLabelClass(labels.ClassID(class))

			manager.Move(points[0])
			manager.SetTool(edit)
			for i, p := range points {
				if i > 0 {
					manager.Move(p)
				}
				manager.LeftClick(p, tools.Event{Button: 1})
			}
			manager.Cancel(points[len(points)-1])
			manager.ResetTool()

			printLabels(cmd.OutOrStdout(), s)
			return flush()
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "Label class of created labels")
	cmd.Flags().StringVar(&mode, "mode", polyedit.ModeNew.String(), "Boolean mode: new, add, subtract or split")
	cmd.Flags().StringVar(&target, "target", "", "Object id of the polygon label to edit")
	return cmd
}

func mergeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <image> <id> <id>...",
		Short: "Merge polygon labels into one",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openScene(args[0])
			if err != nil {
				return err
			}
			for _, id := range args[1:] {
				e, ok := s.EntityByID(id)
				if !ok {
					return fmt.Errorf("no label %q", id)
				}
				s.Select(e, true, false)
			}
			flush := a.attachStore(s, args[0])

			merged := polyedit.MergePolygons(s)
			if merged == nil {
				return fmt.Errorf("only polygon labels can be merged")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "merged into %s (%s)\n", scene.IDOf(merged), merged.Polygon().LabelClass)
			return flush()
		},
	}
}

func parseMode(name string) (polyedit.Mode, error) {
	for _, m := range []polyedit.Mode{polyedit.ModeNew, polyedit.ModeAdd, polyedit.ModeSubtract, polyedit.ModeSplit} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", name)
}

// parsePoints reads "x,y" pairs.
func parsePoints(args []string) ([]geometry.Point2D, error) {
	points := make([]geometry.Point2D, 0, len(args))
	for _, arg := range args {
		xs, ys, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, fmt.Errorf("point %q is not x,y", arg)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", arg, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("point %q: %w", arg, err)
		}
		points = append(points, geometry.Point2D{X: x, Y: y})
	}
	return points, nil
}
