package main

import (
	"fmt"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/chaosfind/internal/analysis"
	"github.com/san-kum/chaosfind/internal/dynamo"
	"github.com/san-kum/chaosfind/internal/export"
	"github.com/san-kum/chaosfind/internal/storage"
	"github.com/san-kum/chaosfind/internal/viz"
)

const maxAxes = 6

var (
	xAxis    int
	yAxis    int
	showJSON bool
	viewTilt float64
	viewTurn float64
)

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored systems",
		RunE:  listSystems,
	}
	addConfigFlags(listCmd)
	return listCmd
}

func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "show a stored system",
		Args:  cobra.ExactArgs(1),
		RunE:  showSystem,
	}
	addConfigFlags(showCmd)
	showCmd.Flags().IntVar(&xAxis, "x-axis", 0, "coordinate for the phase plot x-axis")
	showCmd.Flags().IntVar(&yAxis, "y-axis", 1, "coordinate for the phase plot y-axis")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the stored record as json")
	showCmd.Flags().Float64Var(&viewTilt, "tilt", 0, "extra camera elevation for 3d previews, in degrees")
	showCmd.Flags().Float64Var(&viewTurn, "turn", 0, "extra camera azimuth for 3d previews, in degrees")
	return showCmd
}

func newExportCSVCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export-csv [id] [file]",
		Short: "export a trajectory to CSV",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  exportCSV,
	}
	addConfigFlags(exportCmd)
	return exportCmd
}

func newRenderCmd() *cobra.Command {
	renderCmd := &cobra.Command{
		Use:   "render [id]",
		Short: "render a stored system to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderSystem,
	}
	addConfigFlags(renderCmd)
	return renderCmd
}

func findSystem(ref string) (*storage.Store, dynamo.Candidate, error) {
	st, err := openStore()
	if err != nil {
		return nil, dynamo.Candidate{}, err
	}
	c, err := st.Find(ref)
	return st, c, err
}

func listSystems(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	systems, err := st.LoadSystems()
	if err != nil {
		return err
	}

	if len(systems) == 0 {
		fmt.Printf("no systems stored in %s\n", st.Dir())
		return nil
	}

	fmt.Println(viz.BestTable(systems, 0))
	exps := analysis.Exponents(systems)
	printExponentSummary(analysis.Summarize(exps))
	if len(exps) > 1 {
		fmt.Println(asciigraph.Plot(exps,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Precision(4),
			asciigraph.Caption("lyapunov exponent by rank"),
		))
	}
	return nil
}

func showSystem(cmd *cobra.Command, args []string) error {
	_, c, err := findSystem(args[0])
	if err != nil {
		return err
	}

	if showJSON {
		return storage.ExportJSON(os.Stdout, c)
	}

	fmt.Println(viz.HeaderStyle.Render(c.Key()))
	row := func(label string, v any) {
		fmt.Println(viz.MetricLabel.Render(label) + viz.MetricValue.Render(fmt.Sprint(v)))
	}
	row("ID", c.ID)
	row("Lyapunov", fmt.Sprintf("%.6f", c.Lyapunov))
	row("Dimensions", c.Dimensions)
	row("Coefficients", len(c.Coefficients))
	row("Iterations", c.Iterations)
	row("Points", len(c.Points))
	if t, err := c.Time(); err == nil {
		row("Found", t.Format("2006-01-02 15:04:05"))
	}
	fmt.Println(viz.Separator(60))

	fmt.Println(viz.Panel.Render(viz.RenderCandidateView(c, 60, 20, viewTilt, viewTurn)))

	if c.Dimensions >= 2 {
		portrait := analysis.ProjectTrajectory(c.Trajectory(), xAxis, yAxis)
		if portrait == nil {
			return fmt.Errorf("axes x%d/x%d out of range for %d dimensions", xAxis, yAxis, c.Dimensions)
		}
		fmt.Printf("\nphase plot x%d vs x%d\n", xAxis, yAxis)
		fmt.Println(analysis.PhasePortraitToASCII(portrait, 60, 16))
	}

	for axis := 0; axis < min(c.Dimensions, maxAxes); axis++ {
		series := viz.Series(c, axis)
		if len(series) == 0 {
			continue
		}
		fmt.Println(asciigraph.Plot(series,
			asciigraph.Height(6),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("x%d vs step", axis)),
		))
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, c, err := findSystem(args[0])
	if err != nil {
		return err
	}
	if len(c.Points) == 0 {
		return fmt.Errorf("no data to export")
	}

	if len(args) == 1 {
		return storage.ExportCSV(os.Stdout, c)
	}

	rows, err := storage.WriteCSVFile(args[1], c)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", rows, args[1])
	return nil
}

func renderSystem(cmd *cobra.Command, args []string) error {
	st, c, err := findSystem(args[0])
	if err != nil {
		return err
	}
	path, err := export.NewSVGRenderer(st.Dir()).RenderFile(c)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
