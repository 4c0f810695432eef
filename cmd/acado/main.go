package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/RobotXiaoFeng/acado/internal/config"
	"github.com/RobotXiaoFeng/acado/internal/models"
	"github.com/RobotXiaoFeng/acado/internal/sqp"
	"github.com/RobotXiaoFeng/acado/internal/store"
	"github.com/RobotXiaoFeng/acado/internal/tui"
	"github.com/RobotXiaoFeng/acado/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string

	intervals int
	maxIter   int
	kktTol    float64
	qpMethod  string
	mode      string
	timeout   float64
	savePNG   bool

	column int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "acado",
		Short: "direct multiple-shooting optimal control solver",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".acado", "data directory")

	solveCmd := &cobra.Command{
		Use:   "solve [model]",
		Short: "solve an optimal control problem",
		Args:  cobra.ExactArgs(1),
		RunE:  solveModel,
	}
	addSolveFlags(solveCmd)
	solveCmd.Flags().BoolVar(&savePNG, "png", false, "render png plots into the run directory")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "solve with a live iteration view",
		Args:  cobra.ExactArgs(1),
		RunE:  solveLive,
	}
	addSolveFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "chart a stored trajectory in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&column, "column", -1, "single column to chart (-1 for all)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print run metadata as json",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := config.ListPresets(args[0])
			if len(names) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range names {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list bundled models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range models.Names() {
				fmt.Println(name)
			}
		},
	}

	rootCmd.AddCommand(solveCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSolveFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&intervals, "intervals", config.DefaultIntervals, "shooting intervals")
	cmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxIterations, "iteration budget")
	cmd.Flags().Float64Var(&kktTol, "tol", config.DefaultKKTTolerance, "kkt tolerance")
	cmd.Flags().StringVar(&qpMethod, "qp", "condensing", "qp method (condensing or full)")
	cmd.Flags().StringVar(&mode, "mode", "batch", "solve mode (batch or real_time)")
	cmd.Flags().Float64Var(&timeout, "timeout", 0, "wall clock limit in seconds (0 for none)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// resolveConfig layers preset, config file and CLI flags, flags winning.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Model = model

	if preset != "" {
		p := config.GetPreset(model, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
		cfg = p
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		loaded.Model = model
		cfg = loaded
	}

	if cmd.Flags().Changed("intervals") {
		cfg.Intervals = intervals
	}
	if cmd.Flags().Changed("max-iter") {
		cfg.MaxIterations = maxIter
	}
	if cmd.Flags().Changed("tol") {
		cfg.KKTTolerance = kktTol
	}
	if cmd.Flags().Changed("qp") {
		cfg.QPMethod = qpMethod
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = mode
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func solveContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	if cfg.Timeout > 0 {
		return context.WithTimeout(context.Background(), time.Duration(cfg.Timeout*float64(time.Second)))
	}
	return context.Background(), func() {}
}

func solveModel(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	prob, err := models.ByName(cfg.Model)
	if err != nil {
		return err
	}
	eng, err := sqp.New(prob, cfg.SolverOptions())
	if err != nil {
		return err
	}

	ctx, cancel := solveContext(cfg)
	defer cancel()

	fmt.Printf("solving %s...\n", cfg.Model)
	res, err := eng.Solve(ctx, nil)
	if err != nil {
		return err
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg.Model, res)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.Summary(cfg.Model, res))
	fmt.Println(viz.Convergence(res.Iterations, 70, 8))
	if res.Layout.NU > 0 {
		fmt.Println(viz.ControlProfile(res, 0, 70, 8))
	}

	if savePNG {
		if err := st.SavePlots(runID, res); err != nil {
			return err
		}
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func solveLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	prob, err := models.ByName(cfg.Model)
	if err != nil {
		return err
	}

	monitor := tui.NewMonitor(cfg.Model)
	opts := cfg.SolverOptions()
	opts.OnIteration = monitor.OnIteration

	eng, err := sqp.New(prob, opts)
	if err != nil {
		return err
	}

	ctx, cancel := solveContext(cfg)
	defer cancel()

	var (
		res      *sqp.Result
		solveErr error
	)
	go func() {
		res, solveErr = eng.Solve(ctx, nil)
		if solveErr == nil {
			monitor.Finish(res)
		}
	}()

	if err := monitor.Run(); err != nil {
		return err
	}
	if solveErr != nil {
		return solveErr
	}
	if res == nil {
		return nil // view quit before the solve finished
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Save(cfg.Model, res)
	if err != nil {
		return err
	}
	fmt.Printf("run id: %s\n", runID)
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tTIME\tSTATUS\tOBJECTIVE\tKKT\tITER")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.6g\t%.3g\t%d\n",
			run.ID,
			run.Model,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Status,
			run.Objective,
			run.KKT,
			run.Stats.Iterations,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := store.New(dataDir)

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	_, rows, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("status: %s\n\n", meta.Status)

	numCols := len(rows[0])
	first, last := 0, numCols
	if column >= 0 {
		if column >= numCols {
			return fmt.Errorf("column %d out of range (have %d)", column, numCols)
		}
		first, last = column, column+1
	} else if last > 6 {
		last = 6
	}

	for c := first; c < last; c++ {
		data := make([]float64, len(rows))
		for i := range rows {
			if c < len(rows[i]) {
				data[i] = rows[i][c]
			}
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(columnCaption(meta.Model, c)),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func columnCaption(model string, c int) string {
	if model == "rocket" {
		switch c {
		case 0:
			return "position"
		case 1:
			return "speed"
		case 2:
			return "mass"
		case 3:
			return "thrust"
		}
	}
	if model == "pendulum" {
		switch c {
		case 0:
			return "angle"
		case 1:
			return "angular velocity"
		case 2:
			return "torque"
		}
	}
	return fmt.Sprintf("column %d vs node", c)
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
