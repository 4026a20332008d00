package benchmarks

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zeu5/grid-driving-vi/agent"
	"github.com/zeu5/grid-driving-vi/driving"
	"github.com/zeu5/grid-driving-vi/grid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// valueGrid places the agent on every cell of the road while the cars stay
// where they are in state, and records the value of each placement.
func valueGrid(table *agent.PolicyTable, state *driving.State, width, lanes int) (*grid.ValueGrid, error) {
	values := grid.NewValueGrid(width, lanes)
	probe := *state
	probe.AgentState = driving.Alive
	for lane := 0; lane < lanes; lane++ {
		for x := 0; x < width; x++ {
			p := grid.Point{X: x, Y: lane}
			probe.Agent.Position = p
			v, err := table.Value(agent.StateToIndex(&probe))
			if err != nil {
				return nil, err
			}
			values.Set(p, v)
		}
	}
	return values, nil
}

// plotValues draws the value grid as a heat map.
func plotValues(path, title string, values *grid.ValueGrid) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "lane (bottom to top)"

	heat := plotter.NewHeatMap(values, palette.Heat(12, 1))
	if values.Max() == values.Min() {
		heat.Min, heat.Max = values.Min(), values.Min()+1
	}
	p.Add(heat)
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// plotConvergence draws the largest value change of every sweep.
func plotConvergence(path string, deltas []float64) error {
	p := plot.New()
	p.Title.Text = "Value iteration"
	p.X.Label.Text = "Sweep"
	p.Y.Label.Text = "Max value change"

	points := make(plotter.XYs, len(deltas))
	for i, d := range deltas {
		points[i] = plotter.XY{
			X: float64(i + 1),
			Y: d,
		}
	}
	line, err := plotter.NewLine(points)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(0)
	p.Add(line)
	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}

// chartConvergence writes the sweep deltas as an interactive HTML chart.
func chartConvergence(path, name string, deltas []float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Value iteration",
			Subtitle: name,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	sweeps := make([]string, len(deltas))
	items := make([]opts.LineData, len(deltas))
	for i, d := range deltas {
		sweeps[i] = strconv.Itoa(i + 1)
		items[i] = opts.LineData{Value: d}
	}
	line.SetXAxis(sweeps).AddSeries("max value change", items)

	page := components.NewPage()
	page.AddCharts(line)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

// writeMetrics records the size of the MDP and the solver's effort in the
// Prometheus text format.
func writeMetrics(path, name string, table *agent.PolicyTable, took time.Duration) error {
	registry := prometheus.NewRegistry()
	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "grid_driving",
		Name:      "solve",
		Help:      "Size of the enumerated MDP and value iteration effort.",
	}, []string{"testcase", "quantity"})
	if err := registry.Register(gauges); err != nil {
		return err
	}

	deltas := table.Result.Deltas
	for quantity, v := range map[string]float64{
		"states":          float64(table.MDP.Space.Size()),
		"actions":         float64(len(table.Actions)),
		"transitions_nnz": float64(table.MDP.Transitions.NNZ()),
		"rewarded_pairs":  float64(table.MDP.Rewards.NonZero()),
		"sweeps":          float64(table.Result.Sweeps),
		"final_delta":     deltas[len(deltas)-1],
		"seconds":         took.Seconds(),
	} {
		gauges.WithLabelValues(name, quantity).Set(v)
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}
	return nil
}
