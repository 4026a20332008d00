package types

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/zeu5/grid-driving-vi/util"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// RewardAnalyzer records the total reward of every episode
type RewardAnalyzer struct {
	rewards []float64
}

func NewRewardAnalyzer() *RewardAnalyzer {
	return &RewardAnalyzer{
		rewards: make([]float64, 0),
	}
}

var _ Analyzer = &RewardAnalyzer{}

func (r *RewardAnalyzer) Analyze(_, _ int, _ string, trace *Trace) {
	r.rewards = append(r.rewards, trace.TotalReward())
}

func (r *RewardAnalyzer) DataSet() DataSet {
	out := make([]float64, len(r.rewards))
	copy(out, r.rewards)
	return out
}

func (r *RewardAnalyzer) Reset() {
	r.rewards = make([]float64, 0)
}

// SuccessRate is the running fraction of episodes that collected a reward
func SuccessRate(rewards []float64) []float64 {
	rates := make([]float64, len(rewards))
	succeeded := 0
	for i, r := range rewards {
		if r > 0 {
			succeeded++
		}
		rates[i] = float64(succeeded) / float64(i+1)
	}
	return rates
}

// SuccessRateComparator plots the running success rate of each experiment
func SuccessRateComparator(savePath string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		if err := util.EnsureDir(savePath); err != nil {
			return err
		}
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Success rate"

		rates := make(map[string][]float64)
		for i := 0; i < len(names); i++ {
			rate := SuccessRate(ds[i].([]float64))
			rates[names[i]] = rate
			points := make(plotter.XYs, len(rate))
			for j, v := range rate {
				points[j] = plotter.XY{
					X: float64(j),
					Y: v,
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
			if len(rate) > 0 {
				fmt.Printf("Success rate: %.3f for experiment: %s\n", rate[len(rate)-1], names[i])
			}
		}
		if err := p.Save(8*vg.Inch, 8*vg.Inch, path.Join(savePath, strconv.Itoa(run)+"_success_rate.png")); err != nil {
			return err
		}

		bs, err := json.Marshal(rates)
		if err != nil {
			return err
		}
		return os.WriteFile(path.Join(savePath, strconv.Itoa(run)+"_success_rate.json"), bs, 0644)
	}
}

// EpisodeLengthAnalyzer records the number of steps of every episode
type EpisodeLengthAnalyzer struct {
	lengths []float64
}

func NewEpisodeLengthAnalyzer() *EpisodeLengthAnalyzer {
	return &EpisodeLengthAnalyzer{
		lengths: make([]float64, 0),
	}
}

var _ Analyzer = &EpisodeLengthAnalyzer{}

func (e *EpisodeLengthAnalyzer) Analyze(_, _ int, _ string, trace *Trace) {
	e.lengths = append(e.lengths, float64(trace.Len()))
}

func (e *EpisodeLengthAnalyzer) DataSet() DataSet {
	out := make([]float64, len(e.lengths))
	copy(out, e.lengths)
	return out
}

func (e *EpisodeLengthAnalyzer) Reset() {
	e.lengths = make([]float64, 0)
}

// EpisodeLengthComparator draws one bar per experiment with its mean episode length
func EpisodeLengthComparator(savePath string) Comparator {
	return func(run, _ int, names []string, ds []DataSet) error {
		if err := util.EnsureDir(savePath); err != nil {
			return err
		}
		means := make(plotter.Values, len(names))
		for i := range names {
			lengths := ds[i].([]float64)
			if len(lengths) > 0 {
				means[i] = stat.Mean(lengths, nil)
			}
			fmt.Printf("Mean episode length: %.2f for experiment: %s\n", means[i], names[i])
		}

		p := plot.New()
		p.Title.Text = "Comparison"
		p.Y.Label.Text = "Mean episode length"
		bars, err := plotter.NewBarChart(means, vg.Points(30))
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(0)
		p.Add(bars)
		p.NominalX(names...)
		return p.Save(8*vg.Inch, 8*vg.Inch, path.Join(savePath, strconv.Itoa(run)+"_episode_length.png"))
	}
}
