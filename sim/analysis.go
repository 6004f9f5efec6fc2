package sim

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/nkats/pomdp-plan/pomdp"
	"github.com/nkats/pomdp-plan/util"
)

// Generic dataset that contains information after processing the traces
type DataSet interface{}

// Analyzer compresses episode traces into a DataSet. One instance is
// created per experiment and run, so analyzers may keep state freely.
type Analyzer interface {
	// Run, episode, experiment name, trace, discounted return
	Analyze(run int, episode int, experiment string, trace *pomdp.Trace, reward float64)
	// Resulting dataset
	DataSet() DataSet
	// Reset the analyzer
	Reset()
}

// AnalyzerFactory produces a fresh analyzer per experiment and run.
type AnalyzerFactory func() Analyzer

// Comparator differentiates between datasets with associated
// experiment names, once per run.
type Comparator func(run int, names []string, datasets []DataSet)

func NoopComparator() Comparator {
	return func(run int, names []string, datasets []DataSet) {}
}

// RewardAnalyzer collects the discounted return of every episode.
type RewardAnalyzer struct {
	returns []float64
}

func NewRewardAnalyzer() *RewardAnalyzer {
	return &RewardAnalyzer{returns: make([]float64, 0)}
}

var _ Analyzer = &RewardAnalyzer{}

func (r *RewardAnalyzer) Analyze(run, episode int, experiment string, trace *pomdp.Trace, reward float64) {
	r.returns = append(r.returns, reward)
}

func (r *RewardAnalyzer) DataSet() DataSet {
	out := make([]float64, len(r.returns))
	copy(out, r.returns)
	return out
}

func (r *RewardAnalyzer) Reset() {
	r.returns = make([]float64, 0)
}

// BeliefAccuracyAnalyzer records, per episode, the fraction of steps
// whose belief puts the most mass on the true state.
type BeliefAccuracyAnalyzer struct {
	fractions []float64
}

func NewBeliefAccuracyAnalyzer() *BeliefAccuracyAnalyzer {
	return &BeliefAccuracyAnalyzer{fractions: make([]float64, 0)}
}

var _ Analyzer = &BeliefAccuracyAnalyzer{}

func (b *BeliefAccuracyAnalyzer) Analyze(run, episode int, experiment string, trace *pomdp.Trace, reward float64) {
	if trace.Len() == 0 {
		b.fractions = append(b.fractions, 0)
		return
	}
	matches := 0
	for i := 0; i < trace.Len(); i++ {
		step, _ := trace.Get(i)
		if step.Belief.MostLikely().Index() == step.State.Index() {
			matches += 1
		}
	}
	b.fractions = append(b.fractions, float64(matches)/float64(trace.Len()))
}

func (b *BeliefAccuracyAnalyzer) DataSet() DataSet {
	out := make([]float64, len(b.fractions))
	copy(out, b.fractions)
	return out
}

func (b *BeliefAccuracyAnalyzer) Reset() {
	b.fractions = make([]float64, 0)
}

// RewardPlotter plots the running mean discounted return per episode,
// one line per experiment, and saves a PNG per run.
func RewardPlotter(plotPath string) Comparator {
	if _, err := os.Stat(plotPath); err != nil {
		os.MkdirAll(plotPath, os.ModePerm)
	}
	return func(run int, names []string, datasets []DataSet) {
		p := plot.New()
		p.Title.Text = "Comparison"
		p.X.Label.Text = "Episode"
		p.Y.Label.Text = "Discounted return (running mean)"
		for i := 0; i < len(names); i++ {
			returns := datasets[i].([]float64)
			points := make(plotter.XYs, len(returns))
			sum := 0.0
			for j, v := range returns {
				sum += v
				points[j] = plotter.XY{
					X: float64(j),
					Y: sum / float64(j+1),
				}
			}
			line, err := plotter.NewLine(points)
			if err != nil {
				continue
			}
			line.Color = plotutil.Color(i)
			p.Add(line)
			p.Legend.Add(names[i], line)
			if len(returns) > 0 {
				fmt.Printf("Mean discounted return: %.3f for experiment: %s\n", points[len(points)-1].Y, names[i])
			}
		}
		p.Save(8*vg.Inch, 8*vg.Inch, path.Join(plotPath, strconv.Itoa(run)+"_returns.png"))
	}
}

// JSONComparator writes the named datasets of a run to a JSON file
// under savePath.
func JSONComparator(savePath string, label string) Comparator {
	if _, err := os.Stat(savePath); err != nil {
		os.MkdirAll(savePath, os.ModePerm)
	}
	return func(run int, names []string, datasets []DataSet) {
		out := make(map[string]DataSet, len(names))
		for i, name := range names {
			out[name] = datasets[i]
		}
		util.WriteJSON(path.Join(savePath, strconv.Itoa(run)+"_"+label+".json"), out)
	}
}
