/*
Package heatmap renders topic-correlation heatmaps from survey scores.

PURPOSE:
  The engagement pulse produces one score row per (leader, topic). For a
  chosen organizational area this package pivots those scores into a
  leader-by-topic matrix, correlates the topics pairwise across leaders
  and renders the correlation matrix as an annotated square heatmap.
  HR uses the picture to spot topics that move together inside an area.

CALCULATION:
  1. Keep rows where the group column equals the filter value.
  2. Pivot: mean score per (leader, topic); absent pairs are holes.
  3. Pearson correlation per topic pair over leaders where both topics
     have a value. Fewer than two shared observations, or a constant
     topic, yields a hole (rendered blank, like a NaN cell).
  4. Plot titled "{group} - {filter}"; PNG name heatmap_{group}_{filter}.png.

SEE ALSO:
  - dataset: the score table shape
*/
package heatmap

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/warp/people-analytics/dataset"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options names the pivot columns. Zero fields take the pulse-survey
// defaults.
type Options struct {
	RowColumn   string // pivot rows, default "Lider"
	TopicColumn string // pivot columns, default "Topico"
	ValueColumn string // scores, default "indice"
	OutputDir   string // PNG directory, default current directory
}

func (o Options) withDefaults() Options {
	if o.RowColumn == "" {
		o.RowColumn = "Lider"
	}
	if o.TopicColumn == "" {
		o.TopicColumn = "Topico"
	}
	if o.ValueColumn == "" {
		o.ValueColumn = "indice"
	}
	return o
}

// =============================================================================
// CORRELATION MATRIX
// =============================================================================

// Matrix is a symmetric topic-correlation matrix. Values[i][j] is the
// Pearson correlation of Topics[i] and Topics[j]; holes are NaN.
type Matrix struct {
	Topics []string
	Values [][]float64
}

// CorrelationMatrix computes the topic correlations for one area. An
// empty selection yields an empty matrix, not an error; the rendered
// plot is simply blank, and dashboards treat it as "no data yet".
func CorrelationMatrix(ds *dataset.Dataset, group, filter string, opts Options) (*Matrix, error) {
	opts = opts.withDefaults()
	if err := ds.Require(group, opts.RowColumn, opts.TopicColumn, opts.ValueColumn); err != nil {
		return nil, err
	}

	// Pivot to mean score per (leader, topic).
	type pair struct{ leader, topic string }
	sums := make(map[pair]float64)
	counts := make(map[pair]int)
	leaderSet := make(map[string]bool)
	topicSet := make(map[string]bool)

	for i := 0; i < ds.Len(); i++ {
		if ds.Cell(i, group) != filter {
			continue
		}
		score, err := strconv.ParseFloat(ds.Cell(i, opts.ValueColumn), 64)
		if err != nil {
			continue
		}
		p := pair{leader: ds.Cell(i, opts.RowColumn), topic: ds.Cell(i, opts.TopicColumn)}
		sums[p] += score
		counts[p]++
		leaderSet[p.leader] = true
		topicSet[p.topic] = true
	}

	leaders := sortedKeys(leaderSet)
	topics := sortedKeys(topicSet)

	// byTopic[t][l] = mean score of leader l on topic t, NaN for holes.
	byTopic := make([][]float64, len(topics))
	for ti, topic := range topics {
		byTopic[ti] = make([]float64, len(leaders))
		for li, leader := range leaders {
			p := pair{leader: leader, topic: topic}
			if n := counts[p]; n > 0 {
				byTopic[ti][li] = sums[p] / float64(n)
			} else {
				byTopic[ti][li] = math.NaN()
			}
		}
	}

	m := &Matrix{Topics: topics, Values: make([][]float64, len(topics))}
	for i := range topics {
		m.Values[i] = make([]float64, len(topics))
		for j := range topics {
			if i == j {
				m.Values[i][j] = 1
				continue
			}
			m.Values[i][j] = pairwiseCorrelation(byTopic[i], byTopic[j])
		}
	}
	return m, nil
}

// pairwiseCorrelation correlates two topic vectors over the leaders
// where both have values.
func pairwiseCorrelation(a, b []float64) float64 {
	var xs, ys []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// =============================================================================
// RENDERING
// =============================================================================

// matrixGrid adapts a Matrix to the plotter grid interface.
type matrixGrid struct{ m *Matrix }

func (g matrixGrid) Dims() (int, int)   { return len(g.m.Topics), len(g.m.Topics) }
func (g matrixGrid) Z(c, r int) float64 { return g.m.Values[r][c] }
func (g matrixGrid) X(c int) float64    { return float64(c) }
func (g matrixGrid) Y(r int) float64    { return float64(r) }

// Plot renders the correlation heatmap for one area, annotated with the
// correlation values at one decimal. An empty matrix renders as a bare
// titled plot.
func Plot(ds *dataset.Dataset, group, filter string, opts Options) (*plot.Plot, error) {
	m, err := CorrelationMatrix(ds, group, filter, opts)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s", group, filter)
	if len(m.Topics) == 0 {
		return p, nil
	}

	grid := matrixGrid{m: m}
	hm := plotter.NewHeatMap(grid, palette.Heat(12, 1))
	// Correlations live in [-1, 1]. Pin the palette to that range instead
	// of the observed extremes so every area renders on the same scale.
	hm.Min, hm.Max = -1, 1
	p.Add(hm)

	ticks := make([]plot.Tick, len(m.Topics))
	for i, topic := range m.Topics {
		ticks[i] = plot.Tick{Value: float64(i), Label: topic}
	}
	p.X.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	labels, err := cellLabels(m)
	if err != nil {
		return nil, err
	}
	p.Add(labels)
	return p, nil
}

// cellLabels places the ".1f" annotation in each non-hole cell.
func cellLabels(m *Matrix) (*plotter.Labels, error) {
	var xys plotter.XYs
	var texts []string
	for i := range m.Topics {
		for j := range m.Topics {
			v := m.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(i)})
			texts = append(texts, strconv.FormatFloat(v, 'f', 1, 64))
		}
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, fmt.Errorf("build annotations: %w", err)
	}
	return labels, nil
}

// Save renders the heatmap and writes it as a 5x5 inch PNG named
// heatmap_{group}_{filter}.png under the output directory, returning
// the written path.
func Save(ds *dataset.Dataset, group, filter string, opts Options) (string, error) {
	opts = opts.withDefaults()
	p, err := Plot(ds, group, filter, opts)
	if err != nil {
		return "", err
	}
	path := filepath.Join(opts.OutputDir, fmt.Sprintf("heatmap_%s_%s.png", group, filter))
	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return "", fmt.Errorf("save heatmap: %w", err)
	}
	return path, nil
}
