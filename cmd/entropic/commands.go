package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mehulsinghal/entropic/internal/dataset"
	"github.com/mehulsinghal/entropic/pkg/benchstore"
	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/search"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

func newGenCommand() *cobra.Command {
	var (
		out  string
		n    int
		dim  int
		max  float64
		seed int64
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a seeded random vector dataset as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			vectors := dataset.RandomVectors(n, dim, max, seed)
			return writeVectorsCSV(out, vectors)
		},
	}

	cmd.Flags().StringVar(&out, "out", "dataset.csv", "output CSV path")
	cmd.Flags().IntVar(&n, "n", 1000, "number of vectors")
	cmd.Flags().IntVar(&dim, "dim", 10, "vector dimension")
	cmd.Flags().Float64Var(&max, "max", 1.0, "coordinate upper bound")
	cmd.Flags().Int64Var(&seed, "seed", 42, "random seed")
	return cmd
}

func newBuildCommand() *cobra.Command {
	var (
		data     string
		metric   string
		minSplit float64
		maxSplit float64
		outTree  string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a partition tree over a CSV dataset and export its clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			tr, err := buildTree(data, metric, minSplit, maxSplit)
			if err != nil {
				return err
			}

			f, err := os.Create(outTree)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outTree, err)
			}
			defer f.Close()
			if err := tr.WriteCSV(f); err != nil {
				return err
			}

			fmt.Printf("built tree over %d items in %v, clusters written to %s\n",
				tr.Cardinality(), time.Since(start).Round(time.Millisecond), outTree)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "input CSV dataset (required)")
	cmd.Flags().StringVar(&metric, "metric", "euclidean", "metric: euclidean | manhattan | chebyshev")
	cmd.Flags().Float64Var(&minSplit, "min-split", 0, "minimum fraction for the smaller child")
	cmd.Flags().Float64Var(&maxSplit, "max-split", 1, "maximum fraction for the larger child")
	cmd.Flags().StringVar(&outTree, "out-tree", "tree.csv", "cluster CSV output path")
	cmd.MarkFlagRequired("data")
	return cmd
}

func newSearchCommand() *cobra.Command {
	var (
		data      string
		metric    string
		algorithm string
		k         int
		radius    float64
		queryStr  string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one query against a CSV dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := buildTree(data, metric, 0, 1)
			if err != nil {
				return err
			}

			query, err := parseVector(queryStr)
			if err != nil {
				return err
			}

			alg, err := algorithmByName(algorithm, k, radius)
			if err != nil {
				return err
			}

			hits, err := alg.Search(tr, query)
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d hits\n", alg.Name(), len(hits))
			for _, h := range hits {
				fmt.Printf("  %s\t%v\n", tr.Items()[h.Index].ID, h.Distance)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "input CSV dataset (required)")
	cmd.Flags().StringVar(&metric, "metric", "euclidean", "metric: euclidean | manhattan | chebyshev")
	cmd.Flags().StringVar(&algorithm, "algorithm", "knn_dfs", "knn_dfs | knn_bfs | knn_rrnn | knn_linear | rnn_chess | rnn_linear")
	cmd.Flags().IntVar(&k, "k", 10, "number of neighbors for knn algorithms")
	cmd.Flags().Float64Var(&radius, "radius", 0, "search radius for rnn algorithms")
	cmd.Flags().StringVar(&queryStr, "query", "", "comma-separated query vector (required)")
	cmd.MarkFlagRequired("data")
	cmd.MarkFlagRequired("query")
	return cmd
}

func newBenchCommand() *cobra.Command {
	var (
		data     string
		metric   string
		k        int
		nQueries int
		minTime  time.Duration
		storeDB  string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure all KNN algorithms and report the fastest",
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := buildTree(data, metric, 0, 1)
			if err != nil {
				return err
			}

			algorithms := []search.Algorithm[[]float64, float64]{
				search.KnnLinear[[]float64, float64]{K: k},
				search.KnnDfs[[]float64, float64]{K: k},
				search.KnnBfs[[]float64, float64]{K: k},
				search.KnnRepeatedRnn[[]float64, float64]{K: k},
			}

			var store *benchstore.Store
			if storeDB != "" {
				store, err = benchstore.Open(storeDB)
				if err != nil {
					return err
				}
				defer store.Close()
			}

			best, bestQPS := "", -1.0
			for _, alg := range algorithms {
				qps, err := search.MeasureThroughput(tr, nQueries, alg, minTime)
				if err != nil {
					return err
				}
				fmt.Printf("%-24s %12.1f queries/sec\n", alg.Name(), qps)

				if qps > bestQPS {
					best, bestQPS = alg.Name(), qps
				}
				if store != nil {
					if _, err := store.Record(benchstore.Measurement{
						Dataset:     name,
						Algorithm:   alg.Name(),
						Cardinality: tr.Cardinality(),
						Throughput:  qps,
					}); err != nil {
						return err
					}
				}
			}

			fmt.Printf("fastest: %s\n", best)
			return nil
		},
	}

	cmd.Flags().StringVar(&data, "data", "", "input CSV dataset (required)")
	cmd.Flags().StringVar(&metric, "metric", "euclidean", "metric: euclidean | manhattan | chebyshev")
	cmd.Flags().IntVar(&k, "k", 10, "number of neighbors")
	cmd.Flags().IntVar(&nQueries, "queries", 100, "number of self-queries per pass")
	cmd.Flags().DurationVar(&minTime, "min-time", time.Second, "minimum measurement time per algorithm")
	cmd.Flags().StringVar(&storeDB, "store", "", "optional SQLite file to record measurements")
	cmd.Flags().StringVar(&name, "name", "dataset", "dataset name used in the measurement store")
	cmd.MarkFlagRequired("data")
	return cmd
}

func buildTree(path, metricName string, minSplit, maxSplit float64) (*tree.Tree[[]float64, float64], error) {
	vectors, err := readVectorsCSV(path)
	if err != nil {
		return nil, err
	}

	metric, err := metricByName(metricName)
	if err != nil {
		return nil, err
	}

	strategy := tree.DefaultStrategy[float64]()
	strategy.MinSplit = minSplit
	strategy.MaxSplit = maxSplit
	return tree.New(tree.Pairs(vectors), metric, strategy)
}

func metricByName(name string) (distance.Func[[]float64, float64], error) {
	switch name {
	case "euclidean":
		return distance.Euclidean, nil
	case "manhattan":
		return distance.Manhattan, nil
	case "chebyshev":
		return distance.Chebyshev, nil
	default:
		return nil, fmt.Errorf("unknown metric %q", name)
	}
}

func algorithmByName(name string, k int, radius float64) (search.Algorithm[[]float64, float64], error) {
	switch name {
	case "knn_dfs":
		return search.KnnDfs[[]float64, float64]{K: k}, nil
	case "knn_bfs":
		return search.KnnBfs[[]float64, float64]{K: k}, nil
	case "knn_rrnn":
		return search.KnnRepeatedRnn[[]float64, float64]{K: k}, nil
	case "knn_linear":
		return search.KnnLinear[[]float64, float64]{K: k}, nil
	case "rnn_chess":
		return search.RnnChess[[]float64, float64]{Radius: radius}, nil
	case "rnn_linear":
		return search.RnnLinear[[]float64, float64]{Radius: radius}, nil
	case "approx_knn_dfs":
		return search.ApproxKnnDfs[[]float64, float64]{K: k, MaxLeaves: math.MaxInt, MaxDistComps: math.MaxInt}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", name)
	}
}

func readVectorsCSV(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	vectors := make([][]float64, 0, len(records))
	for i, record := range records {
		v := make([]float64, len(record))
		for j, field := range record {
			v[j], err = strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %d: %w", path, i+1, j+1, err)
			}
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func writeVectorsCSV(path string, vectors [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, v := range vectors {
		record := make([]string, len(v))
		for i, x := range v {
			record[i] = strconv.FormatFloat(x, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}

func parseVector(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	v := make([]float64, len(fields))
	for i, field := range fields {
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return nil, fmt.Errorf("query component %d: %w", i+1, err)
		}
		v[i] = x
	}
	return v, nil
}
