package rest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/mehulsinghal/entropic/pkg/distance"
	"github.com/mehulsinghal/entropic/pkg/search"
	"github.com/mehulsinghal/entropic/pkg/tree"
)

// buildRequest asks the server to build a tree over uploaded vectors.
type buildRequest struct {
	Name    string      `json:"name"`
	Metric  string      `json:"metric"` // euclidean | manhattan | chebyshev
	Vectors [][]float64 `json:"vectors"`
	IDs     []string    `json:"ids,omitempty"`

	MinSplit *float64 `json:"min_split,omitempty"`
	MaxSplit *float64 `json:"max_split,omitempty"`
}

// buildResponse reports the outcome of a build.
type buildResponse struct {
	Name        string  `json:"name"`
	Cardinality int     `json:"cardinality"`
	MaxDepth    int     `json:"max_depth"`
	Radius      float64 `json:"radius"`
	LFD         float64 `json:"lfd"`
	BuildMillis int64   `json:"build_millis"`
}

// searchRequest runs one algorithm over a batch of queries.
type searchRequest struct {
	Algorithm    string      `json:"algorithm"` // knn_dfs | knn_bfs | knn_rrnn | knn_linear | rnn_chess | rnn_linear | approx_knn_dfs
	K            int         `json:"k,omitempty"`
	Radius       float64     `json:"radius,omitempty"`
	MaxLeaves    int         `json:"max_leaves,omitempty"`
	MaxDistComps int         `json:"max_dist_comps,omitempty"`
	Queries      [][]float64 `json:"queries"`
	Parallel     bool        `json:"parallel,omitempty"`
}

// searchHit is one hit mapped back to the caller's ID.
type searchHit struct {
	ID       string  `json:"id"`
	Index    int     `json:"index"`
	Distance float64 `json:"distance"`
}

// searchResponse carries one hit list per query.
type searchResponse struct {
	Algorithm string        `json:"algorithm"`
	Results   [][]searchHit `json:"results"`
}

// statsResponse summarizes one dataset's tree.
type statsResponse struct {
	Name        string    `json:"name"`
	Metric      string    `json:"metric"`
	Dimension   int       `json:"dimension"`
	Cardinality int       `json:"cardinality"`
	MaxDepth    int       `json:"max_depth"`
	Clusters    int       `json:"clusters"`
	Radius      float64   `json:"radius"`
	LFD         float64   `json:"lfd"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := len(s.datasets)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"datasets": n,
	})
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]statsResponse, 0, len(s.datasets))
	for name, ds := range s.datasets {
		out = append(out, s.statsFor(name, ds))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"datasets": out})
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req buildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "build", http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if req.Name == "" {
		s.fail(w, "build", http.StatusBadRequest, errors.New("dataset name is required"))
		return
	}
	if len(req.Vectors) == 0 {
		s.fail(w, "build", http.StatusBadRequest, errors.New("vectors must not be empty"))
		return
	}
	if len(req.IDs) > 0 && len(req.IDs) != len(req.Vectors) {
		s.fail(w, "build", http.StatusBadRequest, errors.New("ids and vectors must have the same length"))
		return
	}

	metric, err := metricByName(req.Metric)
	if err != nil {
		s.fail(w, "build", http.StatusBadRequest, err)
		return
	}

	strategy := tree.Strategy[float64]{
		SqrtThresh:  s.cfg.Tree.SqrtThresh,
		Log2Thresh:  s.cfg.Tree.Log2Thresh,
		MinSplit:    s.cfg.Tree.MinSplit,
		MaxSplit:    s.cfg.Tree.MaxSplit,
		DepthStride: s.cfg.Tree.DepthStride,
	}
	if req.MinSplit != nil {
		strategy.MinSplit = *req.MinSplit
	}
	if req.MaxSplit != nil {
		strategy.MaxSplit = *req.MaxSplit
	}

	pairs := make([]tree.Pair[[]float64], len(req.Vectors))
	for i, v := range req.Vectors {
		id := fmt.Sprintf("%d", i)
		if len(req.IDs) > 0 {
			id = req.IDs[i]
		}
		pairs[i] = tree.Pair[[]float64]{ID: id, Item: v}
	}

	tr, err := tree.New(pairs, metric, strategy)
	if err != nil {
		s.fail(w, "build", http.StatusBadRequest, err)
		return
	}

	ds := &builtDataset{
		tree:       tr,
		metricName: req.Metric,
		dimension:  len(req.Vectors[0]),
		maxDepth:   maxDepth(tr),
		createdAt:  time.Now(),
	}

	s.mu.Lock()
	s.datasets[req.Name] = ds
	s.mu.Unlock()

	duration := time.Since(start)
	s.metrics.RecordBuild(req.Name, tr.Cardinality(), ds.maxDepth, duration)
	s.metrics.RecordRequest("build", "success", duration)
	s.logger.Info("built dataset", map[string]interface{}{
		"name":        req.Name,
		"cardinality": tr.Cardinality(),
		"max_depth":   ds.maxDepth,
		"duration":    duration,
	})

	writeJSON(w, http.StatusCreated, buildResponse{
		Name:        req.Name,
		Cardinality: tr.Cardinality(),
		MaxDepth:    ds.maxDepth,
		Radius:      tr.Root().Radius(),
		LFD:         tr.Root().LFD(),
		BuildMillis: duration.Milliseconds(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := r.PathValue("name")

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, "search", http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if len(req.Queries) == 0 {
		s.fail(w, "search", http.StatusBadRequest, errors.New("queries must not be empty"))
		return
	}

	s.mu.RLock()
	ds, ok := s.datasets[name]
	s.mu.RUnlock()
	if !ok {
		s.fail(w, "search", http.StatusNotFound, fmt.Errorf("unknown dataset %q", name))
		return
	}

	alg, err := s.algorithmFor(req, ds)
	if err != nil {
		s.fail(w, "search", http.StatusBadRequest, err)
		return
	}

	cacheKey := s.cacheKey(name, &req)
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			s.metrics.CacheHits.Inc()
			writeJSON(w, http.StatusOK, cached)
			return
		}
		s.metrics.CacheMisses.Inc()
	}

	var hits [][]tree.Hit[float64]
	if req.Parallel {
		hits, err = search.ParBatch(alg, ds.tree, req.Queries)
	} else {
		hits, err = search.Batch(alg, ds.tree, req.Queries)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tree.ErrInvalidParameter) || errors.Is(err, tree.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		s.fail(w, "search", status, err)
		return
	}

	resp := searchResponse{Algorithm: alg.Name(), Results: make([][]searchHit, len(hits))}
	totalHits := 0
	for i, hs := range hits {
		out := make([]searchHit, len(hs))
		for j, h := range hs {
			out[j] = searchHit{
				ID:       ds.tree.Items()[h.Index].ID,
				Index:    h.Index,
				Distance: h.Distance,
			}
		}
		resp.Results[i] = out
		totalHits += len(out)
	}

	if s.cache != nil {
		s.cache.Add(cacheKey, resp)
	}

	duration := time.Since(start)
	s.metrics.RecordSearch(alg.Name(), totalHits, duration)
	s.metrics.RecordRequest("search", "success", duration)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	s.mu.RLock()
	ds, ok := s.datasets[name]
	s.mu.RUnlock()
	if !ok {
		s.fail(w, "stats", http.StatusNotFound, fmt.Errorf("unknown dataset %q", name))
		return
	}
	writeJSON(w, http.StatusOK, s.statsFor(name, ds))
}

func (s *Server) handleTreeCSV(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	s.mu.RLock()
	ds, ok := s.datasets[name]
	s.mu.RUnlock()
	if !ok {
		s.fail(w, "export", http.StatusNotFound, fmt.Errorf("unknown dataset %q", name))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".csv"))
	if err := ds.tree.WriteCSV(w); err != nil {
		s.logger.Error("csv export failed", map[string]interface{}{"dataset": name, "error": err.Error()})
	}
}

// algorithmFor maps a search request to a concrete algorithm.
func (s *Server) algorithmFor(req searchRequest, ds *builtDataset) (search.Algorithm[[]float64, float64], error) {
	k := req.K
	if k == 0 {
		k = s.cfg.Search.DefaultK
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d: %w", k, tree.ErrInvalidParameter)
	}
	if req.Radius < 0 {
		return nil, fmt.Errorf("radius must be non-negative, got %v: %w", req.Radius, tree.ErrInvalidParameter)
	}

	switch req.Algorithm {
	case "knn_dfs", "":
		return search.KnnDfs[[]float64, float64]{K: k}, nil
	case "knn_bfs":
		return search.KnnBfs[[]float64, float64]{K: k}, nil
	case "knn_rrnn":
		return search.KnnRepeatedRnn[[]float64, float64]{K: k}, nil
	case "knn_linear":
		return search.KnnLinear[[]float64, float64]{K: k}, nil
	case "rnn_chess":
		return search.RnnChess[[]float64, float64]{Radius: req.Radius}, nil
	case "rnn_linear":
		return search.RnnLinear[[]float64, float64]{Radius: req.Radius}, nil
	case "approx_knn_dfs":
		maxLeaves := req.MaxLeaves
		if maxLeaves <= 0 {
			maxLeaves = math.MaxInt
		}
		maxDistComps := req.MaxDistComps
		if maxDistComps <= 0 {
			maxDistComps = math.MaxInt
		}
		return search.ApproxKnnDfs[[]float64, float64]{K: k, MaxLeaves: maxLeaves, MaxDistComps: maxDistComps}, nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q: %w", req.Algorithm, tree.ErrInvalidParameter)
	}
}

func (s *Server) statsFor(name string, ds *builtDataset) statsResponse {
	return statsResponse{
		Name:        name,
		Metric:      ds.metricName,
		Dimension:   ds.dimension,
		Cardinality: ds.tree.Cardinality(),
		MaxDepth:    ds.maxDepth,
		Clusters:    len(ds.tree.PreOrder()),
		Radius:      ds.tree.Root().Radius(),
		LFD:         ds.tree.Root().LFD(),
		CreatedAt:   ds.createdAt,
	}
}

// cacheKey digests a search request so identical queries against the same
// dataset can share a cached response.
func (s *Server) cacheKey(name string, req *searchRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%v|%d|%d|%v|", name, req.Algorithm, req.K, req.Radius, req.MaxLeaves, req.MaxDistComps, req.Parallel)
	for _, q := range req.Queries {
		for _, v := range q {
			fmt.Fprintf(h, "%v,", v)
		}
		h.Write([]byte(";"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Server) fail(w http.ResponseWriter, method string, status int, err error) {
	s.metrics.RecordRequestError(method, http.StatusText(status))
	s.logger.Warn("request failed", map[string]interface{}{
		"method": method,
		"status": status,
		"error":  err.Error(),
	})
	writeJSON(w, status, map[string]interface{}{"error": err.Error(), "status": status})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// metricByName resolves the metric named in a build request.
func metricByName(name string) (distance.Func[[]float64, float64], error) {
	switch name {
	case "euclidean", "":
		return distance.Euclidean, nil
	case "manhattan":
		return distance.Manhattan, nil
	case "chebyshev":
		return distance.Chebyshev, nil
	default:
		return nil, fmt.Errorf("unknown metric %q: %w", name, tree.ErrInvalidParameter)
	}
}

// maxDepth returns the deepest cluster depth of the tree.
func maxDepth[I any, U distance.Value](t *tree.Tree[I, U]) int {
	depth := 0
	for _, c := range t.PreOrder() {
		if c.Depth() > depth {
			depth = c.Depth()
		}
	}
	return depth
}
