package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"ContentRadar/internal/classify"
	"ContentRadar/internal/collector"
	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ingest"
	"ContentRadar/internal/ports"
	"ContentRadar/internal/signals"
)

const serializedBodyLimit = 500

// Server exposes the read-side queries plus the two operational entry
// points (run ingestion for a source, run classification).
type Server struct {
	cfg         config.Config
	logger      *slog.Logger
	store       ports.RecordRepository
	registry    *collector.Registry
	coordinator *ingest.Coordinator
	aggregator  *signals.Aggregator
	reasoner    ports.Reasoner
}

// NewServer wires all request dependencies.
func NewServer(cfg config.Config, logger *slog.Logger, store ports.RecordRepository,
	registry *collector.Registry, coordinator *ingest.Coordinator,
	aggregator *signals.Aggregator, reasoner ports.Reasoner) *Server {
	return &Server{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		registry:    registry,
		coordinator: coordinator,
		aggregator:  aggregator,
		reasoner:    reasoner,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/articles/latest", s.handleLatest)
	mux.HandleFunc("GET /api/articles/search", s.handleSearch)
	mux.HandleFunc("GET /api/articles/digest", s.handleDigest)
	mux.HandleFunc("GET /api/articles/signals", s.handleSignals)
	mux.HandleFunc("GET /api/articles/sources", s.handleSources)
	mux.HandleFunc("POST /api/collect/{source}", s.handleCollect)
	mux.HandleFunc("POST /api/classify", s.handleClassify)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "contentradar"})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	filter := domain.RecordFilter{
		Source:       r.URL.Query().Get("source"),
		MinRelevance: intParam(r, "min_relevance", 0, 1, 5),
		Limit:        intParam(r, "limit", 20, 1, 200),
	}

	records, err := s.store.Query(r.Context(), filter)
	if err != nil {
		s.fail(w, "query latest articles", err)
		return
	}
	writeJSON(w, http.StatusOK, presentRecords(records))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Error(w, `missing required parameter "q"`, http.StatusBadRequest)
		return
	}

	days := intParam(r, "days", 30, 1, 365)
	filter := domain.RecordFilter{
		Source:         r.URL.Query().Get("source"),
		Search:         q,
		CollectedSince: time.Now().UTC().AddDate(0, 0, -days),
		Limit:          intParam(r, "limit", 50, 1, 200),
	}

	records, err := s.store.Query(r.Context(), filter)
	if err != nil {
		s.fail(w, "search articles", err)
		return
	}
	writeJSON(w, http.StatusOK, presentRecords(records))
}

type digestSource struct {
	Count    int                    `json:"count"`
	Articles []domain.ContentRecord `json:"articles"`
}

type tagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type digestResponse struct {
	Period      string                  `json:"period"`
	GeneratedAt time.Time               `json:"generated_at"`
	Sources     map[string]digestSource `json:"sources"`
	TopTags     []tagCount              `json:"top_tags"`
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	hours := intParam(r, "hours", 24, 1, 168)
	perSource := intParam(r, "limit_per_source", 10, 1, 50)

	records, err := s.store.Query(r.Context(), domain.RecordFilter{
		CollectedSince: time.Now().UTC().Add(-time.Duration(hours) * time.Hour),
	})
	if err != nil {
		s.fail(w, "query digest window", err)
		return
	}

	bySource := make(map[string][]domain.ContentRecord)
	counts := make(map[string]int)
	for _, rec := range records {
		bySource[rec.Source] = append(bySource[rec.Source], rec)
		for _, tag := range rec.Tags {
			counts[tag]++
		}
	}

	sources := make(map[string]digestSource, len(bySource))
	for source, group := range bySource {
		// Link-aggregator posts rank by engagement, the rest by recency.
		if source == "hackernews" {
			sort.SliceStable(group, func(i, j int) bool {
				return group[i].EngagementScore > group[j].EngagementScore
			})
		} else {
			sort.SliceStable(group, func(i, j int) bool {
				return publishedOrZero(group[i]).After(publishedOrZero(group[j]))
			})
		}
		if len(group) > perSource {
			group = group[:perSource]
		}
		sources[source] = digestSource{Count: len(group), Articles: presentRecords(group)}
	}

	topTags := make([]tagCount, 0, len(counts))
	for tag, count := range counts {
		topTags = append(topTags, tagCount{Tag: tag, Count: count})
	}
	sort.Slice(topTags, func(i, j int) bool {
		if topTags[i].Count != topTags[j].Count {
			return topTags[i].Count > topTags[j].Count
		}
		return topTags[i].Tag < topTags[j].Tag
	})
	if len(topTags) > 30 {
		topTags = topTags[:30]
	}

	writeJSON(w, http.StatusOK, digestResponse{
		Period:      "last " + strconv.Itoa(hours) + "h",
		GeneratedAt: time.Now().UTC(),
		Sources:     sources,
		TopTags:     topTags,
	})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	report, err := s.aggregator.Signals(r.Context(),
		intParam(r, "hours", 24, 1, 168),
		intParam(r, "compare_hours", 24, 1, 168),
		intParam(r, "min_relevance", 1, 1, 5),
		r.URL.Query().Get("source"))
	if err != nil {
		s.fail(w, "compute signals", err)
		return
	}
	report.TopArticles = presentRecords(report.TopArticles)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.SourceStats(r.Context())
	if err != nil {
		s.fail(w, "query source stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("source")
	col, err := s.registry.Resolve(name)
	if err != nil {
		http.Error(w, "unknown source: "+name, http.StatusNotFound)
		return
	}

	summary, err := s.coordinator.Run(r.Context(), col)
	if err != nil {
		s.fail(w, "run ingestion", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if s.reasoner == nil {
		http.Error(w, "classifier not configured", http.StatusServiceUnavailable)
		return
	}

	limit := intParam(r, "limit", 50, 1, 1000)
	batchSize := intParam(r, "batch_size", s.cfg.Classifier.BatchSize, 1, 50)

	cfg := s.cfg.Classifier
	if budget := r.URL.Query().Get("budget"); budget != "" {
		if v, err := strconv.ParseFloat(budget, 64); err == nil && v > 0 {
			cfg.Budget = v
		}
	}

	// Each request gets its own session, so the spend ceiling is per run.
	classifier := classify.NewClassifier(s.reasoner, cfg, s.logger)
	summary, err := classify.Run(r.Context(), s.store, classifier, limit, batchSize, s.logger)
	if err != nil {
		s.fail(w, "run classification", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) fail(w http.ResponseWriter, action string, err error) {
	s.logger.Error(action, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// presentRecords caps each body at the serialization limit; storage keeps
// the full text.
func presentRecords(records []domain.ContentRecord) []domain.ContentRecord {
	out := make([]domain.ContentRecord, len(records))
	copy(out, records)
	for i := range out {
		runes := []rune(out[i].Body)
		if len(runes) > serializedBodyLimit {
			out[i].Body = string(runes[:serializedBodyLimit])
		}
	}
	return out
}

func publishedOrZero(rec domain.ContentRecord) time.Time {
	if rec.PublishedAt != nil {
		return *rec.PublishedAt
	}
	return time.Time{}
}

func intParam(r *http.Request, name string, def, lo, hi int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
