// Package server exposes datasets and agreement views over HTTP.
package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/coolbeans/concurrence/pkg/concurrence"
	"github.com/coolbeans/concurrence/pkg/config"
	"github.com/coolbeans/concurrence/pkg/dataset"
)

// ErrNoLoader is returned by Reload when the holder has no loader.
var ErrNoLoader = errors.New("reload is not configured")

// Server serves the published dataset and views computed from it.
type Server struct {
	holder           *Holder
	defaultMinSample int
	releaseMode      bool
}

// New returns a server reading from holder. cfg may be nil.
func New(holder *Holder, cfg *config.Config) *Server {
	s := &Server{holder: holder, defaultMinSample: concurrence.DefaultMinSample}
	if cfg != nil {
		s.defaultMinSample = cfg.DefaultMinSample
		s.releaseMode = cfg.Server.ReleaseMode
	}
	return s
}

// SetupRouter registers every route on a new gin engine.
func (s *Server) SetupRouter() *gin.Engine {
	if s.releaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	r.GET("/healthz", s.Health)

	api := r.Group("/api")
	api.GET("/dataset", s.GetDataset)
	api.GET("/view", s.GetView)
	api.GET("/pairs", s.GetPairs)
	api.POST("/reload", s.PostReload)

	return r
}

// Health reports whether a dataset is published.
func (s *Server) Health(c *gin.Context) {
	ds := s.holder.Dataset()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"case_count":   ds.Meta.CaseCount,
		"member_count": ds.Meta.MemberCount,
	})
}

// GetDataset returns the dataset artifact.
func (s *Server) GetDataset(c *gin.Context) {
	ds, ok := s.requireDataset(c)
	if !ok {
		return
	}
	data, err := dataset.Marshal(ds)
	if err != nil {
		log.Printf("Failed to encode dataset: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode dataset"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// GetView returns the agreement view for the query filter.
func (s *Server) GetView(c *gin.Context) {
	ds, ok := s.requireDataset(c)
	if !ok {
		return
	}
	filter, err := s.parseFilter(c, ds)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, concurrence.ComputeView(ds, filter))
}

// GetPairs returns ranked pairs for the query filter, up to limit.
func (s *Server) GetPairs(c *gin.Context) {
	ds, ok := s.requireDataset(c)
	if !ok {
		return
	}
	filter, err := s.parseFilter(c, ds)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	pairs := concurrence.ComputeView(ds, filter).Pairs(filter.MinSample)
	if limit > 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	if pairs == nil {
		pairs = []concurrence.PairRate{}
	}
	c.JSON(http.StatusOK, gin.H{"pairs": pairs})
}

// PostReload rebuilds the dataset from the configured sources.
func (s *Server) PostReload(c *gin.Context) {
	ds, err := s.holder.Reload()
	if errors.Is(err, ErrNoLoader) {
		c.JSON(http.StatusConflict, gin.H{"error": "Reload is not configured"})
		return
	}
	if err != nil {
		log.Printf("Failed to reload dataset: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reload dataset"})
		return
	}
	log.Printf("Reloaded dataset: %d cases, %d members", ds.Meta.CaseCount, ds.Meta.MemberCount)
	c.JSON(http.StatusOK, gin.H{"status": "success", "meta": ds.Meta})
}

func (s *Server) requireDataset(c *gin.Context) (*dataset.Dataset, bool) {
	ds := s.holder.Dataset()
	if ds == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Dataset is not loaded"})
		return nil, false
	}
	return ds, true
}

// parseFilter reads from, to, members and min_sample. Absent parameters fall
// back to the dataset's full range, every member and the configured sample.
func (s *Server) parseFilter(c *gin.Context, ds *dataset.Dataset) (concurrence.Filter, error) {
	filter := concurrence.DefaultFilter(ds)
	filter.MinSample = s.defaultMinSample

	var err error
	if filter.PeriodStart, err = queryInt(c, "from", filter.PeriodStart); err != nil {
		return filter, fmt.Errorf("from must be an integer")
	}
	if filter.PeriodEnd, err = queryInt(c, "to", filter.PeriodEnd); err != nil {
		return filter, fmt.Errorf("to must be an integer")
	}
	if filter.MinSample, err = queryInt(c, "min_sample", filter.MinSample); err != nil {
		return filter, fmt.Errorf("min_sample must be an integer")
	}
	if raw, ok := c.GetQuery("members"); ok {
		filter.Members = concurrence.ParseMemberSubset(raw)
	}

	if err := filter.Validate(); err != nil {
		return filter, err
	}
	return filter, nil
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
