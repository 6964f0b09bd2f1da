package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"tlog.app/go/tlog"

	"nikand.dev/go/fuzz/cover"
	"nikand.dev/go/fuzz/harness"
)

type (
	Service struct {
		r *harness.Runner
	}

	edge struct {
		ID    int  `json:"id"`
		Count byte `json:"count"`
	}
)

func New(r *harness.Runner) *Service {
	return &Service{r: r}
}

// Handler serves the runner state:
//
//	GET /stats            execution totals
//	GET /cover            max hit counts as json
//	GET /cover?format=raw max hit counts as a dump
//	GET /targets          registered targets
func (s *Service) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	e := gin.New()
	e.Use(gin.Recovery(), logger)

	e.GET("/stats", s.HandleStats)
	e.GET("/cover", s.HandleCover)
	e.GET("/targets", s.HandleTargets)

	return e
}

func (s *Service) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.r.Stats())
}

func (s *Service) HandleCover(c *gin.Context) {
	cnt := s.r.Cover()

	if c.Query("format") == "raw" {
		c.Data(http.StatusOK, "application/octet-stream", cover.AppendDump(nil, cnt))
		return
	}

	edges := make([]edge, 0, cover.Count(cnt))

	for id, v := range cnt {
		if v != 0 {
			edges = append(edges, edge{ID: id, Count: v})
		}
	}

	c.Header("X-Edges", strconv.Itoa(len(edges)))

	c.JSON(http.StatusOK, gin.H{
		"size":  len(cnt),
		"edges": edges,
	})
}

func (s *Service) HandleTargets(c *gin.Context) {
	c.JSON(http.StatusOK, harness.Targets())
}

func logger(c *gin.Context) {
	c.Next()

	tlog.V("http").Printw("http request", "method", c.Request.Method, "path", c.Request.URL.Path,
		"client_ip", c.ClientIP(), "status_code", c.Writer.Status())
}
