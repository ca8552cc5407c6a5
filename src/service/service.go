package service

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mosaicnetworks/cadence/src/delta"
	"github.com/mosaicnetworks/cadence/src/peers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Node is the part of a node exposed by the API.
type Node interface {
	GetStats() map[string]string
	GetPeers() []*peers.Peer
	GetLatestDeltaHash(asOf time.Time) delta.Hash
	GetHashChain() []delta.HashChainEntry
	GetDelta(ctx context.Context, hash delta.Hash) (*delta.Delta, bool)
	Registry() *prometheus.Registry
}

// Service ...
type Service struct {
	bindAddress string
	node        Node
	router      *gin.Engine
	server      *http.Server
	timeout     time.Duration
	logger      *logrus.Entry
}

// NewService ...
func NewService(bindAddress string, n Node, logger *logrus.Entry) *Service {
	gin.SetMode(gin.ReleaseMode)

	service := Service{
		bindAddress: bindAddress,
		node:        n,
		router:      gin.New(),
		timeout:     5 * time.Second,
		logger:      logger.WithField("prefix", "service"),
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering Cadence API handlers")

	s.router.Use(gin.Recovery(), s.cors)

	s.router.GET("/stats", s.GetStats)
	s.router.GET("/latest", s.GetLatest)
	s.router.GET("/chain", s.GetChain)
	s.router.GET("/delta/:hash", s.GetDelta)
	s.router.GET("/producers", s.GetProducers)

	var handler http.Handler
	if reg := s.node.Registry(); reg != nil {
		handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	} else {
		handler = promhttp.Handler()
	}
	s.router.GET("/metrics", gin.WrapH(handler))
}

func (s *Service) cors(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Next()
}

// Handler returns the router, to mount the API in another server.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving Cadence API")

	s.server = &http.Server{
		Addr:    s.bindAddress,
		Handler: s.router,
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Shutdown stops the server started by Serve.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// GetStats ...
func (s *Service) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.node.GetStats())
}

// GetLatest returns the latest delta hash accepted at or before the asof
// query parameter (RFC3339), or now.
func (s *Service) GetLatest(c *gin.Context) {
	asOf := time.Now()

	if param := c.Query("asof"); param != "" {
		t, err := time.Parse(time.RFC3339Nano, param)
		if err != nil {
			s.logger.WithError(err).Debugf("Parsing asof parameter %s", param)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		asOf = t
	}

	c.JSON(http.StatusOK, gin.H{
		"asof": asOf.UTC().Format(time.RFC3339Nano),
		"hash": s.node.GetLatestDeltaHash(asOf),
	})
}

// GetChain returns the hash-chain index, oldest first.
func (s *Service) GetChain(c *gin.Context) {
	c.JSON(http.StatusOK, s.node.GetHashChain())
}

// GetDelta ...
func (s *Service) GetDelta(c *gin.Context) {
	param := c.Param("hash")

	hash, err := delta.HexToHash(param)
	if err != nil {
		s.logger.WithError(err).Debugf("Parsing hash parameter %s", param)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
	defer cancel()

	d, ok := s.node.GetDelta(ctx, hash)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "delta not found"})
		return
	}

	c.JSON(http.StatusOK, d)
}

// GetProducers ...
func (s *Service) GetProducers(c *gin.Context) {
	c.JSON(http.StatusOK, s.node.GetPeers())
}
