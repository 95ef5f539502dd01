// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the screens of the application over HTTP as JSON
// endpoints, plus the case study CSV download.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/medonboard/internal/auth"
	"github.com/pdiddy/medonboard/internal/browse"
	"github.com/pdiddy/medonboard/internal/session"
	"github.com/pdiddy/medonboard/pkg/types"
)

// SessionCookie is the cookie carrying the session token for browsers.
const SessionCookie = "medonboard_session"

// HomeText is the welcome text of the Home screen.
const HomeText = "A platform for exploring and understanding real-world medical case data. " +
	"Use the navigation to explore Diseases, Medicines, and Case Studies."

// Deps are the collaborators the server needs.
type Deps struct {
	Config    types.ServerConfig
	Directory *auth.Directory
	Sessions  *session.Manager
	Browse    *browse.Service
	Logger    *logrus.Logger
	Version   string
}

// Server is the HTTP surface.
type Server struct {
	cfg       types.ServerConfig
	router    *gin.Engine
	directory *auth.Directory
	sessions  *session.Manager
	browse    *browse.Service
	logger    *logrus.Logger
	version   string
}

// New builds the router and registers every route.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLogger(logger))

	s := &Server{
		cfg:       deps.Config,
		router:    router,
		directory: deps.Directory,
		sessions:  deps.Sessions,
		browse:    deps.Browse,
		logger:    logger,
		version:   deps.Version,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.cfg.Addr).Info("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/login", s.handleLogin)
	s.router.POST("/logout", s.handleLogout)

	authed := s.router.Group("/")
	authed.Use(s.requireSession())
	{
		authed.GET("/pages", s.handlePages)
		authed.GET("/diseases", s.handleDiseaseNames)
		authed.GET("/diseases/:name", s.handleDisease)
		authed.GET("/medicines", s.handleMedicineNames)
		authed.GET("/medicines/:name", s.handleMedicine)
		authed.GET("/cases", s.handleCases)
		authed.GET("/cases/export", s.handleExport)
	}

	intake := authed.Group("/intake")
	intake.Use(requireIntake())
	{
		intake.GET("", s.handleIntake)
		intake.PUT("/note", s.handleNote)
		intake.POST("/analyze", s.handleAnalyze)
		intake.PUT("/review", s.handleReview)
		intake.POST("/save", s.handleSave)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   s.version,
	})
}
