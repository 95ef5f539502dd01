// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/medonboard/internal/auth"
	"github.com/pdiddy/medonboard/internal/browse"
	"github.com/pdiddy/medonboard/internal/casestore"
	"github.com/pdiddy/medonboard/internal/intake"
	"github.com/pdiddy/medonboard/pkg/types"
)

type loginRequest struct {
	Username string     `json:"username" binding:"required"`
	Password string     `json:"password" binding:"required"`
	Role     types.Role `json:"role" binding:"required"`
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, password and role are required"})
		return
	}

	id, ok := s.directory.Authenticate(req.Username, req.Password, req.Role)
	if !ok {
		s.logger.WithField("username", req.Username).Info("Rejected sign-in")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials or role"})
		return
	}

	sess := s.sessions.Create(id)
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, sess.Token, 0, "/", "", false, true)
	s.logger.WithFields(logrus.Fields{"username": id.Username, "role": id.Role}).Info("Signed in")

	c.JSON(http.StatusOK, gin.H{
		"token":    sess.Token,
		"username": id.Username,
		"role":     id.Role,
		"pages":    auth.Pages(id.Role),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.sessions.Delete(tokenFrom(c))
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "signed out"})
}

func (s *Server) handlePages(c *gin.Context) {
	id := currentSession(c).Identity
	c.JSON(http.StatusOK, gin.H{
		"username": id.Username,
		"role":     id.Role,
		"pages":    auth.Pages(id.Role),
		"home":     HomeText,
	})
}

func (s *Server) handleDiseaseNames(c *gin.Context) {
	names, err := s.browse.DiseaseNames()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true, "names": nonNil(names)})
}

func (s *Server) handleDisease(c *gin.Context) {
	view, err := s.browse.Disease(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleMedicineNames(c *gin.Context) {
	names, err := s.browse.MedicineNames()
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": true, "names": nonNil(names)})
}

func (s *Server) handleMedicine(c *gin.Context) {
	view, err := s.browse.Medicine(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleCases(c *gin.Context) {
	view, err := s.browse.CaseStudies(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleExport(c *gin.Context) {
	view, err := s.browse.CaseStudies(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !view.Available || view.Table.Len() == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no case studies available yet"})
		return
	}

	var buf bytes.Buffer
	if err := casestore.WriteCSV(&buf, view.Table); err != nil {
		s.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="case_studies.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (s *Server) handleIntake(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).Workflow.Snapshot())
}

func (s *Server) handleNote(c *gin.Context) {
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid note body"})
		return
	}
	state := currentSession(c).Workflow.SetNote(req.Note)
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	sess := currentSession(c)
	if !sess.Analyze.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many analyze requests, try again shortly"})
		return
	}

	analysis, err := sess.Workflow.Analyze(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state":    sess.Workflow.State(),
		"analysis": analysis,
	})
}

func (s *Server) handleReview(c *gin.Context) {
	var req intake.Review
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review body"})
		return
	}
	state, err := currentSession(c).Workflow.Review(req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (s *Server) handleSave(c *gin.Context) {
	res, err := currentSession(c).Workflow.Save(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// respondError maps the error taxonomy to status codes. A missing store is
// not a failure: the view reports it as unavailable.
func (s *Server) respondError(c *gin.Context, err error) {
	var (
		ve *types.ValidationError
		ie *types.InferenceError
		pe *types.PersistenceError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Message, "field": ve.Field, "level": "warning"})
	case errors.Is(err, types.ErrStoreUnavailable):
		c.JSON(http.StatusOK, gin.H{"available": false})
	case errors.Is(err, browse.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &ie):
		s.logger.WithError(err).WithField("stage", ie.Stage).Warn("Inference failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis failed, please try again", "stage": ie.Stage})
	case errors.As(err, &pe):
		s.logger.WithError(err).Error("Persisting case note failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "saving failed, your note was kept, please try again"})
	default:
		s.logger.WithError(err).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
