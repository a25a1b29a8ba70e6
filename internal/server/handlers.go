package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/chatstream/internal/shared/types"
)

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "AI Chat API is running."})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "model": s.catalog.Current().ID})
}

func (s *Server) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.List())
}

func (s *Server) getSession(c *gin.Context) {
	id, err := types.ParseConversationID(c.Param("id"))
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	conv, ok := s.store.Get(id)
	if !ok {
		detail(c, http.StatusNotFound, "Session not found")
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, s.catalog.Snapshot())
}

func (s *Server) selectModel(c *gin.Context) {
	id := strings.Trim(c.Param("model_id"), "/")

	model, ok := s.catalog.Select(id)
	if !ok {
		detail(c, http.StatusBadRequest, fmt.Sprintf("Model '%s' not found", id))
		return
	}

	s.logger.Info("Model selected", zap.String("model", model.ID))
	c.JSON(http.StatusOK, types.ModelSelection{
		Message:      "Model changed to " + model.Name,
		CurrentModel: model.ID,
		ModelName:    model.Name,
	})
}
