package server

import (
	"flock/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AnalyzeExpression handles POST /api/facial-expressions/analyze
// @Summary Classify a facial expression
// @Description Classifies a base64 frame. With save=true (default) the result is stored in the user's history.
// @Tags facial-expressions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param save query bool false "Persist the result" default(true)
// @Param request body service.AnalyzeInput true "Frame"
// @Success 200 {object} service.AnalysisResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /facial-expressions/analyze [post]
func (s *Server) AnalyzeExpression(c *fiber.Ctx) error {
	var req service.AnalyzeInput
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	save := c.QueryBool("save", true)

	result, err := s.emotionService.Analyze(c.UserContext(), currentUserID(c), req, save)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// GetExpressionHistory handles GET /api/facial-expressions/history
// @Summary Expression history
// @Tags facial-expressions
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of entries" default(20)
// @Success 200 {array} models.FacialExpression
// @Router /facial-expressions/history [get]
func (s *Server) GetExpressionHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultPaginationLimit)
	history, err := s.emotionService.History(c.UserContext(), currentUserID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(history)
}

// GetCurrentMood handles GET /api/facial-expressions/current-mood
// @Summary Current mood
// @Description Latest recorded expression, or neutral when none exists
// @Tags facial-expressions
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Mood
// @Router /facial-expressions/current-mood [get]
func (s *Server) GetCurrentMood(c *fiber.Ctx) error {
	mood, err := s.emotionService.CurrentMood(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(mood)
}
