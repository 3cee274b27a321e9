package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"flock/internal/middleware"
	"flock/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUserProfile handles GET /api/users/:id
// @Summary User profile
// @Description Active user with follower, following and tweet counts
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	profile, err := s.userService.Profile(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
				"error": "Request timeout",
			})
		}
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// UpdateMyProfile handles PUT /api/users/me
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ProfilePatch true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /users/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var patch service.ProfilePatch
	if err := bindJSON(c, &patch); err != nil {
		return nil
	}
	user, err := s.userService.UpdateProfile(c.UserContext(), currentUserID(c), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// DeactivateMe handles DELETE /api/users/me
// @Summary Deactivate own account
// @Description Soft-deletes the account and revokes the current token. Content stays in place.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /users/me [delete]
func (s *Server) DeactivateMe(c *fiber.Ctx) error {
	if err := s.userService.Deactivate(c.UserContext(), currentUserID(c)); err != nil {
		return respondError(c, err)
	}
	if claims, ok := c.Locals("claims").(*middleware.AccessClaims); ok {
		if err := s.authService.Revoke(c.UserContext(), claims.JTI, claims.ExpiresAt); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "token revoke after deactivation failed",
				slog.String("error", err.Error()))
		}
	}
	return c.JSON(fiber.Map{"message": "Account deactivated"})
}

// GetFollowers handles GET /api/users/:id/followers
// @Summary Followers of a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} object{users=[]models.User,total_count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/followers [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	return s.listFollowGraph(c, s.userService.Followers)
}

// GetFollowing handles GET /api/users/:id/following
// @Summary Users a user follows
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} object{users=[]models.User,total_count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/following [get]
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	return s.listFollowGraph(c, s.userService.Following)
}

func (s *Server) listFollowGraph(c *fiber.Ctx, list func(ctx context.Context, id uint, limit, offset int) (*service.UserPage, error)) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPaginationLimit)

	result, err := list(c.UserContext(), id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"users":       result.Users,
		"total_count": result.TotalCount,
	})
}

// GetSuggestions handles GET /api/users/suggestions/for-you
// @Summary Follow suggestions
// @Description Users sharing the viewer's recent mood rank first
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of suggestions" default(5)
// @Success 200 {object} service.SuggestionResult
// @Router /users/suggestions/for-you [get]
func (s *Server) GetSuggestions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", service.DefaultSuggestionLimit)
	result, err := s.userService.Suggestions(c.UserContext(), currentUserID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
