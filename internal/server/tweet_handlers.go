package server

import (
	"flock/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createTweetRequest struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url" validate:"omitempty,max=2048"`
	VideoURL string `json:"video_url" validate:"omitempty,max=2048"`
}

// CreateTweet handles POST /api/tweets
// @Summary Create tweet
// @Description Post a tweet. Hashtags and @mentions in the content are indexed.
// @Tags tweets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{content=string,image_url=string,video_url=string} true "Tweet"
// @Success 201 {object} models.Tweet
// @Failure 400 {object} models.ErrorResponse
// @Router /tweets [post]
func (s *Server) CreateTweet(c *fiber.Ctx) error {
	var req createTweetRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	tweet, err := s.tweetService.Create(c.UserContext(), service.CreateTweetInput{
		UserID:   currentUserID(c),
		Content:  req.Content,
		ImageURL: req.ImageURL,
		VideoURL: req.VideoURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(tweet)
}

// GetTweets handles GET /api/tweets
// @Summary Timeline
// @Tags tweets
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {array} models.Tweet
// @Router /tweets [get]
func (s *Server) GetTweets(c *fiber.Ctx) error {
	viewerID, _ := s.optionalUserID(c)
	page := parsePagination(c, defaultPaginationLimit)

	tweets, err := s.tweetService.List(c.UserContext(), viewerID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tweets)
}

// GetTweet handles GET /api/tweets/:id
// @Summary Get tweet
// @Tags tweets
// @Produce json
// @Param id path int true "Tweet ID"
// @Success 200 {object} models.Tweet
// @Failure 404 {object} models.ErrorResponse
// @Router /tweets/{id} [get]
func (s *Server) GetTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)

	tweet, err := s.tweetService.Get(c.UserContext(), viewerID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tweet)
}

// DeleteTweet handles DELETE /api/tweets/:id
// @Summary Delete tweet
// @Tags tweets
// @Produce json
// @Security BearerAuth
// @Param id path int true "Tweet ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /tweets/{id} [delete]
func (s *Server) DeleteTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.tweetService.Delete(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tweet deleted successfully"})
}

// GetTweetReplies handles GET /api/tweets/:id/replies and its authenticated
// alias GET /api/interactions/:id/replies.
// @Summary Replies to a tweet
// @Tags tweets
// @Produce json
// @Param id path int true "Tweet ID"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} object{replies=[]models.Tweet,total_count=int}
// @Failure 404 {object} models.ErrorResponse
// @Router /tweets/{id}/replies [get]
// @Router /interactions/{id}/replies [get]
func (s *Server) GetTweetReplies(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)
	page := parsePagination(c, defaultPaginationLimit)

	result, err := s.tweetService.Replies(c.UserContext(), viewerID, id, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"replies":     result.Tweets,
		"total_count": result.TotalCount,
	})
}

// GetUserTweets handles GET /api/users/:id/tweets
// @Summary Tweets by a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} object{tweets=[]models.Tweet,total_count=int,has_more=bool}
// @Router /users/{id}/tweets [get]
func (s *Server) GetUserTweets(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	viewerID, _ := s.optionalUserID(c)
	page := parsePagination(c, defaultPaginationLimit)

	result, err := s.tweetService.UserTweets(c.UserContext(), viewerID, userID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"tweets":      result.Tweets,
		"total_count": result.TotalCount,
		"has_more":    result.HasMore,
	})
}

// GetTrendingHashtags handles GET /api/hashtags/trending
// @Summary Trending hashtags
// @Tags hashtags
// @Produce json
// @Param limit query int false "Number of hashtags" default(10)
// @Success 200 {array} models.Hashtag
// @Router /hashtags/trending [get]
func (s *Server) GetTrendingHashtags(c *fiber.Ctx) error {
	page := parsePagination(c, 10)
	tags, err := s.tweetService.Trending(c.UserContext(), page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}
