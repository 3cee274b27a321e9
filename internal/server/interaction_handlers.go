package server

import (
	"github.com/gofiber/fiber/v2"
)

type tweetRefRequest struct {
	TweetID uint `json:"tweet_id" validate:"required,gt=0"`
}

type retweetRequest struct {
	OriginalTweetID uint    `json:"original_tweet_id" validate:"required,gt=0"`
	Comment         *string `json:"comment"`
}

type replyRequest struct {
	ParentTweetID uint   `json:"parent_tweet_id" validate:"required,gt=0"`
	Content       string `json:"content"`
}

type followRequest struct {
	FollowingID uint `json:"following_id" validate:"required,gt=0"`
}

// LikeTweet handles POST /api/interactions/like
// @Summary Like a tweet
// @Tags interactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{tweet_id=int} true "Tweet"
// @Success 201 {object} models.Like
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /interactions/like [post]
func (s *Server) LikeTweet(c *fiber.Ctx) error {
	var req tweetRefRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	like, err := s.interactionService.Like(c.UserContext(), currentUserID(c), req.TweetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

// UnlikeTweet handles DELETE /api/interactions/like/:tweet_id
// @Summary Unlike a tweet
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param tweet_id path int true "Tweet ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /interactions/like/{tweet_id} [delete]
func (s *Server) UnlikeTweet(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "tweet_id")
	if err != nil {
		return nil
	}
	if err := s.interactionService.Unlike(c.UserContext(), currentUserID(c), tweetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Tweet unliked successfully"})
}

// Retweet handles POST /api/interactions/retweet
// @Summary Retweet, optionally with a quote comment
// @Tags interactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{original_tweet_id=int,comment=string} true "Retweet"
// @Success 201 {object} models.Retweet
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /interactions/retweet [post]
func (s *Server) Retweet(c *fiber.Ctx) error {
	var req retweetRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	rt, err := s.interactionService.Retweet(c.UserContext(), currentUserID(c), req.OriginalTweetID, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rt)
}

// Unretweet handles DELETE /api/interactions/retweet/:tweet_id
// @Summary Undo a retweet
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param tweet_id path int true "Tweet ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /interactions/retweet/{tweet_id} [delete]
func (s *Server) Unretweet(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "tweet_id")
	if err != nil {
		return nil
	}
	if err := s.interactionService.Unretweet(c.UserContext(), currentUserID(c), tweetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Retweet removed successfully"})
}

// ReplyToTweet handles POST /api/interactions/reply
// @Summary Reply to a tweet
// @Tags interactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{parent_tweet_id=int,content=string} true "Reply"
// @Success 201 {object} service.ReplyResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /interactions/reply [post]
func (s *Server) ReplyToTweet(c *fiber.Ctx) error {
	var req replyRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	result, err := s.interactionService.Reply(c.UserContext(), currentUserID(c), req.ParentTweetID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// BookmarkTweet handles POST /api/interactions/bookmark
// @Summary Bookmark a tweet
// @Tags interactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{tweet_id=int} true "Tweet"
// @Success 201 {object} models.Bookmark
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /interactions/bookmark [post]
func (s *Server) BookmarkTweet(c *fiber.Ctx) error {
	var req tweetRefRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	bookmark, err := s.interactionService.Bookmark(c.UserContext(), currentUserID(c), req.TweetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bookmark)
}

// RemoveBookmark handles DELETE /api/interactions/bookmark/:tweet_id
// @Summary Remove a bookmark
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param tweet_id path int true "Tweet ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /interactions/bookmark/{tweet_id} [delete]
func (s *Server) RemoveBookmark(c *fiber.Ctx) error {
	tweetID, err := s.parseID(c, "tweet_id")
	if err != nil {
		return nil
	}
	if err := s.interactionService.Unbookmark(c.UserContext(), currentUserID(c), tweetID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Bookmark removed successfully"})
}

// GetBookmarks handles GET /api/interactions/bookmarks
// @Summary List bookmarks
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} object{bookmarks=[]models.BookmarkEntry,total_count=int}
// @Router /interactions/bookmarks [get]
func (s *Server) GetBookmarks(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)
	result, err := s.tweetService.Bookmarks(c.UserContext(), currentUserID(c), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"bookmarks":   result.Bookmarks,
		"total_count": result.TotalCount,
	})
}

// FollowUser handles POST /api/interactions/follow
// @Summary Follow a user
// @Tags interactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{following_id=int} true "User"
// @Success 201 {object} models.Follow
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /interactions/follow [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	var req followRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	follow, err := s.interactionService.Follow(c.UserContext(), currentUserID(c), req.FollowingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(follow)
}

// UnfollowUser handles DELETE /api/interactions/follow/:user_id
// @Summary Unfollow a user
// @Tags interactions
// @Produce json
// @Security BearerAuth
// @Param user_id path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /interactions/follow/{user_id} [delete]
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "user_id")
	if err != nil {
		return nil
	}
	if err := s.interactionService.Unfollow(c.UserContext(), currentUserID(c), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unfollowed successfully"})
}
