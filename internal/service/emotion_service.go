package service

import (
	"context"
	"log/slog"
	"time"

	"flock/internal/emotion"
	"flock/internal/middleware"
	"flock/internal/models"
	"flock/internal/observability"
	"flock/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultHistoryLimit = 20
	neutralMood         = "neutral"
)

// EmotionService classifies uploaded frames and keeps a per-user history.
type EmotionService struct {
	classifier  emotion.Classifier
	archive     *emotion.Archive
	expressions repository.ExpressionRepository
	tweets      repository.TweetRepository
}

// AnalyzeInput is the analyze request body.
type AnalyzeInput struct {
	ImageData string `json:"image_data" validate:"required"`
	TweetID   *uint  `json:"tweet_id"`
}

// AnalysisResult is returned by Analyze. ExpressionID is nil when nothing was saved.
type AnalysisResult struct {
	Emotions        map[string]float64 `json:"emotions"`
	DominantEmotion string             `json:"dominant_emotion"`
	Confidence      float64            `json:"confidence"`
	Saved           bool               `json:"saved"`
	ExpressionID    *uint              `json:"expression_id"`
}

// Mood is the current-mood response.
type Mood struct {
	Mood       string     `json:"mood"`
	Confidence float64    `json:"confidence"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// NewEmotionService wires the classifier. A nil archive disables frame archiving.
func NewEmotionService(
	classifier emotion.Classifier,
	archive *emotion.Archive,
	expressions repository.ExpressionRepository,
	tweets repository.TweetRepository,
) *EmotionService {
	return &EmotionService{
		classifier:  classifier,
		archive:     archive,
		expressions: expressions,
		tweets:      tweets,
	}
}

// Analyze decodes, normalizes and classifies a frame, optionally saving the result.
func (s *EmotionService) Analyze(ctx context.Context, userID uint, in AnalyzeInput, save bool) (result *AnalysisResult, err error) {
	span, ctx := observability.NewSpan(ctx, "emotion", "analyze",
		attribute.Int64("user_id", int64(userID)),
		attribute.Bool("save", save),
	)
	defer func() { span.Finish(err) }()

	raw, err := emotion.DecodeDataURL(in.ImageData)
	if err != nil {
		return nil, models.NewValidationError("Invalid image data")
	}
	img, err := emotion.Normalize(raw)
	if err != nil {
		return nil, models.NewValidationError("Invalid image data")
	}
	frame, err := emotion.EncodeJPEG(img)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	if in.TweetID != nil {
		if _, err := s.tweets.GetByID(ctx, *in.TweetID); err != nil {
			return nil, err
		}
	}

	emotions, err := s.classifier.Classify(ctx, frame)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "emotion classification failed",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("error", err.Error()),
		)
		return nil, models.NewInternalError(err)
	}
	label, confidence, ok := emotion.Dominant(emotions)
	if !ok {
		return nil, models.NewInternalError(emotion.ErrEmptyResult)
	}
	span.AddAttributes(attribute.String("dominant_emotion", label))

	result = &AnalysisResult{
		Emotions:        emotions,
		DominantEmotion: label,
		Confidence:      confidence,
	}
	if !save {
		return result, nil
	}

	expr := &models.FacialExpression{
		UserID:     userID,
		TweetID:    in.TweetID,
		Emotion:    label,
		Confidence: confidence,
	}
	if s.archive != nil {
		path, err := s.archive.Save(userID, img)
		if err != nil {
			// The classification is still worth keeping without the frame.
			middleware.Logger.WarnContext(ctx, "failed to archive expression frame",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
		} else {
			expr.ImageURL = &path
		}
	}
	if err := s.expressions.Create(ctx, expr); err != nil {
		return nil, err
	}
	result.Saved = true
	result.ExpressionID = &expr.ID
	return result, nil
}

// History returns the newest expressions first.
func (s *EmotionService) History(ctx context.Context, userID uint, limit int) ([]models.FacialExpression, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	items, err := s.expressions.History(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.FacialExpression{}
	}
	return items, nil
}

// CurrentMood is the latest expression, or neutral with zero confidence.
func (s *EmotionService) CurrentMood(ctx context.Context, userID uint) (*Mood, error) {
	latest, err := s.expressions.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return &Mood{Mood: neutralMood}, nil
	}
	return &Mood{Mood: latest.Emotion, Confidence: latest.Confidence, CreatedAt: &latest.CreatedAt}, nil
}
