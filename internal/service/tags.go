package service

import (
	"context"
	"regexp"
	"strings"

	"flock/internal/models"
	"flock/internal/repository"
)

var (
	hashtagPattern = regexp.MustCompile(`#(\w{1,100})`)
	mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9_]{3,50})`)
)

// ExtractHashtags returns the distinct lowercased hashtags in content, in order of appearance.
func ExtractHashtags(content string) []string {
	return uniqueLower(hashtagPattern.FindAllStringSubmatch(content, -1))
}

// ExtractMentions returns the distinct lowercased @usernames in content.
func ExtractMentions(content string) []string {
	return uniqueLower(mentionPattern.FindAllStringSubmatch(content, -1))
}

func uniqueLower(matches [][]string) []string {
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// tagger links a freshly created tweet to its hashtags and mentioned users.
// All repositories must be bound to the caller's transaction.
type tagger struct {
	users         repository.UserRepository
	hashtags      repository.HashtagRepository
	notifications repository.NotificationRepository
}

// apply returns the hashtag names and the mention notifications it created.
func (t tagger) apply(ctx context.Context, tweet *models.Tweet, author *models.User) ([]string, []*models.Notification, error) {
	var names []string
	if tags := ExtractHashtags(tweet.Content); len(tags) > 0 {
		rows, err := t.hashtags.Upsert(ctx, tags)
		if err != nil {
			return nil, nil, err
		}
		ids := make([]uint, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
			names = append(names, row.Name)
		}
		if err := t.hashtags.Link(ctx, tweet.ID, ids); err != nil {
			return nil, nil, err
		}
	}

	usernames := ExtractMentions(tweet.Content)
	if len(usernames) == 0 {
		return names, nil, nil
	}
	mentioned, err := t.users.GetActiveByUsernames(ctx, usernames)
	if err != nil {
		return nil, nil, err
	}

	var (
		ids   []uint
		notes []*models.Notification
	)
	for i := range mentioned {
		u := &mentioned[i]
		if u.ID == author.ID {
			continue
		}
		ids = append(ids, u.ID)
		n := &models.Notification{
			UserID:   u.ID,
			Type:     models.NotificationMention,
			SenderID: &author.ID,
			TweetID:  &tweet.ID,
			Content:  author.Firstname + " mentioned you in a tweet",
		}
		if err := t.notifications.Create(ctx, n); err != nil {
			return nil, nil, err
		}
		notes = append(notes, n)
	}
	if err := t.hashtags.CreateMentions(ctx, tweet.ID, ids); err != nil {
		return nil, nil, err
	}
	return names, notes, nil
}
