package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario describes how much demo data to generate. It is loaded from YAML.
type Scenario struct {
	Users          int      `yaml:"users"`
	TweetsPerUser  int      `yaml:"tweets_per_user"`
	FollowsPerUser int      `yaml:"follows_per_user"`
	LikesPerUser   int      `yaml:"likes_per_user"`
	RepliesPerUser int      `yaml:"replies_per_user"`
	MaxDays        int      `yaml:"max_days"`
	Password       string   `yaml:"password"`
	Hashtags       []string `yaml:"hashtags"`
	Moods          []string `yaml:"moods"`
}

// DefaultScenario is used when no scenario file is given.
func DefaultScenario() Scenario {
	return Scenario{
		Users:          25,
		TweetsPerUser:  4,
		FollowsPerUser: 5,
		LikesPerUser:   8,
		RepliesPerUser: 2,
		MaxDays:        30,
		Password:       "Password123",
		Hashtags:       []string{"golang", "gophers", "weekend", "music", "coffee"},
		Moods:          []string{"happy", "sad", "neutral", "surprise", "angry"},
	}
}

// LoadScenario reads a YAML scenario. Fields missing from the file keep their defaults.
func LoadScenario(path string) (Scenario, error) {
	sc := DefaultScenario()
	raw, err := os.ReadFile(path)
	if err != nil {
		return sc, fmt.Errorf("read scenario: %w", err)
	}
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return sc, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

// Validate rejects scenarios that cannot be generated.
func (s Scenario) Validate() error {
	if s.Users < 1 {
		return fmt.Errorf("scenario needs at least one user")
	}
	if s.TweetsPerUser < 0 || s.FollowsPerUser < 0 || s.LikesPerUser < 0 || s.RepliesPerUser < 0 {
		return fmt.Errorf("scenario counts must not be negative")
	}
	if s.Password == "" {
		return fmt.Errorf("scenario password is required")
	}
	return nil
}
