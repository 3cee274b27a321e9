package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// counterSources pairs each denormalized tweet counter with the edge table it
// mirrors and that table's tweet column.
var counterSources = []struct {
	column string
	table  string
	fk     string
}{
	{"likes_count", "likes", "tweet_id"},
	{"retweets_count", "retweets", "original_tweet_id"},
	{"replies_count", "replies", "parent_tweet_id"},
}

// CounterDrift is a tweet whose stored counter disagrees with its edge rows.
type CounterDrift struct {
	TweetID uint
	Column  string
	Stored  int64
	Actual  int64
}

func (d CounterDrift) String() string {
	return fmt.Sprintf("tweet %d %s=%d, %d edge rows", d.TweetID, d.Column, d.Stored, d.Actual)
}

// CheckCounters lists every tweet counter that no longer matches its edge table.
func CheckCounters(ctx context.Context, db *gorm.DB) ([]CounterDrift, error) {
	var drift []CounterDrift
	for _, src := range counterSources {
		var rows []struct {
			ID     uint
			Stored int64
			Actual int64
		}
		query := fmt.Sprintf(`SELECT t.id AS id, t.%[1]s AS stored,
			(SELECT COUNT(*) FROM %[2]s e WHERE e.%[3]s = t.id) AS actual
			FROM tweets t
			WHERE t.%[1]s <> (SELECT COUNT(*) FROM %[2]s e WHERE e.%[3]s = t.id)
			ORDER BY t.id`, src.column, src.table, src.fk)
		if err := db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
			return nil, fmt.Errorf("check %s: %w", src.column, err)
		}
		for _, r := range rows {
			drift = append(drift, CounterDrift{TweetID: r.ID, Column: src.column, Stored: r.Stored, Actual: r.Actual})
		}
	}
	return drift, nil
}

// RepairCounters recomputes every tweet counter from its edge table in one
// transaction and returns how many tweets each column touched.
func RepairCounters(ctx context.Context, db *gorm.DB) (map[string]int64, error) {
	fixed := make(map[string]int64, len(counterSources))
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, src := range counterSources {
			sub := fmt.Sprintf("(SELECT COUNT(*) FROM %s e WHERE e.%s = tweets.id)", src.table, src.fk)
			res := tx.Exec(fmt.Sprintf("UPDATE tweets SET %[1]s = %[2]s WHERE %[1]s <> %[2]s", src.column, sub))
			if res.Error != nil {
				return fmt.Errorf("repair %s: %w", src.column, res.Error)
			}
			fixed[src.column] = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fixed, nil
}
