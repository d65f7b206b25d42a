package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// LessonsPubSub fans out lesson changes (capacity or fields) to every
// instance over a Redis channel.
type LessonsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewLessonsPubSub(rdb *redis.Client) *LessonsPubSub {
	return &LessonsPubSub{
		rdb:     rdb,
		channel: ChannelLessonsChanged(),
	}
}

type LessonChanged struct {
	Type     string `json:"type"`
	LessonID int64  `json:"lessonId"`
	Spaces   int    `json:"spaces"`
	TsUnix   int64  `json:"tsUnix"`
}

func (p *LessonsPubSub) PublishLessonChanged(ctx context.Context, lessonID int64, spaces int) error {
	msg := LessonChanged{
		Type:     "lesson_changed",
		LessonID: lessonID,
		Spaces:   spaces,
		TsUnix:   time.Now().Unix(),
	}

	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe calls handler for every lesson change until ctx is done.
// Malformed messages are skipped.
func (p *LessonsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev LessonChanged)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev LessonChanged
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.LessonID != 0 {
				handler(ctx, ev)
			}
		}
	}
}
