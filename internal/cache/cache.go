package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Clock abstracts time so expiry can be driven from tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Keys used by the services. Emails are lowercased so lookups are case-insensitive.
func ProfileByEmailKey(email string) string { return "profile:email:" + email }
func RatingKey(recruiterID string) string   { return "rating:recruiter:" + recruiterID }
