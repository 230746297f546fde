package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/GriffinCanCode/minimap-tracker/internal/errors"
	"github.com/GriffinCanCode/minimap-tracker/internal/tracker"
)

// Config selects the Redis instance and retention.
type Config struct {
	Addr        string
	DB          int
	Prefix      string
	TTL         time.Duration
	TrailLength int
}

func (c Config) withDefaults() Config {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.TrailLength <= 0 {
		c.TrailLength = DefaultTrailLength
	}
	return c
}

// PositionStore writes the last fix and a capped trail.
type PositionStore struct {
	rdb *redis.Client
	cfg Config
}

// Open connects and pings Redis.
func Open(ctx context.Context, cfg Config) (*PositionStore, error) {
	cfg = cfg.withDefaults()
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
		DB:   cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, apperrors.Wrapf(err, apperrors.CodeUnavailable, "redis ping %s", cfg.Addr)
	}
	return &PositionStore{rdb: rdb, cfg: cfg}, nil
}

func (s *PositionStore) lastKey() string  { return s.cfg.Prefix + LastKey }
func (s *PositionStore) trailKey() string { return s.cfg.Prefix + TrailKey }

// Save stores one fix.
func (s *PositionStore) Save(ctx context.Context, f tracker.Fix) error {
	return s.SaveBatch(ctx, []tracker.Fix{f})
}

// SaveBatch appends fixes to the trail and records the newest as the last
// fix, in one pipeline.
func (s *PositionStore) SaveBatch(ctx context.Context, fixes []tracker.Fix) error {
	if len(fixes) == 0 {
		return nil
	}
	trail := make([]any, 0, len(fixes))
	for _, f := range fixes {
		data, err := json.Marshal(f)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "encode fix")
		}
		trail = append(trail, data)
	}
	last := fixes[len(fixes)-1]

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.lastKey(), map[string]any{
			"x":        formatFloat(last.X),
			"y":        formatFloat(last.Y),
			"lat":      formatFloat(last.Lat),
			"lng":      formatFloat(last.Lng),
			"heading":  last.Heading,
			"at":       last.At.UTC().Format(time.RFC3339Nano),
			"trace_id": last.TraceID,
		})
		pipe.Expire(ctx, s.lastKey(), s.cfg.TTL)
		pipe.RPush(ctx, s.trailKey(), trail...)
		pipe.LTrim(ctx, s.trailKey(), int64(-s.cfg.TrailLength), -1)
		pipe.Expire(ctx, s.trailKey(), s.cfg.TTL)
		return nil
	})
	if err != nil {
		return apperrors.Wrapf(err, apperrors.CodeStoreFailed, "save %d fixes", len(fixes))
	}
	return nil
}

// Last returns the stored last fix. ok is false when none exists or it expired.
func (s *PositionStore) Last(ctx context.Context) (tracker.Fix, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.lastKey()).Result()
	if err != nil {
		return tracker.Fix{}, false, apperrors.Wrap(err, apperrors.CodeStoreFailed, "read last fix")
	}
	if len(m) == 0 {
		return tracker.Fix{}, false, nil
	}
	f, err := decodeHash(m)
	if err != nil {
		return tracker.Fix{}, false, apperrors.Wrap(err, apperrors.CodeStoreFailed, "decode last fix")
	}
	return f, true, nil
}

// Trail returns up to n most recent fixes, oldest first.
func (s *PositionStore) Trail(ctx context.Context, n int) ([]tracker.Fix, error) {
	if n <= 0 {
		n = s.cfg.TrailLength
	}
	vals, err := s.rdb.LRange(ctx, s.trailKey(), int64(-n), -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, apperrors.Wrap(err, apperrors.CodeStoreFailed, "read trail")
	}
	out := make([]tracker.Fix, 0, len(vals))
	for _, v := range vals {
		var f tracker.Fix
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			continue // foreign entry
		}
		out = append(out, f)
	}
	return out, nil
}

// Close closes the client.
func (s *PositionStore) Close() error {
	return s.rdb.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func decodeHash(m map[string]string) (tracker.Fix, error) {
	var f tracker.Fix
	var err error
	parse := func(key string) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(m[key], 64)
		if err != nil {
			err = fmt.Errorf("field %s: %w", key, err)
		}
		return v
	}
	f.X, f.Y = parse("x"), parse("y")
	f.Lat, f.Lng = parse("lat"), parse("lng")
	if err != nil {
		return f, err
	}
	if f.Heading, err = strconv.Atoi(m["heading"]); err != nil {
		return f, fmt.Errorf("field heading: %w", err)
	}
	if f.At, err = time.Parse(time.RFC3339Nano, m["at"]); err != nil {
		return f, fmt.Errorf("field at: %w", err)
	}
	f.TraceID = m["trace_id"]
	return f, nil
}
