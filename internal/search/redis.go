package search

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Redis is an inverted index stored in Redis. Every term owns a sorted set of
// post ids scored by post timestamp, so results come back newest first.
// Each document also records its terms so it can be removed again.
//
//	<name>:term:<token>  ZSET  post id -> unix micros
//	<name>:doc:<id>      SET   tokens of the post
type Redis struct {
	client *redis.Client
	name   string
}

func NewRedis(client *redis.Client, name string) *Redis {
	return &Redis{client: client, name: name}
}

// Open connects to the Redis server at url and checks it answers.
func Open(ctx context.Context, url, name string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client, name), nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) termKey(token string) string {
	return r.name + ":term:" + token
}

func (r *Redis) docKey(id uint) string {
	return r.name + ":doc:" + strconv.FormatUint(uint64(id), 10)
}

func (r *Redis) Add(ctx context.Context, doc Document) error {
	tokens := Tokenize(doc.Body)
	member := strconv.FormatUint(uint64(doc.ID), 10)
	score := float64(doc.Timestamp.UnixMicro())

	pipe := r.client.TxPipeline()
	for _, tok := range tokens {
		pipe.ZAdd(ctx, r.termKey(tok), redis.Z{Score: score, Member: member})
	}
	pipe.Del(ctx, r.docKey(doc.ID))
	if len(tokens) > 0 {
		members := make([]interface{}, len(tokens))
		for i, tok := range tokens {
			members[i] = tok
		}
		pipe.SAdd(ctx, r.docKey(doc.ID), members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("index post %d: %w", doc.ID, err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, id uint) error {
	tokens, err := r.client.SMembers(ctx, r.docKey(id)).Result()
	if err != nil {
		return fmt.Errorf("load terms of post %d: %w", id, err)
	}
	member := strconv.FormatUint(uint64(id), 10)

	pipe := r.client.TxPipeline()
	for _, tok := range tokens {
		pipe.ZRem(ctx, r.termKey(tok), member)
	}
	pipe.Del(ctx, r.docKey(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove post %d: %w", id, err)
	}
	return nil
}

// Query matches posts containing any token of q. page is 1-based.
func (r *Redis) Query(ctx context.Context, q string, page, perPage int) ([]uint, int64, error) {
	tokens := Tokenize(q)
	if len(tokens) == 0 || perPage <= 0 {
		return nil, 0, nil
	}
	if page < 1 {
		page = 1
	}

	key := r.termKey(tokens[0])
	if len(tokens) > 1 {
		keys := make([]string, len(tokens))
		for i, tok := range tokens {
			keys[i] = r.termKey(tok)
		}
		key = r.name + ":query:" + uuid.NewString()
		pipe := r.client.TxPipeline()
		pipe.ZUnionStore(ctx, key, &redis.ZStore{Keys: keys, Aggregate: "MAX"})
		pipe.Expire(ctx, key, time.Minute)
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, 0, fmt.Errorf("union terms: %w", err)
		}
		defer r.client.Del(context.WithoutCancel(ctx), key)
	}

	total, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("count matches: %w", err)
	}
	if page-1 > (math.MaxInt-perPage)/perPage {
		return nil, total, nil
	}
	start := int64((page - 1) * perPage)
	members, err := r.client.ZRevRange(ctx, key, start, start+int64(perPage)-1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("read matches: %w", err)
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("bad member %q in %s: %w", m, key, err)
		}
		ids = append(ids, uint(id))
	}
	return ids, total, nil
}
