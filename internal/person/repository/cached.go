package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gogotex/people/internal/person"
	"github.com/gogotex/people/pkg/logger"
	"github.com/gogotex/people/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// CachedRepo decorates a Repository with a Redis read-through cache for FindByID.
// Entries are stored as JSON under "<prefix><hex id>" and dropped by every write
// that touches the record. Each write also bumps "<prefix>gen:<hex id>"; a fill
// only lands when that generation is unchanged since before the store read.
// Redis failures are logged and never fail a call.
type CachedRepo struct {
	next   Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCachedRepo wraps next. Prefix defaults to "person:" and ttl to one minute.
func NewCachedRepo(next Repository, client *redis.Client, prefix string, ttl time.Duration) *CachedRepo {
	if prefix == "" {
		prefix = "person:"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedRepo{next: next, client: client, prefix: prefix, ttl: ttl}
}

func (c *CachedRepo) key(id string) string {
	return c.prefix + id
}

func (c *CachedRepo) genKey(id string) string {
	return c.prefix + "gen:" + id
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// generation returns the write counter for id; a missing key reads as 0.
func generation(ctx context.Context, cmd getter, key string) (int64, error) {
	n, err := cmd.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *CachedRepo) get(ctx context.Context, id string) *person.Person {
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnf("cache get %s: %v", id, err)
		}
		return nil
	}
	var p person.Person
	if err := json.Unmarshal(b, &p); err != nil {
		logger.Warnf("cache decode %s: %v", id, err)
		_ = c.client.Del(ctx, c.key(id)).Err()
		return nil
	}
	return &p
}

// put caches p unless a write bumped its generation after gen was read.
func (c *CachedRepo) put(ctx context.Context, p *person.Person, gen int64) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	id := p.ID.Hex()
	genKey := c.genKey(id)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := generation(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if cur != gen {
			logger.Debugf("cache fill %s skipped: written during read", id)
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key(id), b, c.ttl)
			return nil
		})
		return err
	}, genKey)
	switch {
	case errors.Is(err, redis.TxFailedErr):
		logger.Debugf("cache fill %s skipped: concurrent write", id)
	case err != nil:
		logger.Warnf("cache set %s: %v", id, err)
	}
}

func (c *CachedRepo) evict(ctx context.Context, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.key(id))
	}
	// generation keys outlive any entry filled from a read they invalidate
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, c.genKey(id))
			pipe.Expire(ctx, c.genKey(id), 2*c.ttl)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		logger.Warnf("cache evict %v: %v", ids, err)
	}
}

func (c *CachedRepo) Create(ctx context.Context, p *person.Person) (*person.Person, error) {
	return c.next.Create(ctx, p)
}

func (c *CachedRepo) CreateMany(ctx context.Context, people []*person.Person) ([]*person.Person, error) {
	return c.next.CreateMany(ctx, people)
}

func (c *CachedRepo) Find(ctx context.Context, f person.Filter) ([]*person.Person, error) {
	return c.next.Find(ctx, f)
}

func (c *CachedRepo) FindOne(ctx context.Context, f person.Filter) (*person.Person, error) {
	return c.next.FindOne(ctx, f)
}

func (c *CachedRepo) FindByID(ctx context.Context, id string) (*person.Person, error) {
	if _, err := person.ParseID(id); err != nil {
		return nil, err
	}
	if p := c.get(ctx, id); p != nil {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return p, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()
	gen, genErr := generation(ctx, c.client, c.genKey(id))
	if genErr != nil {
		logger.Warnf("cache generation %s: %v", id, genErr)
	}
	p, err := c.next.FindByID(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	if genErr == nil {
		c.put(ctx, p, gen)
	}
	return p, nil
}

func (c *CachedRepo) Save(ctx context.Context, p *person.Person) (*person.Person, error) {
	saved, err := c.next.Save(ctx, p)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, saved.ID.Hex())
	return saved, nil
}

func (c *CachedRepo) FindOneAndUpdate(ctx context.Context, f person.Filter, patch person.Patch, opts person.UpdateOptions) (*person.Person, error) {
	p, err := c.next.FindOneAndUpdate(ctx, f, patch, opts)
	if err != nil || p == nil {
		return p, err
	}
	c.evict(ctx, p.ID.Hex())
	return p, nil
}

func (c *CachedRepo) PushFavoriteFood(ctx context.Context, id string, food string) (*person.Person, error) {
	p, err := c.next.PushFavoriteFood(ctx, id, food)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, id)
	return p, nil
}

func (c *CachedRepo) DeleteByID(ctx context.Context, id string) (*person.Person, error) {
	p, err := c.next.DeleteByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, id)
	return p, nil
}

// DeleteMany looks up the matching ids first so their cache entries can be dropped.
func (c *CachedRepo) DeleteMany(ctx context.Context, f person.Filter) (person.DeleteResult, error) {
	matched, err := c.next.Find(ctx, f)
	if err != nil {
		return person.DeleteResult{}, err
	}
	res, err := c.next.DeleteMany(ctx, f)
	if err != nil {
		return res, err
	}
	ids := make([]string, 0, len(matched))
	for _, p := range matched {
		ids = append(ids, p.ID.Hex())
	}
	c.evict(ctx, ids...)
	return res, nil
}

func (c *CachedRepo) Exec(ctx context.Context, q *person.Query) ([]*person.Person, error) {
	return c.next.Exec(ctx, q)
}
