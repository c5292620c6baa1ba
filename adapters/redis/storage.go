package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"catchkit/core"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// KeyPrefix namespaces every key this package writes.
	KeyPrefix string
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		KeyPrefix:    "catchkit:",
	}
}

// Store implements the shared store on Redis. See scripts.go for the layout.
type Store struct {
	client *redis.Client
	prefix string
}

// Connect opens a client and pings it.
func Connect(config Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// New creates a new Redis-backed store with the provided configuration
func New(config Config) (*Store, error) {
	client, err := Connect(config)
	if err != nil {
		return nil, err
	}
	return &Store{client: client, prefix: config.KeyPrefix}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) leafKey(p core.Path) string { return s.prefix + "leaf:" + string(p) }
func (s *Store) kidsKey(p core.Path) string { return s.prefix + "kids:" + string(p) }

func (s *Store) Read(ctx context.Context, path core.Path) (any, bool, error) {
	if err := path.Validate(); err != nil {
		return nil, false, err
	}
	v, err := s.readNode(ctx, path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v, v != nil, nil
}

// readNode assembles the value at p from one script call. Nothing stored
// yields nil.
func (s *Store) readNode(ctx context.Context, p core.Path) (any, error) {
	pairs, err := readScript.Run(ctx, s.client, nil, s.prefix, string(p)).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("malformed read reply of %d elements", len(pairs))
	}
	var root map[string]any
	for i := 0; i < len(pairs); i += 2 {
		v, err := core.DecodeValue([]byte(pairs[i+1]))
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if pairs[i] == "" {
			return v, nil
		}
		if root == nil {
			root = map[string]any{}
		}
		segs := strings.Split(pairs[i], "/")
		node := root
		for _, seg := range segs[:len(segs)-1] {
			next, ok := node[seg].(map[string]any)
			if !ok {
				next = map[string]any{}
				node[seg] = next
			}
			node = next
		}
		node[segs[len(segs)-1]] = v
	}
	if root == nil {
		return nil, nil
	}
	return root, nil
}

func (s *Store) Write(ctx context.Context, path core.Path, value any) error {
	if err := path.Validate(); err != nil {
		return err
	}
	v, err := core.NormalizeValue(value)
	if err != nil {
		return err
	}
	args := []any{s.prefix, string(path)}
	args, err = appendLeaves(args, "", v)
	if err != nil {
		return err
	}
	if err := writeScript.Run(ctx, s.client, nil, args...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// appendLeaves flattens v into (relative path, JSON) script arguments.
func appendLeaves(args []any, rel string, v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return args, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var err error
		for _, k := range keys {
			child := k
			if rel != "" {
				child = rel + "/" + k
			}
			if args, err = appendLeaves(args, child, t[k]); err != nil {
				return nil, err
			}
		}
		return args, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(args, rel, string(b)), nil
}

func (s *Store) ReadOrderedCollection(ctx context.Context, path core.Path, orderKey string) ([]core.Child, error) {
	node, _, err := s.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	children := core.ChildrenOf(node)
	core.SortChildren(children, orderKey)
	return children, nil
}

// WriteIfGreater atomically replaces the integer at path when value is
// strictly greater.
func (s *Store) WriteIfGreater(ctx context.Context, path core.Path, value int64) (int64, bool, error) {
	if err := path.Validate(); err != nil {
		return 0, false, err
	}
	res, err := writeIfGreaterScript.Run(ctx, s.client, nil, s.prefix, string(path), value).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if len(res) != 2 {
		return 0, false, errors.New("unexpected result from Redis script")
	}
	return res[0], res[1] == 1, nil
}
