package profiles

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMessage(t *testing.T) {
	got, err := NormalizeMessage("  hello  ")
	require.NoError(t, err)
	require.Equal(t, "hello", got)

	_, err = NormalizeMessage("   ")
	require.ErrorIs(t, err, ErrInvalidMessage)

	_, err = NormalizeMessage(strings.Repeat("é", MaxSecretMessageLength))
	require.NoError(t, err)

	_, err = NormalizeMessage(strings.Repeat("a", MaxSecretMessageLength+1))
	require.ErrorIs(t, err, ErrInvalidMessage)
}

type fakeDynamo struct {
	mu     sync.Mutex
	items  map[string]map[string]types.AttributeValue
	getErr error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func userKey(key map[string]types.AttributeValue) string {
	if s, ok := key["userId"].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[userKey(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[userKey(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, userKey(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	api := newFakeDynamo()
	store := NewDynamoStore(api, "profiles")

	message, err := store.GetSecretMessage(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, message)

	require.NoError(t, store.SetSecretMessage(ctx, "alice", "likes tea"))
	message, err = store.GetSecretMessage(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, message)
	require.Equal(t, "likes tea", *message)

	require.NoError(t, store.DeleteProfile(ctx, "alice"))
	message, err = store.GetSecretMessage(ctx, "alice")
	require.NoError(t, err)
	require.Nil(t, message)
}

func TestDynamoStoreGetError(t *testing.T) {
	api := newFakeDynamo()
	api.getErr = errors.New("throttled")
	store := NewDynamoStore(api, "profiles")

	_, err := store.GetSecretMessage(context.Background(), "alice")
	require.Error(t, err)
}

// fakeRedis overrides the commands CachedStore uses; any other command panics.
type fakeRedis struct {
	redis.Cmdable

	mu       sync.Mutex
	values   map[string]string
	readErr  error
	writeErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.readErr != nil {
		return redis.NewStringResult("", f.readErr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.writeErr != nil {
		return redis.NewStatusResult("", f.writeErr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = asString(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if f.writeErr != nil {
		return redis.NewBoolResult(false, f.writeErr)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = asString(value)
	return redis.NewBoolResult(true, nil)
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	}
	return ""
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
	}
	return redis.NewIntResult(removed, nil)
}

type countingStore struct {
	*InMemoryStore
	gets int
}

func (c *countingStore) GetSecretMessage(ctx context.Context, userID string) (*string, error) {
	c.gets++
	return c.InMemoryStore.GetSecretMessage(ctx, userID)
}

func TestCachedStoreReadThroughAndWriteThrough(t *testing.T) {
	ctx := context.Background()
	base := &countingStore{InMemoryStore: NewInMemoryStore()}
	cache := newFakeRedis()
	store := NewCachedStore(base, cache, time.Minute)

	require.NoError(t, base.InMemoryStore.SetSecretMessage(ctx, "bob", "first"))

	for i := 0; i < 3; i++ {
		message, err := store.GetSecretMessage(ctx, "bob")
		require.NoError(t, err)
		require.Equal(t, "first", *message)
	}
	require.Equal(t, 1, base.gets)

	require.NoError(t, store.SetSecretMessage(ctx, "bob", "second"))
	message, err := store.GetSecretMessage(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, "second", *message)
	require.Equal(t, 1, base.gets, "write should refresh the cached entry")

	require.NoError(t, store.DeleteProfile(ctx, "bob"))
	message, err = store.GetSecretMessage(ctx, "bob")
	require.NoError(t, err)
	require.Nil(t, message)
	require.Equal(t, 1, base.gets)
}

// gatedStore blocks GetSecretMessage after reading from the wrapped store
// until release is closed.
type gatedStore struct {
	*InMemoryStore
	read    chan struct{}
	release chan struct{}
}

func (g *gatedStore) GetSecretMessage(ctx context.Context, userID string) (*string, error) {
	message, err := g.InMemoryStore.GetSecretMessage(ctx, userID)
	close(g.read)
	<-g.release
	return message, err
}

func TestCachedStoreSlowFillDoesNotOverwriteNewerWrite(t *testing.T) {
	ctx := context.Background()
	mem := NewInMemoryStore()
	require.NoError(t, mem.SetSecretMessage(ctx, "frank", "old"))

	gated := &gatedStore{InMemoryStore: mem, read: make(chan struct{}), release: make(chan struct{})}
	cache := newFakeRedis()
	store := NewCachedStore(gated, cache, time.Minute)

	done := make(chan *string, 1)
	go func() {
		message, err := store.GetSecretMessage(ctx, "frank")
		if err != nil {
			done <- nil
			return
		}
		done <- message
	}()

	<-gated.read
	require.NoError(t, store.SetSecretMessage(ctx, "frank", "new"))
	close(gated.release)

	stale := <-done
	require.NotNil(t, stale)
	require.Equal(t, "old", *stale)

	message, err := store.GetSecretMessage(ctx, "frank")
	require.NoError(t, err)
	require.Equal(t, "new", *message)
}

func TestCachedStoreDropsEntryWhenWriteFails(t *testing.T) {
	ctx := context.Background()
	base := NewInMemoryStore()
	cache := newFakeRedis()
	store := NewCachedStore(base, cache, time.Minute)

	require.NoError(t, base.SetSecretMessage(ctx, "gina", "old"))
	_, err := store.GetSecretMessage(ctx, "gina")
	require.NoError(t, err)
	require.Contains(t, cache.values, cacheKey("gina"))

	cache.writeErr = errors.New("read only replica")
	require.NoError(t, store.SetSecretMessage(ctx, "gina", "new"))
	require.NotContains(t, cache.values, cacheKey("gina"))

	cache.writeErr = nil
	message, err := store.GetSecretMessage(ctx, "gina")
	require.NoError(t, err)
	require.Equal(t, "new", *message)
}

func TestCachedStoreReplacesMalformedEntry(t *testing.T) {
	ctx := context.Background()
	base := NewInMemoryStore()
	require.NoError(t, base.SetSecretMessage(ctx, "hank", "fresh"))

	cache := newFakeRedis()
	cache.values[cacheKey("hank")] = "{not json"
	store := NewCachedStore(base, cache, time.Minute)

	message, err := store.GetSecretMessage(ctx, "hank")
	require.NoError(t, err)
	require.Equal(t, "fresh", *message)
	require.JSONEq(t, `{"m":"fresh"}`, cache.values[cacheKey("hank")])
}

func TestCachedStoreCachesAbsentMessage(t *testing.T) {
	ctx := context.Background()
	base := &countingStore{InMemoryStore: NewInMemoryStore()}
	store := NewCachedStore(base, newFakeRedis(), time.Minute)

	for i := 0; i < 2; i++ {
		message, err := store.GetSecretMessage(ctx, "carol")
		require.NoError(t, err)
		require.Nil(t, message)
	}
	require.Equal(t, 1, base.gets)
}

func TestCachedStoreFallsBackWhenRedisFails(t *testing.T) {
	ctx := context.Background()
	base := NewInMemoryStore()
	require.NoError(t, base.SetSecretMessage(ctx, "dave", "hi"))

	cache := newFakeRedis()
	cache.readErr = errors.New("connection refused")
	store := NewCachedStore(base, cache, time.Minute)

	message, err := store.GetSecretMessage(ctx, "dave")
	require.NoError(t, err)
	require.Equal(t, "hi", *message)
}

func TestCachedStoreWithUnreachableRedis(t *testing.T) {
	ctx := context.Background()
	base := NewInMemoryStore()
	require.NoError(t, base.SetSecretMessage(ctx, "erin", "offline"))

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	store := NewCachedStore(base, client, time.Minute)

	message, err := store.GetSecretMessage(ctx, "erin")
	require.NoError(t, err)
	require.Equal(t, "offline", *message)

	require.NoError(t, store.SetSecretMessage(ctx, "erin", "updated"))
	message, err = base.GetSecretMessage(ctx, "erin")
	require.NoError(t, err)
	require.Equal(t, "updated", *message)
}
