package service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/configmonkey/internal/events"
	"github.com/alfredjeanlab/configmonkey/internal/metrics"
	"github.com/alfredjeanlab/configmonkey/internal/model"
	"github.com/alfredjeanlab/configmonkey/internal/store"
	"github.com/alfredjeanlab/configmonkey/internal/store/sqlite"
)

// spyStore counts calls that reach the config and version stores.
type spyStore struct {
	store.Store
	mu         sync.Mutex
	childCalls int
	failWith   error
}

func (s *spyStore) touch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.childCalls++
	return s.failWith
}

func (s *spyStore) GetConfig(ctx context.Context, domainID, key string) (*model.Config, error) {
	if err := s.touch(); err != nil {
		return nil, err
	}
	return s.Store.GetConfig(ctx, domainID, key)
}

func (s *spyStore) CreateConfig(ctx context.Context, c *model.Config) error {
	if err := s.touch(); err != nil {
		return err
	}
	return s.Store.CreateConfig(ctx, c)
}

func (s *spyStore) ListConfigs(ctx context.Context, domainID string, limit, offset int) ([]*model.Config, error) {
	if err := s.touch(); err != nil {
		return nil, err
	}
	return s.Store.ListConfigs(ctx, domainID, limit, offset)
}

func (s *spyStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.childCalls
}

type testEnv struct {
	reg     *Registry
	spy     *spyStore
	events  *events.RecordingPublisher
	metrics *metrics.Collector
}

func setupRegistry(t *testing.T) *testEnv {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	env := &testEnv{
		spy:     &spyStore{Store: s},
		events:  &events.RecordingPublisher{},
		metrics: metrics.NewCollector(),
	}
	env.reg = New(env.spy, WithPublisher(env.events), WithMetrics(env.metrics))
	return env
}

func requireKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, KindOf(err), "got error %v", err)
}

func TestScenario_TimeoutVersions(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateDomain(ctx, "acme")
	require.NoError(t, err)
	_, err = env.reg.CreateConfig(ctx, "acme", "timeout")
	require.NoError(t, err)

	v1, err := env.reg.CreateVersion(ctx, "acme", "timeout", model.IntValue(30))
	require.NoError(t, err)
	require.Equal(t, int64(1), v1.Index)

	v2, err := env.reg.CreateVersion(ctx, "acme", "timeout", model.IntValue(45))
	require.NoError(t, err)
	require.Equal(t, int64(2), v2.Index)

	page, err := env.reg.ListVersions(ctx, "acme", "timeout", PageRequest{Limit: 1, Offset: 0})
	require.NoError(t, err)
	require.Equal(t, 1, page.Count)
	require.Equal(t, int64(2), page.Items[0].Index)
	require.True(t, page.Items[0].Value.Equal(model.IntValue(45)))
	require.NotNil(t, page.NextOffset)
	require.Equal(t, 1, *page.NextOffset)
	require.Nil(t, page.PrevOffset)

	cur, err := env.reg.GetCurrentVersion(ctx, "acme", "timeout")
	require.NoError(t, err)
	require.Equal(t, v2.ID, cur.ID)

	first, err := env.reg.GetVersion(ctx, "acme", "timeout", 1)
	require.NoError(t, err)
	require.Equal(t, v1.ID, first.ID)

	require.Equal(t, []string{
		events.TopicDomainCreated,
		events.TopicConfigCreated,
		events.TopicVersionCreated,
		events.TopicVersionCreated,
	}, env.events.Topics())
	require.Equal(t, 2.0, testutil.ToFloat64(env.metrics.VersionsCreated))
}

func TestUniqueness(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateDomain(ctx, "acme")
	require.NoError(t, err)
	_, err = env.reg.CreateDomain(ctx, "acme")
	requireKind(t, err, KindDuplicateSlug)

	_, err = env.reg.CreateDomain(ctx, "globex")
	require.NoError(t, err)

	_, err = env.reg.CreateConfig(ctx, "acme", "db_url")
	require.NoError(t, err)
	_, err = env.reg.CreateConfig(ctx, "acme", "db_url")
	requireKind(t, err, KindConfigAlreadyExists)

	_, err = env.reg.CreateConfig(ctx, "globex", "db_url")
	require.NoError(t, err)
}

func TestReferentialGuard(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateDomain(ctx, "acme")
	require.NoError(t, err)
	_, err = env.reg.CreateConfig(ctx, "acme", "timeout")
	require.NoError(t, err)
	_, err = env.reg.CreateVersion(ctx, "acme", "timeout", model.StringValue("30s"))
	require.NoError(t, err)

	requireKind(t, env.reg.DeleteDomain(ctx, "acme"), KindNotEmpty)

	require.NoError(t, env.reg.DeleteConfig(ctx, "acme", "timeout"))
	require.NoError(t, env.reg.DeleteDomain(ctx, "acme"))

	_, err = env.reg.GetDomain(ctx, "acme")
	requireKind(t, err, KindDomainNotFound)
	requireKind(t, env.reg.DeleteDomain(ctx, "acme"), KindDomainNotFound)
}

func TestDomainNotFound_ShortCircuits(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateConfig(ctx, "ghost", "k")
	requireKind(t, err, KindDomainNotFound)
	_, err = env.reg.GetConfig(ctx, "ghost", "k")
	requireKind(t, err, KindDomainNotFound)
	_, err = env.reg.ListConfigs(ctx, "ghost", PageRequest{})
	requireKind(t, err, KindDomainNotFound)
	requireKind(t, env.reg.DeleteConfig(ctx, "ghost", "k"), KindDomainNotFound)
	_, err = env.reg.CreateVersion(ctx, "ghost", "k", model.IntValue(1))
	requireKind(t, err, KindDomainNotFound)
	_, err = env.reg.ListVersions(ctx, "ghost", "k", PageRequest{})
	requireKind(t, err, KindDomainNotFound)
	_, err = env.reg.GetCurrentVersion(ctx, "ghost", "k")
	requireKind(t, err, KindDomainNotFound)
	_, err = env.reg.GetVersion(ctx, "ghost", "k", 1)
	requireKind(t, err, KindDomainNotFound)

	require.Zero(t, env.spy.calls(), "config store must not be touched when the domain is missing")
}

func TestConfigNotFound(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateDomain(ctx, "acme")
	require.NoError(t, err)

	_, err = env.reg.GetConfig(ctx, "acme", "missing")
	requireKind(t, err, KindConfigNotFound)
	_, err = env.reg.CreateVersion(ctx, "acme", "missing", model.BoolValue(true))
	requireKind(t, err, KindConfigNotFound)
	_, err = env.reg.ListVersions(ctx, "acme", "missing", PageRequest{})
	requireKind(t, err, KindConfigNotFound)
	requireKind(t, env.reg.DeleteConfig(ctx, "acme", "missing"), KindConfigNotFound)
}

func TestVersionNotFound(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateDomain(ctx, "acme")
	require.NoError(t, err)
	_, err = env.reg.CreateConfig(ctx, "acme", "empty")
	require.NoError(t, err)

	_, err = env.reg.GetCurrentVersion(ctx, "acme", "empty")
	requireKind(t, err, KindVersionNotFound)
	_, err = env.reg.GetVersion(ctx, "acme", "empty", 1)
	requireKind(t, err, KindVersionNotFound)
	_, err = env.reg.GetVersion(ctx, "acme", "empty", 0)
	requireKind(t, err, KindVersionNotFound)
}

func TestValidation(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateDomain(ctx, "Not A Slug")
	requireKind(t, err, KindInvalidSlug)
	_, err = env.reg.CreateDomain(ctx, "")
	requireKind(t, err, KindInvalidSlug)
	_, err = env.reg.GetDomain(ctx, "Not A Slug")
	requireKind(t, err, KindInvalidSlug)
	err = env.reg.DeleteDomain(ctx, "Not A Slug")
	requireKind(t, err, KindInvalidSlug)

	_, err = env.reg.CreateDomain(ctx, "acme")
	require.NoError(t, err)
	_, err = env.reg.CreateConfig(ctx, "acme", "has space")
	requireKind(t, err, KindInvalidKey)

	_, err = env.reg.CreateConfig(ctx, "acme", "ratio")
	require.NoError(t, err)
	_, err = env.reg.CreateVersion(ctx, "acme", "ratio", model.FloatValue(math.Inf(1)))
	requireKind(t, err, KindInvalidValue)
	_, err = env.reg.CreateVersion(ctx, "acme", "ratio", model.FloatValue(math.NaN()))
	requireKind(t, err, KindInvalidValue)

	for _, req := range []PageRequest{{Limit: -1}, {Limit: MaxLimit + 1}, {Limit: 5, Offset: -1}} {
		_, err := env.reg.ListDomains(ctx, req)
		requireKind(t, err, KindInvalidPagination)
	}
}

func TestListDomains_Pagination(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	for _, slug := range []string{"a", "b", "c", "d"} {
		_, err := env.reg.CreateDomain(ctx, slug)
		require.NoError(t, err)
	}

	page, err := env.reg.ListDomains(ctx, PageRequest{})
	require.NoError(t, err)
	require.Equal(t, DefaultLimit, page.Limit)
	require.Equal(t, 4, page.Count)
	require.Nil(t, page.NextOffset)

	page, err = env.reg.ListDomains(ctx, PageRequest{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, slugs(page.Items))
	require.Equal(t, 2, *page.NextOffset)

	page, err = env.reg.ListDomains(ctx, PageRequest{Limit: 2, Offset: *page.NextOffset})
	require.NoError(t, err)
	require.Equal(t, []string{"c", "d"}, slugs(page.Items))
	require.Equal(t, 0, *page.PrevOffset)

	// A full last page still advertises a next page, which is empty.
	page, err = env.reg.ListDomains(ctx, PageRequest{Limit: 2, Offset: *page.NextOffset})
	require.NoError(t, err)
	require.Zero(t, page.Count)
	require.Nil(t, page.NextOffset)
}

func slugs(ds []*model.Domain) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Slug
	}
	return out
}

func TestCreateVersion_Concurrent(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateDomain(ctx, "acme")
	require.NoError(t, err)
	_, err = env.reg.CreateConfig(ctx, "acme", "counter")
	require.NoError(t, err)

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.reg.CreateVersion(ctx, "acme", "counter", model.IntValue(int64(i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	page, err := env.reg.ListVersions(ctx, "acme", "counter", PageRequest{Limit: MaxLimit})
	require.NoError(t, err)
	indices := make([]int, 0, n)
	for _, v := range page.Items {
		indices = append(indices, int(v.Index))
	}
	sort.Ints(indices)
	for i, idx := range indices {
		require.Equal(t, i+1, idx)
	}
	require.Len(t, indices, n)
}

func TestUnknownStoreFailure(t *testing.T) {
	env := setupRegistry(t)
	ctx := context.Background()

	_, err := env.reg.CreateDomain(ctx, "acme")
	require.NoError(t, err)

	env.spy.failWith = errors.New("connection reset by peer")
	_, err = env.reg.GetConfig(ctx, "acme", "timeout")
	requireKind(t, err, KindUnknown)
	require.Equal(t, "Unknown error", KindOf(err).Message())
	require.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Operations.WithLabelValues("get_config", "unknown")))
}

func TestCreatedAtUsesClock(t *testing.T) {
	s, err := sqlite.New(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := New(s, WithClock(func() time.Time { return fixed }))

	d, err := reg.CreateDomain(context.Background(), "acme")
	require.NoError(t, err)
	require.True(t, d.CreatedAt.Equal(fixed))

	got, err := reg.GetDomain(context.Background(), "acme")
	require.NoError(t, err)
	require.True(t, got.CreatedAt.Equal(fixed))
}
