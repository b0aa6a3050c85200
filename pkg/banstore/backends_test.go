package banstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"zerotwo/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "banned_users.json")
	p := NewFilePersistence(path)

	ids, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, p.Save(ctx, []string{"1", "2"}))
	ids, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)

	require.NoError(t, p.Save(ctx, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestFilePersistence_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banned_users.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))

	_, err := NewFilePersistence(path).Load(context.Background())
	assert.Error(t, err)
}

func TestFilePersistence_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bans.json")

	first := New(ctx, NewFilePersistence(path), nil)
	require.NoError(t, first.Ban(ctx, "42"))

	second := New(ctx, NewFilePersistence(path), nil)
	assert.True(t, second.IsBanned("42"))
}

func TestFilePersistence_CorruptFileIsNotClobbered(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "banned_users.json")
	corrupt := `["a","b","c"],`
	require.NoError(t, os.WriteFile(path, []byte(corrupt), 0o644))

	s := New(ctx, NewFilePersistence(path), nil)
	assert.ErrorIs(t, s.Ban(ctx, "z"), ErrNotLoaded)
	assert.True(t, s.IsBanned("z"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, string(data), "previously banned users survive on disk")
}

func TestNewFilePersistence_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFile, NewFilePersistence("").Path)
}

func TestRedisPersistence(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	p := NewRedisPersistence(cache.NewFromClient(client, "zt"))

	ids, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	store := New(ctx, p, nil)
	require.NoError(t, store.Ban(ctx, "7"))
	require.NoError(t, store.Ban(ctx, "8"))

	members, err := mr.Members("zt:banned_users")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"7", "8"}, members)

	reloaded := New(ctx, p, nil)
	assert.Equal(t, []string{"7", "8"}, reloaded.List())
}

type fakeQuerier struct {
	queries []string
	vars    []map[string]interface{}
	result  interface{}
	err     error
}

func (f *fakeQuerier) Query(_ context.Context, sql string, vars map[string]interface{}) (interface{}, error) {
	f.queries = append(f.queries, sql)
	f.vars = append(f.vars, vars)
	return f.result, f.err
}

func TestSurrealPersistence_Load(t *testing.T) {
	q := &fakeQuerier{result: []interface{}{
		map[string]interface{}{"user_id": "1"},
		map[string]interface{}{"user_id": ""},
		"garbage",
		map[string]interface{}{"user_id": "2"},
	}}
	p, err := NewSurrealPersistence(q, "")
	require.NoError(t, err)

	ids, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Contains(t, q.queries[0], "FROM banned_users")
}

func TestSurrealPersistence_Save(t *testing.T) {
	q := &fakeQuerier{}
	p, err := NewSurrealPersistence(q, "bans")
	require.NoError(t, err)

	require.NoError(t, p.Save(context.Background(), []string{"1", "2"}))
	sql := q.queries[0]
	assert.True(t, strings.Index(sql, "BEGIN TRANSACTION") < strings.Index(sql, "DELETE bans"))
	assert.Contains(t, sql, "INSERT INTO bans $rows")
	assert.Contains(t, sql, "COMMIT TRANSACTION")
	assert.Len(t, q.vars[0]["rows"], 2)

	require.NoError(t, p.Save(context.Background(), nil))
	assert.NotContains(t, q.queries[1], "INSERT")
}

func TestSurrealPersistence_Errors(t *testing.T) {
	_, err := NewSurrealPersistence(&fakeQuerier{}, "bans; REMOVE TABLE bans")
	assert.Error(t, err)

	q := &fakeQuerier{err: errors.New("connection reset")}
	p, _ := NewSurrealPersistence(q, "")
	_, err = p.Load(context.Background())
	assert.Error(t, err)
	assert.Error(t, p.Save(context.Background(), []string{"1"}))

	q = &fakeQuerier{result: "not rows"}
	p, _ = NewSurrealPersistence(q, "")
	_, err = p.Load(context.Background())
	assert.Error(t, err)
}
