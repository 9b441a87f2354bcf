package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "settings")
	require.ErrorIs(t, err, ErrMiss)

	require.NoError(t, m.Set(ctx, "settings", `{"a":1}`, 0))
	v, err := m.Get(ctx, "settings")
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, v)

	require.NoError(t, m.Delete(ctx, "settings"))
	_, err = m.Get(ctx, "settings")
	require.ErrorIs(t, err, ErrMiss)
}

func TestMemory_TTLExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 9, 25, 10, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	_, err := m.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "k")
	require.ErrorIs(t, err, ErrMiss)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	type payload struct {
		Name  string   `json:"name"`
		Flags []string `json:"flags"`
	}
	in := payload{Name: "x", Flags: []string{"a", "b"}}
	require.NoError(t, SetJSON(ctx, m, "p", in))

	var out payload
	require.NoError(t, GetJSON(ctx, m, "p", &out))
	require.Equal(t, in, out)

	require.ErrorIs(t, GetJSON(ctx, m, "missing", &out), ErrMiss)

	require.NoError(t, m.Set(ctx, "bad", "{", 0))
	require.Error(t, GetJSON(ctx, m, "bad", &out))
}
