package plugin

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	n    int
	ctrl any
}

func (c *counter) SetController(ctrl any) { c.ctrl = ctrl }

func (c *counter) Invoke(_ context.Context, args ...any) (any, error) {
	c.n++
	return fmt.Sprint(args...), nil
}

func counterFactory(built *int) Factory {
	return func(opts map[string]any) (any, error) {
		*built++
		c := &counter{}
		if v, ok := opts["start"].(int); ok {
			c.n = v
		}
		return c, nil
	}
}

func TestGet_SharedInstanceIsCached(t *testing.T) {
	built := 0
	m := NewManager()
	m.Register("counter", counterFactory(&built))

	a, err := m.Get("counter", nil)
	require.NoError(t, err)
	b, err := m.Get("Counter", nil)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, built)
}

func TestGet_OptionsBuildFreshInstance(t *testing.T) {
	built := 0
	m := NewManager()
	m.Register("counter", counterFactory(&built))

	shared, err := m.Get("counter", nil)
	require.NoError(t, err)
	withOpts, err := m.Get("counter", map[string]any{"start": 5})
	require.NoError(t, err)
	assert.NotSame(t, shared, withOpts)
	assert.Equal(t, 5, withOpts.(*counter).n)

	again, err := m.Get("counter", nil)
	require.NoError(t, err)
	assert.Same(t, shared, again)
	assert.Equal(t, 2, built)
}

func TestGet_Unshared(t *testing.T) {
	built := 0
	m := NewManager()
	m.Register("counter", counterFactory(&built), Unshared())
	a, _ := m.Get("counter", nil)
	b, _ := m.Get("counter", nil)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, built)
}

func TestGet_NotFound(t *testing.T) {
	_, err := NewManager().Get("missing", nil)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestGet_FactoryErrorWrapped(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager()
	m.Register("bad", func(map[string]any) (any, error) { return nil, boom })
	_, err := m.Get("bad", nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, IsNotFound(err))
}

func TestNormalizeAndAlias(t *testing.T) {
	built := 0
	m := NewManager(WithFactory("to-json", counterFactory(&built)))
	assert.True(t, m.Has("ToJSON"))
	assert.True(t, m.Has("to_json"))
	m.Alias("json", "to-json")
	assert.True(t, m.Has("JSON"))
	a, _ := m.Get("json", nil)
	b, _ := m.Get("toJson", nil)
	assert.Same(t, a, b)
	assert.Equal(t, []string{"tojson"}, m.Names())
}

func TestControllerInjection(t *testing.T) {
	built := 0
	m := NewManager(WithController("first"))
	m.Register("counter", counterFactory(&built))
	inst, _ := m.Get("counter", nil)
	assert.Equal(t, "first", inst.(*counter).ctrl)

	m.SetController("second")
	assert.Equal(t, "second", inst.(*counter).ctrl)
	assert.Equal(t, "second", m.Controller())
}

func TestRegisterReplacesCachedInstance(t *testing.T) {
	built := 0
	m := NewManager()
	m.Register("counter", counterFactory(&built))
	a, _ := m.Get("counter", nil)
	m.Register("counter", counterFactory(&built))
	b, _ := m.Get("counter", nil)
	assert.NotSame(t, a, b)
}
