package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/sqlport/pkg/errors"
)

func sampleTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := Build([]Node{
		// child listed before its parent
		{ID: "prod-ro", Parent: "prod", Fields: map[string]string{"user": "reader"}, Unset: []string{"password"}},
		{ID: "base", Fields: map[string]string{"driver": "postgresql", "port": "5432", "timeout": "10s"}},
		{ID: "prod", Parent: "base", Fields: map[string]string{"host": "db.prod", "user": "admin", "password": "pw"}},
		{ID: "dev", Parent: "base", Fields: map[string]string{"host": "localhost", "port": "15432"}},
	})
	require.NoError(t, err)
	return tree
}

func TestResolveNearestOverride(t *testing.T) {
	tree := sampleTree(t)

	got, err := tree.Resolve("prod-ro")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"driver":  "postgresql",
		"port":    "5432",
		"timeout": "10s",
		"host":    "db.prod",
		"user":    "reader",
	}, got)

	got, err = tree.Resolve("dev")
	require.NoError(t, err)
	assert.Equal(t, "15432", got["port"])
	assert.NotContains(t, got, "user")
}

func TestUnsetThenSetAgainBelow(t *testing.T) {
	tree := sampleTree(t)
	require.NoError(t, tree.Insert(Node{ID: "prod-ro-pw", Parent: "prod-ro", Fields: map[string]string{"password": "other"}}))

	got, err := tree.Resolve("prod-ro-pw")
	require.NoError(t, err)
	assert.Equal(t, "other", got["password"])
}

func TestExplainReportsOrigin(t *testing.T) {
	tree := sampleTree(t)
	origins, err := tree.Explain("prod-ro")
	require.NoError(t, err)

	byField := map[string]string{}
	for _, o := range origins {
		byField[o.Field] = o.Origin
	}
	assert.Equal(t, "base", byField["driver"])
	assert.Equal(t, "prod", byField["host"])
	assert.Equal(t, "prod-ro", byField["user"])
	assert.Equal(t, "driver", origins[0].Field)
}

func TestCycleLeavesTreeUnchanged(t *testing.T) {
	tree, err := Build([]Node{
		{ID: "a", Parent: "c"},
		{ID: "b", Parent: "a"},
	})
	require.NoError(t, err)
	before := tree.Nodes()

	err = tree.Insert(Node{ID: "c", Parent: "b", Fields: map[string]string{"host": "x"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCycle))
	assert.Equal(t, errors.ExitProfile, errors.ExitCode(err))
	assert.Equal(t, before, tree.Nodes())
	assert.Equal(t, 2, tree.Len())

	err = tree.Insert(Node{ID: "self", Parent: "self"})
	assert.True(t, errors.Is(err, errors.ErrCycle))
	assert.Equal(t, 2, tree.Len())
}

func TestDuplicateID(t *testing.T) {
	tree := sampleTree(t)
	err := tree.Insert(Node{ID: "dev", Fields: map[string]string{"host": "changed"}})
	assert.True(t, errors.Is(err, errors.ErrDuplicateID))

	got, err := tree.Resolve("dev")
	require.NoError(t, err)
	assert.Equal(t, "localhost", got["host"])
}

func TestUnknownAndDanglingParent(t *testing.T) {
	tree := sampleTree(t)
	_, err := tree.Resolve("staging")
	assert.True(t, errors.Is(err, errors.ErrUnknownID))

	require.NoError(t, tree.Insert(Node{ID: "orphan", Parent: "missing"}))
	_, err = tree.Resolve("orphan")
	assert.True(t, errors.Is(err, errors.ErrUnknownID))
	parent, ok := errors.Detail(err, "missing_parent")
	require.True(t, ok)
	assert.Equal(t, "missing", parent)

	_, err = tree.ChildrenOf("staging")
	assert.True(t, errors.Is(err, errors.ErrUnknownID))
}

func TestSetAndUnsetSameField(t *testing.T) {
	tree := NewTree()
	err := tree.Insert(Node{ID: "x", Fields: map[string]string{"host": "h"}, Unset: []string{"host"}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeProfile))
	assert.Equal(t, 0, tree.Len())

	err = tree.Insert(Node{ID: "  "})
	assert.True(t, errors.IsType(err, errors.ErrorTypeProfile))
}

func TestNavigation(t *testing.T) {
	tree := sampleTree(t)

	children, err := tree.ChildrenOf("base")
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, children)

	assert.Equal(t, []string{"base"}, tree.Roots())
	assert.Equal(t, []string{"base", "dev", "prod", "prod-ro"}, tree.IDs())

	n, ok := tree.Get("prod-ro")
	require.True(t, ok)
	assert.Equal(t, []string{"password"}, n.Unset)
	assert.Equal(t, "prod", n.Parent)
}

func TestResolveIsNotCached(t *testing.T) {
	tree, err := Build([]Node{{ID: "child", Parent: "root"}})
	require.NoError(t, err)

	_, err = tree.Resolve("child")
	require.Error(t, err)

	require.NoError(t, tree.Insert(Node{ID: "root", Fields: map[string]string{"driver": "mysql"}}))
	got, err := tree.Resolve("child")
	require.NoError(t, err)
	assert.Equal(t, "mysql", got["driver"])
}
