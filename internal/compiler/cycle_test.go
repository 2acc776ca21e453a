package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasCycleSelf(t *testing.T) {
	vs := Validate(mustParse(t, `definitions: [{alias: "A", type: "vec<A>"}]`))
	require.Len(t, vs, 1)
	assert.Equal(t, ErrAliasCycle, vs[0].Code)
	assert.Equal(t, KindCycle, vs[0].Kind)
	assert.Equal(t, []string{"A", "A"}, vs[0].Cycle)
}

func TestAliasCycleMutual(t *testing.T) {
	src := `definitions: [
		{alias: "A", type: "option<B>"},
		{alias: "B", type: "hash_map<string, A>"},
	]`
	vs := Validate(mustParse(t, src))
	require.Len(t, vs, 1)
	assert.Equal(t, ErrAliasCycle, vs[0].Code)
	assert.Equal(t, []string{"A", "B", "A"}, vs[0].Cycle)
}

func TestAliasChainWithoutCycle(t *testing.T) {
	src := `definitions: [
		{alias: "A", type: "B"},
		{alias: "B", type: "vec<C>"},
		{struct: "C", fields: [{name: "next", id: 1, type: "option<C>"}]},
	]`
	assert.Empty(t, Validate(mustParse(t, src)))
}

func TestRecursiveStructByValue(t *testing.T) {
	src := `definitions: [
		{struct: "Node", fields: [{name: "child", id: 1, type: "(u8, Node)"}]},
	]`
	vs := Validate(mustParse(t, src))
	require.Len(t, vs, 1)
	assert.Equal(t, ErrRecursiveType, vs[0].Code)
	assert.Equal(t, "Node", vs[0].Definition)
}

func TestRecursiveStructThroughAlias(t *testing.T) {
	src := `definitions: [
		{struct: "A", fields: [{name: "b", id: 1, type: "B"}]},
		{alias: "B", type: "[A; 2]"},
	]`
	vs := Validate(mustParse(t, src))
	require.Len(t, vs, 1)
	assert.Equal(t, ErrRecursiveType, vs[0].Code)
	assert.Equal(t, []string{"A", "B", "A"}, vs[0].Cycle)
}

func TestRecursiveStructThroughGenericArgument(t *testing.T) {
	src := `definitions: [
		{struct: "Box", generics: ["T"], fields: [{name: "inner", id: 1, type: "T"}]},
		{struct: "A", fields: [{name: "b", id: 1, type: "Box<A>"}]},
	]`
	vs := Validate(mustParse(t, src))
	require.Len(t, vs, 1)
	assert.Equal(t, ErrRecursiveType, vs[0].Code)
	assert.Equal(t, "A", vs[0].Definition)
	assert.Equal(t, []string{"A", "A"}, vs[0].Cycle)
}

func TestRecursiveStructThroughNestedGenerics(t *testing.T) {
	src := `definitions: [
		{struct: "Box", generics: ["T"], fields: [{name: "inner", id: 1, type: "T"}]},
		{alias: "Pair", generics: ["L", "R"], type: "(Box<L>, vec<R>)"},
		{struct: "A", fields: [{name: "p", id: 1, type: "Pair<u8, A>"}]},
		{struct: "B", fields: [{name: "p", id: 1, type: "Pair<B, u8>"}]},
	]`
	vs := Validate(mustParse(t, src))
	require.Len(t, vs, 1)
	assert.Equal(t, ErrRecursiveType, vs[0].Code)
	assert.Equal(t, "B", vs[0].Definition)
}

func TestGenericArgumentBehindIndirectionIsFine(t *testing.T) {
	src := `definitions: [
		{struct: "List", generics: ["T"], fields: [{name: "items", id: 1, type: "vec<T>"}]},
		{struct: "Node", fields: [{name: "children", id: 1, type: "List<Node>"}]},
	]`
	assert.Empty(t, Validate(mustParse(t, src)))
}

func TestRecursionThroughIndirectionIsFine(t *testing.T) {
	src := `definitions: [
		{struct: "Tree", fields: [
			{name: "children", id: 1, type: "vec<Tree>"},
			{name: "parent", id: 2, type: "option<Tree>"},
			{name: "index", id: 3, type: "hash_map<string, Tree>"},
			{name: "none", id: 4, type: "[Tree; 0]"},
		]},
		{enum: "List", variants: [{name: "Nil", id: 1}, {name: "Cons", id: 2, fields: [{id: 1, type: "u8"}, {id: 2, type: "List"}]}]},
	]`
	assert.Empty(t, Validate(mustParse(t, src)))
}

func TestTarjanSCCDeterministic(t *testing.T) {
	graph := dependencyGraph{
		"a": {"b"},
		"b": {"a"},
		"c": {"c"},
		"d": nil,
	}
	first := tarjanSCC(graph)
	for range 10 {
		assert.Equal(t, first, tarjanSCC(graph))
	}
	assert.Len(t, first, 3)
	assert.True(t, hasSelfLoop("c", graph))
	assert.False(t, hasSelfLoop("d", graph))
}
