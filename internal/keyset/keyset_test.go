package keyset

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prequel/internal/ir"
)

func nameContains(sub string) Predicate {
	return func(a Attributes) bool {
		return strings.Contains(ir.Text(a.Attr("name")), sub)
	}
}

func TestNew_Dedups(t *testing.T) {
	ks := New(nil, ir.Keys("k", "k", "k2")...)

	assert.Equal(t, 2, ks.Size())
	assert.Equal(t, ir.Keys("k", "k2"), ks.Keys())
}

func TestNew_PreservesFirstSeenOrder(t *testing.T) {
	ks := New(nil, ir.Keys("b", "a", "b", "c", "a")...)
	assert.Equal(t, ir.Keys("b", "a", "c"), ks.Keys())
}

func TestNew_Empty(t *testing.T) {
	ks := New(nil)
	assert.True(t, ks.Empty())
	assert.NotNil(t, ks.Keys())
}

func TestFromMaybe_DropsAbsentOnly(t *testing.T) {
	ks := FromMaybe(nil, []ir.MaybeKey{ir.Some("a"), ir.None(), ir.Some(""), ir.Some("a"), ir.None()})
	assert.Equal(t, ir.Keys("a", ""), ks.Keys())
}

func TestFrozen_SkipsNormalizationButCopies(t *testing.T) {
	in := ir.Keys("x", "y")
	ks := Frozen(nil, in)
	in[0] = "mutated"

	assert.Equal(t, ir.Keys("x", "y"), ks.Keys())
}

func TestKeys_ReturnsCopy(t *testing.T) {
	ks := New(nil, ir.Keys("a", "b")...)
	keys := ks.Keys()
	keys[0] = "z"
	assert.Equal(t, ir.Keys("a", "b"), ks.Keys())
}

func TestUnion(t *testing.T) {
	m := newStooges()
	a := New(m, ir.Keys("moe", "curly")...)
	b := New(m, ir.Keys("larry", "curly", "shemp")...)

	u := a.Union(b)
	if diff := cmp.Diff(ir.Keys("moe", "curly", "larry", "shemp"), u.Keys()); diff != "" {
		t.Errorf("Union keys mismatch (-want +got):\n%s", diff)
	}
	assert.Same(t, m, u.Mapper())

	// Operands are untouched.
	assert.Equal(t, ir.Keys("moe", "curly"), a.Keys())
	assert.Equal(t, ir.Keys("larry", "curly", "shemp"), b.Keys())
}

func TestOr_IsUnion(t *testing.T) {
	a := New(nil, ir.Keys("a", "b")...)
	b := New(nil, ir.Keys("c", "a")...)
	assert.True(t, a.Or(b).Equal(a.Union(b)))
}

func TestUnion_KeepsLeftMapper(t *testing.T) {
	m := newStooges()
	a := New(nil, ir.Keys("a")...)
	b := New(m, ir.Keys("b")...)
	assert.Nil(t, a.Union(b).Mapper())
}

func TestIntersect(t *testing.T) {
	a := New(nil, ir.Keys("a", "b", "c", "d")...)
	b := New(nil, ir.Keys("d", "b", "x")...)

	i := a.Intersect(b)
	assert.Equal(t, ir.Keys("b", "d"), i.Keys())

	n, err := i.Count(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIntersect_Nil(t *testing.T) {
	a := New(nil, ir.Keys("a")...)
	assert.True(t, a.Intersect(nil).Empty())
}

func TestDifference(t *testing.T) {
	a := New(nil, ir.Keys("a", "b", "c")...)
	b := New(nil, ir.Keys("b", "z")...)

	d := a.Difference(b)
	assert.Equal(t, ir.Keys("a", "c"), d.Keys())
	for k := range d.EachKey() {
		assert.False(t, b.Contains(k))
	}
}

func TestSetAlgebra_Stooges(t *testing.T) {
	m := newStooges()
	all := m.all()
	larry, err := all.Find(nameContains("Larry"))
	require.NoError(t, err)

	assert.Equal(t, 3, all.Difference(larry).Size())
	assert.Equal(t, 1, all.Intersect(larry).Size())
}

func TestCall_ChainsScopes(t *testing.T) {
	m := newStooges()

	stooges, err := m.all().Call("stooges")
	require.NoError(t, err)
	assert.Equal(t, ir.Keys("curly", "larry", "moe"), stooges.Keys())

	fine, err := stooges.Call("non_howards")
	require.NoError(t, err)
	assert.Equal(t, ir.Keys("larry"), fine.Keys())

	first, ok, err := fine.First(nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ir.String("Larry Fine"), first.Attr("name"))
}

func TestCall_IntersectsWithReceiver(t *testing.T) {
	m := newStooges()
	// Receiver order wins and keys outside the receiver are dropped.
	recv := New(m, ir.Keys("shemp", "moe", "curly")...)

	got, err := recv.Call("stooges")
	require.NoError(t, err)
	assert.Equal(t, ir.Keys("moe", "curly"), got.Keys())
	assert.Same(t, m, got.Mapper())
}

func TestCall_ForwardsArguments(t *testing.T) {
	m := newStooges()

	got, err := m.all().Call("named", ir.String("Moe Howard"))
	require.NoError(t, err)
	assert.Equal(t, ir.Keys("moe"), got.Keys())

	_, err = m.all().Call("named")
	require.Error(t, err)
	assert.True(t, IsInvalidArgument(err))
}

func TestCall_UnknownScope(t *testing.T) {
	m := newStooges()
	stooges, err := m.all().Call("stooges")
	require.NoError(t, err)

	_, err = stooges.Call("foobar")
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "foobar")
	assert.Contains(t, err.Error(), "Person")
}

func TestCall_Unbound(t *testing.T) {
	_, err := New(nil, "a").Call("stooges")
	require.Error(t, err)
	assert.True(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "KeySet")
}

func TestString(t *testing.T) {
	m := newStooges()
	assert.Equal(t, "Person[curly larry]", New(m, ir.Keys("curly", "larry")...).String())
	assert.Equal(t, "KeySet[]", New(nil).String())
}
