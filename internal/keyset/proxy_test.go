package keyset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/prequel/internal/ir"
)

func TestProxy_UnboundReadsNull(t *testing.T) {
	p := NewProxy()
	assert.False(t, p.Bound())
	assert.Equal(t, ir.Null{}, p.Attr("name"))
}

func TestProxy_With(t *testing.T) {
	p := NewProxy()
	rec := ir.Record{"name": ir.String("Moe Howard")}

	matched := p.With(rec, func(a Attributes) bool {
		assert.True(t, p.Bound())
		return ir.Text(a.Attr("name")) == "Moe Howard"
	})

	assert.True(t, matched)
	assert.False(t, p.Bound())
}

func TestProxy_WithClearsOnPanic(t *testing.T) {
	p := NewProxy()

	assert.Panics(t, func() {
		p.With(ir.Record{"name": ir.String("x")}, func(Attributes) bool {
			panic("predicate failed")
		})
	})
	assert.False(t, p.Bound())
	assert.Equal(t, ir.Null{}, p.Attr("name"))
}

func TestProxy_Rebind(t *testing.T) {
	p := NewProxy()
	p.using(ir.Record{"name": ir.String("a")})
	assert.Equal(t, ir.String("a"), p.Attr("name"))

	p.using(ir.Record{"other": ir.Int(1)})
	assert.Equal(t, ir.Null{}, p.Attr("name"))
	assert.Equal(t, ir.Int(1), p.Attr("other"))

	p.clear()
	assert.Equal(t, ir.Null{}, p.Attr("other"))
}

func TestProxy_NoStateAcrossCalls(t *testing.T) {
	p := NewProxy()
	p.With(ir.Record{"name": ir.String("first")}, func(Attributes) bool { return true })

	var saw ir.Value
	p.With(ir.Record{}, func(a Attributes) bool {
		saw = a.Attr("name")
		return true
	})
	assert.Equal(t, ir.Null{}, saw)
}

func TestProxy_RetainedBindingIsReleased(t *testing.T) {
	m := newStooges()
	var kept []Attributes

	_, err := m.all().Find(func(a Attributes) bool {
		kept = append(kept, a)
		return true
	})
	require.NoError(t, err)
	_, err = m.all().Count(func(a Attributes) bool {
		kept = append(kept, a)
		return false
	})
	require.NoError(t, err)
	_, err = m.all().Sort(func(a, b Attributes) int {
		kept = append(kept, a, b)
		return ByAttr("name")(a, b)
	})
	require.NoError(t, err)

	require.NotEmpty(t, kept)
	for _, a := range kept {
		assert.False(t, a.(*Proxy).Bound())
		assert.Equal(t, ir.Null{}, a.Attr("name"))
	}
}
