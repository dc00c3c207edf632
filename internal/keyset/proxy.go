package keyset

import "github.com/roach88/prequel/internal/ir"

// Proxy gives Instance-like attribute access to one raw record at a time.
//
// A Proxy is rebindable and clearable. Reads on an unbound Proxy yield
// ir.Null{}. A Proxy must not be shared between concurrent traversals.
type Proxy struct {
	rec   ir.Record
	bound bool
}

// NewProxy returns an unbound proxy.
func NewProxy() *Proxy {
	return &Proxy{}
}

// Attr returns the named attribute of the bound record.
func (p *Proxy) Attr(name string) ir.Value {
	if !p.bound {
		return ir.Null{}
	}
	return p.rec.Get(name)
}

// Bound reports whether the proxy currently holds a record.
func (p *Proxy) Bound() bool {
	return p.bound
}

// using binds the proxy to rec and returns it.
// Callers pair every using with a deferred clear.
func (p *Proxy) using(rec ir.Record) *Proxy {
	p.rec = rec
	p.bound = true
	return p
}

// clear releases the bound record.
func (p *Proxy) clear() {
	p.rec = nil
	p.bound = false
}

// With binds the proxy to rec, evaluates pred and releases the binding
// before returning, on every exit path including a panic in pred.
func (p *Proxy) With(rec ir.Record, pred Predicate) bool {
	p.using(rec)
	defer p.clear()
	return pred(p)
}

// compareWith binds left to a and right to b for exactly one comparator call.
func compareWith(left, right *Proxy, a, b ir.Record, cmp Comparator) int {
	left.using(a)
	right.using(b)
	defer func() {
		left.clear()
		right.clear()
	}()
	return cmp(left, right)
}
