package keyset

import "github.com/roach88/prequel/internal/ir"

// ByAttr orders records by one attribute using ir.Compare.
func ByAttr(name string) Comparator {
	return func(a, b Attributes) int {
		return ir.Compare(a.Attr(name), b.Attr(name))
	}
}

// Reverse inverts cmp.
func Reverse(cmp Comparator) Comparator {
	return func(a, b Attributes) int {
		return cmp(b, a)
	}
}
