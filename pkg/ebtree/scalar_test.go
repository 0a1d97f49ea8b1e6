package ebtree

import (
	"math/rand"
	"testing"
	"unsafe"
)

func TestU32TreeInsertTraversalOrder(t *testing.T) {
	tr := NewU32Tree(false)
	for _, k := range []uint32{5, 2, 8, 5, 1} {
		tr.Insert(NewU32Node(k))
	}

	var got []uint32
	for n := tr.First(); n != nil; n = n.Next() {
		got = append(got, n.Key())
	}
	want := []uint32{1, 2, 5, 5, 8}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestU32TreeNextUniqueSkipsDuplicateSubtree(t *testing.T) {
	tr := NewU32Tree(false)
	for _, k := range []uint32{5, 2, 8, 5, 1} {
		tr.Insert(NewU32Node(k))
	}

	two := tr.Lookup(2)
	if two == nil {
		t.Fatal("expected to find key 2")
	}
	firstFive := two.NextUnique()
	if firstFive == nil || firstFive.Key() != 5 {
		t.Fatalf("expected NextUnique from 2 to land on 5, got %#v", firstFive)
	}
	secondFive := firstFive.Next()
	if secondFive == nil || secondFive.Key() != 5 {
		t.Fatalf("expected Next from first 5 to land on second 5, got %#v", secondFive)
	}
	if firstFive == secondFive {
		t.Fatal("expected two distinct duplicate nodes")
	}
}

func TestU32TreeUniqueRejectsDuplicateInsert(t *testing.T) {
	tr := NewU32Tree(true)
	first := NewU32Node(42)
	tr.Insert(first)

	second := NewU32Node(42)
	got := tr.Insert(second)
	if got != first {
		t.Fatalf("expected unique insert to return the original node")
	}

	count := 0
	for n := tr.First(); n != nil; n = n.Next() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one node in the tree, got %d", count)
	}
}

func TestU32TreeBoundedLookup(t *testing.T) {
	tr := NewU32Tree(false)
	for _, k := range []uint32{10, 20, 30} {
		tr.Insert(NewU32Node(k))
	}

	if n := tr.LookupLE(15); n == nil || n.Key() != 10 {
		t.Fatalf("LookupLE(15): got %#v, want 10", n)
	}
	if n := tr.LookupGE(15); n == nil || n.Key() != 20 {
		t.Fatalf("LookupGE(15): got %#v, want 20", n)
	}
	if n := tr.LookupLE(5); n != nil {
		t.Fatalf("LookupLE(5): got %#v, want absent", n)
	}
	if n := tr.LookupGE(35); n != nil {
		t.Fatalf("LookupGE(35): got %#v, want absent", n)
	}
	if n := tr.LookupLE(20); n == nil || n.Key() != 20 {
		t.Fatalf("LookupLE(20): got %#v, want 20", n)
	}
}

func TestI32TreeOrdersNegativeBeforePositive(t *testing.T) {
	tr := NewI32Tree(false)
	for _, k := range []int32{-3, -1, 0, 2} {
		tr.Insert(NewI32Node(k))
	}

	var got []int32
	for n := tr.First(); n != nil; n = n.Next() {
		got = append(got, n.Key())
	}
	want := []int32{-3, -1, 0, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestU64TreeRandomInsertDeleteEven(t *testing.T) {
	tr := NewU64Tree(true)
	rng := rand.New(rand.NewSource(1))

	const n = 1000
	nodes := make([]*U64Node, 0, n)
	seen := make(map[uint64]bool, n)
	for len(nodes) < n {
		k := rng.Uint64()
		if seen[k] {
			continue
		}
		seen[k] = true
		node := NewU64Node(k)
		tr.Insert(node)
		nodes = append(nodes, node)
	}

	var original []uint64
	for nd := tr.First(); nd != nil; nd = nd.Next() {
		original = append(original, nd.Key())
	}
	if len(original) != n {
		t.Fatalf("expected %d nodes, got %d", n, len(original))
	}

	var want []uint64
	for i, nd := range nodes {
		if i%2 == 0 {
			tr.Delete(nd)
		}
	}
	for _, k := range original {
		idx := -1
		for i, nd := range nodes {
			if nd.Key() == k {
				idx = i
				break
			}
		}
		if idx%2 != 0 {
			want = append(want, k)
		}
	}

	var got []uint64
	for nd := tr.First(); nd != nil; nd = nd.Next() {
		got = append(got, nd.Key())
	}
	if len(got) != len(want) {
		t.Fatalf("after deleting evens: got %d remaining, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("remaining sequence mismatch at %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestU128TreeRoundTrip(t *testing.T) {
	tr := NewU128Tree(false)
	keys := []Uint128{
		{Hi: 0, Lo: 5},
		{Hi: 1, Lo: 0},
		{Hi: 0, Lo: 1},
		{Hi: 0xFFFFFFFFFFFFFFFF, Lo: 0xFFFFFFFFFFFFFFFF},
	}
	for _, k := range keys {
		tr.Insert(NewU128Node(k))
	}

	var got []Uint128
	for n := tr.First(); n != nil; n = n.Next() {
		got = append(got, n.Key())
	}
	want := []Uint128{
		{Hi: 0, Lo: 1},
		{Hi: 0, Lo: 5},
		{Hi: 1, Lo: 0},
		{Hi: 0xFFFFFFFFFFFFFFFF, Lo: 0xFFFFFFFFFFFFFFFF},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestI128TreeOrdersBySignedValue(t *testing.T) {
	tr := NewI128Tree(false)
	neg := Uint128{Hi: 0xFFFFFFFFFFFFFFFF, Lo: 0xFFFFFFFFFFFFFFFF} // -1
	zero := Uint128{}
	pos := Uint128{Lo: 1}

	tr.Insert(NewI128Node(pos))
	tr.Insert(NewI128Node(neg))
	tr.Insert(NewI128Node(zero))

	first := tr.First()
	if first == nil || first.Key() != neg {
		t.Fatalf("expected -1 to sort first, got %#v", first)
	}
	last := tr.Last()
	if last == nil || last.Key() != pos {
		t.Fatalf("expected 1 to sort last, got %#v", last)
	}
}

func TestPtrTreeOrdersByAddress(t *testing.T) {
	tr := NewPtrTree(false)
	a, b, c := 1, 2, 3
	// Addresses aren't ordered by declaration order, so insert three real
	// pointers and verify traversal is sorted by address value.
	nodes := []*PtrNode{
		NewPtrNode(unsafe.Pointer(&a)),
		NewPtrNode(unsafe.Pointer(&b)),
		NewPtrNode(unsafe.Pointer(&c)),
	}
	for _, n := range nodes {
		tr.Insert(n)
	}

	var prev *PtrNode
	count := 0
	for n := tr.First(); n != nil; n = n.Next() {
		if prev != nil && n.Key() < prev.Key() {
			t.Fatalf("traversal not ordered by address")
		}
		prev = n
		count++
	}
	if count != 3 {
		t.Fatalf("expected 3 nodes, got %d", count)
	}
}
