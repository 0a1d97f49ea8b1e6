package ebtree

import (
	"math/bits"
	"unsafe"
)

// scalarUint is the set of unsigned integer types this package branches
// on. Every fixed-width scalar tree, signed or unsigned, reduces to
// comparisons and bit tests over one of these widths. uintptr is included
// for PtrTree (pointer.go), whose branch width therefore resolves to
// whichever of the other two matches the platform's pointer size.
type scalarUint interface {
	uint32 | uint64 | uintptr
}

// scalarNode is the node record shared by every fixed-width scalar tree
// (U32Node, I32Node, U64Node, I64Node are all instantiations of this one
// generic type). Header must stay the first field: typed wrappers are
// recovered from a bare *Header with an intrusive-container cast.
type scalarNode[K comparable] struct {
	Header
	key K
}

// Key returns the key this node was inserted with.
func (n *scalarNode[K]) Key() K { return n.key }

func scalarOf[K comparable](h *Header) *scalarNode[K] {
	return (*scalarNode[K])(unsafe.Pointer(h))
}

func headerAsScalar[K comparable](h *Header) *scalarNode[K] {
	if h == nil {
		return nil
	}
	return scalarOf[K](h)
}

// scalarTree is the engine shared by every fixed-width scalar tree. K is
// the key type a caller sees (uint32, int32, uint64, or int64); U is the
// unsigned width used for branching and ordering. order projects K onto U
// in a way that preserves ordering — the identity function for the
// unsigned trees, and an XOR of the sign bit for the signed ones, so a
// single engine serves both without replicating the algorithm body, per
// the key-width compile-time-dispatch design this package follows
// throughout.
//
// bit is always a branching *position* here (0 at the least significant
// bit), unlike the byte-string trees in bytes.go, where it counts
// identical leading bits instead.
type scalarTree[K comparable, U scalarUint] struct {
	root  Root
	order func(K) U
}

func (t *scalarTree[K, U]) init(unique bool, order func(K) U) {
	RootInit(&t.root, unique)
	t.order = order
}

func (t *scalarTree[K, U]) first() *scalarNode[K] { return headerAsScalar[K](first(&t.root)) }
func (t *scalarTree[K, U]) last() *scalarNode[K]  { return headerAsScalar[K](last(&t.root)) }

func (t *scalarTree[K, U]) delete(n *scalarNode[K]) { deleteNode(&n.Header) }

func diverges[U scalarUint](x, y U, bit int32) bool {
	return (x^y)>>uint(bit+1) != 0
}

func sideAt[U scalarUint](x U, bit int32) side {
	return side((x >> uint(bit)) & 1)
}

// highBit returns the position of the most significant set bit of x, which
// must be non-zero (it is always computed from the XOR of two distinct
// values). The uintptr case is where PtrTree's dispatch on platform pointer
// width actually happens — eb_pt_tree.c resolves this once at compile
// time via sizeof(void*); here it resolves once per call via
// unsafe.Sizeof, which the compiler constant-folds.
func highBit[U scalarUint](x U) int32 {
	switch v := any(x).(type) {
	case uint32:
		return int32(31 - bits.LeadingZeros32(v))
	case uint64:
		return int32(63 - bits.LeadingZeros64(v))
	case uintptr:
		if unsafe.Sizeof(v) == 4 {
			return int32(31 - bits.LeadingZeros32(uint32(v)))
		}
		return int32(63 - bits.LeadingZeros64(uint64(v)))
	default:
		panic("ebtree: unsupported scalar width")
	}
}

func (t *scalarTree[K, U]) insert(new *scalarNode[K]) *scalarNode[K] {
	ord := t.order(new.key)

	troot := t.root.branches[0]
	if troot.isNil() {
		new.leafParent = leafRef(&t.root.Header, left)
		new.nodeParent = ref{}
		t.root.branches[0] = childRef(&new.Header, leafKind)
		return new
	}

	for {
		if troot.kind() == leafKind {
			old := scalarOf[K](troot.h)
			oldOrd := t.order(old.key)
			if ord == oldOrd {
				if t.root.Unique() {
					return old
				}
				return headerAsScalar[K](insertDup(&old.Header, &new.Header))
			}
			bit := highBit(ord ^ oldOrd)
			splitAtLeaf(&old.Header, &new.Header, sideAt(oldOrd, bit), bit)
			return new
		}

		node := scalarOf[K](troot.h)
		nodeOrd := t.order(node.key)

		if node.bit < 0 {
			if ord == nodeOrd {
				return headerAsScalar[K](insertDup(&node.Header, &new.Header))
			}
			bit := highBit(ord ^ nodeOrd)
			insertAboveNode(&node.Header, &new.Header, sideAt(nodeOrd, bit), bit)
			return new
		}

		if diverges(ord, nodeOrd, node.bit) {
			bit := highBit(ord ^ nodeOrd)
			insertAboveNode(&node.Header, &new.Header, sideAt(nodeOrd, bit), bit)
			return new
		}

		troot = node.branches[sideAt(ord, node.bit)]
	}
}

func (t *scalarTree[K, U]) lookup(key K) *scalarNode[K] {
	ord := t.order(key)

	troot := t.root.branches[0]
	if troot.isNil() {
		return nil
	}
	for {
		if troot.kind() == leafKind {
			n := scalarOf[K](troot.h)
			if t.order(n.key) == ord {
				return n
			}
			return nil
		}
		node := scalarOf[K](troot.h)
		nodeOrd := t.order(node.key)
		if node.bit < 0 {
			if nodeOrd == ord {
				return node
			}
			return nil
		}
		if diverges(ord, nodeOrd, node.bit) {
			return nil
		}
		troot = node.branches[sideAt(ord, node.bit)]
	}
}

// lookupLE returns the node with the greatest key <= key, or nil.
func (t *scalarTree[K, U]) lookupLE(key K) *scalarNode[K] {
	ord := t.order(key)

	troot := t.root.branches[0]
	if troot.isNil() {
		return nil
	}

	for {
		if troot.kind() == leafKind {
			node := scalarOf[K](troot.h)
			if t.order(node.key) <= ord {
				return node
			}
			troot = node.leafParent
			break
		}

		node := scalarOf[K](troot.h)
		nodeOrd := t.order(node.key)

		if node.bit < 0 {
			leaf := scalarOf[K](walkDown(node.branches[right], right))
			if t.order(leaf.key) <= ord {
				return leaf
			}
			troot = node.nodeParent
			break
		}

		if diverges(ord, nodeOrd, node.bit) {
			if ord >= nodeOrd {
				leaf := scalarOf[K](walkDown(node.branches[right], right))
				if t.order(leaf.key) <= ord {
					return leaf
				}
			}
			troot = node.nodeParent
			break
		}

		troot = node.branches[sideAt(ord, node.bit)]
	}

	return headerAsScalar[K](climbToPrev(troot))
}

// lookupGE returns the node with the least key >= key, or nil.
func (t *scalarTree[K, U]) lookupGE(key K) *scalarNode[K] {
	ord := t.order(key)

	troot := t.root.branches[0]
	if troot.isNil() {
		return nil
	}

	for {
		if troot.kind() == leafKind {
			node := scalarOf[K](troot.h)
			if t.order(node.key) >= ord {
				return node
			}
			troot = node.leafParent
			break
		}

		node := scalarOf[K](troot.h)
		nodeOrd := t.order(node.key)

		if node.bit < 0 {
			leaf := scalarOf[K](walkDown(node.branches[left], left))
			if t.order(leaf.key) >= ord {
				return leaf
			}
			troot = node.nodeParent
			break
		}

		if diverges(ord, nodeOrd, node.bit) {
			if ord <= nodeOrd {
				leaf := scalarOf[K](walkDown(node.branches[left], left))
				if t.order(leaf.key) >= ord {
					return leaf
				}
			}
			troot = node.nodeParent
			break
		}

		troot = node.branches[sideAt(ord, node.bit)]
	}

	return headerAsScalar[K](climbToNext(troot))
}

func orderU32(k uint32) uint32 { return k }
func orderU64(k uint64) uint64 { return k }
func orderI32(k int32) uint32  { return uint32(k) ^ 0x8000_0000 }
func orderI64(k int64) uint64  { return uint64(k) ^ 0x8000_0000_0000_0000 }

// U32Node is a node in a U32Tree.
type U32Node = scalarNode[uint32]

// U32Tree is an elastic binary tree keyed by uint32.
type U32Tree struct{ t scalarTree[uint32, uint32] }

// NewU32Tree creates an empty tree. unique, once set, makes Insert reject
// keys already present.
func NewU32Tree(unique bool) *U32Tree {
	tr := &U32Tree{}
	tr.t.init(unique, orderU32)
	return tr
}

// NewU32Node creates a detached node ready to be inserted.
func NewU32Node(key uint32) *U32Node { return &U32Node{key: key} }

func (t *U32Tree) Insert(n *U32Node) *U32Node   { return t.t.insert(n) }
func (t *U32Tree) Lookup(key uint32) *U32Node   { return t.t.lookup(key) }
func (t *U32Tree) LookupLE(key uint32) *U32Node { return t.t.lookupLE(key) }
func (t *U32Tree) LookupGE(key uint32) *U32Node { return t.t.lookupGE(key) }
func (t *U32Tree) First() *U32Node              { return t.t.first() }
func (t *U32Tree) Last() *U32Node               { return t.t.last() }
func (t *U32Tree) Delete(n *U32Node)             { t.t.delete(n) }
func (t *U32Tree) Unique() bool                 { return t.t.root.Unique() }

func (n *U32Node) Next() *U32Node       { return headerAsScalar[uint32](next(&n.Header)) }
func (n *U32Node) Prev() *U32Node       { return headerAsScalar[uint32](prev(&n.Header)) }
func (n *U32Node) NextUnique() *U32Node { return headerAsScalar[uint32](nextUnique(&n.Header)) }
func (n *U32Node) PrevUnique() *U32Node { return headerAsScalar[uint32](prevUnique(&n.Header)) }

// I32Node is a node in an I32Tree.
type I32Node = scalarNode[int32]

// I32Tree is an elastic binary tree keyed by int32, ordered numerically
// (not as two's-complement bit patterns) by XOR-flipping the sign bit
// before every comparison and branch decision.
type I32Tree struct{ t scalarTree[int32, uint32] }

func NewI32Tree(unique bool) *I32Tree {
	tr := &I32Tree{}
	tr.t.init(unique, orderI32)
	return tr
}

func NewI32Node(key int32) *I32Node { return &I32Node{key: key} }

func (t *I32Tree) Insert(n *I32Node) *I32Node   { return t.t.insert(n) }
func (t *I32Tree) Lookup(key int32) *I32Node    { return t.t.lookup(key) }
func (t *I32Tree) LookupLE(key int32) *I32Node  { return t.t.lookupLE(key) }
func (t *I32Tree) LookupGE(key int32) *I32Node  { return t.t.lookupGE(key) }
func (t *I32Tree) First() *I32Node              { return t.t.first() }
func (t *I32Tree) Last() *I32Node               { return t.t.last() }
func (t *I32Tree) Delete(n *I32Node)             { t.t.delete(n) }
func (t *I32Tree) Unique() bool                 { return t.t.root.Unique() }

func (n *I32Node) Next() *I32Node       { return headerAsScalar[int32](next(&n.Header)) }
func (n *I32Node) Prev() *I32Node       { return headerAsScalar[int32](prev(&n.Header)) }
func (n *I32Node) NextUnique() *I32Node { return headerAsScalar[int32](nextUnique(&n.Header)) }
func (n *I32Node) PrevUnique() *I32Node { return headerAsScalar[int32](prevUnique(&n.Header)) }

// U64Node is a node in a U64Tree.
type U64Node = scalarNode[uint64]

// U64Tree is an elastic binary tree keyed by uint64.
type U64Tree struct{ t scalarTree[uint64, uint64] }

func NewU64Tree(unique bool) *U64Tree {
	tr := &U64Tree{}
	tr.t.init(unique, orderU64)
	return tr
}

func NewU64Node(key uint64) *U64Node { return &U64Node{key: key} }

func (t *U64Tree) Insert(n *U64Node) *U64Node   { return t.t.insert(n) }
func (t *U64Tree) Lookup(key uint64) *U64Node   { return t.t.lookup(key) }
func (t *U64Tree) LookupLE(key uint64) *U64Node { return t.t.lookupLE(key) }
func (t *U64Tree) LookupGE(key uint64) *U64Node { return t.t.lookupGE(key) }
func (t *U64Tree) First() *U64Node              { return t.t.first() }
func (t *U64Tree) Last() *U64Node               { return t.t.last() }
func (t *U64Tree) Delete(n *U64Node)             { t.t.delete(n) }
func (t *U64Tree) Unique() bool                 { return t.t.root.Unique() }

func (n *U64Node) Next() *U64Node       { return headerAsScalar[uint64](next(&n.Header)) }
func (n *U64Node) Prev() *U64Node       { return headerAsScalar[uint64](prev(&n.Header)) }
func (n *U64Node) NextUnique() *U64Node { return headerAsScalar[uint64](nextUnique(&n.Header)) }
func (n *U64Node) PrevUnique() *U64Node { return headerAsScalar[uint64](prevUnique(&n.Header)) }

// I64Node is a node in an I64Tree.
type I64Node = scalarNode[int64]

// I64Tree is an elastic binary tree keyed by int64, ordered numerically by
// XOR-flipping the sign bit before every comparison, exactly like I32Tree.
type I64Tree struct{ t scalarTree[int64, uint64] }

func NewI64Tree(unique bool) *I64Tree {
	tr := &I64Tree{}
	tr.t.init(unique, orderI64)
	return tr
}

func NewI64Node(key int64) *I64Node { return &I64Node{key: key} }

func (t *I64Tree) Insert(n *I64Node) *I64Node   { return t.t.insert(n) }
func (t *I64Tree) Lookup(key int64) *I64Node    { return t.t.lookup(key) }
func (t *I64Tree) LookupLE(key int64) *I64Node  { return t.t.lookupLE(key) }
func (t *I64Tree) LookupGE(key int64) *I64Node  { return t.t.lookupGE(key) }
func (t *I64Tree) First() *I64Node              { return t.t.first() }
func (t *I64Tree) Last() *I64Node               { return t.t.last() }
func (t *I64Tree) Delete(n *I64Node)             { t.t.delete(n) }
func (t *I64Tree) Unique() bool                 { return t.t.root.Unique() }

func (n *I64Node) Next() *I64Node       { return headerAsScalar[int64](next(&n.Header)) }
func (n *I64Node) Prev() *I64Node       { return headerAsScalar[int64](prev(&n.Header)) }
func (n *I64Node) NextUnique() *I64Node { return headerAsScalar[int64](nextUnique(&n.Header)) }
func (n *I64Node) PrevUnique() *I64Node { return headerAsScalar[int64](prevUnique(&n.Header)) }
