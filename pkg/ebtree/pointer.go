package ebtree

import "unsafe"

// PtrNode is a node in a PtrTree, keyed by the address a pointer holds
// rather than by anything it points to.
type PtrNode = scalarNode[uintptr]

// PtrTree is an elastic binary tree keyed by pointer identity (address
// value). It is built on the same generic engine as U32Tree/U64Tree,
// parameterized over uintptr; highBit resolves the branch width to 32 or
// 64 bits once per comparison via unsafe.Sizeof(uintptr(0)), which is this
// package's translation of ebpttree.c dispatching at compile time on
// sizeof(void*) — Go has no compile-time platform-width constant to branch
// on, so the check happens at the one place width actually matters.
type PtrTree struct{ t scalarTree[uintptr, uintptr] }

// NewPtrTree creates an empty tree. unique, once set, makes Insert reject
// pointers already present.
func NewPtrTree(unique bool) *PtrTree {
	tr := &PtrTree{}
	tr.t.init(unique, func(x uintptr) uintptr { return x })
	return tr
}

// NewPtrNode creates a detached node keyed by p's address.
func NewPtrNode(p unsafe.Pointer) *PtrNode { return &PtrNode{key: uintptr(p)} }

// PointerKey returns the pointer this node was inserted with.
func (n *PtrNode) PointerKey() unsafe.Pointer { return unsafe.Pointer(n.Key()) }

func (t *PtrTree) Insert(n *PtrNode) *PtrNode              { return t.t.insert(n) }
func (t *PtrTree) Lookup(p unsafe.Pointer) *PtrNode         { return t.t.lookup(uintptr(p)) }
func (t *PtrTree) LookupLE(p unsafe.Pointer) *PtrNode       { return t.t.lookupLE(uintptr(p)) }
func (t *PtrTree) LookupGE(p unsafe.Pointer) *PtrNode       { return t.t.lookupGE(uintptr(p)) }
func (t *PtrTree) First() *PtrNode                          { return t.t.first() }
func (t *PtrTree) Last() *PtrNode                           { return t.t.last() }
func (t *PtrTree) Delete(n *PtrNode)                        { t.t.delete(n) }
func (t *PtrTree) Unique() bool                             { return t.t.root.Unique() }

func (n *PtrNode) Next() *PtrNode       { return headerAsScalar[uintptr](next(&n.Header)) }
func (n *PtrNode) Prev() *PtrNode       { return headerAsScalar[uintptr](prev(&n.Header)) }
func (n *PtrNode) NextUnique() *PtrNode { return headerAsScalar[uintptr](nextUnique(&n.Header)) }
func (n *PtrNode) PrevUnique() *PtrNode { return headerAsScalar[uintptr](prevUnique(&n.Header)) }
