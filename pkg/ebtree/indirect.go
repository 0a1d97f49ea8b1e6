package ebtree

import (
	"bytes"
	"unsafe"
)

// IndirectStringNode is a node in an IndirectStringTree: it holds only a
// pointer to a string the caller owns, rather than a private copy, so all
// comparisons dereference that pointer. The caller must keep the pointee
// alive and unchanged for as long as the node is linked.
type IndirectStringNode struct {
	Header
	keyPtr *string
}

// Key dereferences the node's key pointer.
func (n *IndirectStringNode) Key() string { return *n.keyPtr }

func (n *IndirectStringNode) rawKey() []byte {
	s := *n.keyPtr
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	return buf
}

func (n *IndirectStringNode) Next() *IndirectStringNode { return indirectStringOf(next(&n.Header)) }
func (n *IndirectStringNode) Prev() *IndirectStringNode { return indirectStringOf(prev(&n.Header)) }
func (n *IndirectStringNode) NextUnique() *IndirectStringNode {
	return indirectStringOf(nextUnique(&n.Header))
}
func (n *IndirectStringNode) PrevUnique() *IndirectStringNode {
	return indirectStringOf(prevUnique(&n.Header))
}

func indirectStringOf(h *Header) *IndirectStringNode {
	if h == nil {
		return nil
	}
	return (*IndirectStringNode)(unsafe.Pointer(h))
}

// IndirectStringTree is structurally identical to StringTree (same variable-
// length, NUL-terminated bit-count branching from string.go) but dereferences
// a caller-owned *string on every comparison instead of holding a private
// copy of the key.
type IndirectStringTree struct {
	root Root
}

func NewIndirectStringTree(unique bool) *IndirectStringTree {
	t := &IndirectStringTree{}
	RootInit(&t.root, unique)
	return t
}

// NewIndirectStringNode creates a detached node keyed by *key. key must
// outlive the node's time linked in the tree.
func NewIndirectStringNode(key *string) *IndirectStringNode {
	return &IndirectStringNode{keyPtr: key}
}

func (t *IndirectStringTree) Unique() bool { return t.root.Unique() }

func (t *IndirectStringTree) First() *IndirectStringNode { return indirectStringOf(first(&t.root)) }
func (t *IndirectStringTree) Last() *IndirectStringNode  { return indirectStringOf(last(&t.root)) }
func (t *IndirectStringTree) Delete(n *IndirectStringNode) { deleteNode(&n.Header) }

func (t *IndirectStringTree) Insert(new *IndirectStringNode) *IndirectStringNode {
	newKey := new.rawKey()

	troot := t.root.branches[0]
	if troot.isNil() {
		new.leafParent = leafRef(&t.root.Header, left)
		new.nodeParent = ref{}
		t.root.branches[0] = childRef(&new.Header, leafKind)
		return new
	}

	for {
		if troot.kind() == leafKind {
			old := indirectStringOf(troot.h)
			oldKey := old.rawKey()
			common := varCommonBits(newKey, oldKey)
			if common == len(newKey)*8 && len(newKey) == len(oldKey) {
				if t.root.Unique() {
					return old
				}
				return indirectStringOf(insertDup(&old.Header, &new.Header))
			}
			splitAtLeaf(&old.Header, &new.Header, varSideAt(oldKey, common), int32(common))
			return new
		}

		node := indirectStringOf(troot.h)
		nodeKey := node.rawKey()

		if node.bit < 0 {
			common := varCommonBits(newKey, nodeKey)
			if common == len(newKey)*8 && len(newKey) == len(nodeKey) {
				return indirectStringOf(insertDup(&node.Header, &new.Header))
			}
			insertAboveNode(&node.Header, &new.Header, varSideAt(nodeKey, common), int32(common))
			return new
		}

		common := varCommonBits(newKey, nodeKey)
		if common < int(node.bit) {
			insertAboveNode(&node.Header, &new.Header, varSideAt(nodeKey, common), int32(common))
			return new
		}

		troot = node.branches[varSideAt(newKey, int(node.bit))]
	}
}

func (t *IndirectStringTree) Lookup(key string) *IndirectStringNode {
	k := append([]byte(key), 0)
	troot := t.root.branches[0]
	if troot.isNil() {
		return nil
	}
	for {
		if troot.kind() == leafKind {
			n := indirectStringOf(troot.h)
			if bytes.Equal(n.rawKey(), k) {
				return n
			}
			return nil
		}
		node := indirectStringOf(troot.h)
		nodeKey := node.rawKey()
		if node.bit < 0 {
			if bytes.Equal(nodeKey, k) {
				return node
			}
			return nil
		}
		if varCommonBits(k, nodeKey) < int(node.bit) {
			return nil
		}
		troot = node.branches[varSideAt(k, int(node.bit))]
	}
}

// IndirectByteNode is a node in an IndirectByteTree, keyed indirectly by a
// caller-owned byte slice, the []byte counterpart of IndirectStringNode.
type IndirectByteNode struct {
	Header
	keyPtr *[]byte
}

// Key dereferences the node's key pointer.
func (n *IndirectByteNode) Key() []byte { return *n.keyPtr }

func (n *IndirectByteNode) Next() *IndirectByteNode { return indirectByteOf(next(&n.Header)) }
func (n *IndirectByteNode) Prev() *IndirectByteNode { return indirectByteOf(prev(&n.Header)) }
func (n *IndirectByteNode) NextUnique() *IndirectByteNode {
	return indirectByteOf(nextUnique(&n.Header))
}
func (n *IndirectByteNode) PrevUnique() *IndirectByteNode {
	return indirectByteOf(prevUnique(&n.Header))
}

func indirectByteOf(h *Header) *IndirectByteNode {
	if h == nil {
		return nil
	}
	return (*IndirectByteNode)(unsafe.Pointer(h))
}

// IndirectByteTree is the []byte counterpart of IndirectStringTree: variable-
// length keys with no implicit terminator, so equal-length-prefix ties are
// broken purely by length, matching bytes.Compare.
type IndirectByteTree struct {
	root Root
}

func NewIndirectByteTree(unique bool) *IndirectByteTree {
	t := &IndirectByteTree{}
	RootInit(&t.root, unique)
	return t
}

func NewIndirectByteNode(key *[]byte) *IndirectByteNode {
	return &IndirectByteNode{keyPtr: key}
}

func (t *IndirectByteTree) Unique() bool { return t.root.Unique() }

func (t *IndirectByteTree) First() *IndirectByteNode { return indirectByteOf(first(&t.root)) }
func (t *IndirectByteTree) Last() *IndirectByteNode  { return indirectByteOf(last(&t.root)) }
func (t *IndirectByteTree) Delete(n *IndirectByteNode) { deleteNode(&n.Header) }

func (t *IndirectByteTree) Insert(new *IndirectByteNode) *IndirectByteNode {
	newKey := *new.keyPtr

	troot := t.root.branches[0]
	if troot.isNil() {
		new.leafParent = leafRef(&t.root.Header, left)
		new.nodeParent = ref{}
		t.root.branches[0] = childRef(&new.Header, leafKind)
		return new
	}

	for {
		if troot.kind() == leafKind {
			old := indirectByteOf(troot.h)
			oldKey := *old.keyPtr
			common := varCommonBits(newKey, oldKey)
			if common == len(newKey)*8 && len(newKey) == len(oldKey) {
				if t.root.Unique() {
					return old
				}
				return indirectByteOf(insertDup(&old.Header, &new.Header))
			}
			splitAtLeaf(&old.Header, &new.Header, varSideAt(oldKey, common), int32(common))
			return new
		}

		node := indirectByteOf(troot.h)
		nodeKey := *node.keyPtr

		if node.bit < 0 {
			common := varCommonBits(newKey, nodeKey)
			if common == len(newKey)*8 && len(newKey) == len(nodeKey) {
				return indirectByteOf(insertDup(&node.Header, &new.Header))
			}
			insertAboveNode(&node.Header, &new.Header, varSideAt(nodeKey, common), int32(common))
			return new
		}

		common := varCommonBits(newKey, nodeKey)
		if common < int(node.bit) {
			insertAboveNode(&node.Header, &new.Header, varSideAt(nodeKey, common), int32(common))
			return new
		}

		troot = node.branches[varSideAt(newKey, int(node.bit))]
	}
}

func (t *IndirectByteTree) Lookup(key []byte) *IndirectByteNode {
	troot := t.root.branches[0]
	if troot.isNil() {
		return nil
	}
	for {
		if troot.kind() == leafKind {
			n := indirectByteOf(troot.h)
			if bytes.Equal(*n.keyPtr, key) {
				return n
			}
			return nil
		}
		node := indirectByteOf(troot.h)
		nodeKey := *node.keyPtr
		if node.bit < 0 {
			if bytes.Equal(nodeKey, key) {
				return node
			}
			return nil
		}
		if varCommonBits(key, nodeKey) < int(node.bit) {
			return nil
		}
		troot = node.branches[varSideAt(key, int(node.bit))]
	}
}
