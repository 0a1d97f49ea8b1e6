package ebtree

import (
	"bytes"
	"math/bits"
	"unsafe"
)

// varCommonBits returns the number of leading bits on which a and b agree,
// treating a shorter slice as implicitly followed by a zero byte — the same
// rule a zero-terminated C string gives for free, since the terminating NUL
// is the first byte two strings of different length can differ on. This
// lets StringTree (and the indirect wrappers in indirect.go) branch on
// variable-length keys with the same bit-count convention bytes.go uses for
// its fixed-length ByteTree, without requiring every key in the tree to
// share one length.
func varCommonBits(a, b []byte) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	// a is now the shorter (or equal-length) slice; treat it as zero-padded
	// out to len(b), so a byte beyond a's end reads as the implicit NUL.
	n := len(b)
	for i := 0; i < n; i++ {
		var ai byte
		if i < len(a) {
			ai = a[i]
		}
		if ai != b[i] {
			return i*8 + bits.LeadingZeros8(ai^b[i])
		}
	}
	return n * 8
}

// varSideAt reports which side key belongs on at the given bit, where bit
// may name a byte beyond key's actual length — that byte reads as zero, the
// same convention varCommonBits relies on.
func varSideAt(key []byte, bit int) side {
	byteIdx := bit / 8
	if byteIdx >= len(key) {
		return left
	}
	bitIdx := uint(7 - bit%8)
	return side((key[byteIdx] >> bitIdx) & 1)
}

// StringNode is a node in a StringTree.
type StringNode struct {
	Header
	key []byte // holds the string's bytes plus a trailing NUL
}

// Key returns the string this node was inserted with.
func (n *StringNode) Key() string { return string(n.key[:len(n.key)-1]) }

func (n *StringNode) Next() *StringNode       { return stringNodeOf(next(&n.Header)) }
func (n *StringNode) Prev() *StringNode       { return stringNodeOf(prev(&n.Header)) }
func (n *StringNode) NextUnique() *StringNode { return stringNodeOf(nextUnique(&n.Header)) }
func (n *StringNode) PrevUnique() *StringNode { return stringNodeOf(prevUnique(&n.Header)) }

func stringNodeOf(h *Header) *StringNode {
	if h == nil {
		return nil
	}
	return (*StringNode)(unsafe.Pointer(h))
}

// StringTree is an elastic binary tree keyed by zero-terminated strings,
// ordered lexicographically including length (a string is always less than
// any other string it is a strict prefix of).
type StringTree struct {
	root Root
}

// NewStringTree creates an empty tree.
func NewStringTree(unique bool) *StringTree {
	t := &StringTree{}
	RootInit(&t.root, unique)
	return t
}

// NewStringNode creates a detached node ready to be inserted.
func NewStringNode(key string) *StringNode {
	buf := make([]byte, len(key)+1)
	copy(buf, key)
	return &StringNode{key: buf}
}

func (t *StringTree) Unique() bool { return t.root.Unique() }

func (t *StringTree) First() *StringNode   { return stringNodeOf(first(&t.root)) }
func (t *StringTree) Last() *StringNode    { return stringNodeOf(last(&t.root)) }
func (t *StringTree) Delete(n *StringNode) { deleteNode(&n.Header) }

func (t *StringTree) Insert(new *StringNode) *StringNode {
	troot := t.root.branches[0]
	if troot.isNil() {
		new.leafParent = leafRef(&t.root.Header, left)
		new.nodeParent = ref{}
		t.root.branches[0] = childRef(&new.Header, leafKind)
		return new
	}

	for {
		if troot.kind() == leafKind {
			old := stringNodeOf(troot.h)
			common := varCommonBits(new.key, old.key)
			if common == len(new.key)*8 && len(new.key) == len(old.key) {
				if t.root.Unique() {
					return old
				}
				return stringNodeOf(insertDup(&old.Header, &new.Header))
			}
			splitAtLeaf(&old.Header, &new.Header, varSideAt(old.key, common), int32(common))
			return new
		}

		node := stringNodeOf(troot.h)

		if node.bit < 0 {
			common := varCommonBits(new.key, node.key)
			if common == len(new.key)*8 && len(new.key) == len(node.key) {
				return stringNodeOf(insertDup(&node.Header, &new.Header))
			}
			insertAboveNode(&node.Header, &new.Header, varSideAt(node.key, common), int32(common))
			return new
		}

		common := varCommonBits(new.key, node.key)
		if common < int(node.bit) {
			insertAboveNode(&node.Header, &new.Header, varSideAt(node.key, common), int32(common))
			return new
		}

		troot = node.branches[varSideAt(new.key, int(node.bit))]
	}
}

func (t *StringTree) Lookup(key string) *StringNode {
	k := append([]byte(key), 0)
	troot := t.root.branches[0]
	if troot.isNil() {
		return nil
	}
	for {
		if troot.kind() == leafKind {
			n := stringNodeOf(troot.h)
			if bytes.Equal(n.key, k) {
				return n
			}
			return nil
		}
		node := stringNodeOf(troot.h)
		if node.bit < 0 {
			if bytes.Equal(node.key, k) {
				return node
			}
			return nil
		}
		if varCommonBits(k, node.key) < int(node.bit) {
			return nil
		}
		troot = node.branches[varSideAt(k, int(node.bit))]
	}
}

// LookupLE returns the node with the greatest key <= key, or nil.
func (t *StringTree) LookupLE(key string) *StringNode {
	k := append([]byte(key), 0)
	troot := t.root.branches[0]
	if troot.isNil() {
		return nil
	}

	for {
		if troot.kind() == leafKind {
			node := stringNodeOf(troot.h)
			if bytes.Compare(node.key, k) <= 0 {
				return node
			}
			troot = node.leafParent
			break
		}

		node := stringNodeOf(troot.h)

		if node.bit < 0 {
			leaf := stringNodeOf(walkDown(node.branches[right], right))
			if bytes.Compare(leaf.key, k) <= 0 {
				return leaf
			}
			troot = node.nodeParent
			break
		}

		common := varCommonBits(k, node.key)
		if common < int(node.bit) {
			if bytes.Compare(k, node.key) >= 0 {
				leaf := stringNodeOf(walkDown(node.branches[right], right))
				if bytes.Compare(leaf.key, k) <= 0 {
					return leaf
				}
			}
			troot = node.nodeParent
			break
		}

		troot = node.branches[varSideAt(k, int(node.bit))]
	}

	return stringNodeOf(climbToPrev(troot))
}

// LookupGE returns the node with the least key >= key, or nil.
func (t *StringTree) LookupGE(key string) *StringNode {
	k := append([]byte(key), 0)
	troot := t.root.branches[0]
	if troot.isNil() {
		return nil
	}

	for {
		if troot.kind() == leafKind {
			node := stringNodeOf(troot.h)
			if bytes.Compare(node.key, k) >= 0 {
				return node
			}
			troot = node.leafParent
			break
		}

		node := stringNodeOf(troot.h)

		if node.bit < 0 {
			leaf := stringNodeOf(walkDown(node.branches[left], left))
			if bytes.Compare(leaf.key, k) >= 0 {
				return leaf
			}
			troot = node.nodeParent
			break
		}

		common := varCommonBits(k, node.key)
		if common < int(node.bit) {
			if bytes.Compare(k, node.key) <= 0 {
				leaf := stringNodeOf(walkDown(node.branches[left], left))
				if bytes.Compare(leaf.key, k) >= 0 {
					return leaf
				}
			}
			troot = node.nodeParent
			break
		}

		troot = node.branches[varSideAt(k, int(node.bit))]
	}

	return stringNodeOf(climbToNext(troot))
}
