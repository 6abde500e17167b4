package publish

// Tree owns the full hierarchy of items slated for publishing. The root is
// a sentinel that is never itself published.
type Tree struct {
	root *Item
}

func NewTree() *Tree {
	return &Tree{root: newItem("__root__", "Root", "root", nil)}
}

func (t *Tree) Root() *Item { return t.root }

// Items flattens the current tree in depth-first pre-order, parents before
// their children, excluding the root. The walk is computed fresh on every
// call so items created mid-collection are visible to the next call.
func (t *Tree) Items() []*Item {
	var out []*Item
	var walk func(item *Item)
	walk = func(item *Item) {
		for _, child := range item.children {
			out = append(out, child)
			walk(child)
		}
	}
	walk(t.root)
	return out
}

// PersistentItems returns the top-level items that survive re-collection.
func (t *Tree) PersistentItems() []*Item {
	var out []*Item
	for _, child := range t.root.children {
		if child.persistent {
			out = append(out, child)
		}
	}
	return out
}

// Tasks flattens every task in tree traversal order.
func (t *Tree) Tasks() []*Task {
	var out []*Task
	for _, item := range t.Items() {
		out = append(out, item.tasks...)
	}
	return out
}

// Clear removes the non-persistent subtrees. Persistent items and their
// tasks and properties are left untouched unless clearPersistent is set.
func (t *Tree) Clear(clearPersistent bool) {
	kept := t.root.children[:0]
	for _, child := range t.root.children {
		if child.persistent && !clearPersistent {
			kept = append(kept, child)
		} else {
			child.parent = nil
		}
	}
	t.root.children = kept
}

// Contains walks the tree looking for the item by identity.
func (t *Tree) Contains(item *Item) bool {
	for _, candidate := range t.Items() {
		if candidate == item {
			return true
		}
	}
	return false
}
