package model

// FolderTree is a folder with the entries directly inside it and its
// subfolders, recursively.
type FolderTree struct {
	Folder   *Folder       `json:"folder"`
	Entries  []*Entry      `json:"entries,omitempty"`
	Children []*FolderTree `json:"children,omitempty"`
	Path     string        `json:"path,omitempty"`
}

// Walk visits the tree depth-first, parents before children. Returning false
// from fn stops the walk below that node.
func (t *FolderTree) Walk(fn func(node *FolderTree, depth int) bool) {
	t.walk(fn, 0)
}

func (t *FolderTree) walk(fn func(*FolderTree, int) bool, depth int) {
	if t == nil {
		return
	}
	if !fn(t, depth) {
		return
	}
	for _, c := range t.Children {
		c.walk(fn, depth+1)
	}
}

// Find returns the node for the given folder id, or nil.
func (t *FolderTree) Find(folderID string) *FolderTree {
	var found *FolderTree
	t.Walk(func(n *FolderTree, _ int) bool {
		if found != nil {
			return false
		}
		if n.Folder != nil && n.Folder.ID == folderID {
			found = n
			return false
		}
		return true
	})
	return found
}

// EntryCount returns the number of entries in the whole tree.
func (t *FolderTree) EntryCount() int {
	n := 0
	t.Walk(func(node *FolderTree, _ int) bool {
		n += len(node.Entries)
		return true
	})
	return n
}

// FolderCount returns the number of folders in the whole tree, including the root.
func (t *FolderTree) FolderCount() int {
	n := 0
	t.Walk(func(*FolderTree, int) bool {
		n++
		return true
	})
	return n
}
