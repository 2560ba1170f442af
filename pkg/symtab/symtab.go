// Package symtab provides an ordered, case-insensitive symbol index.
//
// Names are folded to lowercase before they are stored so that "Print", "PRINT" and
// "print" all refer to the same entry. Entries are kept in a red-black tree keyed on the
// folded name, which makes exact lookups O(log n) and prefix searches
// O(log n + matches). Prefix searches are lazy: callers can stop consuming the sequence
// at any point without visiting the rest of the index.
//
// An Index is not safe for concurrent mutation. Once construction is complete it may be
// shared by any number of readers.
package symtab

import (
	"fmt"
	"iter"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fold returns the canonical key for name.
func Fold(name string) string {
	// A Caser carries state between calls and cannot be shared across goroutines.
	return cases.Lower(language.Und).String(name)
}

// DuplicateError is returned by Insert when the folded name is already present.
type DuplicateError struct {
	Name     string // Name as passed to Insert
	Existing string // Spelling of the entry that was already present
}

func (e *DuplicateError) Error() string {
	if e.Name == e.Existing {
		return fmt.Sprintf("symbol %q already defined", e.Name)
	}
	return fmt.Sprintf("symbol %q already defined as %q", e.Name, e.Existing)
}

// entry is what the tree stores; it remembers the spelling used at insertion.
type entry[T any] struct {
	name  string
	value T
}

// Index maps case-insensitive names to values of type T.
type Index[T any] struct {
	tree *redblacktree.Tree
}

// New creates an empty index.
func New[T any]() *Index[T] {
	return &Index[T]{tree: redblacktree.NewWithStringComparator()}
}

// Insert adds value under name. It fails with *DuplicateError if a name that folds to the
// same key already exists; the existing entry is left untouched.
func (x *Index[T]) Insert(name string, value T) error {
	if name == "" {
		return fmt.Errorf("symbol name cannot be empty")
	}
	key := Fold(name)
	if found, ok := x.tree.Get(key); ok {
		return &DuplicateError{Name: name, Existing: found.(*entry[T]).name}
	}
	x.tree.Put(key, &entry[T]{name: name, value: value})
	return nil
}

// Replace stores value under name, overwriting any previous entry with the same folded key.
func (x *Index[T]) Replace(name string, value T) {
	x.tree.Put(Fold(name), &entry[T]{name: name, value: value})
}

// Get returns the value stored under name, ignoring case.
func (x *Index[T]) Get(name string) (T, bool) {
	found, ok := x.tree.Get(Fold(name))
	if !ok {
		var zero T
		return zero, false
	}
	return found.(*entry[T]).value, true
}

// Spelling returns the name as it was originally inserted.
func (x *Index[T]) Spelling(name string) (string, bool) {
	found, ok := x.tree.Get(Fold(name))
	if !ok {
		return "", false
	}
	return found.(*entry[T]).name, true
}

// Remove deletes name from the index and reports whether it was present.
func (x *Index[T]) Remove(name string) bool {
	key := Fold(name)
	if _, ok := x.tree.Get(key); !ok {
		return false
	}
	x.tree.Remove(key)
	return true
}

// Len returns the number of entries.
func (x *Index[T]) Len() int {
	return x.tree.Size()
}

// Clear removes every entry.
func (x *Index[T]) Clear() {
	x.tree.Clear()
}

// Prefix returns the entries whose folded name starts with the folded prefix, in
// ascending order of folded name. The sequence yields the original spelling of each name.
func (x *Index[T]) Prefix(prefix string) iter.Seq2[string, T] {
	key := Fold(prefix)
	return func(yield func(string, T) bool) {
		node := x.ceiling(key)
		for node != nil {
			if !strings.HasPrefix(node.Key.(string), key) {
				return
			}
			e := node.Value.(*entry[T])
			if !yield(e.name, e.value) {
				return
			}
			node = successor(node)
		}
	}
}

// All returns every entry in ascending order.
func (x *Index[T]) All() iter.Seq2[string, T] {
	return x.Prefix("")
}

// Names returns the original spelling of every entry in ascending order.
func (x *Index[T]) Names() []string {
	names := make([]string, 0, x.Len())
	for name := range x.All() {
		names = append(names, name)
	}
	return names
}

// ceiling finds the smallest node whose key is >= key.
func (x *Index[T]) ceiling(key string) *redblacktree.Node {
	if key == "" {
		return x.tree.Left()
	}
	node, found := x.tree.Ceiling(key)
	if !found {
		return nil
	}
	return node
}

// successor walks to the in-order successor of node.
func successor(node *redblacktree.Node) *redblacktree.Node {
	if node.Right != nil {
		node = node.Right
		for node.Left != nil {
			node = node.Left
		}
		return node
	}
	parent := node.Parent
	for parent != nil && node == parent.Right {
		node = parent
		parent = parent.Parent
	}
	return parent
}
