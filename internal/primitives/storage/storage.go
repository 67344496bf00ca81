// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package storage

import (
	"sort"

	"github.com/tidwall/btree"
)

// StorageChild is the storage of a default child trie.
type StorageChild struct {
	Data btree.Map[string, []byte]
}

// Storage is a set of key value pairs for the top trie and the default
// child tries, keyed by child trie name.
type Storage struct {
	Top             btree.Map[string, []byte]
	ChildrenDefault map[string]*StorageChild
}

// NewStorage returns an empty storage.
func NewStorage() Storage {
	return Storage{ChildrenDefault: make(map[string]*StorageChild)}
}

// Set sets key to value in the top trie. A nil value removes the key.
func (s *Storage) Set(key, value []byte) {
	if value == nil {
		s.Top.Delete(string(key))
		return
	}
	s.Top.Set(string(key), value)
}

// SetChild sets key to value in the named child trie. A nil value removes
// the key, and a child trie left empty is removed.
func (s *Storage) SetChild(child, key, value []byte) {
	if s.ChildrenDefault == nil {
		s.ChildrenDefault = make(map[string]*StorageChild)
	}
	c, ok := s.ChildrenDefault[string(child)]
	if !ok {
		if value == nil {
			return
		}
		c = &StorageChild{}
		s.ChildrenDefault[string(child)] = c
	}

	if value == nil {
		c.Data.Delete(string(key))
		if c.Data.Len() == 0 {
			delete(s.ChildrenDefault, string(child))
		}
		return
	}
	c.Data.Set(string(key), value)
}

// Get returns the value of key in the top trie, or nil.
func (s *Storage) Get(key []byte) []byte {
	value, _ := s.Top.Get(string(key))
	return value
}

// GetChild returns the value of key in the named child trie, or nil.
func (s *Storage) GetChild(child, key []byte) []byte {
	c, ok := s.ChildrenDefault[string(child)]
	if !ok {
		return nil
	}
	value, _ := c.Data.Get(string(key))
	return value
}

// ChildNames returns the names of the child tries in ascending order.
func (s *Storage) ChildNames() []string {
	names := make([]string, 0, len(s.ChildrenDefault))
	for name := range s.ChildrenDefault {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Copy returns a copy of the storage sharing no mutable state with s.
// Values are shared since they are never mutated in place.
func (s *Storage) Copy() Storage {
	cp := Storage{
		Top:             *s.Top.Copy(),
		ChildrenDefault: make(map[string]*StorageChild, len(s.ChildrenDefault)),
	}
	for name, child := range s.ChildrenDefault {
		cp.ChildrenDefault[name] = &StorageChild{Data: *child.Data.Copy()}
	}
	return cp
}
