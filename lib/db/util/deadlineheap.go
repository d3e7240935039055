// Package util
//
// This file provides a deadline-ordered priority queue with key-based access.
//
// The implementation combines a binary min-heap with a hash map: the heap
// orders items by deadline so the next item to expire is always at the top,
// while the map allows O(1) lookups and O(log n) removal by key. It is used
// to track session deadlines, where sessions expire in deadline order but
// are also destroyed explicitly by id at any time.
//
// Complexity:
//   - O(log n) for Add, Pop and key-based removal
//   - O(1) for key-based lookups and existence checks
//
// The heap is not thread-safe; callers synchronize externally.
package util

import (
	"container/heap"
	"strconv"
)

// Item is an element of a DeadlineHeap: a string key with a deadline
// (a millisecond timestamp) used as the heap priority.
type Item struct {
	Key      string // Unique identifier for the item
	Deadline uint64 // Priority in the heap, lowest deadline first
	index    int    // Index in the heap, maintained by the heap package
}

func (i *Item) String() string {
	return "{Key: " + i.Key + ", Deadline: " + strconv.FormatUint(i.Deadline, 10) + "}"
}

// DeadlineHeap implements a min-heap over item deadlines
// with both heap operations and key-based access.
type DeadlineHeap struct {
	items    []*Item          // The actual heap slice
	itemsMap map[string]*Item // Map for O(1) access by key
}

// NewDeadlineHeap creates a new empty deadline heap.
func NewDeadlineHeap() *DeadlineHeap {
	return &DeadlineHeap{
		items:    make([]*Item, 0),
		itemsMap: make(map[string]*Item),
	}
}

// Len returns the number of items in the heap (part of heap.Interface)
func (dh *DeadlineHeap) Len() int { return len(dh.items) }

// Less compares items by deadline, earliest first (part of heap.Interface)
func (dh *DeadlineHeap) Less(i, j int) bool {
	return dh.items[i].Deadline < dh.items[j].Deadline
}

// Swap exchanges items at positions i and j (part of heap.Interface)
func (dh *DeadlineHeap) Swap(i, j int) {
	dh.items[i], dh.items[j] = dh.items[j], dh.items[i]
	dh.items[i].index = i
	dh.items[j].index = j
}

// Push adds an item to the heap (part of heap.Interface)
func (dh *DeadlineHeap) Push(x interface{}) {
	n := len(dh.items)
	it := x.(*Item)
	it.index = n
	dh.items = append(dh.items, it)
	dh.itemsMap[it.Key] = it
}

// Pop removes and returns the item with the earliest deadline (part of heap.Interface)
func (dh *DeadlineHeap) Pop() interface{} {
	old := dh.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	it.index = -1   // For safety
	dh.items = old[:n-1]
	delete(dh.itemsMap, it.Key)
	return it
}

// Add inserts a new item or updates the deadline of an existing one.
func (dh *DeadlineHeap) Add(key string, deadline uint64) {
	// Check if item already exists
	if it, exists := dh.itemsMap[key]; exists {
		// Update deadline and fix heap
		it.Deadline = deadline
		heap.Fix(dh, it.index)
		return
	}

	// Create and add new item
	heap.Push(dh, &Item{
		Key:      key,
		Deadline: deadline,
	})
}

// RemoveByKey removes an item by its key.
// Returns the removed deadline and whether the key was present.
func (dh *DeadlineHeap) RemoveByKey(key string) (uint64, bool) {
	it, exists := dh.itemsMap[key]
	if !exists {
		return 0, false
	}

	// Remove from heap
	heap.Remove(dh, it.index)
	return it.Deadline, true
}

// Peek returns the item with the earliest deadline without removing it.
func (dh *DeadlineHeap) Peek() (*Item, bool) {
	if len(dh.items) == 0 {
		return nil, false
	}
	return dh.items[0], true
}

// PopItem removes and returns the item with the earliest deadline.
func (dh *DeadlineHeap) PopItem() (*Item, bool) {
	if len(dh.items) == 0 {
		return nil, false
	}
	return heap.Pop(dh).(*Item), true
}

// Contains checks if a key exists in the heap.
func (dh *DeadlineHeap) Contains(key string) bool {
	_, exists := dh.itemsMap[key]
	return exists
}

// GetByKey retrieves an item by its key without removing it.
func (dh *DeadlineHeap) GetByKey(key string) (*Item, bool) {
	it, exists := dh.itemsMap[key]
	return it, exists
}
