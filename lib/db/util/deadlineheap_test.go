package util

import (
	"sort"
	"testing"
)

// TestNewDeadlineHeap tests the creation of a new DeadlineHeap
func TestNewDeadlineHeap(t *testing.T) {
	dh := NewDeadlineHeap()

	if dh == nil {
		t.Fatal("NewDeadlineHeap() returned nil")
	}

	if dh.Len() != 0 {
		t.Errorf("New heap should be empty, but has length %d", dh.Len())
	}
}

// TestAdd tests adding items to the heap
func TestAdd(t *testing.T) {
	dh := NewDeadlineHeap()

	dh.Add("s1", 100)
	dh.Add("s2", 200)
	dh.Add("s3", 50)

	if dh.Len() != 3 {
		t.Errorf("Heap should have 3 items, but has %d", dh.Len())
	}

	for _, key := range []string{"s1", "s2", "s3"} {
		if !dh.Contains(key) {
			t.Errorf("Heap should contain key %s", key)
		}
	}

	// Check the order (min heap, so the earliest deadline should be first)
	it, exists := dh.Peek()
	if !exists {
		t.Fatal("Peek() should return an item")
	}

	if it.Key != "s3" || it.Deadline != 50 {
		t.Errorf("Expected min item to be (s3,50), got (%s,%d)", it.Key, it.Deadline)
	}
}

// TestUpdateDeadline tests updating existing items
func TestUpdateDeadline(t *testing.T) {
	dh := NewDeadlineHeap()

	dh.Add("s1", 100)
	dh.Add("s2", 200)

	// Push s1 back
	dh.Add("s1", 300)

	it, exists := dh.GetByKey("s1")
	if !exists {
		t.Fatal("Item with key s1 should exist")
	}

	if it.Deadline != 300 {
		t.Errorf("Item with key s1 should have deadline 300, got %d", it.Deadline)
	}

	// Check if heap property is maintained
	min, _ := dh.Peek()
	if min.Key != "s2" {
		t.Errorf("Min item should now be key s2, got %s", min.Key)
	}

	// Update to an earlier deadline
	dh.Add("s2", 50)

	min, _ = dh.Peek()
	if min.Key != "s2" || min.Deadline != 50 {
		t.Errorf("Min item should now be (s2,50), got (%s,%d)", min.Key, min.Deadline)
	}
}

// TestRemoveByKey tests removing items by key
func TestRemoveByKey(t *testing.T) {
	dh := NewDeadlineHeap()

	dh.Add("s1", 100)
	dh.Add("s2", 200)
	dh.Add("s3", 300)

	deadline, exists := dh.RemoveByKey("s2")

	if !exists {
		t.Fatal("RemoveByKey should return true for existing key")
	}

	if deadline != 200 {
		t.Errorf("RemoveByKey should return deadline 200, got %d", deadline)
	}

	if dh.Len() != 2 {
		t.Errorf("Heap should have 2 items after removal, has %d", dh.Len())
	}

	if dh.Contains("s2") {
		t.Error("Heap should not contain key s2 after removal")
	}

	// Try to remove non-existent key
	_, exists = dh.RemoveByKey("nope")
	if exists {
		t.Error("RemoveByKey should return false for non-existent key")
	}
}

// TestPopOrder tests if items are popped in deadline order
func TestPopOrder(t *testing.T) {
	dh := NewDeadlineHeap()

	items := []struct {
		key      string
		deadline uint64
	}{
		{"e", 50},
		{"c", 30},
		{"a", 10},
		{"d", 40},
		{"b", 20},
	}

	for _, it := range items {
		dh.Add(it.key, it.deadline)
	}

	// Sort the items for comparison
	sort.Slice(items, func(i, j int) bool {
		return items[i].deadline < items[j].deadline
	})

	for i, expected := range items {
		it, ok := dh.PopItem()
		if !ok {
			t.Fatalf("Heap empty after %d items, expected %d items", i, len(items))
		}

		if it.Key != expected.key || it.Deadline != expected.deadline {
			t.Errorf("Pop %d: expected (%s,%d), got (%s,%d)",
				i, expected.key, expected.deadline, it.Key, it.Deadline)
		}
	}

	if dh.Len() != 0 {
		t.Errorf("Heap should be empty after popping all items, has %d items", dh.Len())
	}
}

// TestPeekEmptyHeap tests behavior when peeking an empty heap
func TestPeekEmptyHeap(t *testing.T) {
	dh := NewDeadlineHeap()

	if _, exists := dh.Peek(); exists {
		t.Error("Peek on empty heap should return exists=false")
	}

	if _, exists := dh.PopItem(); exists {
		t.Error("PopItem on empty heap should return exists=false")
	}
}
