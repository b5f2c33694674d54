package engine

import (
	"container/heap"
	"sort"
)

// frontier is the open list: a binary heap of arena indices whose nodes
// track their own heap position so costs can be lowered in place.
type frontier struct {
	nodes []SearchNode
	items []int
	seq   int
}

func newFrontier(nodes []SearchNode) *frontier {
	return &frontier{nodes: nodes}
}

func (f *frontier) Len() int { return len(f.items) }

// less orders by f-cost, then h-cost, then discovery order.
func less(a, b *SearchNode) bool {
	if a.FCost != b.FCost {
		return a.FCost < b.FCost
	}
	if a.HCost != b.HCost {
		return a.HCost < b.HCost
	}
	return a.discovery < b.discovery
}

func (f *frontier) Less(i, j int) bool {
	return less(&f.nodes[f.items[i]], &f.nodes[f.items[j]])
}

func (f *frontier) Swap(i, j int) {
	f.items[i], f.items[j] = f.items[j], f.items[i]
	f.nodes[f.items[i]].heapIndex = i
	f.nodes[f.items[j]].heapIndex = j
}

func (f *frontier) Push(x any) {
	idx := x.(int)
	f.nodes[idx].heapIndex = len(f.items)
	f.items = append(f.items, idx)
}

func (f *frontier) Pop() any {
	old := f.items
	n := len(old)
	idx := old[n-1]
	f.items = old[:n-1]
	f.nodes[idx].heapIndex = -1
	return idx
}

func (f *frontier) contains(idx int) bool {
	return f.nodes[idx].heapIndex >= 0
}

func (f *frontier) push(idx int) {
	f.seq++
	f.nodes[idx].discovery = f.seq
	heap.Push(f, idx)
}

// pop returns the best node, or -1 when nothing could be taken.
func (f *frontier) pop() int {
	if f.Len() == 0 {
		return -1
	}
	idx, ok := heap.Pop(f).(int)
	if !ok || idx < 0 || idx >= len(f.nodes) {
		return -1
	}
	return idx
}

// update restores heap order after the node's cost decreased.
func (f *frontier) update(idx int) {
	heap.Fix(f, f.nodes[idx].heapIndex)
}

func (f *frontier) remove(idx int) {
	heap.Remove(f, f.nodes[idx].heapIndex)
}

func (f *frontier) reset() {
	f.items = f.items[:0]
	f.seq = 0
}

// ordered returns the open nodes in pop order without disturbing the heap.
func (f *frontier) ordered() []int {
	out := make([]int, len(f.items))
	copy(out, f.items)
	sort.Slice(out, func(i, j int) bool {
		return less(&f.nodes[out[i]], &f.nodes[out[j]])
	})
	return out
}
