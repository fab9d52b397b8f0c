package engine

import (
	"fmt"

	"github.com/me/clustersim/pkg/model"
)

// DefaultNodeCapacity is the initial capacity of the node ledger.
const DefaultNodeCapacity = 10

// NodeLedger is the append-only list of nodes in registration order. Array
// positions never change once assigned; node identifiers are independent of
// position and are resolved through byID.
type NodeLedger struct {
	nodes []*model.ResourceNode
	byID  map[int]int
	limit int
}

// NewNodeLedger creates a ledger with the given initial capacity. A positive
// limit caps the number of nodes.
func NewNodeLedger(capacity, limit int) *NodeLedger {
	if capacity <= 0 {
		capacity = DefaultNodeCapacity
	}
	if limit > 0 && capacity > limit {
		capacity = limit
	}
	return &NodeLedger{
		nodes: make([]*model.ResourceNode, 0, capacity),
		byID:  make(map[int]int),
		limit: limit,
	}
}

// Add appends a node. Duplicate identifiers and out-of-bounds capacities are
// rejected, as is growth past the limit; none of them modify the ledger.
func (l *NodeLedger) Add(node *model.ResourceNode) error {
	if _, ok := l.byID[node.ID]; ok {
		return fmt.Errorf("node %d: %w", node.ID, ErrConflict)
	}
	if !node.InBounds() {
		return fmt.Errorf("node %d: available %d/%d exceeds total %d/%d: %w",
			node.ID, node.AvailableCPU, node.AvailableRAM, node.TotalCPU, node.TotalRAM, ErrOutOfBounds)
	}
	if len(l.nodes) == cap(l.nodes) {
		if err := l.grow(); err != nil {
			return err
		}
	}
	l.byID[node.ID] = len(l.nodes)
	l.nodes = append(l.nodes, node)
	return nil
}

func (l *NodeLedger) grow() error {
	old := cap(l.nodes)
	next := old * 2
	if next == 0 {
		next = DefaultNodeCapacity
	}
	if l.limit > 0 && next > l.limit {
		next = l.limit
	}
	if next <= old {
		return fmt.Errorf("node ledger full at %d nodes: %w", old, ErrAllocation)
	}
	nodes := make([]*model.ResourceNode, len(l.nodes), next)
	copy(nodes, l.nodes)
	l.nodes = nodes
	return nil
}

// FindAvailable returns the index of the first node, in registration order,
// whose available CPU and RAM both cover the request.
func (l *NodeLedger) FindAvailable(cpu, ram int) (int, bool) {
	for i, n := range l.nodes {
		if n.Fits(cpu, ram) {
			return i, true
		}
	}
	return -1, false
}

// At returns the node at array index i.
func (l *NodeLedger) At(i int) *model.ResourceNode {
	if i < 0 || i >= len(l.nodes) {
		return nil
	}
	return l.nodes[i]
}

// Get returns the node with the given identifier.
func (l *NodeLedger) Get(nodeID int) (*model.ResourceNode, bool) {
	i, ok := l.byID[nodeID]
	if !ok {
		return nil, false
	}
	return l.nodes[i], true
}

// Debit takes cpu and ram from the node at index i. It refuses to drive
// available capacity below zero.
func (l *NodeLedger) Debit(i, cpu, ram int) error {
	n := l.At(i)
	if n == nil {
		return fmt.Errorf("node index %d: %w", i, ErrNotFound)
	}
	if !n.Fits(cpu, ram) {
		return fmt.Errorf("node %d: debit %d/%d from %d/%d: %w",
			n.ID, cpu, ram, n.AvailableCPU, n.AvailableRAM, ErrOutOfBounds)
	}
	n.AvailableCPU -= cpu
	n.AvailableRAM -= ram
	return nil
}

// Credit returns cpu and ram to the node with the given identifier. Available
// capacity never exceeds the total; clamped reports whether it had to be cut.
func (l *NodeLedger) Credit(nodeID, cpu, ram int) (clamped bool, err error) {
	n, ok := l.Get(nodeID)
	if !ok {
		return false, fmt.Errorf("node %d: %w", nodeID, ErrNotFound)
	}
	n.AvailableCPU += cpu
	n.AvailableRAM += ram
	if n.AvailableCPU > n.TotalCPU {
		n.AvailableCPU = n.TotalCPU
		clamped = true
	}
	if n.AvailableRAM > n.TotalRAM {
		n.AvailableRAM = n.TotalRAM
		clamped = true
	}
	return clamped, nil
}

// Len returns the number of registered nodes.
func (l *NodeLedger) Len() int { return len(l.nodes) }

// Nodes returns the nodes in registration order.
func (l *NodeLedger) Nodes() []*model.ResourceNode {
	out := make([]*model.ResourceNode, len(l.nodes))
	copy(out, l.nodes)
	return out
}

// MaxTotals returns the largest CPU and RAM totals of any single node.
func (l *NodeLedger) MaxTotals() (cpu, ram int) {
	for _, n := range l.nodes {
		cpu = max(cpu, n.TotalCPU)
		ram = max(ram, n.TotalRAM)
	}
	return cpu, ram
}
