package cost

import (
	"fmt"
	"sync"
	"time"

	"github.com/Lllllllleong/architecturereview/internal/errs"
	"github.com/google/uuid"
)

// Category groups cost items for the breakdown.
type Category string

const (
	CategoryInference         Category = "inference"
	CategoryObjectStorage     Category = "objectStorage"
	CategoryTableStorage      Category = "tableStorage"
	CategoryComputeInvocation Category = "computeInvocation"
	CategoryOther             Category = "other"
)

// Item is one billable operation recorded during a run.
type Item struct {
	ID          string    `json:"id"`
	Category    Category  `json:"category"`
	Operation   string    `json:"operation"`
	ModelID     string    `json:"modelId,omitempty"`
	InputUnits  int       `json:"inputUnits"`
	OutputUnits int       `json:"outputUnits"`
	ImageCount  int       `json:"imageCount,omitempty"`
	Cost        float64   `json:"cost"`
	Timestamp   time.Time `json:"timestamp"`
}

// Breakdown is the full item list plus totals split into fixed categories.
// The category fields partition Total.
type Breakdown struct {
	Items             []Item  `json:"items"`
	Inference         float64 `json:"inference"`
	ObjectStorage     float64 `json:"objectStorage"`
	TableStorage      float64 `json:"tableStorage"`
	ComputeInvocation float64 `json:"computeInvocation"`
	Other             float64 `json:"other"`
	Total             float64 `json:"total"`
}

// Ledger is an append-only, concurrency-safe log of cost items owned by a
// single review run.
type Ledger struct {
	mu      sync.Mutex
	items   []Item
	pricing Pricing
	now     func() time.Time
}

// NewLedger returns an empty ledger priced with p.
func NewLedger(p Pricing) *Ledger {
	return &Ledger{pricing: p, now: time.Now}
}

// Child returns an empty ledger sharing this ledger's pricing, for a unit of
// work whose items are merged back after it finishes.
func (l *Ledger) Child() *Ledger {
	return &Ledger{pricing: l.pricing, now: l.now}
}

// Record appends item. A negative cost is rejected; missing ID, category and
// timestamp are filled in.
func (l *Ledger) Record(item Item) error {
	if item.Cost < 0 {
		return errs.Validation("negative cost %f for %s", item.Cost, item.Operation)
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Category == "" {
		item.Category = CategoryOther
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if item.Timestamp.IsZero() {
		item.Timestamp = l.now()
	}
	l.items = append(l.items, item)
	return nil
}

// RecordInference prices and appends one model call.
func (l *Ledger) RecordInference(modelID, operation string, inputTokens, outputTokens, images int) Item {
	item := Item{
		Category:    CategoryInference,
		Operation:   operation,
		ModelID:     modelID,
		InputUnits:  inputTokens,
		OutputUnits: outputTokens,
		ImageCount:  images,
		Cost:        l.pricing.Inference(modelID, inputTokens, outputTokens, images),
	}
	l.mustRecord(&item)
	return item
}

// RecordStorageRead prices and appends one object-storage read of n bytes.
func (l *Ledger) RecordStorageRead(operation string, n int) Item {
	item := Item{
		Category:   CategoryObjectStorage,
		Operation:  operation,
		InputUnits: n,
		Cost:       l.pricing.StorageRead(n),
	}
	l.mustRecord(&item)
	return item
}

// RecordTableReads prices and appends n table-storage document reads.
func (l *Ledger) RecordTableReads(operation string, n int) Item {
	item := Item{
		Category:   CategoryTableStorage,
		Operation:  operation,
		InputUnits: n,
		Cost:       float64(n) * l.pricing.TableReadPerDoc,
	}
	l.mustRecord(&item)
	return item
}

// RecordInvocation prices and appends one compute invocation.
func (l *Ledger) RecordInvocation(operation string) Item {
	item := Item{
		Category:   CategoryComputeInvocation,
		Operation:  operation,
		InputUnits: 1,
		Cost:       l.pricing.InvocationPerCall,
	}
	l.mustRecord(&item)
	return item
}

// pricing never produces negative amounts, so Record cannot fail here.
func (l *Ledger) mustRecord(item *Item) {
	item.ID = uuid.NewString()
	l.mu.Lock()
	item.Timestamp = l.now()
	l.items = append(l.items, *item)
	l.mu.Unlock()
}

// Merge appends every item of other. other is left untouched.
func (l *Ledger) Merge(other *Ledger) {
	if other == nil || other == l {
		return
	}
	items := other.Items()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, items...)
}

// Items returns a copy of the recorded items.
func (l *Ledger) Items() []Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of recorded items.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Total returns the sum of all recorded item costs.
func (l *Ledger) Total() float64 {
	var total float64
	for _, item := range l.Items() {
		total += item.Cost
	}
	return total
}

// Breakdown snapshots the ledger. Each item is counted in exactly one
// category; unknown categories count as Other.
func (l *Ledger) Breakdown() Breakdown {
	b := Breakdown{Items: l.Items()}
	for _, item := range b.Items {
		switch item.Category {
		case CategoryInference:
			b.Inference += item.Cost
		case CategoryObjectStorage:
			b.ObjectStorage += item.Cost
		case CategoryTableStorage:
			b.TableStorage += item.Cost
		case CategoryComputeInvocation:
			b.ComputeInvocation += item.Cost
		default:
			b.Other += item.Cost
		}
		b.Total += item.Cost
	}
	return b
}

// String renders a short human-readable total, used in logs.
func (b Breakdown) String() string {
	return fmt.Sprintf("total=$%.6f inference=$%.6f storage=$%.6f table=$%.6f compute=$%.6f other=$%.6f items=%d",
		b.Total, b.Inference, b.ObjectStorage, b.TableStorage, b.ComputeInvocation, b.Other, len(b.Items))
}
