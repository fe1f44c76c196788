package planner

import (
	"math"

	"vqlitedb/stats"
)

// Kind names which of the three execution strategies a Plan represents.
type Kind string

const (
	// FullScan walks every leaf via next_leaf links, evaluating the WHERE
	// clause (if any) against each row.
	FullScan Kind = "full_scan"
	// IndexLookup uses the tree's own ordering to jump straight to a single
	// id, for a top-level `id = <literal>` clause.
	IndexLookup Kind = "index_lookup"
	// RangeScan starts an index lookup at a bound and stops once the WHERE
	// clause's id bound is exceeded, for a top-level inequality on id.
	RangeScan Kind = "range_scan"
)

// Plan is the planner's chosen strategy plus the bound(s) it needs.
type Plan struct {
	Kind      Kind
	LookupKey uint32 // IndexLookup
	Low, High *uint32 // RangeScan; nil means unbounded on that side
	EstCost   float64
}

// fixedScanCost is used when no ANALYZE has ever run, so there is no row
// count to scale a full scan's cost by.
const fixedScanCost = 1000.0

// Choose picks a plan for expr (nil means no WHERE clause at all) given the
// table's current statistics. Only a comparison on id that is the whole
// expression, or an operand reached through top-level Ands (nested Ands
// included, left operand first), is eligible for anything other than a full
// scan; id comparisons nested under an Or are not recognized.
func Choose(expr Expr, st stats.TableStats) Plan {
	scanCost := fixedScanCost
	if st.Valid {
		scanCost = float64(st.TotalRows)
	}

	basic := topLevelIDComparison(expr)
	if basic == nil {
		return Plan{Kind: FullScan, EstCost: scanCost}
	}

	want, err := parseUint32(basic.Value)
	if err != nil {
		return Plan{Kind: FullScan, EstCost: scanCost}
	}

	switch basic.Op {
	case OpEq:
		cost := fixedScanCost
		if st.Valid && st.TotalRows > 0 {
			cost = math.Log2(float64(st.TotalRows) + 1)
		}
		return Plan{Kind: IndexLookup, LookupKey: want, EstCost: cost}
	case OpGt, OpGte:
		low := want
		if basic.Op == OpGt {
			low++
		}
		return Plan{Kind: RangeScan, Low: &low, EstCost: rangeCost(st, &low, nil)}
	case OpLt, OpLte:
		high := want
		if basic.Op == OpLt && high > 0 {
			high--
		}
		return Plan{Kind: RangeScan, High: &high, EstCost: rangeCost(st, nil, &high)}
	default:
		return Plan{Kind: FullScan, EstCost: scanCost}
	}
}

// rangeCost estimates the fraction of the id domain [IDMin, IDMax] the
// [low, high] bound covers, assuming a uniform id distribution, and scales
// TotalRows by it. With no valid statistics it falls back to a full scan's
// cost, since a range scan still degenerates to walking leaves in order.
func rangeCost(st stats.TableStats, low, high *uint32) float64 {
	if !st.Valid || st.TotalRows == 0 || st.IDMax <= st.IDMin {
		return fixedScanCost
	}
	domain := float64(st.IDMax - st.IDMin)
	l := float64(st.IDMin)
	if low != nil && float64(*low) > l {
		l = float64(*low)
	}
	h := float64(st.IDMax)
	if high != nil && float64(*high) < h {
		h = float64(*high)
	}
	if h < l {
		return 0
	}
	fraction := (h - l) / domain
	return fraction * float64(st.TotalRows)
}

// topLevelIDComparison finds a bare `id <op> literal` clause usable as an
// index entry point: the whole expression, or the first one found by
// descending through And operands, left before right.
func topLevelIDComparison(expr Expr) *Basic {
	switch e := expr.(type) {
	case *Basic:
		if e.Column == ColumnID {
			return e
		}
	case *And:
		if b := topLevelIDComparison(e.Left); b != nil {
			return b
		}
		return topLevelIDComparison(e.Right)
	}
	return nil
}
