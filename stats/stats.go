// Package stats computes and serves table statistics used by the planner's
// cost model: row counts, key ranges, and hashed-bitmap cardinality
// estimates for the username and email columns (spec §3, §4.6). The id
// column's cardinality is the row count itself, not a bitmap estimate.
package stats

import (
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"vqlitedb/table"
)

// bitmapSlots is the width of each column's hashed cardinality bitmap.
const bitmapSlots = 1024

// TableStats summarizes the current contents of a table. A zero value (with
// Valid false) means no ANALYZE has ever run, in which case the planner
// falls back to a fixed-cost model.
type TableStats struct {
	RunID     string    `yaml:"run_id"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Valid     bool      `yaml:"valid"`

	TotalRows uint64 `yaml:"total_rows"`
	IDMin     uint32 `yaml:"id_min"`
	IDMax     uint32 `yaml:"id_max"`

	IDCardinality       uint64 `yaml:"id_cardinality"`
	UsernameCardinality uint64 `yaml:"username_cardinality"`
	EmailCardinality    uint64 `yaml:"email_cardinality"`
}

// YAML renders stats for the engine's show_stats meta-operation.
func (s TableStats) YAML() (string, error) {
	b, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type bitmap [bitmapSlots]bool

func (b *bitmap) set(key string) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	b[h.Sum32()%bitmapSlots] = true
}

// estimate applies linear counting: given m slots and u of them unset, the
// expected number of distinct values hashed in is -m*ln(u/m).
func (b *bitmap) estimate() uint64 {
	unset := 0
	for _, v := range b {
		if !v {
			unset++
		}
	}
	if unset == 0 {
		return bitmapSlots // saturated; report the ceiling rather than +Inf
	}
	est := -float64(bitmapSlots) * math.Log(float64(unset)/float64(bitmapSlots))
	if est < 0 {
		est = 0
	}
	return uint64(math.Round(est))
}

// Analyze performs a full table scan, gathering row counts, id bounds, and
// per-column cardinality estimates (spec §4.6).
func Analyze(bt *table.BTree) (TableStats, error) {
	s := TableStats{RunID: uuid.NewString(), Valid: true, GeneratedAt: time.Now().UTC()}

	var userBM, emailBM bitmap
	cur, err := bt.Start()
	if err != nil {
		return s, err
	}
	first := true
	for cur.Valid() {
		row, err := cur.Row()
		if err != nil {
			return s, err
		}
		if first {
			s.IDMin = row.ID
			s.IDMax = row.ID
			first = false
		} else {
			if row.ID < s.IDMin {
				s.IDMin = row.ID
			}
			if row.ID > s.IDMax {
				s.IDMax = row.ID
			}
		}
		s.TotalRows++
		userBM.set(row.UsernameString())
		emailBM.set(row.EmailString())

		if err := cur.Advance(); err != nil {
			return s, err
		}
	}

	s.IDCardinality = s.TotalRows // ids are the primary key: always unique by construction
	s.UsernameCardinality = userBM.estimate()
	s.EmailCardinality = emailBM.estimate()
	return s, nil
}
