// Package retention decides which mirrored builds to keep and which to
// discard. The policy is a pure function of the build list and an injected
// "now"; it performs no I/O and never mutates its input.
package retention

import (
	"fmt"
	"time"

	"github.com/relicmirror/relicmirror/internal/buildlist"
)

// Policy holds the retention table. Bands are data, not code, so the
// age boundaries and moduli can be audited and extended in one place.
type Policy struct {
	// RecentWindowDays is the age below which every build of a day is kept.
	RecentWindowDays int
	// HardCutoffDays is the age at and beyond which prerelease builds are
	// removed unconditionally.
	HardCutoffDays int
	// Bands thin one-build-per-day survivors between the recent window and
	// the hard cutoff.
	Bands []Band
}

// DefaultPolicy returns the standard table: keep everything for 30 days,
// then one build per 2/4/8 days, then nothing past 450 days.
func DefaultPolicy() Policy {
	return Policy{
		RecentWindowDays: 30,
		HardCutoffDays:   450,
		Bands: []Band{
			{MinAgeDays: 30, MaxAgeDays: 90, Modulus: 2},
			{MinAgeDays: 90, MaxAgeDays: 210, Modulus: 4},
			{MinAgeDays: 210, MaxAgeDays: 450, Modulus: 8},
		},
	}
}

// Validate rejects tables the engine cannot apply deterministically.
func (p Policy) Validate() error {
	if p.RecentWindowDays < 0 {
		return fmt.Errorf("recent window must not be negative, got %d", p.RecentWindowDays)
	}
	if p.HardCutoffDays <= p.RecentWindowDays {
		return fmt.Errorf("hard cutoff (%d) must exceed recent window (%d)", p.HardCutoffDays, p.RecentWindowDays)
	}
	for _, b := range p.Bands {
		if b.Modulus < 1 {
			return fmt.Errorf("band %s: modulus must be >= 1, got %d", b.Label(), b.Modulus)
		}
		if b.MaxAgeDays <= b.MinAgeDays {
			return fmt.Errorf("band %s: empty age range", b.Label())
		}
	}
	return nil
}

// Rule identifies why a record landed in kept or removed.
type Rule string

const (
	RuleStable  Rule = "stable"     // prerelease=false, always kept
	RuleUndated Rule = "undated"    // no resolvable date, conservatively kept
	RuleRecent  Rule = "recent"     // day younger than the recent window
	RuleParity  Rule = "day-parity" // day key divisible by the band modulus
	RuleExtra   Rule = "extra"      // non-primary build of an aged day
	RuleThinned Rule = "thinned"    // day key not divisible by the band modulus
	RuleCutoff  Rule = "cutoff"     // older than the hard cutoff
)

// BandStat reports the kept/removed split of one thinning band.
type BandStat struct {
	Band    Band `json:"band"`
	Kept    int  `json:"kept"`
	Removed int  `json:"removed"`
}

// Stats breaks the classification out by rule.
type Stats struct {
	Stable        int        `json:"stable"`
	Undated       int        `json:"undated"`
	Recent        int        `json:"recent"`
	ParityKept    int        `json:"parityKept"`
	ExtrasRemoved int        `json:"extrasRemoved"`
	Thinned       int        `json:"thinned"`
	Cutoff        int        `json:"cutoff"`
	Bands         []BandStat `json:"bands"`
}

// Result partitions the input: every record appears in exactly one of Kept
// and Removed, in input order.
type Result struct {
	Kept    []buildlist.Record
	Removed []buildlist.Record
	Stats   Stats
}

// dayGroup collects the prerelease builds of one UTC calendar day.
type dayGroup struct {
	key     int
	age     int
	indices []int       // positions in the input slice
	dates   []time.Time // resolved timestamps, parallel to indices
}

// primary picks the build that survives thinning for this day: the one with
// the latest precise timestamp. The scan is stable, so equal timestamps
// resolve to the earliest input position and repeated runs agree.
func (g *dayGroup) primary() int {
	best := 0
	for i := 1; i < len(g.indices); i++ {
		if g.dates[i].After(g.dates[best]) {
			best = i
		}
	}
	return g.indices[best]
}

// Apply classifies builds against the policy at the given instant.
//
// Stable releases are never aged out. Prerelease builds without a resolvable
// date are kept. The rest are grouped by their build day; days inside the
// recent window keep everything, older days keep at most their primary build,
// and the primary survives only when the day key divides by the modulus of
// the band its age falls in. The modulus operand is the absolute day key:
// the classification of a given calendar day never changes as "now" advances,
// only the band it is judged under does.
func (p Policy) Apply(builds []buildlist.Record, now time.Time) Result {
	nowKey := DayKey(now)

	const (
		decideKeep = iota
		decideRemove
	)
	decisions := make([]int, len(builds))
	rules := make([]Rule, len(builds))

	groups := map[int]*dayGroup{}
	var order []int // group keys in first-seen order, for deterministic stats

	for i, rec := range builds {
		if !rec.Prerelease {
			decisions[i] = decideKeep
			rules[i] = RuleStable
			continue
		}

		date, ok := ResolveDate(rec)
		if !ok {
			decisions[i] = decideKeep
			rules[i] = RuleUndated
			continue
		}

		key := DayKey(date)
		g, seen := groups[key]
		if !seen {
			g = &dayGroup{key: key, age: AgeDays(nowKey, key)}
			groups[key] = g
			order = append(order, key)
		}
		g.indices = append(g.indices, i)
		g.dates = append(g.dates, date)
	}

	bandStats := make([]BandStat, len(p.Bands))
	for i, b := range p.Bands {
		bandStats[i] = BandStat{Band: b}
	}

	var stats Stats
	for _, key := range order {
		g := groups[key]

		if g.age < p.RecentWindowDays {
			for _, idx := range g.indices {
				decisions[idx] = decideKeep
				rules[idx] = RuleRecent
			}
			continue
		}

		primary := g.primary()
		for _, idx := range g.indices {
			if idx == primary {
				continue
			}
			decisions[idx] = decideRemove
			rules[idx] = RuleExtra
		}

		if g.age >= p.HardCutoffDays {
			decisions[primary] = decideRemove
			rules[primary] = RuleCutoff
			continue
		}

		band := -1
		for bi, b := range p.Bands {
			if b.contains(g.age) {
				band = bi
				break
			}
		}
		if band < 0 {
			// A table gap between the recent window and the cutoff keeps the
			// day's primary: ambiguity errs toward preservation.
			decisions[primary] = decideKeep
			rules[primary] = RuleParity
			continue
		}

		if g.key%p.Bands[band].Modulus == 0 {
			decisions[primary] = decideKeep
			rules[primary] = RuleParity
			bandStats[band].Kept++
		} else {
			decisions[primary] = decideRemove
			rules[primary] = RuleThinned
			bandStats[band].Removed++
		}
	}

	res := Result{
		Kept:    make([]buildlist.Record, 0, len(builds)),
		Removed: make([]buildlist.Record, 0),
	}
	for i, rec := range builds {
		switch rules[i] {
		case RuleStable:
			stats.Stable++
		case RuleUndated:
			stats.Undated++
		case RuleRecent:
			stats.Recent++
		case RuleParity:
			stats.ParityKept++
		case RuleExtra:
			stats.ExtrasRemoved++
		case RuleThinned:
			stats.Thinned++
		case RuleCutoff:
			stats.Cutoff++
		}
		if decisions[i] == decideKeep {
			res.Kept = append(res.Kept, rec)
		} else {
			res.Removed = append(res.Removed, rec)
		}
	}
	stats.Bands = bandStats
	res.Stats = stats
	return res
}
