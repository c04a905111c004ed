// Package zset implements QuickZSet (§3, §4.C): a member→score map
// co-indexed with a score→members structure ordered ascending by
// (score, member), kept in sync on every mutation.
package zset

import "sort"

// Member is one (member, score) pair in rank order.
type Member struct {
	Name  string
	Score float64
}

type bucket struct {
	score   float64
	members []string // sorted ascending by byte comparison
}

// ZSet is the sorted-set container.
type ZSet struct {
	scoreOf map[string]float64
	buckets []*bucket // sorted ascending by score
}

func New() *ZSet {
	return &ZSet{scoreOf: make(map[string]float64)}
}

func (z *ZSet) Len() int { return len(z.scoreOf) }

// Score returns the member's score, if present.
func (z *ZSet) Score(member string) (float64, bool) {
	s, ok := z.scoreOf[member]
	return s, ok
}

// Add inserts or updates member's score. If the member already exists, it
// is removed from its old score bucket before being inserted into the new
// one. Returns true iff member is new to the set.
func (z *ZSet) Add(member string, score float64) bool {
	old, exists := z.scoreOf[member]
	if exists {
		if old == score {
			return false
		}
		z.removeFromBucket(old, member)
	}
	z.scoreOf[member] = score
	z.insertIntoBucket(score, member)
	return !exists
}

// Rem removes member. Returns true iff it was present.
func (z *ZSet) Rem(member string) bool {
	score, ok := z.scoreOf[member]
	if !ok {
		return false
	}
	delete(z.scoreOf, member)
	z.removeFromBucket(score, member)
	return true
}

func (z *ZSet) bucketIndex(score float64) (int, bool) {
	i := sort.Search(len(z.buckets), func(i int) bool { return z.buckets[i].score >= score })
	if i < len(z.buckets) && z.buckets[i].score == score {
		return i, true
	}
	return i, false
}

func (z *ZSet) insertIntoBucket(score float64, member string) {
	i, found := z.bucketIndex(score)
	if found {
		b := z.buckets[i]
		mi := sort.SearchStrings(b.members, member)
		b.members = append(b.members, "")
		copy(b.members[mi+1:], b.members[mi:])
		b.members[mi] = member
		return
	}
	nb := &bucket{score: score, members: []string{member}}
	z.buckets = append(z.buckets, nil)
	copy(z.buckets[i+1:], z.buckets[i:])
	z.buckets[i] = nb
}

func (z *ZSet) removeFromBucket(score float64, member string) {
	i, found := z.bucketIndex(score)
	if !found {
		return
	}
	b := z.buckets[i]
	mi := sort.SearchStrings(b.members, member)
	if mi >= len(b.members) || b.members[mi] != member {
		return
	}
	b.members = append(b.members[:mi], b.members[mi+1:]...)
	if len(b.members) == 0 {
		z.buckets = append(z.buckets[:i], z.buckets[i+1:]...)
	}
}

// Rank returns member's 0-based position under ascending (score, member)
// order.
func (z *ZSet) Rank(member string) (int, bool) {
	if _, ok := z.scoreOf[member]; !ok {
		return 0, false
	}
	rank := 0
	for _, b := range z.buckets {
		idx := sort.SearchStrings(b.members, member)
		if idx < len(b.members) && b.members[idx] == member {
			return rank + idx, true
		}
		rank += len(b.members)
	}
	return 0, false
}

// RangeByRank returns members with rank in [start, end] inclusive,
// Redis-style negative indices (-1 = last) normalized against the set size.
func (z *ZSet) RangeByRank(start, end int) []Member {
	n := z.Len()
	if n == 0 {
		return nil
	}
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end {
		return nil
	}

	out := make([]Member, 0, end-start+1)
	i := 0
	for _, b := range z.buckets {
		for _, m := range b.members {
			if i >= start && i <= end {
				out = append(out, Member{Name: m, Score: b.score})
			}
			i++
			if i > end {
				return out
			}
		}
	}
	return out
}

// RangeByScore returns members with score in [min, max] inclusive, ordered
// ascending by (score, member).
func (z *ZSet) RangeByScore(min, max float64) []Member {
	out := make([]Member, 0)
	for _, b := range z.buckets {
		if b.score < min {
			continue
		}
		if b.score > max {
			break
		}
		for _, m := range b.members {
			out = append(out, Member{Name: m, Score: b.score})
		}
	}
	return out
}

// PopMin removes and returns the lowest-scored member (ties broken by
// ascending member name).
func (z *ZSet) PopMin() (Member, bool) {
	if len(z.buckets) == 0 {
		return Member{}, false
	}
	b := z.buckets[0]
	m := b.members[0]
	score := b.score
	b.members = b.members[1:]
	if len(b.members) == 0 {
		z.buckets = z.buckets[1:]
	}
	delete(z.scoreOf, m)
	return Member{Name: m, Score: score}, true
}

// PopMax removes and returns the highest-scored member (ties broken by
// descending member name, i.e. the last member of the top bucket).
func (z *ZSet) PopMax() (Member, bool) {
	if len(z.buckets) == 0 {
		return Member{}, false
	}
	b := z.buckets[len(z.buckets)-1]
	last := len(b.members) - 1
	m := b.members[last]
	score := b.score
	b.members = b.members[:last]
	if len(b.members) == 0 {
		z.buckets = z.buckets[:len(z.buckets)-1]
	}
	delete(z.scoreOf, m)
	return Member{Name: m, Score: score}, true
}
