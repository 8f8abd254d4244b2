package surveillance

import "sort"

// Distribution counts records per bucket label.
type Distribution map[string]int

// Add increments the count of key by one.
func (d Distribution) Add(key string) {
	d[key]++
}

// Merge adds every count of other into d.
func (d Distribution) Merge(other Distribution) {
	for k, n := range other {
		d[k] += n
	}
}

// Sum returns the total of all counts.
func (d Distribution) Sum() int {
	total := 0
	for _, n := range d {
		total += n
	}
	return total
}

// Clone returns an independent copy.
func (d Distribution) Clone() Distribution {
	out := make(Distribution, len(d))
	for k, n := range d {
		out[k] = n
	}
	return out
}

// Bucket is one (label, count) pair of a Distribution.
type Bucket struct {
	Label string
	Count int
}

// ByLabel returns the buckets sorted by label.
func (d Distribution) ByLabel() []Bucket {
	out := d.buckets()
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// ByRank returns the buckets in the order of rank. Labels not listed in rank
// follow, sorted by label.
func (d Distribution) ByRank(rank []string) []Bucket {
	pos := make(map[string]int, len(rank))
	for i, l := range rank {
		pos[l] = i
	}
	out := d.buckets()
	sort.Slice(out, func(i, j int) bool {
		pi, iok := pos[out[i].Label]
		pj, jok := pos[out[j].Label]
		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			return iok
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// ByCount returns the buckets sorted by descending count, ties by label.
func (d Distribution) ByCount() []Bucket {
	out := d.buckets()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func (d Distribution) buckets() []Bucket {
	out := make([]Bucket, 0, len(d))
	for k, n := range d {
		out = append(out, Bucket{Label: k, Count: n})
	}
	return out
}
