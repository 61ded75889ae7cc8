// Package histogram implements a logarithmic-bucket latency recorder.
//
// The bucket layout is mr axboe's floating-point-like histogram (as used by
// fio and schbench): small values get an exact bucket, larger values are
// grouped into bands that discard low-order bits, trading precision for a
// fixed, small bucket count.
package histogram

import (
	"math/bits"
	"sort"
	"sync/atomic"
)

const (
	// platBits is the number of low bits kept exact before a value starts
	// losing precision to banding.
	platBits = 8
	// platVal is 2^platBits, the width of one band; values below
	// 2*platVal are stored exactly.
	platVal = 1 << platBits
	// platGroupNR is the number of platVal-wide groups, including the two
	// that hold the exact range.
	platGroupNR = 19
	// platNR is the total bucket count: 19*256 = 4864.
	platNR = platGroupNR * platVal
)

// Histogram is a fixed-size, atomically-updated latency histogram.
//
// Record is safe to call concurrently from many goroutines. Min and Max are
// updated with CAS loops separately from the bucket increment, so a
// concurrent reader may briefly see them lag the bucket counts; this is an
// accepted race per the design (see DESIGN.md).
type Histogram struct {
	buckets   [platNR]uint64
	nrSamples atomic.Uint64
	min       atomic.Uint64
	max       atomic.Uint64
}

// New returns an empty Histogram.
func New() *Histogram {
	return &Histogram{}
}

// valToIdx maps a sample value to its bucket index.
func valToIdx(val uint32) uint32 {
	if val == 0 {
		return 0
	}
	msb := uint32(bits.Len32(val)) - 1
	if msb <= platBits {
		return val
	}
	errorBits := msb - platBits
	base := (errorBits + 1) << platBits
	offset := (platVal - 1) & (val >> errorBits)
	if base+offset < platNR-1 {
		return base + offset
	}
	return platNR - 1
}

// idxToVal returns the representative (bucket-centre) value for idx.
func idxToVal(idx uint32) uint32 {
	if idx < (platVal << 1) {
		return idx
	}
	errorBits := (idx >> platBits) - 1
	base := uint32(1) << (errorBits + platBits)
	k := idx % platVal
	return base + uint32((float64(k)+0.5)*float64(uint32(1)<<errorBits))
}

// Record adds a single sample, in whatever unit the caller chooses (this
// benchmark always uses microseconds). Values above 2^32-1 are clamped to
// 2^32-1. Negative deltas are the caller's to handle: Worker skips them
// (see clock.DeltaUsec).
func (h *Histogram) Record(v uint64) {
	if v > 0xffffffff {
		v = 0xffffffff
	}
	idx := valToIdx(uint32(v))
	atomic.AddUint64(&h.buckets[idx], 1)
	h.nrSamples.Add(1)

	for {
		cur := h.max.Load()
		if v <= uint64(cur) || h.max.CompareAndSwap(cur, v) {
			break
		}
	}
	for {
		cur := h.min.Load()
		if cur != 0 && v >= uint64(cur) {
			break
		}
		if h.min.CompareAndSwap(cur, v) {
			break
		}
	}
}

// NrSamples returns the total number of recorded samples.
func (h *Histogram) NrSamples() uint64 { return h.nrSamples.Load() }

// Min returns the smallest recorded sample (0 if none recorded).
func (h *Histogram) Min() uint64 { return h.min.Load() }

// Max returns the largest recorded sample.
func (h *Histogram) Max() uint64 { return h.max.Load() }

// Clear resets the histogram to empty in place.
func (h *Histogram) Clear() {
	for i := range h.buckets {
		atomic.StoreUint64(&h.buckets[i], 0)
	}
	h.nrSamples.Store(0)
	h.min.Store(0)
	h.max.Store(0)
}

// Combine folds other's counts into h and returns h, matching schbench.c's
// combine_stats (d += s). It does not mutate other.
func (h *Histogram) Combine(other *Histogram) *Histogram {
	for i := range h.buckets {
		v := atomic.LoadUint64(&other.buckets[i])
		if v != 0 {
			atomic.AddUint64(&h.buckets[i], v)
		}
	}
	h.nrSamples.Add(other.nrSamples.Load())

	if om := other.max.Load(); om > h.max.Load() {
		for {
			cur := h.max.Load()
			if om <= cur || h.max.CompareAndSwap(cur, om) {
				break
			}
		}
	}
	if omin := other.min.Load(); omin != 0 {
		for {
			cur := h.min.Load()
			if cur != 0 && omin >= cur {
				break
			}
			if h.min.CompareAndSwap(cur, omin) {
				break
			}
		}
	}
	return h
}

// Percentiles walks the buckets once, in ascending index order, and for each
// sorted percentile in plist emits the bucket-centre value of the first
// bucket whose cumulative count crosses p/100*N. counts[0] is the absolute
// cumulative count at that point; counts[j>0] is the count added since the
// previous percentile's bucket.
func (h *Histogram) Percentiles(plist []float64) (values []uint32, counts []uint64) {
	sorted := make([]float64, len(plist))
	copy(sorted, plist)
	sort.Float64s(sorted)

	n := h.nrSamples.Load()
	if n == 0 || len(sorted) == 0 {
		return nil, nil
	}

	values = make([]uint32, 0, len(sorted))
	counts = make([]uint64, 0, len(sorted))

	var sum uint64
	j := 0
	for i := 0; i < platNR && j < len(sorted); i++ {
		sum += atomic.LoadUint64(&h.buckets[i])
		threshold := sorted[j] / 100.0 * float64(n)
		for j < len(sorted) && float64(sum) >= threshold {
			values = append(values, idxToVal(uint32(i)))
			counts = append(counts, sum)
			j++
			if j < len(sorted) {
				threshold = sorted[j] / 100.0 * float64(n)
			}
		}
	}

	var last uint64
	for i := 1; i < len(counts); i++ {
		last += counts[i-1]
		counts[i] -= last
	}
	return values, counts
}
