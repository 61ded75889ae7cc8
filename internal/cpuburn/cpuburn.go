// Package cpuburn implements the CPU-bound matrix-multiply kernel used to
// generate cache traffic sized to a target footprint (spec.md §4.5).
package cpuburn

// wordSize mirrors sizeof(unsigned long) in the original C implementation,
// which sizes the matrices.
const wordSize = 8

// MatrixSize returns the side length of each of the three square matrices
// such that all three together occupy roughly cacheFootprintKB of memory:
// matrixSize = floor(sqrt(cacheFootprintKB*1024/3/wordSize)).
func MatrixSize(cacheFootprintKB uint64) int {
	bytes := cacheFootprintKB * 1024 / 3 / wordSize
	return isqrt(bytes)
}

func isqrt(n uint64) int {
	if n == 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return int(x)
}

// Buffer holds the three adjacent matrices (A, B, C) a Worker burns against,
// sized for size*size each.
type Buffer struct {
	size int
	data []uint64
}

// NewBuffer allocates a Buffer for the given matrix side length, seeding A
// and B with nonzero data so the multiply does real cache-line traffic.
func NewBuffer(size int) *Buffer {
	b := &Buffer{size: size, data: make([]uint64, 3*size*size)}
	for i := 0; i < 2*size*size; i++ {
		b.data[i] = uint64(i + 1)
	}
	return b
}

func (b *Buffer) a() []uint64 { return b.data[:b.size*b.size] }
func (b *Buffer) m() []uint64 { return b.data[b.size*b.size : 2*b.size*b.size] }
func (b *Buffer) c() []uint64 { return b.data[2*b.size*b.size:] }

// Burn runs a naive triple-loop integer matrix multiply C = A*M, repeated
// operations times. Overflow is ignored by design — the goal is cache
// traffic, not arithmetic correctness (spec.md §4.5).
func (b *Buffer) Burn(operations int) {
	n := b.size
	if n == 0 {
		return
	}
	a, m, c := b.a(), b.m(), b.c()
	for op := 0; op < operations; op++ {
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				var sum uint64
				for k := 0; k < n; k++ {
					sum += a[i*n+k] * m[k*n+j]
				}
				c[i*n+j] = sum
			}
		}
	}
}
