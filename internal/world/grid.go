package world

import (
	"math"
	"sync"
)

const (
	ChunkSize      = 16
	BlocksPerChunk = ChunkSize * ChunkSize * ChunkSize
)

type ChunkPos struct {
	X int32
	Y int32
	Z int32
}

type chunk struct {
	heights [BlocksPerChunk]float64
	solid   int
}

// Grid is a sparse voxel world. Each cell carries a solid height in (0, 1]
// measured from the bottom of the cell; 0 means empty.
type Grid struct {
	mu     sync.RWMutex
	chunks map[ChunkPos]*chunk
}

func NewGrid() *Grid {
	return &Grid{chunks: make(map[ChunkPos]*chunk)}
}

// Set stores the solid height of a cell. Heights are clamped to 1; a height
// of 0 or less clears the cell.
func (g *Grid) Set(x, y, z int, height float64) {
	if math.IsNaN(height) || height <= 0 {
		height = 0
	}
	if height > 1 {
		height = 1
	}

	pos, index := locate(x, y, z)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.chunks == nil {
		g.chunks = make(map[ChunkPos]*chunk)
	}
	c, ok := g.chunks[pos]
	if !ok {
		if height == 0 {
			return
		}
		c = &chunk{}
		g.chunks[pos] = c
	}

	prev := c.heights[index]
	c.heights[index] = height
	switch {
	case prev == 0 && height > 0:
		c.solid++
	case prev > 0 && height == 0:
		c.solid--
	}
	if c.solid == 0 {
		delete(g.chunks, pos)
	}
}

// Fill sets every cell in the inclusive box spanned by a and b.
func (g *Grid) Fill(a, b [3]int, height float64) int {
	minX, maxX := order(a[0], b[0])
	minY, maxY := order(a[1], b[1])
	minZ, maxZ := order(a[2], b[2])
	n := 0
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			for z := minZ; z <= maxZ; z++ {
				g.Set(x, y, z, height)
				n++
			}
		}
	}
	return n
}

func (g *Grid) CellHeight(x, y, z int) float64 {
	pos, index := locate(x, y, z)

	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.chunks[pos]
	if !ok {
		return 0
	}
	return c.heights[index]
}

func (g *Grid) IsSolid(x, y, z int) bool {
	return g.CellHeight(x, y, z) > 0
}

// Len returns the number of non-empty cells.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, c := range g.chunks {
		n += c.solid
	}
	return n
}

func (g *Grid) LoadedChunkCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.chunks)
}

// Each calls fn for every non-empty cell. The order is unspecified. fn must
// not modify the grid.
func (g *Grid) Each(fn func(x, y, z int, height float64)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for pos, c := range g.chunks {
		baseX := int(pos.X) * ChunkSize
		baseY := int(pos.Y) * ChunkSize
		baseZ := int(pos.Z) * ChunkSize
		for i, h := range c.heights {
			if h == 0 {
				continue
			}
			ly := i / (ChunkSize * ChunkSize)
			lz := (i / ChunkSize) % ChunkSize
			lx := i % ChunkSize
			fn(baseX+lx, baseY+ly, baseZ+lz, h)
		}
	}
}

// SurfaceHeight returns the top of the highest solid cell in column (x, z)
// at or below maxY.
func (g *Grid) SurfaceHeight(x, z, minY, maxY int) (float64, bool) {
	for y := maxY; y >= minY; y-- {
		if h := g.CellHeight(x, y, z); h > 0 {
			return float64(y) + h, true
		}
	}
	return 0, false
}

func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chunks = make(map[ChunkPos]*chunk)
}

func locate(x, y, z int) (ChunkPos, int) {
	pos := ChunkPos{X: int32(floorDiv16(x)), Y: int32(floorDiv16(y)), Z: int32(floorDiv16(z))}
	index := floorMod16(y)*ChunkSize*ChunkSize + floorMod16(z)*ChunkSize + floorMod16(x)
	return pos, index
}

func order(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

func floorDiv16(v int) int {
	q := v / 16
	if v < 0 && v%16 != 0 {
		q--
	}
	return q
}

func floorMod16(v int) int {
	m := v % 16
	if m < 0 {
		m += 16
	}
	return m
}
