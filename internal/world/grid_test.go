package world

import "testing"

func TestGridSetAndCellHeight(t *testing.T) {
	g := NewGrid()

	g.Set(2, 70, 3, 1)
	g.Set(-1, -64, -1, 0.5)

	if got := g.CellHeight(2, 70, 3); got != 1 {
		t.Fatalf("CellHeight(2,70,3) = %v, want 1", got)
	}
	if got := g.CellHeight(-1, -64, -1); got != 0.5 {
		t.Fatalf("CellHeight(-1,-64,-1) = %v, want 0.5", got)
	}
	if g.IsSolid(0, 0, 0) {
		t.Fatalf("IsSolid(0,0,0) should be false for an untouched cell")
	}
	if g.Len() != 2 {
		t.Fatalf("Len = %d, want 2", g.Len())
	}
	if g.LoadedChunkCount() != 2 {
		t.Fatalf("LoadedChunkCount = %d, want 2", g.LoadedChunkCount())
	}
}

func TestGridSetClampsAndClears(t *testing.T) {
	g := NewGrid()

	g.Set(0, 0, 0, 3)
	if got := g.CellHeight(0, 0, 0); got != 1 {
		t.Fatalf("CellHeight = %v, want clamped 1", got)
	}

	g.Set(0, 0, 0, 0)
	if g.IsSolid(0, 0, 0) {
		t.Fatalf("cell should be empty after Set(..., 0)")
	}
	// The chunk is released once its last solid cell is cleared.
	if g.LoadedChunkCount() != 0 {
		t.Fatalf("LoadedChunkCount = %d, want 0", g.LoadedChunkCount())
	}

	g.Set(1, 1, 1, -2)
	if g.Len() != 0 {
		t.Fatalf("negative height should not create a cell")
	}
}

func TestGridFillAndEach(t *testing.T) {
	g := NewGrid()

	n := g.Fill([3]int{1, 0, 1}, [3]int{-1, 0, -1}, 1)
	if n != 9 {
		t.Fatalf("Fill returned %d, want 9", n)
	}

	seen := make(map[[3]int]float64)
	g.Each(func(x, y, z int, h float64) {
		seen[[3]int{x, y, z}] = h
	})
	if len(seen) != 9 {
		t.Fatalf("Each visited %d cells, want 9", len(seen))
	}
	if seen[[3]int{-1, 0, -1}] != 1 || seen[[3]int{1, 0, 1}] != 1 {
		t.Fatalf("Each missed corner cells: %v", seen)
	}
}

func TestGridSurfaceHeight(t *testing.T) {
	g := NewGrid()
	g.Set(0, -1, 0, 1)
	g.Set(0, 2, 0, 0.5)

	top, ok := g.SurfaceHeight(0, 0, -4, 8)
	if !ok || top != 2.5 {
		t.Fatalf("SurfaceHeight = (%v,%v), want (2.5,true)", top, ok)
	}

	top, ok = g.SurfaceHeight(0, 0, -4, 1)
	if !ok || top != 0 {
		t.Fatalf("SurfaceHeight below overhang = (%v,%v), want (0,true)", top, ok)
	}

	if _, ok := g.SurfaceHeight(5, 5, -4, 8); ok {
		t.Fatalf("empty column should report no surface")
	}
}

func TestGridClear(t *testing.T) {
	g := NewGrid()
	g.Fill([3]int{0, 0, 0}, [3]int{20, 0, 0}, 1)
	if g.LoadedChunkCount() != 2 {
		t.Fatalf("LoadedChunkCount = %d, want 2", g.LoadedChunkCount())
	}

	g.Clear()
	if g.Len() != 0 || g.LoadedChunkCount() != 0 {
		t.Fatalf("grid not empty after Clear")
	}
}
