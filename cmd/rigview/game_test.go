package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		top  float64
		want cellKind
	}{
		{"floor", 0, cellFloor},
		{"below", -1, cellFloor},
		{"step", 0.25, cellStep},
		{"step offset edge", 0.3, cellStep},
		{"slab", 0.5, cellWall},
		{"block", 1, cellWall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.top, 0, 0.3); got != tt.want {
				t.Errorf("classify(%v) = %v, want %v", tt.top, got, tt.want)
			}
		})
	}
}

func TestProject(t *testing.T) {
	g := &game{scale: 10}
	center := mgl64.Vec3{5, 0, 5}

	x, y := g.project(center, center)
	if x != screenWidth/2 || y != screenHeight/2 {
		t.Fatalf("center projects to (%v, %v)", x, y)
	}

	x, y = g.project(center, mgl64.Vec3{6, 3, 7})
	if x != screenWidth/2+10 || y != screenHeight/2-20 {
		t.Fatalf("offset projects to (%v, %v)", x, y)
	}
}
