package gpu

import "testing"

func TestTexelMappingIsBijection(t *testing.T) {
	for _, n := range []int{1, 2, 8, 64} {
		seen := make(map[[2]int]bool, n*n)
		for i := 0; i < n*n; i++ {
			x, y := TexelCoord(i, n)
			if x < 0 || x >= n || y < 0 || y >= n {
				t.Fatalf("n=%d: index %d mapped outside grid to (%d,%d)", n, i, x, y)
			}
			if seen[[2]int{x, y}] {
				t.Fatalf("n=%d: texel (%d,%d) hit twice", n, x, y)
			}
			seen[[2]int{x, y}] = true
			if back := TexelIndex(x, y, n); back != i {
				t.Errorf("n=%d: TexelIndex(TexelCoord(%d)) = %d", n, i, back)
			}
		}
		if len(seen) != n*n {
			t.Errorf("n=%d: covered %d texels, want %d", n, len(seen), n*n)
		}
	}
}

func TestTexelCoordRowMajor(t *testing.T) {
	x, y := TexelCoord(10, 8)
	if x != 2 || y != 1 {
		t.Errorf("TexelCoord(10, 8) = (%d,%d), want (2,1)", x, y)
	}
}

func TestPutAt(t *testing.T) {
	buf := make([]float32, 3*Channels)
	want := Texel{1, 2, 3, 0}
	Put(buf, 1, want)
	if got := At(buf, 1); got != want {
		t.Errorf("At after Put = %v, want %v", got, want)
	}
	if got := At(buf, 0); got != (Texel{}) {
		t.Errorf("neighbouring texel modified: %v", got)
	}
}
