package bounds

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/pspoerri/cfgeo/internal/affine"
)

func TestFromSlice(t *testing.T) {
	b, ok := FromSlice([]float64{1, 2, 3, 4})
	assert.True(t, ok)
	assert.Equal(t, Bounds{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}, b)

	// Inverted boxes are kept as given.
	b, ok = FromSlice([]float64{3, 4, 1, 2})
	assert.True(t, ok)
	assert.Equal(t, -2.0, b.Width())

	for _, bad := range [][]float64{nil, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		if _, ok := FromSlice(bad); ok {
			t.Errorf("FromSlice(%v) ok = true, want false", bad)
		}
	}
}

func TestFromTransform(t *testing.T) {
	tests := []struct {
		name string
		tr   affine.Transform
		w, h int
		want Bounds
	}{
		{
			name: "global north-up",
			tr:   affine.Transform{A: 1, E: -1, C: -180, F: 90},
			w:    360, h: 180,
			want: Bounds{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90},
		},
		{
			name: "south-up",
			tr:   affine.Transform{A: 10, E: 10, C: 2600000, F: 1200000},
			w:    100, h: 50,
			want: Bounds{MinX: 2600000, MinY: 1200000, MaxX: 2601000, MaxY: 1200500},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromTransform(tt.tr, tt.w, tt.h))
		})
	}
}

func TestPolygon(t *testing.T) {
	b := Bounds{MinX: -10, MinY: -5, MaxX: 10, MaxY: 5}
	p := b.Polygon()
	want := orb.Polygon{orb.Ring{{-10, -5}, {10, -5}, {10, 5}, {-10, 5}, {-10, -5}}}
	assert.Equal(t, want, p)
	assert.True(t, p[0].Closed())
	assert.Equal(t, b, FromOrb(p.Bound()))
}

func TestOrb(t *testing.T) {
	b := Bounds{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}
	assert.Equal(t, b, FromOrb(b.Orb()))
	assert.Equal(t, []float64{1, 2, 3, 4}, b.Slice())
}
