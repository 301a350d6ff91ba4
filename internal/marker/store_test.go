package marker

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/geometry"
)

const tol = 1e-9

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("f%d", n)
	}
}

func requireContained(t *testing.T, f document.SignatureField) {
	t.Helper()
	require.GreaterOrEqual(t, f.X, 0.0, "x of %+v", f)
	require.GreaterOrEqual(t, f.Y, 0.0, "y of %+v", f)
	require.LessOrEqual(t, f.X+f.W, 1+tol, "x+w of %+v", f)
	require.LessOrEqual(t, f.Y+f.H, 1+tol, "y+h of %+v", f)
	require.GreaterOrEqual(t, f.W, document.MinSize-tol, "w of %+v", f)
	require.GreaterOrEqual(t, f.H, document.MinSize-tol, "h of %+v", f)
}

func TestStoreCreateCentersField(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	f := s.Create(1, geometry.Point{X: 0.5, Y: 0.5})

	assert.Equal(t, "f1", f.ID)
	assert.Equal(t, 1, f.Page)
	assert.InDelta(t, 0.4, f.X, tol)
	assert.InDelta(t, 0.47, f.Y, tol)
	assert.InDelta(t, document.DefaultWidth, f.W, tol)
	assert.InDelta(t, document.DefaultHeight, f.H, tol)
	assert.False(t, f.Required)
}

func TestStoreCreateShiftsInward(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})

	f := s.Create(1, geometry.Point{X: 0.99, Y: 0.99})
	assert.InDelta(t, 1-document.DefaultWidth, f.X, tol)
	assert.InDelta(t, 1-document.DefaultHeight, f.Y, tol)
	assert.InDelta(t, document.DefaultWidth, f.W, tol)

	f = s.Create(1, geometry.Point{X: 0, Y: -3})
	assert.Equal(t, 0.0, f.X)
	assert.Equal(t, 0.0, f.Y)
}

func TestStoreCreateClampsOversizedDefault(t *testing.T) {
	s := NewStore(Options{DefaultWidth: 1.5, DefaultHeight: 0.1, NewID: seqIDs()})
	f := s.Create(1, geometry.Point{X: 0.3, Y: 0.3})
	assert.Equal(t, 0.0, f.X)
	assert.Equal(t, 1.0, f.W)
	requireContained(t, f)
}

func TestStoreMoveClamps(t *testing.T) {
	s := NewStore(Options{})
	s.Replace([]document.SignatureField{{ID: "a", Page: 1, X: 0.5, Y: 0.5, W: 0.2, H: 0.05}})

	f, ok := s.Move("a", -0.6, 0)
	require.True(t, ok)
	assert.Equal(t, 0.0, f.X)
	assert.InDelta(t, 0.5, f.Y, tol)

	f, _ = s.Move("a", 5, 5)
	assert.InDelta(t, 0.8, f.X, tol)
	assert.InDelta(t, 0.95, f.Y, tol)

	_, ok = s.Move("missing", 0.1, 0.1)
	assert.False(t, ok)
}

func TestStoreResizePinsAtMinimum(t *testing.T) {
	s := NewStore(Options{})
	s.Replace([]document.SignatureField{{ID: "a", Page: 1, X: 0.5, Y: 0.5, W: 0.2, H: 0.05}})

	f, ok := s.Resize("a", HandleBottomRight, -0.19, 0)
	require.True(t, ok)
	assert.Equal(t, document.MinSize, f.W)
	assert.InDelta(t, 0.5, f.X, tol)

	f, _ = s.Resize("a", HandleBottomRight, -0.3, -0.3)
	assert.Equal(t, document.MinSize, f.W)
	assert.Equal(t, document.MinSize, f.H)
	assert.InDelta(t, 0.5, f.X, tol)
	assert.InDelta(t, 0.5, f.Y, tol)
}

func TestStoreMinSizeNeverBelowBackendFloor(t *testing.T) {
	for _, floor := range []float64{0.01, -1, 2} {
		s := NewStore(Options{MinSize: floor})
		s.Replace([]document.SignatureField{{ID: "a", Page: 1, X: 0.5, Y: 0.5, W: 0.2, H: 0.06}})

		f, ok := s.Resize("a", HandleBottomRight, -0.5, -0.5)
		require.True(t, ok)
		assert.Equal(t, document.MinSize, f.W, "min %v", floor)
		assert.Equal(t, document.MinSize, f.H, "min %v", floor)
		assert.NoError(t, document.Validate(f, 1, document.MinSize), "min %v", floor)
	}

	assert.Equal(t, 0.1, Options{MinSize: 0.1}.withDefaults().MinSize)
}

func TestStoreResizeKeepsOppositeEdges(t *testing.T) {
	base := document.SignatureField{ID: "a", Page: 1, X: 0.4, Y: 0.4, W: 0.2, H: 0.1}

	tests := []struct {
		handle         Handle
		dx, dy         float64
		x, y, w, h     float64
		fixedX, fixedY float64 // edges that must not move
	}{
		{HandleTopLeft, 0.05, 0.02, 0.45, 0.42, 0.15, 0.08, 0.6, 0.5},
		{HandleTopRight, 0.05, 0.02, 0.4, 0.42, 0.25, 0.08, 0.4, 0.5},
		{HandleBottomLeft, -0.1, 0.1, 0.3, 0.4, 0.3, 0.2, 0.6, 0.4},
		{HandleBottomRight, 0.1, -0.02, 0.4, 0.4, 0.3, 0.08, 0.4, 0.4},
		{HandleTopLeft, 0.5, 0.5, 0.55, 0.45, 0.05, 0.05, 0.6, 0.5},
		{HandleTopLeft, -1, -1, 0, 0, 0.6, 0.5, 0.6, 0.5},
		{HandleBottomRight, 1, 1, 0.4, 0.4, 0.6, 0.6, 0.4, 0.4},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v,%v", tt.handle, tt.dx, tt.dy), func(t *testing.T) {
			s := NewStore(Options{})
			s.Replace([]document.SignatureField{base})

			f, ok := s.Resize("a", tt.handle, tt.dx, tt.dy)
			require.True(t, ok)
			assert.InDelta(t, tt.x, f.X, tol)
			assert.InDelta(t, tt.y, f.Y, tol)
			assert.InDelta(t, tt.w, f.W, tol)
			assert.InDelta(t, tt.h, f.H, tol)
			requireContained(t, f)

			switch tt.handle {
			case HandleTopLeft, HandleBottomLeft:
				assert.InDelta(t, tt.fixedX, f.X+f.W, tol, "right edge moved")
			default:
				assert.InDelta(t, tt.fixedX, f.X, tol, "left edge moved")
			}
			switch tt.handle {
			case HandleTopLeft, HandleTopRight:
				assert.InDelta(t, tt.fixedY, f.Y+f.H, tol, "bottom edge moved")
			default:
				assert.InDelta(t, tt.fixedY, f.Y, tol, "top edge moved")
			}
		})
	}
}

func TestStoreDeleteAndClear(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	a := s.Create(1, geometry.Point{X: 0.5, Y: 0.5})
	s.Create(2, geometry.Point{X: 0.5, Y: 0.5})
	s.Create(2, geometry.Point{X: 0.2, Y: 0.2})

	assert.Len(t, s.OnPage(2), 2)
	assert.True(t, s.Delete(a.ID))
	assert.False(t, s.Delete(a.ID))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"f2", "f3"}, ids(s.Fields()))

	assert.Equal(t, 2, s.ClearAll())
	assert.Equal(t, 0, s.Len())
}

func TestStoreFieldsIsACopy(t *testing.T) {
	s := NewStore(Options{NewID: seqIDs()})
	s.Create(1, geometry.Point{X: 0.5, Y: 0.5})

	fields := s.Fields()
	fields[0].X = 0.9
	f, _ := s.Get("f1")
	assert.InDelta(t, 0.4, f.X, tol)
}

func TestStoreContainmentUnderRandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := NewStore(Options{NewID: seqIDs()})

	for i := 0; i < 5000; i++ {
		fields := s.Fields()
		switch op := rng.Intn(4); {
		case op == 0 || len(fields) == 0:
			s.Create(1+rng.Intn(3), geometry.Point{X: rng.Float64()*2 - 0.5, Y: rng.Float64()*2 - 0.5})
		case op == 1:
			f := fields[rng.Intn(len(fields))]
			s.Move(f.ID, rng.Float64()*4-2, rng.Float64()*4-2)
		case op == 2:
			f := fields[rng.Intn(len(fields))]
			s.Resize(f.ID, Handles[rng.Intn(len(Handles))], rng.Float64()*2-1, rng.Float64()*2-1)
		default:
			f := fields[rng.Intn(len(fields))]
			s.Resize(f.ID, Handles[rng.Intn(len(Handles))], rng.Float64()*0.02-0.01, rng.Float64()*0.02-0.01)
		}

		for _, f := range s.Fields() {
			requireContained(t, f)
		}
	}
}

func ids(fields []document.SignatureField) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.ID
	}
	return out
}
