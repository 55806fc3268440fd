package geom

import (
	"testing"
)

func TestNewBBox(t *testing.T) {
	tests := []struct {
		name    string
		min     Vector
		max     Vector
		wantErr bool
	}{
		{
			name: "Valid",
			min:  NewVector(0, 0),
			max:  NewVector(16, 16),
		},
		{
			name: "ZeroExtent",
			min:  NewVector(1, 1),
			max:  NewVector(1, 1),
		},
		{
			name:    "DimensionMismatch",
			min:     NewVector(0, 0),
			max:     NewVector(16, 16, 16),
			wantErr: true,
		},
		{
			name:    "Inverted",
			min:     NewVector(2, 2),
			max:     NewVector(1, 3),
			wantErr: true,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewBBox(test.min, test.max)
			if (err != nil) != test.wantErr {
				t.Errorf("got: %v, expected error: %v", err, test.wantErr)
			}
		})
	}
}

func TestBBoxGrow(t *testing.T) {
	var b BBox
	if !b.Empty() {
		t.Fatal("zero value must be empty")
	}
	if err := b.Grow(NewVector(1, 2)); err != nil {
		t.Fatalf("unable to grow: %v", err)
	}
	if err := b.Grow(NewVector(-1, 5)); err != nil {
		t.Fatalf("unable to grow: %v", err)
	}
	expected := BBox{Min: NewVector(-1, 2), Max: NewVector(1, 5)}
	if !b.Equal(expected) {
		t.Errorf("got: %v, expected: %v", b, expected)
	}
	if err := b.Grow(NewVector(0, 0, 0)); err == nil {
		t.Error("expected dimension error, got nil")
	}
}

func TestBBoxGrowBBox(t *testing.T) {
	var b BBox
	other := BBox{Min: NewVector(1, 2), Max: NewVector(3, 4)}
	if err := b.GrowBBox(other); err != nil {
		t.Fatalf("unable to grow: %v", err)
	}
	if !b.Equal(other) {
		t.Errorf("got: %v, expected: %v", b, other)
	}
	if err := b.GrowBBox(BBox{Min: NewVector(0, 0), Max: NewVector(1, 1)}); err != nil {
		t.Fatalf("unable to grow: %v", err)
	}
	expected := BBox{Min: NewVector(0, 0), Max: NewVector(3, 4)}
	if !b.Equal(expected) {
		t.Errorf("got: %v, expected: %v", b, expected)
	}
}

func TestBBoxContains(t *testing.T) {
	b := BBox{Min: NewVector(1, 2), Max: NewVector(1.75, 4)}
	tests := []struct {
		name     string
		point    Vector
		expected bool
	}{
		{name: "Interior", point: NewVector(1.5, 3), expected: true},
		{name: "MinFace", point: NewVector(1, 2), expected: true},
		{name: "MaxFace", point: NewVector(1.75, 4), expected: false},
		{name: "MaxFaceOneAxis", point: NewVector(1.5, 4), expected: false},
		{name: "Outside", point: NewVector(2, 5), expected: false},
		{name: "WrongDimension", point: NewVector(1.5), expected: false},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := b.Contains(test.point); got != test.expected {
				t.Errorf("got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestBBoxContainsBBox(t *testing.T) {
	b := BBox{Min: NewVector(0, 0), Max: NewVector(4, 4)}
	tests := []struct {
		name     string
		other    BBox
		expected bool
	}{
		{
			name:     "Interior",
			other:    BBox{Min: NewVector(1, 1), Max: NewVector(2, 2)},
			expected: true,
		},
		{
			name:     "SharedFaces",
			other:    BBox{Min: NewVector(0, 2), Max: NewVector(2, 4)},
			expected: true,
		},
		{
			name:     "Itself",
			other:    BBox{Min: NewVector(0, 0), Max: NewVector(4, 4)},
			expected: true,
		},
		{
			name:     "PokesOut",
			other:    BBox{Min: NewVector(3, 3), Max: NewVector(5, 4)},
			expected: false,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := b.ContainsBBox(test.other); got != test.expected {
				t.Errorf("got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestBBoxIntersects(t *testing.T) {
	tests := []struct {
		name     string
		b        BBox
		other    BBox
		expected bool
	}{
		{
			name:     "Overlap",
			b:        BBox{Min: NewVector(1, 2), Max: NewVector(1.75, 4)},
			other:    BBox{Min: NewVector(1.5, 3), Max: NewVector(2, 5)},
			expected: true,
		},
		{
			name:     "Disjoint",
			b:        BBox{Min: NewVector(0, 0), Max: NewVector(1, 1)},
			other:    BBox{Min: NewVector(2, 2), Max: NewVector(3, 3)},
			expected: false,
		},
		{
			name:     "TouchingFace",
			b:        BBox{Min: NewVector(0, 0), Max: NewVector(1, 1)},
			other:    BBox{Min: NewVector(1, 0), Max: NewVector(2, 1)},
			expected: false,
		},
		{
			name:     "TouchingCorner",
			b:        BBox{Min: NewVector(0, 0), Max: NewVector(1, 1)},
			other:    BBox{Min: NewVector(1, 1), Max: NewVector(2, 2)},
			expected: false,
		},
		{
			name:     "Contained",
			b:        BBox{Min: NewVector(0, 0), Max: NewVector(4, 4)},
			other:    BBox{Min: NewVector(1, 1), Max: NewVector(2, 2)},
			expected: true,
		},
		{
			name:     "ZeroExtentInside",
			b:        BBox{Min: NewVector(1, 1), Max: NewVector(1, 1)},
			other:    BBox{Min: NewVector(0, 0), Max: NewVector(2, 2)},
			expected: true,
		},
		{
			name:     "ZeroExtentCoincident",
			b:        BBox{Min: NewVector(1, 1), Max: NewVector(1, 1)},
			other:    BBox{Min: NewVector(1, 1), Max: NewVector(1, 1)},
			expected: false,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := test.b.Intersects(test.other); got != test.expected {
				t.Errorf("got: %v, expected: %v", got, test.expected)
			}
			if mirrored := test.other.Intersects(test.b); mirrored != test.expected {
				t.Errorf("mirrored got: %v, expected: %v", mirrored, test.expected)
			}
		})
	}
}

func TestBBoxCenterSize(t *testing.T) {
	b := BBox{Min: NewVector(0, 2), Max: NewVector(2, 4)}
	if got := b.Center(); !got.Equal(NewVector(1, 3)) {
		t.Errorf("got: %v, expected: %v", got, NewVector(1, 3))
	}
	if got := b.Size(); !got.Equal(NewVector(2, 2)) {
		t.Errorf("got: %v, expected: %v", got, NewVector(2, 2))
	}
}

func TestBBoxString(t *testing.T) {
	b := BBox{Min: NewVector(0, 0), Max: NewVector(16, 16)}
	expected := "Min[Vector2(0,0)] Max[Vector2(16,16)]"
	if got := b.String(); got != expected {
		t.Errorf("got: %v, expected: %v", got, expected)
	}
}
