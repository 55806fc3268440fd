package spatialtree

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

// buildDumpTree assembles the reference tree shared by the text and
// VRML dump tests: the first dim coordinates of a fixed set of boxes
// added to a unit root that grows to [0,16] along the way.
func buildDumpTree(t *testing.T, dim int) *Tree {
	t.Helper()
	tree, err := New(geom.BBox{
		Min: sub(geom.NewVector(0, 0), dim),
		Max: sub(geom.NewVector(1, 1), dim),
	})
	if err != nil {
		t.Fatalf("unable to create tree: %v", err)
	}
	boxes := [][2]geom.Vector{
		{geom.NewVector(0.1, 0.1), geom.NewVector(0.2, 0.2)},
		{geom.NewVector(1, 2), geom.NewVector(1.75, 4)},
		{geom.NewVector(1.5, 3), geom.NewVector(2, 5)},
		{geom.NewVector(9, 9), geom.NewVector(9.1, 9.1)},
	}
	for _, corners := range boxes {
		b := newTestBox(t, sub(corners[0], dim), sub(corners[1], dim))
		if err := tree.Add(b); err != nil {
			t.Fatalf("unable to add box: %v", err)
		}
	}
	return tree
}

func firstDiff(got, expected string) string {
	n := len(got)
	if len(expected) < n {
		n = len(expected)
	}
	for i := 0; i < n; i++ {
		if got[i] != expected[i] {
			line := 1 + bytes.Count([]byte(got[:i]), []byte("\n"))
			return fmt.Sprintf("first difference at byte %d, line %d", i, line)
		}
	}
	return fmt.Sprintf("lengths differ, got %d bytes, expected %d", len(got), len(expected))
}

func TestTreePrint(t *testing.T) {
	tests := []struct {
		name     string
		dim      int
		expected string
	}{
		{name: "1D", dim: 1, expected: printDump1D},
		{name: "2D", dim: 2, expected: printDump2D},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			tree := buildDumpTree(t, test.dim)
			var buf bytes.Buffer
			if err := tree.Print(&buf); err != nil {
				t.Fatalf("unable to print: %v", err)
			}
			if got := buf.String(); got != test.expected {
				t.Errorf("text dump mismatch, %s\ngot:\n%s\nexpected:\n%s", firstDiff(got, test.expected), got, test.expected)
			}
		})
	}
}

const printDump1D = `+ Min[Vector1(0)] Max[Vector1(16)]
  + Min[Vector1(8)] Max[Vector1(16)]
    + Min[Vector1(12)] Max[Vector1(16)]
    + Min[Vector1(8)] Max[Vector1(12)]
      + Min[Vector1(10)] Max[Vector1(12)]
      + Min[Vector1(8)] Max[Vector1(10)]
        + Min[Vector1(9)] Max[Vector1(10)]
          + Min[Vector1(9.5)] Max[Vector1(10)]
          + Min[Vector1(9)] Max[Vector1(9.5)]
            + Min[Vector1(9.25)] Max[Vector1(9.5)]
            + Min[Vector1(9)] Max[Vector1(9.25)]
              + Min[Vector1(9.125)] Max[Vector1(9.25)]
              + Min[Vector1(9)] Max[Vector1(9.125)]
                Min[Vector1(9)] Max[Vector1(9.1)]
        + Min[Vector1(8)] Max[Vector1(9)]
  + Min[Vector1(0)] Max[Vector1(8)]
    + Min[Vector1(4)] Max[Vector1(8)]
    + Min[Vector1(0)] Max[Vector1(4)]
      + Min[Vector1(2)] Max[Vector1(4)]
      + Min[Vector1(0)] Max[Vector1(2)]
        + Min[Vector1(1)] Max[Vector1(2)]
          Min[Vector1(1)] Max[Vector1(1.75)]
          + Min[Vector1(1.5)] Max[Vector1(2)]
            Min[Vector1(1.5)] Max[Vector1(2)]
          + Min[Vector1(1)] Max[Vector1(1.5)]
        + Min[Vector1(0)] Max[Vector1(1)]
          + Min[Vector1(0.5)] Max[Vector1(1)]
          + Min[Vector1(0)] Max[Vector1(0.5)]
            + Min[Vector1(0.25)] Max[Vector1(0.5)]
            + Min[Vector1(0)] Max[Vector1(0.25)]
              Min[Vector1(0.1)] Max[Vector1(0.2)]
`

const printDump2D = `+ Min[Vector2(0,0)] Max[Vector2(16,16)]
  + Min[Vector2(8,8)] Max[Vector2(16,16)]
    + Min[Vector2(12,12)] Max[Vector2(16,16)]
    + Min[Vector2(12,8)] Max[Vector2(16,12)]
    + Min[Vector2(8,12)] Max[Vector2(12,16)]
    + Min[Vector2(8,8)] Max[Vector2(12,12)]
      + Min[Vector2(10,10)] Max[Vector2(12,12)]
      + Min[Vector2(10,8)] Max[Vector2(12,10)]
      + Min[Vector2(8,10)] Max[Vector2(10,12)]
      + Min[Vector2(8,8)] Max[Vector2(10,10)]
        + Min[Vector2(9,9)] Max[Vector2(10,10)]
          + Min[Vector2(9.5,9.5)] Max[Vector2(10,10)]
          + Min[Vector2(9.5,9)] Max[Vector2(10,9.5)]
          + Min[Vector2(9,9.5)] Max[Vector2(9.5,10)]
          + Min[Vector2(9,9)] Max[Vector2(9.5,9.5)]
            + Min[Vector2(9.25,9.25)] Max[Vector2(9.5,9.5)]
            + Min[Vector2(9.25,9)] Max[Vector2(9.5,9.25)]
            + Min[Vector2(9,9.25)] Max[Vector2(9.25,9.5)]
            + Min[Vector2(9,9)] Max[Vector2(9.25,9.25)]
              + Min[Vector2(9.125,9.125)] Max[Vector2(9.25,9.25)]
              + Min[Vector2(9.125,9)] Max[Vector2(9.25,9.125)]
              + Min[Vector2(9,9.125)] Max[Vector2(9.125,9.25)]
              + Min[Vector2(9,9)] Max[Vector2(9.125,9.125)]
                Min[Vector2(9,9)] Max[Vector2(9.1,9.1)]
        + Min[Vector2(9,8)] Max[Vector2(10,9)]
        + Min[Vector2(8,9)] Max[Vector2(9,10)]
        + Min[Vector2(8,8)] Max[Vector2(9,9)]
  + Min[Vector2(8,0)] Max[Vector2(16,8)]
  + Min[Vector2(0,8)] Max[Vector2(8,16)]
  + Min[Vector2(0,0)] Max[Vector2(8,8)]
    Min[Vector2(1.5,3)] Max[Vector2(2,5)]
    + Min[Vector2(4,4)] Max[Vector2(8,8)]
    + Min[Vector2(4,0)] Max[Vector2(8,4)]
    + Min[Vector2(0,4)] Max[Vector2(4,8)]
    + Min[Vector2(0,0)] Max[Vector2(4,4)]
      + Min[Vector2(2,2)] Max[Vector2(4,4)]
      + Min[Vector2(2,0)] Max[Vector2(4,2)]
      + Min[Vector2(0,2)] Max[Vector2(2,4)]
        Min[Vector2(1,2)] Max[Vector2(1.75,4)]
      + Min[Vector2(0,0)] Max[Vector2(2,2)]
        + Min[Vector2(1,1)] Max[Vector2(2,2)]
        + Min[Vector2(1,0)] Max[Vector2(2,1)]
        + Min[Vector2(0,1)] Max[Vector2(1,2)]
        + Min[Vector2(0,0)] Max[Vector2(1,1)]
          + Min[Vector2(0.5,0.5)] Max[Vector2(1,1)]
          + Min[Vector2(0.5,0)] Max[Vector2(1,0.5)]
          + Min[Vector2(0,0.5)] Max[Vector2(0.5,1)]
          + Min[Vector2(0,0)] Max[Vector2(0.5,0.5)]
            + Min[Vector2(0.25,0.25)] Max[Vector2(0.5,0.5)]
            + Min[Vector2(0.25,0)] Max[Vector2(0.5,0.25)]
            + Min[Vector2(0,0.25)] Max[Vector2(0.25,0.5)]
            + Min[Vector2(0,0)] Max[Vector2(0.25,0.25)]
              Min[Vector2(0.1,0.1)] Max[Vector2(0.2,0.2)]
`
