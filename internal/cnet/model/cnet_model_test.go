package model

import (
	"testing"

	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

func TestControlMeasureEqual(t *testing.T) {
	t.Parallel()
	base := NewControlMeasure(64.5, 128.25, 0.5, 0.5, 3)
	base.EphemerisTime = 1843.5

	tests := []struct {
		name     string
		mutate   func(m *ControlMeasure)
		expected bool
	}{
		{
			name:     "identical",
			mutate:   func(m *ControlMeasure) {},
			expected: true,
		},
		{
			name: "bookkeeping_differs",
			mutate: func(m *ControlMeasure) {
				m.Serial = "MOC-42"
				m.ChooserName = "autopick"
				m.Ignore = true
				m.Type = MeasureAutomatic
			},
			expected: true,
		},
		{
			name:     "position_differs",
			mutate:   func(m *ControlMeasure) { m.Col += 0.25 },
			expected: false,
		},
		{
			name:     "sigma_differs",
			mutate:   func(m *ControlMeasure) { m.RowSigma = 1.5 },
			expected: false,
		},
		{
			name:     "image_differs",
			mutate:   func(m *ControlMeasure) { m.ImageID = 4 },
			expected: false,
		},
		{
			name:     "ephemeris_differs",
			mutate:   func(m *ControlMeasure) { m.EphemerisTime += 1 },
			expected: false,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			other := base
			test.mutate(&other)
			if got := base.Equal(other); got != test.expected {
				t.Errorf("comparing measures, got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestControlMeasureDominant(t *testing.T) {
	t.Parallel()
	m := NewControlMeasure(10, 20, 1, 1, 0)
	m.FocalPlaneX, m.FocalPlaneY = -0.25, 0.75

	if got := m.Dominant(); !got.Equal(geom.NewVector(-0.25, 0.75)) {
		t.Errorf("dominant vector got: %v, expected: %v", got, geom.NewVector(-0.25, 0.75))
	}
	m.PixelsDominant = true
	if got := m.Dominant(); !got.Equal(geom.NewVector(10, 20)) {
		t.Errorf("dominant vector got: %v, expected: %v", got, geom.NewVector(10, 20))
	}
}

func TestControlPointFind(t *testing.T) {
	t.Parallel()
	m0 := NewControlMeasure(1, 2, 0.1, 0.1, 0)
	m1 := NewControlMeasure(3, 4, 0.1, 0.1, 1)
	p := NewControlPoint("net-a", PointTie, geom.NewVector(0, 0, 0), geom.NewVector(1, 1, 1), m0, m1)

	if got := p.Find(m1); got != 1 {
		t.Errorf("index of known measure got: %v, expected: %v", got, 1)
	}
	absent := NewControlMeasure(9, 9, 0.1, 0.1, 2)
	if got := p.Find(absent); got != -1 {
		t.Errorf("index of unknown measure got: %v, expected: %v", got, -1)
	}

	p.DeleteMeasure(1)
	if got := p.Size(); got != 1 {
		t.Errorf("measure count after delete got: %v, expected: %v", got, 1)
	}
	p.DeleteMeasure(5)
	if got := p.Size(); got != 1 {
		t.Errorf("measure count after out of range delete got: %v, expected: %v", got, 1)
	}
}

func TestControlPointFootprint(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		position    geom.Vector
		sigma       geom.Vector
		expectedMin geom.Vector
		expectedMax geom.Vector
	}{
		{
			name:        "uniform_sigma",
			position:    geom.NewVector(10, 20),
			sigma:       geom.NewVector(1, 2),
			expectedMin: geom.NewVector(9, 18),
			expectedMax: geom.NewVector(11, 22),
		},
		{
			name:        "missing_sigma_axis",
			position:    geom.NewVector(10, 20, 30),
			sigma:       geom.NewVector(1),
			expectedMin: geom.NewVector(9, 20, 30),
			expectedMax: geom.NewVector(11, 20, 30),
		},
		{
			name:        "zero_sigma",
			position:    geom.NewVector(5, 5),
			sigma:       geom.NewVector(0, 0),
			expectedMin: geom.NewVector(5, 5),
			expectedMax: geom.NewVector(5, 5),
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			p := NewControlPoint("net-a", PointGround, test.position, test.sigma)
			box := p.Footprint()
			if !box.Min.Equal(test.expectedMin) || !box.Max.Equal(test.expectedMax) {
				t.Errorf("footprint got: %v, expected: Min[%v] Max[%v]", box, test.expectedMin, test.expectedMax)
			}
		})
	}
}

func TestControlNetworkCounts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		networkType  NetworkType
		expectedGCPs int
		expectedTies int
	}{
		{name: "image_to_ground", networkType: NetworkImageToGround, expectedGCPs: 2, expectedTies: 3},
		{name: "image_to_image", networkType: NetworkImageToImage, expectedGCPs: 0, expectedTies: 3},
		{name: "singleton", networkType: NetworkSingleton, expectedGCPs: 0, expectedTies: 3},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			net := NewControlNetwork("net-a", test.networkType)
			for i := 0; i < 2; i++ {
				net.AddPoint(NewControlPoint(net.NetworkID, PointGround, geom.NewVector(float64(i), 0), geom.NewVector(1, 1)))
			}
			for i := 0; i < 3; i++ {
				net.AddPoint(NewControlPoint(net.NetworkID, PointTie, geom.NewVector(float64(i), 1), geom.NewVector(1, 1)))
			}
			if got := net.NumGroundControlPoints(); got != test.expectedGCPs {
				t.Errorf("ground control point count got: %v, expected: %v", got, test.expectedGCPs)
			}
			if got := net.NumTiePoints(); got != test.expectedTies {
				t.Errorf("tie point count got: %v, expected: %v", got, test.expectedTies)
			}
		})
	}
}

func TestControlNetworkFindMeasure(t *testing.T) {
	t.Parallel()
	net := NewControlNetwork("net-a", NetworkImageToImage)
	m := NewControlMeasure(12, 14, 0.5, 0.5, 1)
	net.AddPoint(NewControlPoint(net.NetworkID, PointTie, geom.NewVector(0, 0, 0), geom.NewVector(1, 1, 1)))
	net.AddPoint(NewControlPoint(net.NetworkID, PointTie, geom.NewVector(1, 1, 1), geom.NewVector(1, 1, 1), m))

	if got := net.FindMeasure(m); got != 1 {
		t.Errorf("point index for known measure got: %v, expected: %v", got, 1)
	}
	absent := NewControlMeasure(99, 99, 0.5, 0.5, 7)
	if got := net.FindMeasure(absent); got != -1 {
		t.Errorf("point index for unknown measure got: %v, expected: %v", got, -1)
	}

	net.DeletePoint(1)
	if got := net.Size(); got != 1 {
		t.Errorf("point count after delete got: %v, expected: %v", got, 1)
	}
}

func TestControlNetworkImageNames(t *testing.T) {
	t.Parallel()
	net := NewControlNetwork("net-a", NetworkImageToImage)
	if got := net.AddImageName("left.cub"); got != 0 {
		t.Errorf("first image id got: %v, expected: %v", got, 0)
	}
	if got := net.AddImageName("right.cub"); got != 1 {
		t.Errorf("second image id got: %v, expected: %v", got, 1)
	}

	m := NewControlMeasure(0, 0, 1, 1, 1)
	if got := net.ImageName(m); got != "right.cub" {
		t.Errorf("image name got: %v, expected: %v", got, "right.cub")
	}
	m.ImageID = 5
	if got := net.ImageName(m); got != "" {
		t.Errorf("image name for unknown id got: %q, expected empty", got)
	}
}

func TestControlNetworkDefaults(t *testing.T) {
	t.Parallel()
	net := NewControlNetwork("net-a", NetworkSingleton)
	if net.TargetName != "Unknown" || net.Description != "Null" || net.UserName != "VW" {
		t.Errorf(
			"network defaults got: %v/%v/%v, expected: Unknown/Null/VW",
			net.TargetName, net.Description, net.UserName,
		)
	}
	if net.CreatedAt.IsZero() || net.ModifiedAt.IsZero() {
		t.Errorf("network timestamps got zero values, expected set")
	}
}
