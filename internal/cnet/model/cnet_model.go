package model

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/fatelord/visionworkbench/pkg/container/spatialtree"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

type Status uint8

const (
	StatusNew Status = iota
	StatusIndexed
)

type MeasureType uint8

const (
	MeasureUnmeasured MeasureType = iota
	MeasureManual
	MeasureEstimated
	MeasureAutomatic
	MeasureValidatedManual
	MeasureValidatedAutomatic
)

type PointType uint8

const (
	PointGround PointType = iota
	PointTie
)

type NetworkType uint8

const (
	// Singleton networks mark standalone points, ImageToImage networks
	// carry tie points only, ImageToGround networks mix in GCPs.
	NetworkSingleton NetworkType = iota
	NetworkImageToImage
	NetworkImageToGround
)

func NewControlMeasure(col, row, colSigma, rowSigma float64, imageID uint64) ControlMeasure {
	return ControlMeasure{
		Col:      col,
		Row:      row,
		ColSigma: colSigma,
		RowSigma: rowSigma,
		ImageID:  imageID,
		Type:     MeasureUnmeasured,
	}
}

type ControlMeasure struct {
	Serial         string      `json:"serial"`
	Col            float64     `json:"col"`
	Row            float64     `json:"row"`
	ColSigma       float64     `json:"colSigma"`
	RowSigma       float64     `json:"rowSigma"`
	Diameter       float64     `json:"diameter"`
	FocalPlaneX    float64     `json:"focalPlaneX"`
	FocalPlaneY    float64     `json:"focalPlaneY"`
	EphemerisTime  float64     `json:"ephemerisTime"`
	ImageID        uint64      `json:"imageId"`
	DateTime       string      `json:"dateTime"`
	ChooserName    string      `json:"chooserName"`
	Description    string      `json:"description"`
	Ignore         bool        `json:"ignore"`
	PixelsDominant bool        `json:"pixelsDominant"`
	Type           MeasureType `json:"type"`
}

func (m ControlMeasure) Position() geom.Vector {
	return geom.NewVector(m.Col, m.Row)
}

func (m ControlMeasure) Sigma() geom.Vector {
	return geom.NewVector(m.ColSigma, m.RowSigma)
}

func (m ControlMeasure) SigmaMagnitude() float64 {
	return math.Sqrt(m.ColSigma*m.ColSigma + m.RowSigma*m.RowSigma)
}

func (m ControlMeasure) Dominant() geom.Vector {
	if m.PixelsDominant {
		return m.Position()
	}
	return geom.NewVector(m.FocalPlaneX, m.FocalPlaneY)
}

// Equal reports measurement identity: same image, same instant, same
// pixel location and uncertainty. Bookkeeping fields do not count.
func (m ControlMeasure) Equal(o ControlMeasure) bool {
	return m.Col == o.Col && m.Row == o.Row &&
		m.ColSigma == o.ColSigma && m.RowSigma == o.RowSigma &&
		m.ImageID == o.ImageID && m.EphemerisTime == o.EphemerisTime
}

func NewControlPoint(networkID string, typ PointType, position, sigma geom.Vector, measures ...ControlMeasure) ControlPoint {
	return ControlPoint{
		ID:        uuid.New(),
		NetworkID: networkID,
		Type:      typ,
		Position:  position.Copy(),
		Sigma:     sigma.Copy(),
		Measures:  measures,
		Status:    StatusNew,
		CreatedAt: time.Now(),
	}
}

var _ spatialtree.Primitive = (*ControlPoint)(nil)

type ControlPoint struct {
	ID        uuid.UUID        `json:"id"`
	NetworkID string           `json:"networkId"`
	Type      PointType        `json:"type"`
	Ignore    bool             `json:"ignore"`
	Position  geom.Vector      `json:"position"`
	Sigma     geom.Vector      `json:"sigma"`
	Measures  []ControlMeasure `json:"measures"`
	Status    Status           `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (p ControlPoint) IsIndexed() bool {
	return p.Status == StatusIndexed
}

func (p ControlPoint) IsNew() bool {
	return p.Status == StatusNew
}

func (p ControlPoint) Size() int {
	return len(p.Measures)
}

func (p *ControlPoint) AddMeasure(m ControlMeasure) {
	p.Measures = append(p.Measures, m)
}

func (p *ControlPoint) AddMeasures(ms []ControlMeasure) {
	p.Measures = append(p.Measures, ms...)
}

func (p *ControlPoint) DeleteMeasure(index int) {
	if index < 0 || index >= len(p.Measures) {
		return
	}
	p.Measures = append(p.Measures[:index], p.Measures[index+1:]...)
}

// Find returns the index of the first measure equal to query, -1 if none.
func (p ControlPoint) Find(query ControlMeasure) int {
	for i, m := range p.Measures {
		if m.Equal(query) {
			return i
		}
	}
	return -1
}

// Footprint is the uncertainty box around the point, position widened
// by sigma on each axis. A missing sigma axis contributes no extent.
func (p ControlPoint) Footprint() geom.BBox {
	min := make(geom.Vector, len(p.Position))
	max := make(geom.Vector, len(p.Position))
	for i, c := range p.Position {
		var s float64
		if i < len(p.Sigma) {
			s = p.Sigma[i]
		}
		min[i] = c - s
		max[i] = c + s
	}
	return geom.BBox{Min: min, Max: max}
}

func (p ControlPoint) BBox() geom.BBox {
	return p.Footprint()
}

func (p ControlPoint) Contains(point geom.Vector) bool {
	return p.Footprint().Contains(point)
}

func NewControlNetwork(networkID string, typ NetworkType) *ControlNetwork {
	now := time.Now()
	return &ControlNetwork{
		NetworkID:   networkID,
		Type:        typ,
		TargetName:  "Unknown",
		Description: "Null",
		UserName:    "VW",
		CreatedAt:   now,
		ModifiedAt:  now,
	}
}

type ControlNetwork struct {
	NetworkID   string         `json:"networkId"`
	Type        NetworkType    `json:"type"`
	TargetName  string         `json:"targetName"`
	Description string         `json:"description"`
	UserName    string         `json:"userName"`
	CreatedAt   time.Time      `json:"createdAt"`
	ModifiedAt  time.Time      `json:"modifiedAt"`
	ImageNames  []string       `json:"imageNames"`
	Points      []ControlPoint `json:"points,omitempty"`
}

func (n ControlNetwork) Size() int {
	return len(n.Points)
}

// NumGroundControlPoints counts GCPs. Only ImageToGround networks may
// carry them, every other type reports zero.
func (n ControlNetwork) NumGroundControlPoints() int {
	if n.Type != NetworkImageToGround {
		return 0
	}
	var count int
	for _, p := range n.Points {
		if p.Type == PointGround {
			count++
		}
	}
	return count
}

func (n ControlNetwork) NumTiePoints() int {
	var count int
	for _, p := range n.Points {
		if p.Type == PointTie {
			count++
		}
	}
	return count
}

func (n *ControlNetwork) AddPoint(p ControlPoint) {
	n.Points = append(n.Points, p)
	n.ModifiedAt = time.Now()
}

func (n *ControlNetwork) AddPoints(ps []ControlPoint) {
	n.Points = append(n.Points, ps...)
	n.ModifiedAt = time.Now()
}

func (n *ControlNetwork) DeletePoint(index int) {
	if index < 0 || index >= len(n.Points) {
		return
	}
	n.Points = append(n.Points[:index], n.Points[index+1:]...)
	n.ModifiedAt = time.Now()
}

// FindMeasure returns the index of the point holding a measure equal to
// query, -1 if no point does.
func (n ControlNetwork) FindMeasure(query ControlMeasure) int {
	for i, p := range n.Points {
		if p.Find(query) != -1 {
			return i
		}
	}
	return -1
}

// AddImageName registers an image and returns its id for measures.
func (n *ControlNetwork) AddImageName(name string) uint64 {
	n.ImageNames = append(n.ImageNames, name)
	return uint64(len(n.ImageNames) - 1)
}

func (n ControlNetwork) ImageName(m ControlMeasure) string {
	if m.ImageID >= uint64(len(n.ImageNames)) {
		return ""
	}
	return n.ImageNames[m.ImageID]
}
