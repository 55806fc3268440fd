package integration

import "time"

type Measure struct {
	ImageID       uint64  `json:"imageId"`
	Serial        string  `json:"serial"`
	Col           float64 `json:"col"`
	Row           float64 `json:"row"`
	ColSigma      float64 `json:"colSigma"`
	RowSigma      float64 `json:"rowSigma"`
	EphemerisTime float64 `json:"ephemerisTime"`
}

type Point struct {
	Type      string    `json:"type"`
	Position  []float64 `json:"position"`
	Sigma     []float64 `json:"sigma"`
	CreatedAt time.Time `json:"createdAt"`
	Measures  []Measure `json:"measures"`
}

type IngestRequest struct {
	NetworkID string  `json:"networkId"`
	Points    []Point `json:"points"`
}

type Location struct {
	Point []float64 `json:"point"`
}

type QueryRequest struct {
	NetworkID string     `json:"networkId"`
	Data      []Location `json:"data"`
}
