package cnet

import (
	"fmt"
	"io"
	"time"

	xdr "github.com/davecgh/go-xdr/xdr2"
	"github.com/google/uuid"

	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

// Binary interchange files are XDR encoded: a header of magic "VWCN"
// and a format version, then one network record. Field order in the
// wire structs below is the file layout, do not reorder.
const (
	binaryMagic   uint32 = 0x5657434e
	binaryVersion uint32 = 1
)

var (
	ErrBadMagic   = fmt.Errorf("file is not a control network")
	ErrBadVersion = fmt.Errorf("control network version not supported")
)

type wireHeader struct {
	Magic   uint32
	Version uint32
}

type wireMeasure struct {
	Serial         string
	Col            float64
	Row            float64
	ColSigma       float64
	RowSigma       float64
	Diameter       float64
	FocalPlaneX    float64
	FocalPlaneY    float64
	EphemerisTime  float64
	ImageID        uint64
	DateTime       string
	ChooserName    string
	Description    string
	Ignore         bool
	PixelsDominant bool
	Type           uint32
}

type wirePoint struct {
	ID       string
	Type     uint32
	Ignore   bool
	Position []float64
	Sigma    []float64
	Measures []wireMeasure
}

type wireNetwork struct {
	NetworkID   string
	Type        uint32
	TargetName  string
	Description string
	UserName    string
	Created     string
	Modified    string
	ImageNames  []string
	Points      []wirePoint
}

func WriteBinary(w io.Writer, network model.ControlNetwork) error {
	enc := xdr.NewEncoder(w)
	if _, err := enc.Encode(wireHeader{Magic: binaryMagic, Version: binaryVersion}); err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	if _, err := enc.Encode(networkToWire(network)); err != nil {
		return fmt.Errorf("encoding network: %w", err)
	}
	return nil
}

func ReadBinary(r io.Reader) (*model.ControlNetwork, error) {
	dec := xdr.NewDecoder(r)
	var header wireHeader
	if _, err := dec.Decode(&header); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	if header.Magic != binaryMagic {
		return nil, ErrBadMagic
	}
	if header.Version > binaryVersion {
		return nil, ErrBadVersion
	}

	var wire wireNetwork
	if _, err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("decoding network: %w", err)
	}
	return networkFromWire(wire)
}

func networkToWire(network model.ControlNetwork) wireNetwork {
	wire := wireNetwork{
		NetworkID:   network.NetworkID,
		Type:        uint32(network.Type),
		TargetName:  network.TargetName,
		Description: network.Description,
		UserName:    network.UserName,
		Created:     network.CreatedAt.UTC().Format(time.RFC3339Nano),
		Modified:    network.ModifiedAt.UTC().Format(time.RFC3339Nano),
		ImageNames:  network.ImageNames,
		Points:      make([]wirePoint, 0, len(network.Points)),
	}
	for _, p := range network.Points {
		wp := wirePoint{
			ID:       p.ID.String(),
			Type:     uint32(p.Type),
			Ignore:   p.Ignore,
			Position: []float64(p.Position),
			Sigma:    []float64(p.Sigma),
			Measures: make([]wireMeasure, 0, len(p.Measures)),
		}
		for _, m := range p.Measures {
			wp.Measures = append(wp.Measures, wireMeasure{
				Serial:         m.Serial,
				Col:            m.Col,
				Row:            m.Row,
				ColSigma:       m.ColSigma,
				RowSigma:       m.RowSigma,
				Diameter:       m.Diameter,
				FocalPlaneX:    m.FocalPlaneX,
				FocalPlaneY:    m.FocalPlaneY,
				EphemerisTime:  m.EphemerisTime,
				ImageID:        m.ImageID,
				DateTime:       m.DateTime,
				ChooserName:    m.ChooserName,
				Description:    m.Description,
				Ignore:         m.Ignore,
				PixelsDominant: m.PixelsDominant,
				Type:           uint32(m.Type),
			})
		}
		wire.Points = append(wire.Points, wp)
	}
	return wire
}

func networkFromWire(wire wireNetwork) (*model.ControlNetwork, error) {
	created, err := time.Parse(time.RFC3339Nano, wire.Created)
	if err != nil {
		return nil, fmt.Errorf("parsing created time: %w", err)
	}
	modified, err := time.Parse(time.RFC3339Nano, wire.Modified)
	if err != nil {
		return nil, fmt.Errorf("parsing modified time: %w", err)
	}

	network := &model.ControlNetwork{
		NetworkID:   wire.NetworkID,
		Type:        model.NetworkType(wire.Type),
		TargetName:  wire.TargetName,
		Description: wire.Description,
		UserName:    wire.UserName,
		CreatedAt:   created,
		ModifiedAt:  modified,
		ImageNames:  wire.ImageNames,
		Points:      make([]model.ControlPoint, 0, len(wire.Points)),
	}
	for _, wp := range wire.Points {
		id, err := uuid.Parse(wp.ID)
		if err != nil {
			return nil, fmt.Errorf("parsing point id %q: %w", wp.ID, err)
		}
		p := model.ControlPoint{
			ID:        id,
			NetworkID: wire.NetworkID,
			Type:      model.PointType(wp.Type),
			Ignore:    wp.Ignore,
			Position:  geom.Vector(wp.Position),
			Sigma:     geom.Vector(wp.Sigma),
			Measures:  make([]model.ControlMeasure, 0, len(wp.Measures)),
			Status:    model.StatusNew,
			CreatedAt: time.Now(),
		}
		for _, wm := range wp.Measures {
			p.Measures = append(p.Measures, model.ControlMeasure{
				Serial:         wm.Serial,
				Col:            wm.Col,
				Row:            wm.Row,
				ColSigma:       wm.ColSigma,
				RowSigma:       wm.RowSigma,
				Diameter:       wm.Diameter,
				FocalPlaneX:    wm.FocalPlaneX,
				FocalPlaneY:    wm.FocalPlaneY,
				EphemerisTime:  wm.EphemerisTime,
				ImageID:        wm.ImageID,
				DateTime:       wm.DateTime,
				ChooserName:    wm.ChooserName,
				Description:    wm.Description,
				Ignore:         wm.Ignore,
				PixelsDominant: wm.PixelsDominant,
				Type:           model.MeasureType(wm.Type),
			})
		}
		network.Points = append(network.Points, p)
	}
	return network, nil
}
