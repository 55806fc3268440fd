package cnet

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

// CSV interchange carries one row per measure with the owning point and
// network columns repeated. A point without measures emits a single row
// with the measure columns blank. Image names and timestamps have no
// column here, the binary format keeps them.
const (
	colNetworkID = iota
	colNetworkType
	colTargetName
	colDescription
	colUserName
	colPointID
	colPointType
	colPointIgnore
	colPosition
	colSigma
	colSerial
	colImageID
	colCol
	colRow
	colColSigma
	colRowSigma
	colDiameter
	colFocalPlaneX
	colFocalPlaneY
	colEphemerisTime
	colDateTime
	colChooserName
	colMeasureDescription
	colMeasureIgnore
	colPixelsDominant
	colMeasureType

	csvColumns
)

var csvHeader = []string{
	"network_id", "network_type", "target_name", "description", "user_name",
	"point_id", "point_type", "point_ignore", "position", "sigma",
	"serial", "image_id", "col", "row", "col_sigma", "row_sigma",
	"diameter", "focal_plane_x", "focal_plane_y", "ephemeris_time",
	"date_time", "chooser_name", "measure_description", "measure_ignore",
	"pixels_dominant", "measure_type",
}

var ErrBadHeader = fmt.Errorf("control network csv header mismatch")

func WriteCSV(w io.Writer, network model.ControlNetwork) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, p := range network.Points {
		base := make([]string, csvColumns)
		base[colNetworkID] = network.NetworkID
		base[colNetworkType] = strconv.FormatUint(uint64(network.Type), 10)
		base[colTargetName] = network.TargetName
		base[colDescription] = network.Description
		base[colUserName] = network.UserName
		base[colPointID] = p.ID.String()
		base[colPointType] = strconv.FormatUint(uint64(p.Type), 10)
		base[colPointIgnore] = strconv.FormatBool(p.Ignore)
		base[colPosition] = formatVector(p.Position)
		base[colSigma] = formatVector(p.Sigma)

		if len(p.Measures) == 0 {
			if err := cw.Write(base); err != nil {
				return fmt.Errorf("writing point row: %w", err)
			}
			continue
		}
		for _, m := range p.Measures {
			row := make([]string, csvColumns)
			copy(row, base)
			row[colSerial] = m.Serial
			row[colImageID] = strconv.FormatUint(m.ImageID, 10)
			row[colCol] = geom.Ftoa(m.Col)
			row[colRow] = geom.Ftoa(m.Row)
			row[colColSigma] = geom.Ftoa(m.ColSigma)
			row[colRowSigma] = geom.Ftoa(m.RowSigma)
			row[colDiameter] = geom.Ftoa(m.Diameter)
			row[colFocalPlaneX] = geom.Ftoa(m.FocalPlaneX)
			row[colFocalPlaneY] = geom.Ftoa(m.FocalPlaneY)
			row[colEphemerisTime] = geom.Ftoa(m.EphemerisTime)
			row[colDateTime] = m.DateTime
			row[colChooserName] = m.ChooserName
			row[colMeasureDescription] = m.Description
			row[colMeasureIgnore] = strconv.FormatBool(m.Ignore)
			row[colPixelsDominant] = strconv.FormatBool(m.PixelsDominant)
			row[colMeasureType] = strconv.FormatUint(uint64(m.Type), 10)
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing measure row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (*model.ControlNetwork, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = csvColumns

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if header[colNetworkID] != csvHeader[colNetworkID] || header[colPointID] != csvHeader[colPointID] {
		return nil, ErrBadHeader
	}

	var network *model.ControlNetwork
	index := make(map[string]int)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		line++

		rp := &rowParser{row: row}
		if network == nil {
			networkType := rp.uint("network_type", colNetworkType)
			if rp.err != nil {
				return nil, fmt.Errorf("row %d: %w", line, rp.err)
			}
			network = model.NewControlNetwork(row[colNetworkID], model.NetworkType(networkType))
			network.TargetName = row[colTargetName]
			network.Description = row[colDescription]
			network.UserName = row[colUserName]
		} else if row[colNetworkID] != network.NetworkID {
			return nil, fmt.Errorf("row %d: mixed network ids %q and %q", line, row[colNetworkID], network.NetworkID)
		}

		pid := row[colPointID]
		idx, ok := index[pid]
		if !ok {
			id, err := uuid.Parse(pid)
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing point id: %w", line, err)
			}
			p := model.ControlPoint{
				ID:        id,
				NetworkID: network.NetworkID,
				Type:      model.PointType(rp.uint("point_type", colPointType)),
				Ignore:    rp.bool("point_ignore", colPointIgnore),
				Position:  rp.vector("position", colPosition),
				Sigma:     rp.vector("sigma", colSigma),
				Status:    model.StatusNew,
				CreatedAt: time.Now(),
			}
			if rp.err != nil {
				return nil, fmt.Errorf("row %d: %w", line, rp.err)
			}
			network.Points = append(network.Points, p)
			idx = len(network.Points) - 1
			index[pid] = idx
		}

		// A blank image id marks a row carrying the point alone.
		if row[colImageID] == "" {
			continue
		}
		m := model.ControlMeasure{
			Serial:         row[colSerial],
			ImageID:        rp.uint("image_id", colImageID),
			Col:            rp.float("col", colCol),
			Row:            rp.float("row", colRow),
			ColSigma:       rp.float("col_sigma", colColSigma),
			RowSigma:       rp.float("row_sigma", colRowSigma),
			Diameter:       rp.float("diameter", colDiameter),
			FocalPlaneX:    rp.float("focal_plane_x", colFocalPlaneX),
			FocalPlaneY:    rp.float("focal_plane_y", colFocalPlaneY),
			EphemerisTime:  rp.float("ephemeris_time", colEphemerisTime),
			DateTime:       row[colDateTime],
			ChooserName:    row[colChooserName],
			Description:    row[colMeasureDescription],
			Ignore:         rp.bool("measure_ignore", colMeasureIgnore),
			PixelsDominant: rp.bool("pixels_dominant", colPixelsDominant),
			Type:           model.MeasureType(rp.uint("measure_type", colMeasureType)),
		}
		if rp.err != nil {
			return nil, fmt.Errorf("row %d: %w", line, rp.err)
		}
		network.Points[idx].Measures = append(network.Points[idx].Measures, m)
	}
	if network == nil {
		return nil, fmt.Errorf("control network csv has no rows")
	}
	return network, nil
}

// rowParser keeps the first parse error and turns later calls into
// no-ops so a row converts in one pass.
type rowParser struct {
	row []string
	err error
}

func (rp *rowParser) float(name string, col int) float64 {
	if rp.err != nil || rp.row[col] == "" {
		return 0
	}
	v, err := strconv.ParseFloat(rp.row[col], 64)
	if err != nil {
		rp.err = fmt.Errorf("parsing %s: %w", name, err)
		return 0
	}
	return v
}

func (rp *rowParser) uint(name string, col int) uint64 {
	if rp.err != nil || rp.row[col] == "" {
		return 0
	}
	v, err := strconv.ParseUint(rp.row[col], 10, 64)
	if err != nil {
		rp.err = fmt.Errorf("parsing %s: %w", name, err)
		return 0
	}
	return v
}

func (rp *rowParser) bool(name string, col int) bool {
	if rp.err != nil || rp.row[col] == "" {
		return false
	}
	v, err := strconv.ParseBool(rp.row[col])
	if err != nil {
		rp.err = fmt.Errorf("parsing %s: %w", name, err)
		return false
	}
	return v
}

func (rp *rowParser) vector(name string, col int) geom.Vector {
	if rp.err != nil || rp.row[col] == "" {
		return nil
	}
	parts := strings.Split(rp.row[col], ";")
	v := make(geom.Vector, len(parts))
	for i, part := range parts {
		c, err := strconv.ParseFloat(part, 64)
		if err != nil {
			rp.err = fmt.Errorf("parsing %s: %w", name, err)
			return nil
		}
		v[i] = c
	}
	return v
}

func formatVector(v geom.Vector) string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = geom.Ftoa(c)
	}
	return strings.Join(parts, ";")
}
