package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/sethvargo/go-envconfig"

	"github.com/fatelord/visionworkbench/internal/cnet"
	"github.com/fatelord/visionworkbench/internal/cnet/model"
	"github.com/fatelord/visionworkbench/internal/integration"
	"github.com/fatelord/visionworkbench/internal/logging"
	"github.com/fatelord/visionworkbench/internal/settings"
	"github.com/fatelord/visionworkbench/internal/shutdown"
	"github.com/fatelord/visionworkbench/internal/stereo"
	"github.com/fatelord/visionworkbench/pkg/container/spatialtree"
	"github.com/fatelord/visionworkbench/pkg/math/geom"
)

type config struct {
	// RemoteAddr switches every command to drive a running server
	RemoteAddr string `env:"VW_REMOTE_ADDR"`
	Debug      bool   `env:"VW_DEBUG,default=false"`
}

func main() {
	ctx, done := shutdown.New()
	defer done()
	if err := run(ctx, os.Args[1:]); err != nil {
		logging.FromContext(ctx).Fatal(err)
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprint(w, `usage: vw <command> [arguments]

Local commands read a control network file (.csv or binary):
  print <file>              render the index cells and footprints as text
  vrml <file> [out]         render the index as a VRML scene
  query <file> <coord>...   points whose footprint holds the location
  pairs <file>              pairs of points with overlapping footprints
  dump <file>               dump the decoded network
  convert <in> <out>        rewrite between the binary and csv codecs
  settings                  effective settings
  weights                   spatial weight image for the configured kernel

With VW_REMOTE_ADDR set the commands drive a running server:
  print|vrml|pairs <network>
  query <network> <coord>...
  push <file>
  health
`)
}

func run(ctx context.Context, args []string) error {
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}
	ctx = logging.WithLogger(ctx, logging.NewLogger(cfg.Debug))

	if len(args) == 0 {
		usage(os.Stderr)
		return fmt.Errorf("command is required")
	}
	cmd, rest := args[0], args[1:]

	if cfg.RemoteAddr != "" {
		return runRemote(ctx, cfg.RemoteAddr, cmd, rest)
	}

	sets, err := settings.Load(settings.Path())
	if err != nil {
		return err
	}
	return runLocal(ctx, sets, cmd, rest)
}

func runLocal(ctx context.Context, sets settings.Settings, cmd string, args []string) error {
	switch cmd {
	case "print":
		_, tree, err := loadIndexed(args, sets.Tree)
		if err != nil {
			return err
		}
		return tree.Print(os.Stdout)
	case "vrml":
		_, tree, err := loadIndexed(args, sets.Tree)
		if err != nil {
			return err
		}
		out := io.Writer(os.Stdout)
		if len(args) > 1 {
			f, err := os.Create(args[1])
			if err != nil {
				return fmt.Errorf("create scene file: %w", err)
			}
			defer f.Close()
			out = f
		}
		return tree.WriteVRML(out)
	case "query":
		if len(args) < 2 {
			usage(os.Stderr)
			return fmt.Errorf("query needs a network file and a location")
		}
		_, tree, err := loadIndexed(args, sets.Tree)
		if err != nil {
			return err
		}
		location, err := parseCoords(args[1:])
		if err != nil {
			return err
		}
		prims, err := tree.ContainsAll(location)
		if err != nil {
			return err
		}
		found := make([]*model.ControlPoint, 0, len(prims))
		for _, prim := range prims {
			found = append(found, prim.(*model.ControlPoint))
		}
		return writeJSON(os.Stdout, found)
	case "pairs":
		_, tree, err := loadIndexed(args, sets.Tree)
		if err != nil {
			return err
		}
		type pairOut struct {
			First  *model.ControlPoint `json:"first"`
			Second *model.ControlPoint `json:"second"`
		}
		pairs := tree.OverlapPairs()
		list := make([]pairOut, 0, len(pairs))
		for _, pair := range pairs {
			list = append(list, pairOut{
				First:  pair.First.(*model.ControlPoint),
				Second: pair.Second.(*model.ControlPoint),
			})
		}
		return writeJSON(os.Stdout, list)
	case "dump":
		if len(args) < 1 {
			usage(os.Stderr)
			return fmt.Errorf("dump needs a network file")
		}
		network, err := loadNetwork(args[0])
		if err != nil {
			return err
		}
		spew.Dump(network)
		return nil
	case "convert":
		if len(args) < 2 {
			usage(os.Stderr)
			return fmt.Errorf("convert needs an input and an output file")
		}
		network, err := loadNetwork(args[0])
		if err != nil {
			return err
		}
		return saveNetwork(args[1], *network)
	case "settings":
		spew.Dump(sets)
		return nil
	case "weights":
		weight := stereo.SpatialWeightImage(
			sets.Correlation.KernWidth,
			sets.Correlation.KernHeight,
			sets.Correlation.TwoSigmaSqr,
		)
		for y := 0; y < weight.H; y++ {
			for x := 0; x < weight.W; x++ {
				_, _ = fmt.Fprintf(os.Stdout, " %7.5f", weight.At(x, y))
			}
			_, _ = fmt.Fprintln(os.Stdout)
		}
		return nil
	default:
		usage(os.Stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runRemote(ctx context.Context, addr, cmd string, args []string) error {
	logger := logging.FromContext(ctx)
	client := integration.NewClient(addr)
	switch cmd {
	case "print", "vrml", "pairs":
		if len(args) < 1 {
			usage(os.Stderr)
			return fmt.Errorf("%s needs a network id", cmd)
		}
		resp, err := client.Export(args[0], cmd)
		if err != nil {
			return err
		}
		return drain(resp, os.Stdout)
	case "query":
		if len(args) < 2 {
			usage(os.Stderr)
			return fmt.Errorf("query needs a network id and a location")
		}
		location, err := parseCoords(args[1:])
		if err != nil {
			return err
		}
		resp, err := client.Query(integration.QueryRequest{
			NetworkID: args[0],
			Data:      []integration.Location{{Point: location}},
		})
		if err != nil {
			return err
		}
		return drain(resp, os.Stdout)
	case "push":
		if len(args) < 1 {
			usage(os.Stderr)
			return fmt.Errorf("push needs a network file")
		}
		network, err := loadNetwork(args[0])
		if err != nil {
			return err
		}
		req := ingestRequest(network)
		resp, err := client.Ingest(req)
		if err != nil {
			return err
		}
		if err := drain(resp, ioutil.Discard); err != nil {
			return err
		}
		logger.Infof("Pushed %d points for network %s", len(req.Points), req.NetworkID)
		return nil
	case "health":
		resp, err := client.Health()
		if err != nil {
			return err
		}
		return drain(resp, os.Stdout)
	default:
		usage(os.Stderr)
		return fmt.Errorf("command %q is not available in remote mode", cmd)
	}
}

// drain copies the response body to w and reports non 200 statuses.
func drain(resp *http.Response, w io.Writer) error {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := ioutil.ReadAll(resp.Body)
		return fmt.Errorf("server answered %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

func loadNetwork(path string) (*model.ControlNetwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open network file: %w", err)
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return cnet.ReadCSV(f)
	}
	return cnet.ReadBinary(f)
}

func saveNetwork(path string, network model.ControlNetwork) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create network file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = cnet.WriteCSV(f, network)
	} else {
		err = cnet.WriteBinary(f, network)
	}
	if err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// loadIndexed reads the network file named by args[0] and indexes every
// point footprint.
func loadIndexed(args []string, tree settings.TreeSettings) (*model.ControlNetwork, *spatialtree.Tree, error) {
	if len(args) < 1 {
		usage(os.Stderr)
		return nil, nil, fmt.Errorf("network file is required")
	}
	network, err := loadNetwork(args[0])
	if err != nil {
		return nil, nil, err
	}
	indexed, err := buildTree(network, tree)
	if err != nil {
		return nil, nil, err
	}
	return network, indexed, nil
}

// buildTree seeds the index with the first footprint, flat axes widened
// by the configured pad, then adds the rest.
func buildTree(network *model.ControlNetwork, s settings.TreeSettings) (*spatialtree.Tree, error) {
	if network.Size() == 0 {
		return nil, fmt.Errorf("network %s has no points", network.NetworkID)
	}
	box := network.Points[0].Footprint()
	for i := range box.Min {
		if box.Max[i]-box.Min[i] == 0 {
			box.Min[i] -= s.PadExtent
			box.Max[i] += s.PadExtent
		}
	}
	var opts []spatialtree.Option
	if s.MinScale > 0 {
		opts = append(opts, spatialtree.WithMinScale(s.MinScale))
	}
	tree, err := spatialtree.New(box, opts...)
	if err != nil {
		return nil, fmt.Errorf("seed index: %w", err)
	}
	for i := range network.Points {
		if err := tree.Add(&network.Points[i]); err != nil {
			return nil, fmt.Errorf("index point %s: %w", network.Points[i].ID, err)
		}
	}
	return tree, nil
}

func ingestRequest(network *model.ControlNetwork) integration.IngestRequest {
	req := integration.IngestRequest{NetworkID: network.NetworkID}
	req.Points = make([]integration.Point, 0, network.Size())
	for _, p := range network.Points {
		typ := "tie"
		if p.Type == model.PointGround {
			typ = "ground"
		}
		measures := make([]integration.Measure, 0, len(p.Measures))
		for _, m := range p.Measures {
			measures = append(measures, integration.Measure{
				ImageID:       m.ImageID,
				Serial:        m.Serial,
				Col:           m.Col,
				Row:           m.Row,
				ColSigma:      m.ColSigma,
				RowSigma:      m.RowSigma,
				EphemerisTime: m.EphemerisTime,
			})
		}
		req.Points = append(req.Points, integration.Point{
			Type:      typ,
			Position:  p.Position,
			Sigma:     p.Sigma,
			CreatedAt: p.CreatedAt,
			Measures:  measures,
		})
	}
	return req
}

func parseCoords(args []string) (geom.Vector, error) {
	coords := make([]float64, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q: %w", arg, err)
		}
		coords = append(coords, v)
	}
	return geom.NewVector(coords...), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
