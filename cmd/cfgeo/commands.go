package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"github.com/uber/h3-go/v4"
	"gopkg.in/yaml.v3"

	"github.com/pspoerri/cfgeo/internal/affine"
	"github.com/pspoerri/cfgeo/internal/cf"
	"github.com/pspoerri/cfgeo/internal/convert"
	"github.com/pspoerri/cfgeo/internal/dataset"
	"github.com/pspoerri/cfgeo/internal/geotiff"
)

func (a *app) crsCmd() *cobra.Command {
	var (
		params      string
		transform   string
		gdal        bool
		gridMapping string
	)
	cmd := &cobra.Command{
		Use:   "crs [descriptor]",
		Short: "Print the CF grid mapping variable for a CRS",
		Long: `Print the CF grid mapping variable for a CRS as YAML.

The descriptor is an EPSG code (4326), an authority reference (EPSG:4326),
a Proj string, WKT, or @file to read either from a file. --params reads a
YAML mapping of Proj parameters instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in any
			switch {
			case params != "":
				p, err := readParams(params)
				if err != nil {
					return err
				}
				in = p
			case len(args) == 1:
				d, err := descriptor(args[0])
				if err != nil {
					return err
				}
				in = d
			default:
				return errors.New("need a CRS descriptor or --params")
			}
			c, err := a.conv.ToCRS(in)
			if err != nil {
				return err
			}

			t := affine.Transform{A: 1, E: 1}
			if transform != "" {
				if t, err = a.parseTransform(transform, gdal); err != nil {
					return err
				}
			}
			gm, err := cf.CreateGridMapping(a.svc, c, t, gridMapping, cf.WithLogger(a.log))
			if err != nil {
				return err
			}
			return writeYAML(cmd.OutOrStdout(), variableNode(gm))
		},
	}
	f := cmd.Flags()
	f.StringVar(&params, "params", "", "YAML file with Proj parameters (proj, datum, lat_0, ...)")
	f.StringVar(&transform, "transform", "", "Six transform coefficients, comma or space separated")
	f.BoolVar(&gdal, "gdal", false, "Read --transform in GDAL order (c, a, b, f, d, e)")
	f.StringVar(&gridMapping, "grid-mapping", a.env.GridMapping, "Grid mapping variable name")
	return cmd
}

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.tif>",
		Short: "Print the georeferencing of a GeoTIFF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			g, err := geotiff.Open(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "File: %s\n", args[0])
			fmt.Fprintf(out, "Size: %d x %d\n", g.Width, g.Height)
			if g.Citation != "" {
				fmt.Fprintf(out, "Citation: %s\n", g.Citation)
			}
			if !g.HasTransform() {
				fmt.Fprintf(out, "Transform: none\n")
				return nil
			}
			t, err := a.conv.ToTransform(g)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "GeoTransform: %s\n", t.GDALString())
			fmt.Fprintf(out, "Pixel is point: %t\n", g.PixelIsPoint)

			b, err := a.conv.ToBounds(g)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Bounds (CRS): X=[%f, %f], Y=[%f, %f]\n", b.MinX, b.MaxX, b.MinY, b.MaxY)

			var crsIn any = g
			if g.EPSG == 0 {
				code := g.GuessEPSG()
				if code == 0 {
					fmt.Fprintf(out, "EPSG: unknown\n")
					return nil
				}
				fmt.Fprintf(out, "EPSG: %d (guessed from bounds)\n", code)
				crsIn = code
			} else {
				fmt.Fprintf(out, "EPSG: %d\n", g.EPSG)
			}
			c, err := a.conv.ToCRS(crsIn)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "CRS: %s\n", c.Name())

			if ll, err := a.svc.LonLatBounds(c, b); err != nil {
				a.log.Debug().Err(err).Msg("no lon/lat bounds")
			} else {
				fmt.Fprintf(out, "Bounds (WGS84): lon=[%f, %f], lat=[%f, %f]\n", ll.MinX, ll.MaxX, ll.MinY, ll.MaxY)
			}

			gm, err := cf.CreateGridMapping(a.svc, c, t, a.env.GridMapping, cf.WithLogger(a.log))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n")
			return writeYAML(out, variableNode(gm))
		},
	}
}

func (a *app) georefCmd() *cobra.Command {
	var (
		crsArg      string
		transform   string
		gdal        bool
		gridMapping string
		xCoord      string
		yCoord      string
	)
	cmd := &cobra.Command{
		Use:   "georef <in.json> <out.json>",
		Short: "Attach a CF grid mapping to a CF-JSON dataset",
		Long: `Attach a CF grid mapping to a CF-JSON dataset.

Without --crs the CRS is read from the dataset's existing grid mapping.
Without --transform it is read from GeoTransform or derived from regularly
spaced x/y coordinates. Use - as output to write to stdout.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}

			var crsIn any = ds
			if crsArg != "" {
				if crsIn, err = descriptor(crsArg); err != nil {
					return err
				}
			}
			c, err := a.conv.ToCRS(crsIn, convert.CRSGridMapping(gridMapping))
			if err != nil {
				return errors.Wrap(err, "resolving CRS")
			}

			var t affine.Transform
			if transform != "" {
				t, err = a.parseTransform(transform, gdal)
			} else {
				t, err = a.conv.ToTransform(ds,
					convert.TransformGridMapping(gridMapping),
					convert.XCoord(xCoord),
					convert.YCoord(yCoord))
			}
			if err != nil {
				return errors.Wrap(err, "resolving transform")
			}

			out, err := cf.Georeference(ds, a.svc, c, t,
				cf.WithGridMapping(gridMapping), cf.WithLogger(a.log), cf.InPlace())
			if err != nil {
				return err
			}
			return writeDataset(cmd.OutOrStdout(), args[1], out.(*dataset.Dataset))
		},
	}
	f := cmd.Flags()
	f.StringVar(&crsArg, "crs", "", "CRS descriptor (EPSG code, Proj string, WKT or @file)")
	f.StringVar(&transform, "transform", "", "Six transform coefficients, comma or space separated")
	f.BoolVar(&gdal, "gdal", false, "Read --transform in GDAL order (c, a, b, f, d, e)")
	f.StringVar(&gridMapping, "grid-mapping", a.env.GridMapping, "Grid mapping variable name")
	f.StringVar(&xCoord, "x", "", "Name of the x coordinate (default: detected)")
	f.StringVar(&yCoord, "y", "", "Name of the y coordinate (default: detected)")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	var (
		requireGDAL bool
		gridMapping string
	)
	cmd := &cobra.Command{
		Use:   "check <in.json>",
		Short: "Exit 0 if a CF-JSON dataset is georeferenced, 1 otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := readDataset(args[0])
			if err != nil {
				return err
			}
			opts := []cf.Option{cf.WithGridMapping(gridMapping), cf.WithLogger(a.log)}
			if requireGDAL {
				opts = append(opts, cf.RequireGDAL())
			}
			ok, err := cf.IsGeoreferenced(ds, opts...)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "not georeferenced")
				return errNotGeoreferenced
			}
			fmt.Fprintln(cmd.OutOrStdout(), "georeferenced")
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&requireGDAL, "require-gdal", false, "Also require spatial_ref and GeoTransform")
	f.StringVar(&gridMapping, "grid-mapping", a.env.GridMapping, "Grid mapping variable name")
	return cmd
}

func (a *app) bboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bbox <h3-cell | min-x,min-y,max-x,max-y>",
		Short: "Print the bounding polygon of an H3 cell or a box as GeoJSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in any
			var cell h3.Cell
			if err := cell.UnmarshalText([]byte(args[0])); err == nil && cell.IsValid() {
				in = cell
			} else {
				v, err := parseNumbers(args[0])
				if err != nil {
					return err
				}
				in = v
			}
			b, err := a.conv.ToBounds(in)
			if err != nil {
				return err
			}
			poly, err := a.conv.ToBBox(b)
			if err != nil {
				return err
			}
			f := geojson.NewFeature(poly)
			f.BBox = geojson.BBox(b.Slice())
			data, err := f.MarshalJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", data)
			return err
		},
	}
}

func (a *app) parseTransform(s string, gdal bool) (affine.Transform, error) {
	v, err := parseNumbers(s)
	if err != nil {
		return affine.Transform{}, err
	}
	return a.conv.ToTransform(v, convert.FromGDAL(gdal))
}

// descriptor turns a command-line CRS argument into a converter input:
// integers become EPSG codes and @path reads the definition from a file.
func descriptor(s string) (any, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if path, ok := strings.CutPrefix(s, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading CRS definition")
		}
		return string(b), nil
	}
	return s, nil
}

func parseNumbers(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value %d", i+1)
		}
		out[i] = v
	}
	return out, nil
}

func readParams(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading parameter file")
	}
	var p map[string]any
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if len(p) == 0 {
		return nil, errors.Newf("%s: no parameters", path)
	}
	return p, nil
}

func readDataset(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := dataset.DecodeJSON(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return ds, nil
}

func writeDataset(stdout io.Writer, path string, ds *dataset.Dataset) error {
	if path == "-" {
		return dataset.EncodeJSON(stdout, ds)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dataset.EncodeJSON(f, ds); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

// variableNode renders a scalar variable with its attributes in order.
func variableNode(v *dataset.Variable) *yaml.Node {
	attrs := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range v.Attrs.Keys() {
		val, _ := v.Attrs.Get(k)
		addPair(attrs, k, val)
	}
	doc := &yaml.Node{Kind: yaml.MappingNode}
	addPair(doc, "name", v.Name)
	addPair(doc, "value", v.Data)
	doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: "attributes"}, attrs)
	return doc
}

func addPair(m *yaml.Node, key string, val any) {
	var vn yaml.Node
	if err := vn.Encode(val); err != nil {
		vn = yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(val)}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, &vn)
}

func writeYAML(w io.Writer, n *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return err
	}
	return enc.Close()
}
