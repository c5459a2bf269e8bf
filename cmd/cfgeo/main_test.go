package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/h3-go/v4"

	"github.com/pspoerri/cfgeo/internal/config"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a := &app{
		env:    config.Config{LogLevel: "info", CRSCacheSize: 16, GridMapping: "crs"},
		stdout: &out,
		stderr: &errOut,
	}
	root := a.rootCmd()
	root.SetArgs(args)
	err = root.Execute()
	a.dumpMetrics()
	return out.String(), errOut.String(), err
}

const gridJSON = `{
  "attributes": {"title": "test"},
  "dimensions": {"y": 2, "x": 3},
  "variables": {
    "x": {"shape": ["x"], "type": "double", "attributes": {}, "data": [500005, 500015, 500025]},
    "y": {"shape": ["y"], "type": "double", "attributes": {}, "data": [5000015, 5000005]},
    "elevation": {"shape": ["y", "x"], "type": "double", "attributes": {"units": "m"}, "data": [[1, 2, 3], [4, 5, 6]]}
  }
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCRSCommand(t *testing.T) {
	out, _, err := run(t, "crs", "4326", "--transform=-180,0.1,0,90,0,-0.1", "--gdal")
	require.NoError(t, err)
	assert.Contains(t, out, "name: crs")
	assert.Contains(t, out, "value: 4326")
	assert.Contains(t, out, "grid_mapping_name: latitude_longitude")
	assert.Contains(t, out, "GeoTransform:")
	assert.Contains(t, out, "-180 0.1 0 90 0 -0.1")

	out, _, err = run(t, "crs", "+proj=utm +zone=32 +datum=WGS84", "--grid-mapping", "spatial_ref")
	require.NoError(t, err)
	assert.Contains(t, out, "name: spatial_ref")
	assert.Contains(t, out, "value: 32632")
	assert.Contains(t, out, "grid_mapping_name: transverse_mercator")
}

func TestCRSCommandParams(t *testing.T) {
	params := writeFile(t, "utm.yaml", "proj: utm\nzone: 33\nsouth: true\ndatum: WGS84\n")
	out, _, err := run(t, "crs", "--params", params)
	require.NoError(t, err)
	assert.Contains(t, out, "value: 32733")
}

func TestCRSCommandErrors(t *testing.T) {
	_, _, err := run(t, "crs")
	require.Error(t, err)

	_, _, err = run(t, "crs", "not a crs")
	require.Error(t, err)

	_, _, err = run(t, "crs", "4326", "--transform", "1,2,3")
	require.Error(t, err)
}

func TestGeorefAndCheck(t *testing.T) {
	in := writeFile(t, "in.json", gridJSON)
	out := filepath.Join(filepath.Dir(in), "out.json")

	stdout, _, err := run(t, "check", in)
	assert.True(t, errors.Is(err, errNotGeoreferenced))
	assert.Contains(t, stdout, "not georeferenced")

	_, _, err = run(t, "georef", in, out, "--crs", "EPSG:32632")
	require.NoError(t, err)

	stdout, _, err = run(t, "check", out, "--require-gdal")
	require.NoError(t, err)
	assert.Contains(t, stdout, "georeferenced")

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"GeoTransform":"500000 10 0 5000020 0 -10"`)
	assert.Contains(t, string(b), `"grid_mapping":"crs"`)
	assert.Contains(t, string(b), `"Conventions":"CF-1.7"`)

	// The CRS and transform now come from the dataset itself.
	stdout, _, err = run(t, "georef", out, "-", "--grid-mapping", "crs")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"GeoTransform":"500000 10 0 5000020 0 -10"`)
}

func TestGeorefNeedsCRS(t *testing.T) {
	in := writeFile(t, "in.json", gridJSON)
	_, _, err := run(t, "georef", in, "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving CRS")
}

func TestBBoxCommand(t *testing.T) {
	out, _, err := run(t, "bbox", "1,2,3,4")
	require.NoError(t, err)
	assert.Contains(t, out, `"bbox":[1,2,3,4]`)
	assert.Contains(t, out, `"type":"Polygon"`)

	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 47.3769, Lng: 8.5417}, 7)
	require.NoError(t, err)
	out, _, err = run(t, "bbox", cell.String())
	require.NoError(t, err)
	assert.Contains(t, out, `"type":"Feature"`)

	_, _, err = run(t, "bbox", "1,2,3")
	require.Error(t, err)
}

func TestMetricsFlag(t *testing.T) {
	_, stderr, err := run(t, "--metrics", "crs", "EPSG:4326")
	require.NoError(t, err)
	assert.Contains(t, stderr, `cfgeo_conversions_total{kind="CRS",outcome="ok"} 1`)
	assert.Contains(t, stderr, "cfgeo_crs_parse_fallbacks_total 1")
}

// plainTIFF is a 100 x 100 little-endian TIFF with no georeferencing tags.
var plainTIFF = []byte{
	'I', 'I', 42, 0, 8, 0, 0, 0,
	2, 0,
	0x00, 0x01, 4, 0, 1, 0, 0, 0, 100, 0, 0, 0,
	0x01, 0x01, 4, 0, 1, 0, 0, 0, 100, 0, 0, 0,
	0, 0, 0, 0,
}

func TestInspectCommand(t *testing.T) {
	dir := t.TempDir()
	tif := filepath.Join(dir, "swiss.tif")
	require.NoError(t, os.WriteFile(tif, plainTIFF, 0o644))

	out, _, err := run(t, "inspect", tif)
	require.NoError(t, err)
	assert.Contains(t, out, "Size: 100 x 100")
	assert.Contains(t, out, "Transform: none")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "swiss.tfw"), []byte("10\n0\n0\n-10\n2600005\n1199995\n"), 0o644))
	out, _, err = run(t, "inspect", tif)
	require.NoError(t, err)
	assert.Contains(t, out, "GeoTransform: 2600000 10 0 1200000 0 -10")
	assert.Contains(t, out, "EPSG: 2056 (guessed from bounds)")
	assert.Contains(t, out, "Bounds (WGS84): lon=[7.4")
	assert.Contains(t, out, "value: 2056")
}
