package geotiff

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pspoerri/cfgeo/internal/affine"
)

// WorldFile holds the six parameters of an ESRI world file (.tfw).
//
// Line 1: x-component of pixel width
// Line 2: rotation about y-axis
// Line 3: rotation about x-axis
// Line 4: y-component of pixel height (negative = north-up)
// Line 5: x-coordinate of the centre of the upper-left pixel
// Line 6: y-coordinate of the centre of the upper-left pixel
type WorldFile struct {
	PixelSizeX float64
	RotationY  float64
	RotationX  float64
	PixelSizeY float64
	OriginX    float64
	OriginY    float64
}

// ParseWorldFile reads the six world file lines from r.
func ParseWorldFile(r io.Reader) (WorldFile, error) {
	var vals []float64
	sc := bufio.NewScanner(r)
	for sc.Scan() && len(vals) < 6 {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return WorldFile{}, errors.Wrapf(err, "world file line %d", len(vals)+1)
		}
		vals = append(vals, v)
	}
	if err := sc.Err(); err != nil {
		return WorldFile{}, errors.Wrap(err, "reading world file")
	}
	if len(vals) < 6 {
		return WorldFile{}, errors.Newf("world file: expected 6 lines, got %d", len(vals))
	}
	return WorldFile{
		PixelSizeX: vals[0],
		RotationY:  vals[1],
		RotationX:  vals[2],
		PixelSizeY: vals[3],
		OriginX:    vals[4],
		OriginY:    vals[5],
	}, nil
}

// ReadWorldFile reads a world file from path.
func ReadWorldFile(path string) (WorldFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return WorldFile{}, errors.Wrapf(err, "opening world file %s", path)
	}
	defer f.Close()
	wf, err := ParseWorldFile(f)
	if err != nil {
		return WorldFile{}, errors.Wrapf(err, "world file %s", path)
	}
	return wf, nil
}

// FindWorldFile looks for a world file next to a TIFF path. It returns ""
// if none exists.
func FindWorldFile(tiffPath string) string {
	ext := filepath.Ext(tiffPath)
	base := tiffPath[:len(tiffPath)-len(ext)]
	for _, c := range []string{".tfw", ".TFW", ".tifw", ".TIFW", ".wld"} {
		p := base + c
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Transform returns the geotransform. World files reference pixel centres;
// the transform references the upper-left corner of the upper-left pixel.
func (w WorldFile) Transform() affine.Transform {
	centre := affine.Transform{
		A: w.PixelSizeX, B: w.RotationX, C: w.OriginX,
		D: w.RotationY, E: w.PixelSizeY, F: w.OriginY,
	}
	return centre.Translate(-0.5, -0.5)
}
