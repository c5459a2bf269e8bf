package geotiff

// GeoTIFF GeoKey IDs.
const (
	gkModelType         = 1024
	gkRasterType        = 1025
	gkCitation          = 1026
	gkGeographicType    = 2048
	gkProjectedCSType   = 3072
	gkUserDefined       = 32767
	rasterPixelIsArea   = 1
	rasterPixelIsPoint  = 2
	modelTypeProjected  = 1
	modelTypeGeographic = 2
)

// geoKeys is the decoded GeoKey directory.
type geoKeys struct {
	ModelType  uint16
	RasterType uint16
	Geographic uint16
	Projected  uint16
	Citation   string
}

// EPSG returns the EPSG code, preferring the projected system. User-defined
// and missing codes are 0.
func (k geoKeys) EPSG() int {
	for _, code := range []uint16{k.Projected, k.Geographic} {
		if code != 0 && code != gkUserDefined {
			return int(code)
		}
	}
	return 0
}

// parseGeoKeys decodes the GeoKey directory. Values stored inline are read
// directly; the citation is read from the ASCII params.
func parseGeoKeys(dir []uint16, ascii string) geoKeys {
	var k geoKeys
	if len(dir) < 4 {
		return k
	}

	// header: KeyDirectoryVersion, KeyRevision, MinorRevision, NumberOfKeys
	numKeys := int(dir[3])
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(dir) {
			break
		}
		id, loc, count, value := dir[base], dir[base+1], dir[base+2], dir[base+3]

		if loc == tagGeoASCIIParams {
			if id == gkCitation {
				k.Citation = asciiParam(ascii, int(value), int(count))
			}
			continue
		}
		if loc != 0 {
			continue
		}
		switch id {
		case gkModelType:
			k.ModelType = value
		case gkRasterType:
			k.RasterType = value
		case gkGeographicType:
			k.Geographic = value
		case gkProjectedCSType:
			k.Projected = value
		}
	}
	return k
}

// asciiParam extracts one '|'-terminated entry from GeoAsciiParams.
func asciiParam(ascii string, off, count int) string {
	if off < 0 || off >= len(ascii) {
		return ""
	}
	end := min(off+count, len(ascii))
	s := ascii[off:end]
	for len(s) > 0 && (s[len(s)-1] == '|' || s[len(s)-1] == 0) {
		s = s[:len(s)-1]
	}
	return s
}
