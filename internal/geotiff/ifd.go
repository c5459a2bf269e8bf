package geotiff

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/cockroachdb/errors"
)

// TIFF tag IDs read by this package.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735
	tagGeoDoubleParams     = 34736
	tagGeoASCIIParams      = 34737
)

// TIFF data types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndef     = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

// ifd holds the georeferencing tags of the first image directory.
type ifd struct {
	Width               uint32
	Height              uint32
	ModelTiepoint       []float64
	ModelPixelScale     []float64
	ModelTransformation []float64
	GeoKeys             []uint16
	GeoDoubleParams     []float64
	GeoASCIIParams      string
}

// entry is a raw TIFF directory entry.
type entry struct {
	Tag      uint16
	DataType uint16
	Count    uint64
	Value    []byte // inline value, or the resolved external data
}

// readFirstIFD parses the TIFF header and the first image directory.
// Overviews and image data are not read.
func readFirstIFD(r io.ReadSeeker) (ifd, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return ifd{}, errors.Wrap(err, "reading TIFF header")
	}

	var bo binary.ByteOrder
	switch string(header[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return ifd{}, errors.Newf("invalid TIFF byte order: %x", header[0:2])
	}

	magic := bo.Uint16(header[2:4])
	bigTIFF := magic == 43
	if magic != 42 && !bigTIFF {
		return ifd{}, errors.Newf("invalid TIFF magic: %d", magic)
	}

	var offset uint64
	if bigTIFF {
		// bytes 4-7 hold the offset size and padding; the offset follows.
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return ifd{}, errors.Wrap(err, "reading BigTIFF header")
		}
		offset = bo.Uint64(buf[:])
	} else {
		offset = uint64(bo.Uint32(header[4:8]))
	}
	if offset == 0 {
		return ifd{}, errors.New("TIFF has no image directory")
	}

	entries, err := readEntries(r, bo, offset, bigTIFF)
	if err != nil {
		return ifd{}, errors.Wrapf(err, "parsing IFD at offset %d", offset)
	}
	return buildIFD(entries, bo)
}

func readEntries(r io.ReadSeeker, bo binary.ByteOrder, offset uint64, bigTIFF bool) ([]entry, error) {
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}

	var n uint64
	if bigTIFF {
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		n = bo.Uint64(buf[:])
	} else {
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		n = uint64(bo.Uint16(buf[:]))
	}
	if n > 4096 {
		return nil, errors.Newf("implausible entry count %d", n)
	}

	entrySize := 12
	if bigTIFF {
		entrySize = 20
	}
	entries := make([]entry, n)
	buf := make([]byte, entrySize)
	for i := range entries {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		entries[i] = parseEntry(buf, bo, bigTIFF)
	}

	for i := range entries {
		if err := resolveEntry(r, bo, &entries[i], bigTIFF); err != nil {
			return nil, errors.Wrapf(err, "resolving tag %d", entries[i].Tag)
		}
	}
	return entries, nil
}

func parseEntry(buf []byte, bo binary.ByteOrder, bigTIFF bool) entry {
	e := entry{Tag: bo.Uint16(buf[0:2]), DataType: bo.Uint16(buf[2:4])}
	if bigTIFF {
		e.Count = bo.Uint64(buf[4:12])
		e.Value = append([]byte(nil), buf[12:20]...)
	} else {
		e.Count = uint64(bo.Uint32(buf[4:8]))
		e.Value = append([]byte(nil), buf[8:12]...)
	}
	return e
}

func dataTypeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII, dtSByte, dtUndef:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8, dtIFD8:
		return 8
	default:
		return 1
	}
}

// resolveEntry reads the data of an entry that does not fit inline.
func resolveEntry(r io.ReadSeeker, bo binary.ByteOrder, e *entry, bigTIFF bool) error {
	if !wanted(e.Tag) {
		return nil
	}
	if e.Count > 1<<20 {
		return errors.Newf("tag %d count %d too large", e.Tag, e.Count)
	}
	total := int(e.Count) * dataTypeSize(e.DataType)
	inline := 4
	if bigTIFF {
		inline = 8
	}
	if total <= inline {
		return nil
	}

	var off uint64
	if bigTIFF {
		off = bo.Uint64(e.Value)
	} else {
		off = uint64(bo.Uint32(e.Value))
	}
	if _, err := r.Seek(int64(off), io.SeekStart); err != nil {
		return err
	}
	data := make([]byte, total)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	e.Value = data
	return nil
}

func wanted(tag uint16) bool {
	switch tag {
	case tagImageWidth, tagImageLength, tagModelPixelScale, tagModelTiepoint,
		tagModelTransformation, tagGeoKeyDirectory, tagGeoDoubleParams, tagGeoASCIIParams:
		return true
	}
	return false
}

func buildIFD(entries []entry, bo binary.ByteOrder) (ifd, error) {
	var d ifd
	for _, e := range entries {
		switch e.Tag {
		case tagImageWidth:
			d.Width = getUint32(e, bo)
		case tagImageLength:
			d.Height = getUint32(e, bo)
		case tagModelTiepoint:
			d.ModelTiepoint = getFloat64s(e, bo)
		case tagModelPixelScale:
			d.ModelPixelScale = getFloat64s(e, bo)
		case tagModelTransformation:
			d.ModelTransformation = getFloat64s(e, bo)
		case tagGeoKeyDirectory:
			if e.DataType != dtShort {
				return ifd{}, errors.Newf("GeoKeyDirectory has data type %d, want SHORT", e.DataType)
			}
			d.GeoKeys = getUint16s(e, bo)
		case tagGeoDoubleParams:
			d.GeoDoubleParams = getFloat64s(e, bo)
		case tagGeoASCIIParams:
			n := min(int(e.Count), len(e.Value))
			d.GeoASCIIParams = string(e.Value[:n])
		}
	}
	return d, nil
}

func getUint32(e entry, bo binary.ByteOrder) uint32 {
	switch e.DataType {
	case dtShort:
		return uint32(bo.Uint16(e.Value))
	case dtLong:
		return bo.Uint32(e.Value)
	case dtLong8, dtIFD8:
		return uint32(bo.Uint64(e.Value))
	default:
		return uint32(e.Value[0])
	}
}

func getUint16s(e entry, bo binary.ByteOrder) []uint16 {
	out := make([]uint16, e.Count)
	for i := range out {
		out[i] = bo.Uint16(e.Value[i*2 : i*2+2])
	}
	return out
}

func getFloat64s(e entry, bo binary.ByteOrder) []float64 {
	out := make([]float64, e.Count)
	for i := range out {
		switch e.DataType {
		case dtDouble:
			out[i] = math.Float64frombits(bo.Uint64(e.Value[i*8 : i*8+8]))
		case dtFloat:
			out[i] = float64(math.Float32frombits(bo.Uint32(e.Value[i*4 : i*4+4])))
		}
	}
	return out
}
