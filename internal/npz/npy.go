package npz

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Array is a dense, row-major float64 array with an explicit shape. An empty
// shape denotes a zero-dimensional array holding a single element.
type Array struct {
	Shape []int
	Data  []float64
}

// NumElements returns the number of elements implied by the shape.
func NumElements(shape []int) int {
	n := 1
	for _, dim := range shape {
		n *= dim
	}
	return n
}

const (
	npyMagic = "\x93NUMPY"

	// Header is padded so that the data section starts on a 64-byte boundary.
	npyHeaderAlign = 64
)

var (
	descrRe   = regexp.MustCompile(`'descr':\s*'([^']+)'`)
	fortranRe = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
	shapeRe   = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)
)

func shapeTuple(shape []int) string {
	switch len(shape) {
	case 0:
		return "()"
	case 1:
		return fmt.Sprintf("(%d,)", shape[0])
	default:
		parts := make([]string, len(shape))
		for i, dim := range shape {
			parts[i] = strconv.Itoa(dim)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}

// EncodeNPY writes a in NPY v1.0 format: little-endian float64, C order.
func EncodeNPY(w io.Writer, a Array) error {
	if want := NumElements(a.Shape); want != len(a.Data) {
		return fmt.Errorf("shape %v implies %d elements, array has %d", a.Shape, want, len(a.Data))
	}

	dict := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': %s, }", shapeTuple(a.Shape))

	// magic(6) + version(2) + header length(2) + dict + padding + '\n'
	pad := npyHeaderAlign - (len(npyMagic)+4+len(dict)+1)%npyHeaderAlign
	if pad == npyHeaderAlign {
		pad = 0
	}
	header := dict + strings.Repeat(" ", pad) + "\n"

	buf := make([]byte, 0, len(npyMagic)+4+len(header)+8*len(a.Data))
	buf = append(buf, npyMagic...)
	buf = append(buf, 0x01, 0x00)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(header)))
	buf = append(buf, header...)
	for _, v := range a.Data {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write npy payload: %w", err)
	}
	return nil
}

// DecodeNPY reads an NPY v1.0 payload holding a little-endian float64 array.
func DecodeNPY(r io.Reader) (Array, error) {
	preamble := make([]byte, len(npyMagic)+4)
	if _, err := io.ReadFull(r, preamble); err != nil {
		return Array{}, fmt.Errorf("failed to read npy preamble: %w", err)
	}
	if string(preamble[:len(npyMagic)]) != npyMagic {
		return Array{}, fmt.Errorf("invalid npy magic %q", preamble[:len(npyMagic)])
	}
	if major := preamble[len(npyMagic)]; major != 1 {
		return Array{}, fmt.Errorf("unsupported npy version %d", major)
	}

	headerLen := binary.LittleEndian.Uint16(preamble[len(npyMagic)+2:])
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return Array{}, fmt.Errorf("failed to read npy header: %w", err)
	}

	shape, err := parseHeader(string(header))
	if err != nil {
		return Array{}, err
	}

	count := NumElements(shape)
	raw := make([]byte, 8*count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return Array{}, fmt.Errorf("failed to read npy data for shape %v: %w", shape, err)
	}

	data := make([]float64, count)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}

	return Array{Shape: shape, Data: data}, nil
}

func parseHeader(header string) ([]int, error) {
	m := descrRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("npy header missing descr: %q", header)
	}
	if m[1] != "<f8" {
		return nil, fmt.Errorf("unsupported npy dtype %q, expected '<f8'", m[1])
	}

	m = fortranRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("npy header missing fortran_order: %q", header)
	}
	if m[1] != "False" {
		return nil, fmt.Errorf("fortran-ordered npy arrays are not supported")
	}

	m = shapeRe.FindStringSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("npy header missing shape: %q", header)
	}

	var shape []int
	for _, part := range strings.Split(m[1], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dim, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid npy shape dimension %q: %w", part, err)
		}
		if dim < 0 {
			return nil, fmt.Errorf("negative npy shape dimension %d", dim)
		}
		shape = append(shape, dim)
	}
	return shape, nil
}
