package sigmf

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"
)

// Kind is the numeric family of one sample component.
type Kind int

const (
	Float Kind = iota
	Signed
	Unsigned
)

// Datatype is a parsed core:datatype value such as "cf32_le" or "ru8".
type Datatype struct {
	Complex bool
	Kind    Kind
	Bits    int
	Order   binary.ByteOrder
}

// ParseDatatype parses the core:datatype grammar: (c|r)(f|i|u)bits[_le|_be].
// Endianness is mandatory above 8 bits and forbidden at 8 bits.
func ParseDatatype(s string) (Datatype, error) {
	var d Datatype
	rest := s

	switch {
	case strings.HasPrefix(rest, "c"):
		d.Complex = true
	case strings.HasPrefix(rest, "r"):
	default:
		return d, fmt.Errorf("datatype %q: want c or r prefix", s)
	}
	rest = rest[1:]

	if len(rest) == 0 {
		return d, fmt.Errorf("datatype %q: missing sample kind", s)
	}
	switch rest[0] {
	case 'f':
		d.Kind = Float
	case 'i':
		d.Kind = Signed
	case 'u':
		d.Kind = Unsigned
	default:
		return d, fmt.Errorf("datatype %q: unknown kind %q", s, rest[0])
	}
	rest = rest[1:]

	bits, order, _ := strings.Cut(rest, "_")
	n, err := strconv.Atoi(bits)
	if err != nil {
		return d, fmt.Errorf("datatype %q: bad width", s)
	}
	d.Bits = n

	switch {
	case d.Kind == Float && n != 16 && n != 32 && n != 64:
		return d, fmt.Errorf("datatype %q: unsupported float width %d", s, n)
	case d.Kind != Float && n != 8 && n != 16 && n != 32:
		return d, fmt.Errorf("datatype %q: unsupported integer width %d", s, n)
	}

	switch order {
	case "le":
		d.Order = binary.LittleEndian
	case "be":
		d.Order = binary.BigEndian
	case "":
		if n != 8 {
			return d, fmt.Errorf("datatype %q: byte order required", s)
		}
		d.Order = binary.LittleEndian
	default:
		return d, fmt.Errorf("datatype %q: unknown byte order %q", s, order)
	}
	if n == 8 && order != "" {
		return d, fmt.Errorf("datatype %q: byte order not allowed on 8 bit samples", s)
	}
	return d, nil
}

// String returns the canonical core:datatype spelling.
func (d Datatype) String() string {
	var b strings.Builder
	if d.Complex {
		b.WriteByte('c')
	} else {
		b.WriteByte('r')
	}
	b.WriteByte("fiu"[d.Kind])
	b.WriteString(strconv.Itoa(d.Bits))
	if d.Bits > 8 {
		if d.Order == binary.BigEndian {
			b.WriteString("_be")
		} else {
			b.WriteString("_le")
		}
	}
	return b.String()
}

// ComponentSize is the size in bytes of one real or imaginary part.
func (d Datatype) ComponentSize() int { return d.Bits / 8 }

// SampleSize is the size in bytes of one sample of one channel.
func (d Datatype) SampleSize() int {
	if d.Complex {
		return 2 * d.ComponentSize()
	}
	return d.ComponentSize()
}

func (d Datatype) scale() float64 {
	return math.Ldexp(1, d.Bits-1)
}

// component decodes one component from b and scales integers into [-1, 1).
func (d Datatype) component(b []byte) float64 {
	switch d.Kind {
	case Float:
		switch d.Bits {
		case 16:
			return float64(float16.Frombits(d.Order.Uint16(b)).Float32())
		case 32:
			return float64(math.Float32frombits(d.Order.Uint32(b)))
		default:
			return math.Float64frombits(d.Order.Uint64(b))
		}
	case Signed:
		switch d.Bits {
		case 8:
			return float64(int8(b[0])) / d.scale()
		case 16:
			return float64(int16(d.Order.Uint16(b))) / d.scale()
		default:
			return float64(int32(d.Order.Uint32(b))) / d.scale()
		}
	default:
		var v float64
		switch d.Bits {
		case 8:
			v = float64(b[0])
		case 16:
			v = float64(d.Order.Uint16(b))
		default:
			v = float64(d.Order.Uint32(b))
		}
		return (v - d.scale()) / d.scale()
	}
}

// putComponent is the inverse of component; integers are rounded and clipped.
func (d Datatype) putComponent(b []byte, v float64) {
	switch d.Kind {
	case Float:
		switch d.Bits {
		case 16:
			d.Order.PutUint16(b, float16.Fromfloat32(float32(v)).Bits())
		case 32:
			d.Order.PutUint32(b, math.Float32bits(float32(v)))
		default:
			d.Order.PutUint64(b, math.Float64bits(v))
		}
		return
	}

	s := d.scale()
	q := math.Round(v * s)
	if d.Kind == Unsigned {
		q += s
		q = math.Max(0, math.Min(2*s-1, q))
	} else {
		q = math.Max(-s, math.Min(s-1, q))
	}
	switch d.Bits {
	case 8:
		if d.Kind == Unsigned {
			b[0] = uint8(q)
		} else {
			b[0] = uint8(int8(q))
		}
	case 16:
		if d.Kind == Unsigned {
			d.Order.PutUint16(b, uint16(q))
		} else {
			d.Order.PutUint16(b, uint16(int16(q)))
		}
	default:
		if d.Kind == Unsigned {
			d.Order.PutUint32(b, uint32(q))
		} else {
			d.Order.PutUint32(b, uint32(int32(q)))
		}
	}
}

// Decode reads len(dst) samples of one channel from raw, where each frame of
// raw holds channels interleaved samples.
func (d Datatype) Decode(dst []complex128, raw []byte, channels, channel int) {
	cs := d.ComponentSize()
	stride := d.SampleSize() * channels
	off := d.SampleSize() * channel
	for i := range dst {
		p := raw[i*stride+off:]
		if d.Complex {
			dst[i] = complex(d.component(p), d.component(p[cs:]))
		} else {
			dst[i] = complex(d.component(p), 0)
		}
	}
}

// Encode is the single channel inverse of Decode. Real datatypes drop the
// imaginary part.
func (d Datatype) Encode(raw []byte, src []complex128) {
	cs := d.ComponentSize()
	ss := d.SampleSize()
	for i, v := range src {
		p := raw[i*ss:]
		d.putComponent(p, real(v))
		if d.Complex {
			d.putComponent(p[cs:], imag(v))
		}
	}
}
