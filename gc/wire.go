package gc

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/rotisserie/eris"
)

// field is one decoded protobuf field. Varint, fixed32 and fixed64 values land in
// scalar, length-delimited values in bytes.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	scalar uint64
	bytes  []byte
}

func parseFields(b []byte) ([]field, error) {
	var fields []field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, eris.Wrap(protowire.ParseError(n), "malformed field tag")
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.scalar, n = protowire.ConsumeVarint(b)
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			f.scalar = uint64(v)
		case protowire.Fixed64Type:
			f.scalar, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return nil, eris.Wrapf(protowire.ParseError(n), "malformed value for field %d", num)
		}
		b = b[n:]

		fields = append(fields, f)
	}

	return fields, nil
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendFlag(b []byte, num protowire.Number, set bool) []byte {
	var v uint64
	if set {
		v = 1
	}
	return appendUint(b, num, v)
}

func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}
