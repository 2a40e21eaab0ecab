package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MatN23/Nexus-Lang/pkg/diagnostics"
)

const tensorTag = "__tensor__"

// Serialize produces a stable textual encoding of a value. Every
// variant round-trips except Function, which is not serializable.
// Objects are written in insertion order; tensors encode as
// {"__tensor__": {"shape": [...], "data": [...]}}.
func Serialize(v Value) (string, error) {
	var b strings.Builder
	if err := serializeInto(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func serializeInto(b *strings.Builder, v Value) error {
	switch val := v.(type) {
	case Nil:
		b.WriteString("null")
	case Bool:
		if val.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case Number:
		b.WriteString(strconv.FormatFloat(val.Value, 'g', -1, 64))
	case String:
		enc, err := json.Marshal(val.Value)
		if err != nil {
			return err
		}
		b.Write(enc)
	case Array:
		b.WriteByte('[')
		for i, it := range val.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := serializeInto(b, it); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case Object:
		b.WriteByte('{')
		for i, p := range val.Pairs {
			if i > 0 {
				b.WriteByte(',')
			}
			key, err := json.Marshal(p.Key)
			if err != nil {
				return err
			}
			b.Write(key)
			b.WriteByte(':')
			if err := serializeInto(b, p.Value); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case TensorVal:
		b.WriteString(`{"` + tensorTag + `":{"shape":[`)
		for i, d := range val.T.Shape() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(d))
		}
		b.WriteString(`],"data":[`)
		for i, f := range val.T.Data() {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
		b.WriteString(`]}}`)
	case Function:
		return typeErr("function values are not serializable")
	default:
		return typeErr("cannot serialize %s", TypeName(v))
	}
	return nil
}

// Deserialize parses the encoding produced by Serialize back into a
// value. Object key order is preserved as encountered.
func Deserialize(data string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, &OpError{Code: diagnostics.EType, Message: fmt.Sprintf("invalid serialized value: %v", err)}
	}
	// Reject trailing garbage.
	if dec.More() {
		return nil, &OpError{Code: diagnostics.EType, Message: "invalid serialized value: trailing data"}
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case nil:
		return NewNil(), nil
	case bool:
		return NewBool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return NewNumber(f), nil
	case string:
		return NewString(t), nil
	case json.Delim:
		switch t {
		case '[':
			var items []Value
			for dec.More() {
				it, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, it)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return NewArray(items), nil
		case '{':
			var pairs []Pair
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				pairs = append(pairs, Pair{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			if len(pairs) == 1 && pairs[0].Key == tensorTag {
				return decodeTensor(pairs[0].Value)
			}
			return NewObject(pairs), nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func decodeTensor(v Value) (Value, error) {
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("malformed tensor encoding")
	}
	shapeVal, ok1 := (&obj).Get("shape")
	dataVal, ok2 := (&obj).Get("data")
	if !ok1 || !ok2 {
		return nil, fmt.Errorf("tensor encoding missing shape or data")
	}
	shapeArr, ok := shapeVal.(Array)
	if !ok {
		return nil, fmt.Errorf("tensor shape is not an array")
	}
	dataArr, ok := dataVal.(Array)
	if !ok {
		return nil, fmt.Errorf("tensor data is not an array")
	}
	shape := make([]int, len(shapeArr.Items))
	for i, it := range shapeArr.Items {
		n, ok := it.(Number)
		if !ok {
			return nil, fmt.Errorf("tensor shape element is not a number")
		}
		shape[i] = int(n.Value)
	}
	data := make([]float64, len(dataArr.Items))
	for i, it := range dataArr.Items {
		n, ok := it.(Number)
		if !ok {
			return nil, fmt.Errorf("tensor data element is not a number")
		}
		data[i] = n.Value
	}
	t, err := NewTensorData(shape, data)
	if err != nil {
		return nil, err
	}
	return NewTensorVal(t), nil
}
