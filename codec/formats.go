package codec

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/ajg/form"
	"github.com/vmihailenco/msgpack/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/drblury/replyweaver/jsonutil"
)

// Generic converts v into the JSON data model: map[string]any, []any,
// string, float64, bool or nil. Struct tags are honoured through the JSON
// encoder. Containers are only passed through when every nested value is
// already in the data model, so a Go int always comes back as float64.
func Generic(v any) (any, error) {
	if isDataModel(v) {
		return v, nil
	}
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := jsonutil.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func isDataModel(v any) bool {
	switch value := v.(type) {
	case nil, string, bool, float64:
		return true
	case map[string]any:
		for _, item := range value {
			if !isDataModel(item) {
				return false
			}
		}
		return true
	case []any:
		for _, item := range value {
			if !isDataModel(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AppendJSON appends the JSON encoding of v.
func AppendJSON(dst []byte, v any) ([]byte, error) {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(dst, data...), nil
}

// AppendJSONLines writes one JSON document per line. Slices and arrays
// produce one line per element; any other value produces a single line.
func AppendJSONLines(dst []byte, v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !isSequence(rv) {
		return appendLine(dst, v)
	}
	var err error
	for i := 0; i < rv.Len(); i++ {
		if dst, err = appendLine(dst, rv.Index(i).Interface()); err != nil {
			return nil, fmt.Errorf("jsonlines record %d: %w", i, err)
		}
	}
	return dst, nil
}

func appendLine(dst []byte, v any) ([]byte, error) {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		return nil, err
	}
	dst = append(dst, data...)
	return append(dst, '\n'), nil
}

func isSequence(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	default:
		return false
	}
}

// AppendMsgPack appends the MessagePack encoding of v. Struct fields use their
// json tag names so the output mirrors the JSON data model.
func AppendMsgPack(dst []byte, v any) ([]byte, error) {
	buf := bytes.NewBuffer(dst)
	enc := msgpack.NewEncoder(buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// AppendCSV encodes a list of records as CSV. Object records share a header
// row built from the sorted union of their keys; array records are written
// as-is without a header. A single object is treated as a one-record list.
func AppendCSV(dst []byte, v any) ([]byte, error) {
	generic, err := Generic(v)
	if err != nil {
		return nil, err
	}

	var records []any
	switch value := generic.(type) {
	case []any:
		records = value
	case map[string]any:
		records = []any{value}
	default:
		return nil, fmt.Errorf("csv: %w: %T", ErrUnsupportedShape, generic)
	}

	buf := bytes.NewBuffer(dst)
	w := csv.NewWriter(buf)
	header := csvHeader(records)
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return nil, err
		}
	}

	for i, record := range records {
		var row []string
		switch value := record.(type) {
		case map[string]any:
			row = make([]string, len(header))
			for col, key := range header {
				if row[col], err = csvCell(value[key]); err != nil {
					return nil, err
				}
			}
		case []any:
			row = make([]string, len(value))
			for col, cell := range value {
				if row[col], err = csvCell(cell); err != nil {
					return nil, err
				}
			}
		default:
			cell, err := csvCell(value)
			if err != nil {
				return nil, err
			}
			row = []string{cell}
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv record %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvHeader(records []any) []string {
	seen := make(map[string]struct{})
	var header []string
	for _, record := range records {
		obj, ok := record.(map[string]any)
		if !ok {
			continue
		}
		for key := range obj {
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				header = append(header, key)
			}
		}
	}
	slices.Sort(header)
	return header
}

func csvCell(v any) (string, error) {
	switch value := v.(type) {
	case nil:
		return "", nil
	case string:
		return value, nil
	case bool:
		return strconv.FormatBool(value), nil
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), nil
	default:
		data, err := jsonutil.Marshal(value)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// AppendForm encodes v as application/x-www-form-urlencoded. Nested objects
// and arrays use dotted keys such as "user.name" and "tags.0".
func AppendForm(dst []byte, v any) ([]byte, error) {
	generic, err := Generic(v)
	if err != nil {
		return nil, err
	}
	if generic == nil {
		return dst, nil
	}
	encoded, err := form.EncodeToString(generic)
	if err != nil {
		return nil, err
	}
	return append(dst, encoded...), nil
}

// AppendBSON appends the BSON document for v. Only object payloads can be
// represented as a top-level BSON document.
func AppendBSON(dst []byte, v any) ([]byte, error) {
	generic, err := Generic(v)
	if err != nil {
		return nil, err
	}
	doc, ok := generic.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("bson: %w: %T", ErrUnsupportedShape, generic)
	}
	return bson.MarshalAppend(dst, doc)
}
