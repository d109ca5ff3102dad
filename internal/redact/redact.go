// Package redact removes NASA API keys from upstream payloads
package redact

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// KeyParam is the query parameter NeoWs uses for credentials
const KeyParam = "api_key"

var embeddedURL = regexp.MustCompile(`https?://[^\s"'<>]+`)

// URL strips the api_key query parameter from s when s is an absolute URL.
// Parameter names are compared after percent-decoding, so api%5Fkey is the
// same parameter. Anything else, including strings that fail to parse, is
// returned as-is.
func URL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}
	q := u.Query()
	if !q.Has(KeyParam) {
		return s
	}
	q.Del(KeyParam)
	u.RawQuery = q.Encode()
	return u.String()
}

// Value walks a decoded JSON tree and returns a copy with every URL string
// scrubbed. Maps, slices and primitives keep their shape.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return URL(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Value(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Value(item)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, item := range t {
			out[i] = URL(item)
		}
		return out
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, item := range t {
			out[k] = URL(item)
		}
		return out
	default:
		return v
	}
}

// mayHoldKey reports whether s could spell the key parameter. Any spelling
// other than the literal one needs a percent or JSON escape.
func mayHoldKey(s string) bool {
	return strings.Contains(s, KeyParam) || strings.ContainsAny(s, `%\`)
}

// JSON scrubs a raw JSON document. The document is copied token by token,
// so key order and number literals are preserved.
func JSON(raw []byte) ([]byte, error) {
	if !mayHoldKey(string(raw)) {
		return raw, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var buf bytes.Buffer
	if err := copyValue(dec, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func copyValue(dec *json.Decoder, buf *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		return copyComposite(dec, buf, t)
	case string:
		return writeString(buf, URL(t))
	case json.Number:
		buf.WriteString(t.String())
	case float64:
		buf.WriteString(strconv.FormatFloat(t, 'g', -1, 64))
	case bool:
		buf.WriteString(strconv.FormatBool(t))
	case nil:
		buf.WriteString("null")
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

func copyComposite(dec *json.Decoder, buf *bytes.Buffer, open json.Delim) error {
	if open != '{' && open != '[' {
		return fmt.Errorf("unexpected delimiter %v", open)
	}
	buf.WriteByte(byte(open))
	for first := true; dec.More(); first = false {
		if !first {
			buf.WriteByte(',')
		}
		if open == '{' {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := tok.(string)
			if !ok {
				return fmt.Errorf("object key %v is not a string", tok)
			}
			if err := writeString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
		}
		if err := copyValue(dec, buf); err != nil {
			return err
		}
	}
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	closing, ok := tok.(json.Delim)
	if !ok || (open == '{' && closing != '}') || (open == '[' && closing != ']') {
		return fmt.Errorf("unbalanced %v", open)
	}
	buf.WriteByte(byte(closing))
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// Decode scrubs raw and unmarshals the result into dst
func Decode(raw []byte, dst any) error {
	clean, err := JSON(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(clean, dst)
}

// Text scrubs free-form text such as an upstream error body. A JSON
// document is scrubbed structurally; every URL embedded in what remains is
// scrubbed on its own.
func Text(s string) string {
	if json.Valid([]byte(s)) {
		if clean, err := JSON([]byte(s)); err == nil {
			s = string(clean)
		}
	}
	return embeddedURL.ReplaceAllStringFunc(s, URL)
}

// Error scrubs the request URL carried by transport errors. net/http
// reports failures as *url.Error whose message includes the full URL.
func Error(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = URL(uerr.URL)
	}
	return err
}
