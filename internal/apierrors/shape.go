package apierrors

import (
	"github.com/fyrsmithlabs/daybook/internal/apiclient"
	"github.com/tidwall/gjson"
)

// ShapeKind tags the decoded form of an error payload.
type ShapeKind int

const (
	ShapeEmpty ShapeKind = iota
	ShapeDetail
	ShapeFieldErrors
	ShapeText
	ShapeOther
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeEmpty:
		return "empty"
	case ShapeDetail:
		return "detail"
	case ShapeFieldErrors:
		return "field_errors"
	case ShapeText:
		return "text"
	default:
		return "other"
	}
}

// FieldError is one entry of a field -> message(s) payload.
type FieldError struct {
	Field    string
	Messages []string
}

// Shape is an error payload decoded into one of the known forms. Only the
// member matching Kind is set.
type Shape struct {
	Kind   ShapeKind
	Detail string
	Fields []FieldError
	Text   string
}

// Decode classifies p. Field errors keep the payload's key order.
func Decode(p apiclient.Payload) Shape {
	if p.Empty() {
		return Shape{Kind: ShapeEmpty}
	}
	if !p.IsJSON() {
		return Shape{Kind: ShapeText, Text: p.Text()}
	}

	doc := gjson.ParseBytes(p.Raw())
	if !doc.IsObject() {
		return Shape{Kind: ShapeOther}
	}

	if detail := doc.Get("detail"); detail.Type == gjson.String {
		return Shape{Kind: ShapeDetail, Detail: detail.String()}
	}

	var fields []FieldError
	doc.ForEach(func(key, value gjson.Result) bool {
		fields = append(fields, FieldError{Field: key.String(), Messages: messages(value)})
		return true
	})
	if len(fields) == 0 {
		return Shape{Kind: ShapeOther}
	}
	return Shape{Kind: ShapeFieldErrors, Fields: fields}
}

// messages flattens a field value. Strings are used as is; anything else is
// rendered as its JSON text.
func messages(v gjson.Result) []string {
	if v.IsArray() {
		var out []string
		for _, item := range v.Array() {
			out = append(out, scalar(item))
		}
		return out
	}
	return []string{scalar(v)}
}

func scalar(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Raw
}
