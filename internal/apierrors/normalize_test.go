package apierrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fyrsmithlabs/daybook/internal/apiclient"
	"github.com/stretchr/testify/assert"
)

func structuredErr(status int, body string) error {
	return &apiclient.StructuredError{
		Method:     "POST",
		Path:       "/entries/",
		StatusCode: status,
		Payload:    apiclient.NewPayload([]byte(body)),
	}
}

type blankErr struct{}

func (blankErr) Error() string { return "  " }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"detail verbatim", structuredErr(400, `{"detail":"x"}`), "x"},
		{"detail wins over fields", structuredErr(403, `{"title":["bad"],"detail":"Not allowed"}`), "Not allowed"},
		{
			"field errors in payload order",
			structuredErr(400, `{"title":["Too short.","No Hangul."],"original_text":"Required."}`),
			"title: Too short., No Hangul.\noriginal_text: Required.",
		},
		{
			"field order is not alphabetical",
			structuredErr(400, `{"zeta":"z","alpha":"a"}`),
			"zeta: z\nalpha: a",
		},
		{
			"non-string values render as JSON",
			structuredErr(400, `{"meta":{"mood":"invalid"},"count":3,"list":[1,"two"]}`),
			"meta: {\"mood\":\"invalid\"}\ncount: 3\nlist: 1, two",
		},
		{"empty object falls back", structuredErr(404, `{}`), MsgNotFound},
		{"non-string detail is a field", structuredErr(400, `{"detail":{"code":1}}`), `detail: {"code":1}`},
		{"empty detail falls back", structuredErr(403, `{"detail":""}`), MsgForbidden},
		{"text payload falls back", structuredErr(502, `<html>Bad Gateway</html>`), "A server error occurred. (HTTP 502)"},
		{"array payload falls back", structuredErr(400, `["oops"]`), MsgBadRequest},
		{"empty payload 401", structuredErr(401, ``), MsgLogin},
		{"empty payload 500", structuredErr(500, ``), "A server error occurred. (HTTP 500)"},
		{"wrapped structured", fmt.Errorf("creating entry: %w", structuredErr(400, `{"detail":"dup"}`)), "dup"},
		{"cancelled", fmt.Errorf("%w: %w", apiclient.ErrCancelled, context.DeadlineExceeded), MsgCancelled},
		{"context canceled", fmt.Errorf("lookup: %w", context.Canceled), MsgCancelled},
		{"network fault message", &apiclient.NetworkFault{Op: "GET /quotes/", Err: errors.New("connection refused")}, "network fault during GET /quotes/: connection refused"},
		{"plain error", errors.New("boom"), "boom"},
		{"blank message", blankErr{}, MsgUnknown},
		{"nil", nil, MsgUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.err)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got)
		})
	}
}

func TestStatusMessage_NeverEmpty(t *testing.T) {
	for code := 100; code < 600; code++ {
		assert.NotEmpty(t, StatusMessage(code))
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		body string
		want ShapeKind
	}{
		{``, ShapeEmpty},
		{"  \n", ShapeEmpty},
		{`plain text`, ShapeText},
		{`{"detail":"x"}`, ShapeDetail},
		{`{"title":"x"}`, ShapeFieldErrors},
		{`{}`, ShapeOther},
		{`[1,2]`, ShapeOther},
		{`"quoted"`, ShapeOther},
	}

	for _, tt := range tests {
		t.Run(tt.want.String()+"/"+tt.body, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(apiclient.NewPayload([]byte(tt.body))).Kind)
		})
	}
}

func TestDecode_FieldMessages(t *testing.T) {
	shape := Decode(apiclient.NewPayload([]byte(`{"body":["a","b"],"mood":"c"}`)))
	assert.Equal(t, []FieldError{
		{Field: "body", Messages: []string{"a", "b"}},
		{Field: "mood", Messages: []string{"c"}},
	}, shape.Fields)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"cancelled", fmt.Errorf("%w: %w", apiclient.ErrCancelled, context.Canceled), KindCancelled},
		{"auth", structuredErr(401, `{"detail":"expired"}`), KindAuth},
		{"validation", structuredErr(400, `{"title":["too short"]}`), KindValidation},
		{"4xx detail is server", structuredErr(404, `{"detail":"Not found."}`), KindServer},
		{"5xx", structuredErr(503, ``), KindServer},
		{"network", &apiclient.NetworkFault{Op: "dial", Err: errors.New("refused")}, KindNetwork},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
