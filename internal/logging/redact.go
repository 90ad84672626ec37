package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/daybook/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const redacted = "[REDACTED]"

// Secret logs a config.Secret as its length only.
func Secret(key string, val config.Secret) zap.Field {
	return zap.Object(key, secretField{key: key, n: len(val.Value())})
}

type secretField struct {
	key string
	n   int
}

func (s secretField) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString(s.key, masked(s.n))
	return nil
}

// RedactedString logs a credential-like string as its length only.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, masked(len(val)))
}

func masked(n int) string {
	return "[REDACTED:" + strconv.Itoa(n) + "]"
}

// scrubber knows which keys are credentials and which value shapes look
// like one (bearer headers, JWTs).
type scrubber struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func newScrubber(cfg RedactionConfig) (*scrubber, error) {
	s := &scrubber{keys: make(map[string]struct{}, len(cfg.Fields))}
	for _, k := range cfg.Fields {
		s.keys[strings.ToLower(k)] = struct{}{}
	}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		s.patterns = append(s.patterns, re)
	}
	return s, nil
}

func (s *scrubber) sensitive(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s.keys[strings.ToLower(key)]
	return ok
}

func (s *scrubber) scrub(val string) string {
	if s == nil {
		return val
	}
	for _, re := range s.patterns {
		val = re.ReplaceAllString(val, redacted)
	}
	return val
}

// field rewrites one zap field so no credential survives encoding.
func (s *scrubber) field(f zapcore.Field) zapcore.Field {
	switch {
	case s.sensitive(f.Key):
		return zap.String(f.Key, redacted)
	case f.Type == zapcore.StringType:
		return zap.String(f.Key, s.scrub(f.String))
	case f.Type == zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok && err != nil {
			return zap.String(f.Key, s.scrub(err.Error()))
		}
	}
	return f
}

// RedactingEncoder masks credential fields and token-shaped values. Fields
// attached with With reach the Add* methods; per-entry fields and the
// message go through EncodeEntry.
type RedactingEncoder struct {
	zapcore.Encoder
	s *scrubber
}

// NewRedactingEncoder wraps base. A disabled config passes everything through.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	if !cfg.Enabled {
		return &RedactingEncoder{Encoder: base}, nil
	}
	s, err := newScrubber(cfg)
	if err != nil {
		return nil, err
	}
	return &RedactingEncoder{Encoder: base, s: s}, nil
}

func (e *RedactingEncoder) AddString(key, val string) {
	if e.s.sensitive(key) {
		val = redacted
	}
	e.Encoder.AddString(key, e.s.scrub(val))
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.s.sensitive(key) {
		val = []byte(redacted)
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.s.sensitive(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.s.sensitive(key) {
		e.Encoder.AddString(key, redacted)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.s == nil {
		return e.Encoder.EncodeEntry(ent, fields)
	}
	ent.Message = e.s.scrub(ent.Message)
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		out[i] = e.s.field(f)
	}
	return e.Encoder.EncodeEntry(ent, out)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), s: e.s}
}
