package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent   = errors.New("qrcode: content cannot be empty")
	ErrFailedToEncode = errors.New("qrcode: failed to generate image")
)

const (
	DefaultSize = 256

	dataURLPrefix = "data:image/png;base64,"
)

// Level is the error correction level. Pairing codes are long, so Medium is
// the default: higher levels push the symbol version up and make phone
// cameras slower to lock on.
type Level = skipqrcode.RecoveryLevel

const (
	Low     Level = skipqrcode.Low
	Medium  Level = skipqrcode.Medium
	High    Level = skipqrcode.High
	Highest Level = skipqrcode.Highest
)

// Renderer turns challenge strings into PNG images.
type Renderer struct {
	size  int
	level Level
}

type Option func(*Renderer)

// WithSize sets the image edge in pixels. Non-positive values keep the default.
func WithSize(px int) Option {
	return func(r *Renderer) {
		if px > 0 {
			r.size = px
		}
	}
}

func WithLevel(l Level) Option {
	return func(r *Renderer) { r.level = l }
}

func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{size: DefaultSize, level: Medium}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PNG encodes content as a QR code image.
func (r *Renderer) PNG(content string) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	png, err := skipqrcode.Encode(content, r.level, r.size)
	if err != nil {
		return nil, errors.Join(ErrFailedToEncode, err)
	}
	return png, nil
}

// DataURL encodes content and returns it as a data:image/png;base64 URL that
// a browser can put straight into an <img src>.
func (r *Renderer) DataURL(content string) (string, error) {
	png, err := r.PNG(content)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// Generate is PNG with a one-off renderer of the given size.
func Generate(content string, size int) ([]byte, error) {
	return NewRenderer(WithSize(size)).PNG(content)
}

// DataURL is Renderer.DataURL with default settings.
func DataURL(content string) (string, error) {
	return NewRenderer().DataURL(content)
}
