package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"strings"

	"oncology-assist-backend/internal/oncology/prompts"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"

	defaultMaxSide = 1600
	// decoding allocates 4 bytes per pixel before any resize
	defaultMaxPixels = 40_000_000
)

var (
	ErrNoText      = errors.New("no text could be extracted")
	ErrUnsupported = errors.New("unsupported document type")
)

// Transcriber reads text out of an image.
type Transcriber interface {
	Transcribe(ctx context.Context, image []byte, mimeType, instruction string) (string, error)
}

// Extractor turns an uploaded report into plain text.
type Extractor struct {
	transcriber Transcriber
	maxSide     int
	maxPixels   int
}

// New builds an Extractor. Without a transcriber only PDFs are supported.
func New(transcriber Transcriber) *Extractor {
	return &Extractor{transcriber: transcriber, maxSide: defaultMaxSide, maxPixels: defaultMaxPixels}
}

func (e *Extractor) Extract(ctx context.Context, contentType string, data []byte) (string, error) {
	switch contentType {
	case ContentTypePDF:
		return extractPDF(data)
	case ContentTypeJPEG, ContentTypePNG:
		return e.extractImage(ctx, data)
	default:
		return "", errors.Wrap(ErrUnsupported, contentType)
	}
}

func extractPDF(data []byte) (text string, err error) {
	// the parser panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "open pdf")
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "read pdf text")
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", errors.Wrap(err, "read pdf text")
	}

	text = strings.TrimSpace(string(raw))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, error) {
	if e.transcriber == nil {
		return "", errors.Wrap(ErrUnsupported, "image transcription is not configured")
	}

	normalised, err := e.normalise(data)
	if err != nil {
		return "", err
	}

	text, err := e.transcriber.Transcribe(ctx, normalised, ContentTypePNG, prompts.TRANSCRIBE_INSTRUCTION)
	if err != nil {
		return "", errors.Wrap(err, "transcribe image")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// normalise applies EXIF orientation, bounds the longest side and re-encodes as PNG.
func (e *Extractor) normalise(data []byte) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "read image header")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > e.maxPixels {
		return nil, errors.Wrapf(ErrUnsupported, "%s image of %dx%d pixels is too large", format, cfg.Width, cfg.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}

	b := img.Bounds()
	if b.Dx() > e.maxSide || b.Dy() > e.maxSide {
		img = imaging.Fit(img, e.maxSide, e.maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("encode %dx%d image", b.Dx(), b.Dy()))
	}
	return buf.Bytes(), nil
}
