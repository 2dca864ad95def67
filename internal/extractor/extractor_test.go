package extractor

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image/color"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimalPDF writes a one page PDF showing text, with a correct xref table.
func minimalPDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type fakeTranscriber struct {
	got      []byte
	mimeType string
	out      string
	err      error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, image []byte, mimeType, _ string) (string, error) {
	f.got = image
	f.mimeType = mimeType
	return f.out, f.err
}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(w, h, color.White), imaging.PNG))
	return buf.Bytes()
}

func TestExtractPDF(t *testing.T) {
	text, err := New(nil).Extract(context.Background(), ContentTypePDF, minimalPDF("PSA 6.2 ng/mL"))
	require.NoError(t, err)
	assert.Contains(t, text, "PSA 6.2 ng/mL")
}

func TestExtractPDFErrors(t *testing.T) {
	e := New(nil)

	_, err := e.Extract(context.Background(), ContentTypePDF, []byte("not a pdf"))
	assert.Error(t, err)

	_, err = e.Extract(context.Background(), ContentTypePDF, minimalPDF(""))
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtractImageDownscales(t *testing.T) {
	tr := &fakeTranscriber{out: " Hemoglobin 10.1 g/dL \n"}
	text, err := New(tr).Extract(context.Background(), ContentTypePNG, pngOf(t, 3200, 800))
	require.NoError(t, err)
	assert.Equal(t, "Hemoglobin 10.1 g/dL", text)
	assert.Equal(t, ContentTypePNG, tr.mimeType)

	img, err := imaging.Decode(bytes.NewReader(tr.got))
	require.NoError(t, err)
	assert.Equal(t, 1600, img.Bounds().Dx())
	assert.Equal(t, 400, img.Bounds().Dy())
}

func TestExtractImageKeepsSmallImages(t *testing.T) {
	tr := &fakeTranscriber{out: "ok"}
	_, err := New(tr).Extract(context.Background(), ContentTypeJPEG, pngOf(t, 200, 100))
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(tr.got))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestExtractImageFailures(t *testing.T) {
	_, err := New(nil).Extract(context.Background(), ContentTypePNG, pngOf(t, 10, 10))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = New(&fakeTranscriber{err: errors.New("quota")}).Extract(context.Background(), ContentTypePNG, pngOf(t, 10, 10))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "quota"))

	_, err = New(&fakeTranscriber{}).Extract(context.Background(), ContentTypePNG, []byte("garbage"))
	assert.Error(t, err)

	_, err = New(nil).Extract(context.Background(), "text/plain", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

// pngHeader is the signature and IHDR chunk of an RGBA PNG, enough for a
// decoder to learn the dimensions.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 4+13)
	copy(chunk, "IHDR")
	binary.BigEndian.PutUint32(chunk[4:], w)
	binary.BigEndian.PutUint32(chunk[8:], h)
	chunk[12] = 8 // bit depth
	chunk[13] = 6 // truecolor with alpha

	_ = binary.Write(&buf, binary.BigEndian, uint32(13))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestExtractImageRejectsHugeDimensions(t *testing.T) {
	transcriber := &fakeTranscriber{out: "never"}
	_, err := New(transcriber).Extract(context.Background(), ContentTypePNG, pngHeader(20000, 20000))
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Contains(t, err.Error(), "20000x20000")
	assert.Nil(t, transcriber.got)
}
