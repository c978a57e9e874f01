package ocr

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/joseph-ayodele/claims-tracker/constants"
)

const (
	headerProbeBytes   = 2048
	headerPreviewChars = 120
)

// InspectionReport describes what an upload looks like before any extraction runs.
type InspectionReport struct {
	SizeBytes         int64   `json:"size_bytes"`
	HeaderPreview     string  `json:"header_preview"`
	HasPDFSignature   bool    `json:"has_pdf_signature"`
	HasImageSignature bool    `json:"has_image_signature"`
	IsPDF             bool    `json:"is_pdf"`
	IsImage           bool    `json:"is_image"`
	Extension         *string `json:"extension"`
	MimeType          *string `json:"mime_type"`
}

// Format picks the extraction branch. PDF wins when both flags are set.
func (r InspectionReport) Format() constants.DocumentFormat {
	switch {
	case r.IsPDF:
		return constants.FormatPDF
	case r.IsImage:
		return constants.FormatImage
	default:
		return constants.FormatUnsupported
	}
}

type magic struct {
	offset int
	bytes  []byte
}

// imageSignatures lists every magic sequence that must match for a format.
var imageSignatures = map[string][]magic{
	"jpeg":    {{0, []byte{0xFF, 0xD8, 0xFF}}},
	"png":     {{0, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}},
	"bmp":     {{0, []byte("BM")}},
	"webp":    {{0, []byte("RIFF")}, {8, []byte("WEBP")}},
	"tiff-le": {{0, []byte{0x49, 0x49, 0x2A, 0x00}}},
	"tiff-be": {{0, []byte{0x4D, 0x4D, 0x00, 0x2A}}},
}

// InspectFile stats path and sniffs its first bytes. originalName and mime are the declared upload metadata.
func InspectFile(path, originalName, mime string) (InspectionReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return InspectionReport{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return InspectionReport{}, fmt.Errorf("stat %s: %w", path, err)
	}
	probe := make([]byte, headerProbeBytes)
	n, err := io.ReadFull(f, probe)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return InspectionReport{}, fmt.Errorf("read header %s: %w", path, err)
	}
	return Inspect(probe[:n], info.Size(), originalName, mime), nil
}

// Inspect classifies a document from its header bytes and declared metadata. It never fails.
func Inspect(header []byte, size int64, originalName, mime string) InspectionReport {
	if len(header) > headerProbeBytes {
		header = header[:headerProbeBytes]
	}
	text := latin1(header)

	ext := strings.ToLower(filepath.Ext(originalName))
	declared := mime
	mime = strings.ToLower(strings.TrimSpace(mime))

	r := InspectionReport{
		SizeBytes:         size,
		HeaderPreview:     firstChars(text, headerPreviewChars),
		HasPDFSignature:   strings.Contains(text, "%PDF"),
		HasImageSignature: hasImageSignature(header),
		Extension:         optional(ext),
		MimeType:          optional(declared),
	}
	r.IsPDF = r.HasPDFSignature || ext == ".pdf" || mime == constants.MimePDF
	_, allowedExt := constants.ImageExtensions[constants.NormalizeExt(ext)]
	r.IsImage = r.HasImageSignature || (strings.HasPrefix(mime, "image/") && allowedExt)
	return r
}

func hasImageSignature(header []byte) bool {
	for _, parts := range imageSignatures {
		if matchAll(header, parts) {
			return true
		}
	}
	return false
}

func matchAll(header []byte, parts []magic) bool {
	for _, m := range parts {
		end := m.offset + len(m.bytes)
		if len(header) < end || !bytes.Equal(header[m.offset:end], m.bytes) {
			return false
		}
	}
	return true
}

func latin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func firstChars(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
