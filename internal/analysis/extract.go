package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	MethodPDFText    = "pdf-text"
	MethodOCR        = "ocr"
	MethodPDFImage   = "pdf-ocr"
	MethodOrdonnance = "ordonnance"
)

var (
	ErrUnsupportedFile = errors.New("only pdf, png and jpeg files are accepted")
	ErrNoText          = errors.New("no readable text found in the document")
)

// maxScanImages bounds the OCR calls spent on one scanned PDF.
const maxScanImages = 5

// Reader is the OCR half of llm.Client.
type Reader interface {
	ReadImage(ctx context.Context, mimeType string, data []byte) (string, error)
}

// DetectType returns the mime type of an upload, sniffing the content first
// and falling back to the file extension.
func DetectType(filename string, data []byte) (string, error) {
	sniffed := http.DetectContentType(data)
	switch {
	case strings.HasPrefix(sniffed, "application/pdf"):
		return "application/pdf", nil
	case strings.HasPrefix(sniffed, "image/png"):
		return "image/png", nil
	case strings.HasPrefix(sniffed, "image/jpeg"):
		return "image/jpeg", nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf", nil
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	}
	return "", ErrUnsupportedFile
}

// Extract returns the document text and the method used to get it. PDFs are
// read directly; images go through OCR, and so do the page images of a PDF
// without a text layer.
func Extract(ctx context.Context, ocr Reader, mimeType string, data []byte) (string, string, error) {
	if mimeType == "application/pdf" {
		text, err := pdfText(data)
		if err != nil {
			return "", "", err
		}
		if strings.TrimSpace(text) != "" {
			return text, MethodPDFText, nil
		}
		text, err = scannedText(ctx, ocr, data)
		if err != nil {
			return "", "", err
		}
		return text, MethodPDFImage, nil
	}

	text, err := ocr.ReadImage(ctx, mimeType, data)
	if err != nil {
		return "", "", fmt.Errorf("ocr: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", "", ErrNoText
	}
	return text, MethodOCR, nil
}

func pdfText(data []byte) (text string, err error) {
	// The parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: unreadable pdf", ErrUnsupportedFile)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedFile, err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return string(b), nil
}

// scannedText runs OCR over the images embedded in a PDF, in page order.
func scannedText(ctx context.Context, ocr Reader, data []byte) (string, error) {
	images, err := pdfImages(data)
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", ErrNoText
	}

	var parts []string
	for _, img := range images {
		text, err := ocr.ReadImage(ctx, img.mimeType, img.data)
		if err != nil {
			return "", fmt.Errorf("ocr: %w", err)
		}
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoText
	}
	return strings.Join(parts, "\n\n"), nil
}

type pageImage struct {
	mimeType string
	data     []byte
}

// pdfImages returns up to maxScanImages embedded images. DCTDecode streams
// come out as JPEG files and Flate images are re-encoded as PNG; other
// encodings are skipped.
func pdfImages(data []byte) (images []pageImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: unreadable pdf", ErrUnsupportedFile)
		}
	}()

	digest := func(img model.Image, _ bool, _ int) error {
		if len(images) >= maxScanImages || img.Thumb || img.IsImgMask {
			return nil
		}
		var mimeType string
		switch img.FileType {
		case "jpg", "jpeg":
			mimeType = "image/jpeg"
		case "png":
			mimeType = "image/png"
		default:
			return nil
		}
		b, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("read pdf image %s: %w", img.Name, err)
		}
		if len(b) > 0 {
			images = append(images, pageImage{mimeType: mimeType, data: b})
		}
		return nil
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractImages(bytes.NewReader(data), nil, digest, conf); err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}
	return images, nil
}
