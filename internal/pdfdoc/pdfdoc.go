package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	"github.com/signdesk/signdesk/internal/document"
	"github.com/signdesk/signdesk/internal/signing"
)

var (
	ErrInvalidPDF  = errors.New("invalid pdf")
	ErrNoInk       = errors.New("signature image is blank")
	ErrStampFailed = errors.New("stamp signature failed")
)

// pixelsPerPoint is the raster density of stamped signatures (288 dpi).
const pixelsPerPoint = 4

// Processor reads page geometry from PDFs and stamps signatures into them.
type Processor interface {
	Info(rs io.ReadSeeker) (*document.PDFInfo, error)
	Stamp(rs io.ReadSeeker, w io.Writer, sig image.Image, plan []signing.Placement) error
}

// PDFCPU is the pdfcpu-backed Processor.
type PDFCPU struct {
	conf *model.Configuration
}

func New() *PDFCPU {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFCPU{conf: conf}
}

// Info returns the size of every page in points.
func (p *PDFCPU) Info(rs io.ReadSeeker) (*document.PDFInfo, error) {
	ctx, err := api.ReadContext(rs, p.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: page dimensions: %w", ErrInvalidPDF, err)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrInvalidPDF)
	}

	info := &document.PDFInfo{PageCount: len(dims), Pages: make([]document.PageDimensions, len(dims))}
	for i, d := range dims {
		info.Pages[i] = document.PageDimensions{Width: d.Width, Height: d.Height}
	}
	return info, nil
}

// Stamp writes a copy of the PDF with sig fitted into every placement.
func (p *PDFCPU) Stamp(rs io.ReadSeeker, w io.Writer, sig image.Image, plan []signing.Placement) error {
	ink, ok := signing.Crop(sig)
	if !ok {
		return ErrNoInk
	}

	src, err := io.ReadAll(rs)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}

	for _, pl := range plan {
		var buf bytes.Buffer
		if err := png.Encode(&buf, FitToBox(ink, pl.Rect.Width, pl.Rect.Height, pixelsPerPoint)); err != nil {
			return fmt.Errorf("encode stamp: %w", err)
		}

		desc := fmt.Sprintf("pos:bl, off:%.3f %.3f, sc:%.6f abs, rot:0, op:1", pl.Rect.X, pl.Rect.Y, 1.0/pixelsPerPoint)
		wm, err := api.ImageWatermarkForReader(&buf, desc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("%w: field %s: %w", ErrStampFailed, pl.FieldID, err)
		}

		var out bytes.Buffer
		if err := api.AddWatermarks(bytes.NewReader(src), &out, []string{fmt.Sprint(pl.Page)}, wm, p.conf); err != nil {
			return fmt.Errorf("%w: field %s: %w", ErrStampFailed, pl.FieldID, err)
		}
		src = out.Bytes()
		slog.Debug("stamped field", "field", pl.FieldID, "page", pl.Page, "rect", pl.Rect)
	}

	_, err = w.Write(src)
	return err
}

// FitToBox scales sig to fit a box of width×height points rendered at
// pxPerPt, keeping its aspect ratio, centered on a transparent canvas.
func FitToBox(sig image.Image, width, height, pxPerPt float64) *image.RGBA {
	cw := max(int(math.Ceil(width*pxPerPt)), 1)
	ch := max(int(math.Ceil(height*pxPerPt)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, cw, ch))

	sb := sig.Bounds()
	if sb.Empty() {
		return dst
	}
	s := math.Min(float64(cw)/float64(sb.Dx()), float64(ch)/float64(sb.Dy()))
	w := max(int(math.Round(float64(sb.Dx())*s)), 1)
	h := max(int(math.Round(float64(sb.Dy())*s)), 1)
	x0, y0 := (cw-w)/2, (ch-h)/2

	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+w, y0+h), sig, sb, draw.Over, nil)
	return dst
}
