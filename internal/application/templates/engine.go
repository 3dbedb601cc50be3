package templates

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"certhub-backend/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
)

const (
	FitStretch = "stretch"
	FitContain = "contain"
	FitCover   = "cover"

	DefaultFontSize   = 14
	DefaultColor      = "#000000"
	DefaultFontFamily = "Helvetica"
	DefaultQRSize     = 100

	dateLayout = "02.01.2006"
)

// Page sizes in points, used by the PDF collaborator when a template has no explicit page.
var pageSizes = map[string][2]float64{
	domain.TemplateTypeStandard: {841.89, 595.28}, // A4 landscape
	domain.TemplateTypeCard:     {242.65, 153.07}, // ID-1 card
}

type RenderInput struct {
	Certificate *domain.Certificate
	Student     *domain.Student
	Program     *domain.TrainingProgram
	Template    *domain.CertificateTemplate
}

// Document is the fully resolved geometry handed to the PDF renderer.
type Document struct {
	CertificateNo string            `json:"certificate_no"`
	TemplateType  string            `json:"template_type"`
	PageWidth     float64           `json:"page_width"`
	PageHeight    float64           `json:"page_height"`
	CanvasWidth   int               `json:"canvas_width"`
	CanvasHeight  int               `json:"canvas_height"`
	FitMode       string            `json:"fit_mode"`
	Background    []byte            `json:"background"`
	Elements      []ResolvedElement `json:"elements"`
}

// ResolvedElement has its content filled in. Text elements carry Text and styling;
// QR elements carry a PNG in Image.
type ResolvedElement struct {
	Kind       domain.ElementKind `json:"kind"`
	X          float64            `json:"x"`
	Y          float64            `json:"y"`
	Text       string             `json:"text,omitempty"`
	FontSize   float64            `json:"font_size,omitempty"`
	Color      string             `json:"color,omitempty"`
	FontFamily string             `json:"font_family,omitempty"`
	Width      float64            `json:"width,omitempty"`
	Height     float64            `json:"height,omitempty"`
	Image      []byte             `json:"image,omitempty"`
}

type resolver func(e *Engine, el domain.Element, in RenderInput) (ResolvedElement, error)

var resolvers = map[domain.ElementKind]resolver{
	domain.ElementStudentName: textResolver(func(in RenderInput) string {
		return in.Student.FullName()
	}),
	domain.ElementCertificateNo: textResolver(func(in RenderInput) string {
		return in.Certificate.CertificateNo
	}),
	domain.ElementIssueDate: textResolver(func(in RenderInput) string {
		return in.Certificate.IssueDate.Format(dateLayout)
	}),
	domain.ElementTrainingName: textResolver(func(in RenderInput) string {
		return in.Program.Name.Resolve(in.Certificate.CertificateLanguage)
	}),
	domain.ElementQRCode: resolveQR,
}

var labelResolver = textResolver(nil)

// Engine resolves a template layout against one certificate.
type Engine struct {
	Assets  AssetStore
	BaseURL string
	FitMode string
}

// VerifyURL is the public verification link encoded in QR elements.
func (e *Engine) VerifyURL(hash string) string {
	return strings.TrimRight(e.BaseURL, "/") + "/verify/" + hash
}

// Resolve loads the background, sizes the canvas and resolves every element in
// paint order. Any failure returns no document.
func (e *Engine) Resolve(ctx context.Context, in RenderInput) (*Document, error) {
	if in.Certificate == nil || in.Student == nil || in.Program == nil || in.Template == nil {
		return nil, domain.Invalid("certificate", "student, training program and template must be loaded")
	}

	raw, err := e.Assets.Load(ctx, in.Template.BackgroundRef)
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", in.Template.BackgroundRef, err)
	}

	layout := in.Template.Layout()
	w, h := layout.CanvasWidth, layout.CanvasHeight
	if w <= 0 || h <= 0 {
		w, h = cfg.Width, cfg.Height
	}
	if err := checkCanvas(w, h); err != nil {
		return nil, err
	}
	// the source is decoded in full before resizing, so it is bounded too
	if err := checkCanvas(cfg.Width, cfg.Height); err != nil {
		return nil, domain.Invalid("background", fmt.Sprintf("image must not exceed %dpx per side", MaxCanvasSide))
	}
	bg, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", in.Template.BackgroundRef, err)
	}

	mode := normalizeFit(e.FitMode)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitBackground(bg, w, h, mode), imaging.PNG); err != nil {
		return nil, err
	}

	page, ok := pageSizes[in.Template.Type]
	if !ok {
		page = pageSizes[domain.TemplateTypeStandard]
	}

	doc := &Document{
		CertificateNo: in.Certificate.CertificateNo,
		TemplateType:  in.Template.Type,
		PageWidth:     page[0],
		PageHeight:    page[1],
		CanvasWidth:   w,
		CanvasHeight:  h,
		FitMode:       mode,
		Background:    buf.Bytes(),
		Elements:      make([]ResolvedElement, 0, len(layout.Elements)),
	}
	for _, el := range layout.Elements {
		r, ok := resolvers[el.Type]
		if !ok {
			r = labelResolver
		}
		out, err := r(e, el, in)
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", el.Type, err)
		}
		doc.Elements = append(doc.Elements, out)
	}
	return doc, nil
}

// textResolver builds a resolver for a text element. A nil content func
// passes the element's label through.
func textResolver(content func(in RenderInput) string) resolver {
	return func(_ *Engine, el domain.Element, in RenderInput) (ResolvedElement, error) {
		text := el.Label
		if content != nil {
			text = content(in)
		}
		out := ResolvedElement{
			Kind:       el.Type,
			X:          el.X,
			Y:          el.Y,
			Text:       text,
			FontSize:   el.FontSize,
			Color:      el.Color,
			FontFamily: el.FontFamily,
		}
		if out.FontSize <= 0 {
			out.FontSize = DefaultFontSize
		}
		if out.Color == "" {
			out.Color = DefaultColor
		}
		if out.FontFamily == "" {
			out.FontFamily = DefaultFontFamily
		}
		return out, nil
	}
}

func resolveQR(e *Engine, el domain.Element, in RenderInput) (ResolvedElement, error) {
	w, h := el.Width, el.Height
	if w <= 0 {
		w = DefaultQRSize
	}
	if h <= 0 {
		h = DefaultQRSize
	}
	png, err := qrPNG(e.VerifyURL(in.Certificate.QRCodeHash), int(math.Round(w)), int(math.Round(h)))
	if err != nil {
		return ResolvedElement{}, err
	}
	return ResolvedElement{Kind: el.Type, X: el.X, Y: el.Y, Width: w, Height: h, Image: png}, nil
}

func qrPNG(content string, w, h int) ([]byte, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	size := w
	if h > size {
		size = h
	}
	img := q.Image(size)
	if b := img.Bounds(); b.Dx() != w || b.Dy() != h {
		img = imaging.Resize(img, w, h, imaging.NearestNeighbor)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func normalizeFit(mode string) string {
	switch mode {
	case FitContain, FitCover:
		return mode
	}
	return FitStretch
}

func fitBackground(src image.Image, w, h int, mode string) image.Image {
	switch mode {
	case FitCover:
		return imaging.Fill(src, w, h, imaging.Center, imaging.Lanczos)
	case FitContain:
		sw, sh := float64(src.Bounds().Dx()), float64(src.Bounds().Dy())
		scale := math.Min(float64(w)/sw, float64(h)/sh)
		nw := int(math.Max(1, math.Round(sw*scale)))
		nh := int(math.Max(1, math.Round(sh*scale)))
		canvas := imaging.New(w, h, color.White)
		return imaging.PasteCenter(canvas, imaging.Resize(src, nw, nh, imaging.Lanczos))
	default:
		return imaging.Resize(src, w, h, imaging.Lanczos)
	}
}
