package templates

import (
	"bytes"
	"context"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"certhub-backend/internal/domain"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func writeBackground(t *testing.T, dir, name string, w, h int) {
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))
}

func renderInput(layout domain.LayoutConfig, lang string) RenderInput {
	return RenderInput{
		Certificate: &domain.Certificate{
			CertificateNo:       "CERT-2024ABCD1234",
			QRCodeHash:          "deadbeef",
			IssueDate:           time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
			CertificateLanguage: lang,
		},
		Student: &domain.Student{FirstName: "Ayse", LastName: "Yilmaz"},
		Program: &domain.TrainingProgram{Name: domain.LocalizedName{"tr": "Ilk Yardim", "en": "First Aid"}},
		Template: &domain.CertificateTemplate{
			BackgroundRef: "bg.png",
			Type:          domain.TemplateTypeStandard,
			LayoutConfig:  datatypes.NewJSONType(layout),
		},
	}
}

func newEngine(t *testing.T, mode string) *Engine {
	dir := t.TempDir()
	writeBackground(t, dir, "bg.png", 400, 200)
	return &Engine{Assets: FileStore{Dir: dir}, BaseURL: "https://certs.example.com/", FitMode: mode}
}

func TestResolve_ElementsInPaintOrder(t *testing.T) {
	e := newEngine(t, "")
	layout := domain.LayoutConfig{Elements: []domain.Element{
		{Type: domain.ElementStudentName, X: 10, Y: 20, FontSize: 24, Color: "#112233", FontFamily: "Times"},
		{Type: domain.ElementCertificateNo, X: 1, Y: 2},
		{Type: domain.ElementIssueDate, X: 3, Y: 4},
		{Type: domain.ElementTrainingName, X: 5, Y: 6},
		{Type: domain.ElementQRCode, X: 300, Y: 100, Width: 80, Height: 80},
		{Type: "signature_line", X: 7, Y: 8, Label: "Director"},
	}}

	doc, err := e.Resolve(context.Background(), renderInput(layout, "en"))
	require.NoError(t, err)
	require.Len(t, doc.Elements, 6)

	assert.Equal(t, "Ayse Yilmaz", doc.Elements[0].Text)
	assert.Equal(t, 24.0, doc.Elements[0].FontSize)
	assert.Equal(t, "#112233", doc.Elements[0].Color)
	assert.Equal(t, "Times", doc.Elements[0].FontFamily)
	assert.Equal(t, 10.0, doc.Elements[0].X)
	assert.Equal(t, 20.0, doc.Elements[0].Y)

	assert.Equal(t, "CERT-2024ABCD1234", doc.Elements[1].Text)
	assert.Equal(t, 14.0, doc.Elements[1].FontSize)
	assert.Equal(t, "#000000", doc.Elements[1].Color)
	assert.Equal(t, "Helvetica", doc.Elements[1].FontFamily)

	assert.Equal(t, "05.03.2024", doc.Elements[2].Text)
	assert.Equal(t, "First Aid", doc.Elements[3].Text)

	qr := doc.Elements[4]
	assert.Equal(t, domain.ElementQRCode, qr.Kind)
	img, err := imaging.Decode(bytes.NewReader(qr.Image))
	require.NoError(t, err)
	assert.Equal(t, 80, img.Bounds().Dx())
	assert.Equal(t, 80, img.Bounds().Dy())

	assert.Equal(t, "Director", doc.Elements[5].Text)
	assert.Equal(t, domain.ElementKind("signature_line"), doc.Elements[5].Kind)
}

func TestResolve_TrainingNameFallsBackToTurkish(t *testing.T) {
	e := newEngine(t, "")
	layout := domain.LayoutConfig{Elements: []domain.Element{{Type: domain.ElementTrainingName}}}

	doc, err := e.Resolve(context.Background(), renderInput(layout, "fr"))
	require.NoError(t, err)
	assert.Equal(t, "Ilk Yardim", doc.Elements[0].Text)

	in := renderInput(layout, "fr")
	in.Program.Name = domain.LocalizedName{"en": "First Aid", "de": "Erste Hilfe"}
	doc, err = e.Resolve(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "Erste Hilfe", doc.Elements[0].Text)
}

func TestResolve_QRDefaultsAndURL(t *testing.T) {
	e := newEngine(t, "")
	assert.Equal(t, "https://certs.example.com/verify/deadbeef", e.VerifyURL("deadbeef"))

	layout := domain.LayoutConfig{Elements: []domain.Element{{Type: domain.ElementQRCode, X: 1, Y: 1}}}
	doc, err := e.Resolve(context.Background(), renderInput(layout, "tr"))
	require.NoError(t, err)
	qr := doc.Elements[0]
	assert.Equal(t, 100.0, qr.Width)
	assert.Equal(t, 100.0, qr.Height)
	img, err := imaging.Decode(bytes.NewReader(qr.Image))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestResolve_CanvasFromLayoutOrBackground(t *testing.T) {
	e := newEngine(t, "")

	doc, err := e.Resolve(context.Background(), renderInput(domain.LayoutConfig{}, "tr"))
	require.NoError(t, err)
	assert.Equal(t, 400, doc.CanvasWidth)
	assert.Equal(t, 200, doc.CanvasHeight)

	doc, err = e.Resolve(context.Background(), renderInput(domain.LayoutConfig{CanvasWidth: 800, CanvasHeight: 600}, "tr"))
	require.NoError(t, err)
	assert.Equal(t, 800, doc.CanvasWidth)
	assert.Equal(t, 600, doc.CanvasHeight)
	bg, err := imaging.Decode(bytes.NewReader(doc.Background))
	require.NoError(t, err)
	assert.Equal(t, 800, bg.Bounds().Dx())
	assert.Equal(t, 600, bg.Bounds().Dy())

	// only one dimension set: fall back to the image
	doc, err = e.Resolve(context.Background(), renderInput(domain.LayoutConfig{CanvasWidth: 800}, "tr"))
	require.NoError(t, err)
	assert.Equal(t, 400, doc.CanvasWidth)
}

func TestResolve_FitModes(t *testing.T) {
	layout := domain.LayoutConfig{CanvasWidth: 200, CanvasHeight: 200}

	for _, mode := range []string{FitStretch, FitContain, FitCover} {
		e := newEngine(t, mode)
		doc, err := e.Resolve(context.Background(), renderInput(layout, "tr"))
		require.NoError(t, err, mode)
		assert.Equal(t, mode, doc.FitMode)
		bg, err := imaging.Decode(bytes.NewReader(doc.Background))
		require.NoError(t, err)
		assert.Equal(t, 200, bg.Bounds().Dx(), mode)
		assert.Equal(t, 200, bg.Bounds().Dy(), mode)

		// 400x200 into 200x200: contain letterboxes top and bottom
		r, g, b, _ := bg.At(100, 5).RGBA()
		if mode == FitContain {
			assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b}, mode)
		} else {
			assert.NotEqual(t, uint32(0xffff), g, mode)
		}
	}

	e := newEngine(t, "diagonal")
	doc, err := e.Resolve(context.Background(), renderInput(layout, "tr"))
	require.NoError(t, err)
	assert.Equal(t, FitStretch, doc.FitMode)
}

func TestResolve_MissingBackgroundAborts(t *testing.T) {
	e := &Engine{Assets: FileStore{Dir: t.TempDir()}, BaseURL: "http://x"}
	layout := domain.LayoutConfig{Elements: []domain.Element{{Type: domain.ElementStudentName}}}

	doc, err := e.Resolve(context.Background(), renderInput(layout, "tr"))
	assert.ErrorIs(t, err, domain.ErrBackgroundAssetMissing)
	assert.Nil(t, doc)
}

func TestFileStore_RejectsEscapes(t *testing.T) {
	dir := t.TempDir()
	writeBackground(t, dir, "bg.png", 10, 10)
	s := FileStore{Dir: dir}

	_, err := s.Load(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrBackgroundAssetMissing)
	_, err = s.Load(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrBackgroundAssetMissing)
	b, err := s.Load(context.Background(), "bg.png")
	require.NoError(t, err)
	assert.NotEmpty(t, b)
}

func TestResolve_CardPageSize(t *testing.T) {
	e := newEngine(t, "")
	in := renderInput(domain.LayoutConfig{}, "tr")
	in.Template.Type = domain.TemplateTypeCard
	doc, err := e.Resolve(context.Background(), in)
	require.NoError(t, err)
	assert.Less(t, doc.PageWidth, 300.0)
}

func TestValidateLayout(t *testing.T) {
	assert.NoError(t, ValidateLayout(domain.LayoutConfig{Elements: []domain.Element{
		{Type: domain.ElementLabel, Label: "x", Color: "#fff"},
		{Type: domain.ElementQRCode, Width: 50, Height: 50},
	}}))
	// kinds without a resolver are kept and render as labels
	assert.NoError(t, ValidateLayout(domain.LayoutConfig{Elements: []domain.Element{{Type: "barcode", Label: "1234"}}}))
	assert.ErrorIs(t, ValidateLayout(domain.LayoutConfig{Elements: []domain.Element{{Type: "barcode", Y: -5}}}), domain.ErrValidation)
	assert.ErrorIs(t, ValidateLayout(domain.LayoutConfig{Elements: []domain.Element{{Type: "barcode", Color: "blue"}}}), domain.ErrValidation)
	assert.ErrorIs(t, ValidateLayout(domain.LayoutConfig{Elements: []domain.Element{{Type: domain.ElementLabel, X: -1}}}), domain.ErrValidation)
	assert.ErrorIs(t, ValidateLayout(domain.LayoutConfig{Elements: []domain.Element{{Type: domain.ElementLabel, Color: "red"}}}), domain.ErrValidation)
	assert.ErrorIs(t, ValidateLayout(domain.LayoutConfig{CanvasWidth: -10}), domain.ErrValidation)
	assert.NoError(t, ValidateLayout(domain.LayoutConfig{CanvasWidth: MaxCanvasSide, CanvasHeight: MaxCanvasSide}))
	assert.ErrorIs(t, ValidateLayout(domain.LayoutConfig{CanvasWidth: MaxCanvasSide + 1, CanvasHeight: 10}), domain.ErrValidation)
	assert.ErrorIs(t, ValidateLayout(domain.LayoutConfig{CanvasWidth: 10, CanvasHeight: 1 << 30}), domain.ErrValidation)
}

func TestResolve_UnknownKindRendersLabel(t *testing.T) {
	e := newEngine(t, "")
	layout := domain.LayoutConfig{Elements: []domain.Element{{Type: "barcode", X: 4, Y: 5, Label: "1234"}}}
	require.NoError(t, ValidateLayout(layout))

	doc, err := e.Resolve(context.Background(), renderInput(layout, "en"))
	require.NoError(t, err)
	require.Len(t, doc.Elements, 1)
	assert.Equal(t, "1234", doc.Elements[0].Text)
}

func TestResolve_RejectsOversizeCanvas(t *testing.T) {
	dir := t.TempDir()
	writeBackground(t, dir, "bg.png", 400, 200)
	writeBackground(t, dir, "wide.png", MaxCanvasSide+1, 1)
	e := &Engine{Assets: FileStore{Dir: dir}, BaseURL: "https://certs.example.com/"}

	// stored layouts predating the limit are still refused at render time
	in := renderInput(domain.LayoutConfig{CanvasWidth: 20000, CanvasHeight: 20000}, "en")
	doc, err := e.Resolve(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Nil(t, doc)

	// size taken from the background
	in = renderInput(domain.LayoutConfig{}, "en")
	in.Template.BackgroundRef = "wide.png"
	doc, err = e.Resolve(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Nil(t, doc)

	// an explicit small canvas does not excuse an oversize source image
	in = renderInput(domain.LayoutConfig{CanvasWidth: 100, CanvasHeight: 100}, "en")
	in.Template.BackgroundRef = "wide.png"
	_, err = e.Resolve(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
