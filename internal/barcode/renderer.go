package barcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io/fs"
	"regexp"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	moduleWidth = 3
	barHeight   = 120
	padding     = 10
	captionGap  = 6

	// MaxLabelLength is the caption limit in runes.
	MaxLabelLength = 20

	imageDir     = "barcodes"
	publicPrefix = "/uploads"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// FileStore is where rendered images are persisted.
type FileStore interface {
	EnsureDir(relDir string) error
	WriteFile(relPath string, data []byte) error
	ReadFile(relPath string) ([]byte, error)
	Exists(relPath string) (bool, error)
	Remove(relPath string) error
}

// Result describes a file render. ImagePath is always the path the image is
// expected at, even when Success is false, so callers can store it and
// render again later.
type Result struct {
	Code      string
	ImagePath string
	Success   bool
	Err       error
}

type Renderer struct {
	files  FileStore
	logger *zap.Logger
}

func NewRenderer(files FileStore, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := files.EnsureDir(imageDir); err != nil {
		logger.Warn("barcode directory not ready", zap.Error(err))
	}
	return &Renderer{files: files, logger: logger}
}

// ImagePath is the public URL path of the image for code.
func (r *Renderer) ImagePath(code string) string {
	return publicPrefix + "/" + r.relPath(code)
}

func (r *Renderer) relPath(code string) string {
	return imageDir + "/" + code + ".png"
}

// Render encodes code as Code-128 with label as caption and writes the PNG.
// Rendering the same input twice produces the same bytes at the same path.
func (r *Renderer) Render(code, label string) Result {
	result := Result{Code: code, ImagePath: r.ImagePath(code)}
	if _, err := r.renderFile(code, label); err != nil {
		r.logger.Error("barcode render failed", zap.String("code", code), zap.Error(err))
		result.Err = err
		return result
	}
	r.logger.Debug("barcode rendered", zap.String("code", code), zap.String("path", result.ImagePath))
	result.Success = true
	return result
}

func (r *Renderer) renderFile(code, label string) ([]byte, error) {
	data, err := Encode(code, Caption(code, label))
	if err != nil {
		return nil, err
	}
	if err := r.files.WriteFile(r.relPath(code), data); err != nil {
		return nil, fmt.Errorf("write barcode image: %w", err)
	}
	return data, nil
}

// RenderBase64 returns a data URI for code without touching storage.
func (r *Renderer) RenderBase64(code string) (string, error) {
	data, err := Encode(code, code)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Load returns the stored image for code, rendering and storing it first
// when the file is missing.
func (r *Renderer) Load(code, label string) ([]byte, error) {
	if !ValidCode(code) {
		return nil, fmt.Errorf("invalid barcode value %q", code)
	}
	data, err := r.files.ReadFile(r.relPath(code))
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	r.logger.Info("barcode image missing, rendering", zap.String("code", code))
	return r.renderFile(code, label)
}

func (r *Renderer) Exists(code string) bool {
	if !ValidCode(code) {
		return false
	}
	ok, err := r.files.Exists(r.relPath(code))
	return err == nil && ok
}

func (r *Renderer) Remove(code string) error {
	if !ValidCode(code) {
		return nil
	}
	return r.files.Remove(r.relPath(code))
}

// ValidCode reports whether code can be encoded and used as a file name.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Caption picks the human-readable text printed under the bars.
func Caption(code, label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return code
	}
	runes := []rune(label)
	if len(runes) > MaxLabelLength {
		label = strings.TrimSpace(string(runes[:MaxLabelLength]))
	}
	return label
}

// Encode renders code as a Code-128 PNG with caption centered below it.
func Encode(code, caption string) ([]byte, error) {
	if !ValidCode(code) {
		return nil, fmt.Errorf("invalid barcode value %q", code)
	}

	symbol, err := code128.Encode(code)
	if err != nil {
		return nil, fmt.Errorf("encode code128: %w", err)
	}
	bars, err := barcode.Scale(symbol, symbol.Bounds().Dx()*moduleWidth, barHeight)
	if err != nil {
		return nil, fmt.Errorf("scale code128: %w", err)
	}

	face := basicfont.Face7x13
	metrics := face.Metrics()
	textWidth := font.MeasureString(face, caption).Ceil()
	textHeight := metrics.Height.Ceil()

	barsWidth := bars.Bounds().Dx()
	contentWidth := max(barsWidth, textWidth)
	width := contentWidth + 2*padding
	height := padding + barHeight + captionGap + textHeight + padding

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	barsX := padding + (contentWidth-barsWidth)/2
	draw.Draw(canvas, image.Rect(barsX, padding, barsX+barsWidth, padding+barHeight), bars, bars.Bounds().Min, draw.Src)

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.Black,
		Face: face,
		Dot: fixed.P(
			padding+(contentWidth-textWidth)/2,
			padding+barHeight+captionGap+metrics.Ascent.Ceil(),
		),
	}
	drawer.DrawString(caption)

	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
