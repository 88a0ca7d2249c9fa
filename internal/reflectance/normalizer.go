package reflectance

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/Suryanandx/2d-code-verifier/internal/errors"
	"github.com/Suryanandx/2d-code-verifier/internal/logger"
)

const stage = "normalize"

const (
	// blocksPerSide controls the resolution of the illumination estimate.
	blocksPerSide = 8
	minBlockSize  = 8
	// paperQuantile is the robust top of a block, used to split paper from ink.
	paperQuantile = 0.95
	// Blocks whose paper level is below this fraction of their brightest
	// neighbour are assumed to be covered by ink and are filled from their
	// neighbours.
	minPaperFraction = 0.5
	backgroundSigma  = 0.5
	minBackground    = 1e-3
)

// Options configure a Normalizer.
type Options struct {
	MaxPixels    int
	MaxDimension int
	Offset       float64
	Pitch        float64
	// Flatten enables illumination flattening.
	Flatten bool
}

// Normalizer decodes images and converts them to reflectance grids.
type Normalizer struct {
	opts Options
	lut  [256]float64
}

// NewNormalizer precomputes the sRGB to linear reflectance table. A
// non-positive Pitch is treated as 1.
func NewNormalizer(opts Options) *Normalizer {
	if opts.Pitch <= 0 {
		opts.Pitch = 1
	}
	n := &Normalizer{opts: opts}
	for i := range n.lut {
		v := float64(i) / 255
		lin, _, _ := colorful.Color{R: v, G: v, B: v}.LinearRgb()
		n.lut[i] = lin
	}
	return n
}

// Normalize decodes data and returns its reflectance grid. The resolution
// bound is checked from the image header before any pixel is decoded.
func (n *Normalizer) Normalize(data []byte) (*Grid, error) {
	if len(data) == 0 {
		return nil, apperrors.NewPipelineError(apperrors.KindImageDecode, stage, "empty image", nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewPipelineError(apperrors.KindImageDecode, stage, "unrecognised image header", err)
	}
	if err := n.checkResolution(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewPipelineError(apperrors.KindImageDecode, stage, "corrupt "+format+" data", err)
	}

	grid := n.luminance(img)
	if n.opts.Flatten {
		flatten(grid)
	}
	if n.opts.Offset != 0 {
		for i, v := range grid.Pix {
			grid.Pix[i] = clamp01(v + n.opts.Offset)
		}
	}
	grid.Offset = n.opts.Offset
	grid.Pitch = n.opts.Pitch

	logger.ForStage(stage).WithFields(logrus.Fields{
		"format": format,
		"width":  grid.Width,
		"height": grid.Height,
	}).Debug("image normalized")
	return grid, nil
}

func (n *Normalizer) checkResolution(w, h int) error {
	if w <= 0 || h <= 0 {
		return apperrors.NewPipelineError(apperrors.KindImageDecode, stage, "image has no pixels", nil)
	}
	if n.opts.MaxDimension > 0 && (w > n.opts.MaxDimension || h > n.opts.MaxDimension) {
		return apperrors.NewPipelineError(apperrors.KindResolutionExceeded, stage,
			fmt.Sprintf("%dx%d exceeds max dimension %d", w, h, n.opts.MaxDimension), nil)
	}
	if n.opts.MaxPixels > 0 && int64(w)*int64(h) > int64(n.opts.MaxPixels) {
		return apperrors.NewPipelineError(apperrors.KindResolutionExceeded, stage,
			fmt.Sprintf("%dx%d exceeds max pixel count %d", w, h, n.opts.MaxPixels), nil)
	}
	return nil
}

// luminance converts every pixel to CIE Y, compositing transparency onto white.
func (n *Normalizer) luminance(img image.Image) *Grid {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	grid := &Grid{Width: w, Height: h, Pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			_, lum, _ := colorful.LinearRgbToXyz(n.lut[p[0]], n.lut[p[1]], n.lut[p[2]])
			a := float64(p[3]) / 255
			grid.Pix[y*w+x] = clamp01(a*lum + (1 - a))
		}
	}
	return grid
}

// flatten removes slow illumination variation. Lighting scales reflectance,
// so every pixel is divided by the local paper level and rescaled to the
// brightest one; ink stays dark while shaded paper is lifted.
func flatten(g *Grid) {
	bs := max(g.Width, g.Height) / blocksPerSide
	if bs < minBlockSize {
		bs = minBlockSize
	}
	nbx := (g.Width + bs - 1) / bs
	nby := (g.Height + bs - 1) / bs
	if nbx < 2 && nby < 2 {
		return
	}

	levels := make([]float64, nbx*nby)
	buf := make([]float64, 0, bs*bs)
	for by := 0; by < nby; by++ {
		for bx := 0; bx < nbx; bx++ {
			buf = buf[:0]
			for y := by * bs; y < min((by+1)*bs, g.Height); y++ {
				buf = append(buf, g.Pix[y*g.Width+bx*bs:y*g.Width+min((bx+1)*bs, g.Width)]...)
			}
			levels[by*nbx+bx] = paperLevel(buf)
		}
	}
	valid := paperBlocks(levels, nbx, nby)
	fillInvalid(levels, valid, nbx, nby)

	bg := image.NewGray16(image.Rect(0, 0, nbx, nby))
	for by := 0; by < nby; by++ {
		for bx := 0; bx < nbx; bx++ {
			bg.Pix[by*bg.Stride+bx*2], bg.Pix[by*bg.Stride+bx*2+1] = gray16(levels[by*nbx+bx])
		}
	}
	smooth := imaging.Resize(imaging.Blur(bg, backgroundSigma), g.Width, g.Height, imaging.Linear)

	var bgTop float64
	bgAt := make([]float64, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := math.Max(float64(smooth.Pix[y*smooth.Stride+x*4])/255, minBackground)
			bgAt[y*g.Width+x] = v
			bgTop = math.Max(bgTop, v)
		}
	}
	for i, v := range g.Pix {
		g.Pix[i] = clamp01(v * bgTop / bgAt[i])
	}
}

// paperLevel estimates the paper level of one block: the median of the pixels
// above the midpoint between the darkest pixel and the robust top. Taking the
// median keeps the estimate at the block centre under a lighting gradient.
func paperLevel(buf []float64) float64 {
	sort.Float64s(buf)
	top := stat.Quantile(paperQuantile, stat.Empirical, buf, nil)
	mid := (buf[0] + top) / 2
	paper := buf[sort.SearchFloat64s(buf, mid):]
	if len(paper) == 0 {
		return top
	}
	return stat.Quantile(0.5, stat.Empirical, paper, nil)
}

// paperBlocks marks the blocks whose level is paper rather than ink by
// comparing each one with its brightest neighbour, so a global lighting
// gradient does not disqualify the dim side.
func paperBlocks(levels []float64, nbx, nby int) []bool {
	valid := make([]bool, len(levels))
	for by := 0; by < nby; by++ {
		for bx := 0; bx < nbx; bx++ {
			ref := levels[by*nbx+bx]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					x, y := bx+dx, by+dy
					if x < 0 || y < 0 || x >= nbx || y >= nby {
						continue
					}
					ref = math.Max(ref, levels[y*nbx+x])
				}
			}
			valid[by*nbx+bx] = ref > 0 && levels[by*nbx+bx] >= minPaperFraction*ref
		}
	}
	return valid
}

// fillInvalid replaces ink-covered blocks with the mean of their valid
// neighbours, growing outward until every block has a level.
func fillInvalid(levels []float64, valid []bool, nbx, nby int) {
	for pass := 0; pass < nbx+nby; pass++ {
		changed := false
		next := append([]bool(nil), valid...)
		for by := 0; by < nby; by++ {
			for bx := 0; bx < nbx; bx++ {
				i := by*nbx + bx
				if valid[i] {
					continue
				}
				var sum float64
				var n int
				for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					x, y := bx+d[0], by+d[1]
					if x < 0 || y < 0 || x >= nbx || y >= nby || !valid[y*nbx+x] {
						continue
					}
					sum += levels[y*nbx+x]
					n++
				}
				if n > 0 {
					levels[i] = sum / float64(n)
					next[i] = true
					changed = true
				}
			}
		}
		copy(valid, next)
		if !changed {
			return
		}
	}
}

func gray16(v float64) (hi, lo uint8) {
	u := uint16(math.Round(clamp01(v) * 65535))
	return uint8(u >> 8), uint8(u)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
