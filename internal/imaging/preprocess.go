package imaging

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Options selects preprocessing stages. The stage order is fixed; options
// only switch individual stages on or off.
type Options struct {
	EnhanceContrast bool
	Denoise         bool
	Deskew          bool
	Sharpen         bool
	Binarize        bool    // reserved for low-quality scans
	ResizeFactor    float64 // 1.0 disables resizing
}

// DefaultOptions mirrors the enhancement profile tuned for scanned
// government documents: everything on except binarization.
func DefaultOptions() Options {
	return Options{
		EnhanceContrast: true,
		Denoise:         true,
		Deskew:          true,
		Sharpen:         true,
		Binarize:        false,
		ResizeFactor:    1.5,
	}
}

// Preprocess normalizes a raster page to raise OCR accuracy. It is pure and
// deterministic: image bytes in, image bytes out, plus the names of the
// stages that were applied. Every stage is skippable; a stage that cannot run
// leaves the image as-is. An undecodable input is returned unchanged with no
// stages applied - preprocessing never aborts processing.
func Preprocess(data []byte, opts Options, logger *slog.Logger) ([]byte, []string) {
	if logger == nil {
		logger = slog.Default()
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Warn("imaging.decode_failed", "error", err)
		return data, nil
	}

	gray := toGray(src)
	applied := []string{"grayscale"}

	if opts.Denoise {
		gray = boxBlur(gray)
		applied = append(applied, "noise_reduction")
	}
	if opts.EnhanceContrast {
		gray = equalize(gray)
		applied = append(applied, "contrast_enhancement")
	}
	if opts.Deskew {
		if rotated, angle, ok := deskew(gray); ok {
			gray = rotated
			applied = append(applied, "deskew")
			logger.Debug("imaging.deskew", "angle_deg", angle)
		}
	}
	if opts.ResizeFactor > 0 && opts.ResizeFactor != 1.0 {
		if resized, ok := resize(gray, opts.ResizeFactor); ok {
			gray = resized
			applied = append(applied, "resize")
		}
	}
	if opts.Sharpen {
		gray = sharpen(gray)
		applied = append(applied, "sharpening")
	}
	if opts.Binarize {
		gray = binarize(gray, otsuThreshold(gray))
		applied = append(applied, "binarization")
	}

	var out bytes.Buffer
	if err := png.Encode(&out, gray); err != nil {
		logger.Warn("imaging.encode_failed", "error", err)
		return data, nil
	}
	return out.Bytes(), applied
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// equalize spreads the intensity histogram over the full range, the plain
// histogram-equalization counterpart of the CLAHE pass used upstream.
func equalize(src *image.Gray) *image.Gray {
	b := src.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return src
	}

	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}

	var lut [256]uint8
	cum := 0
	for i := 0; i < 256; i++ {
		cum += hist[i]
		lut[i] = uint8(cum * 255 / total)
	}

	dst := image.NewGray(b)
	for i, v := range src.Pix {
		dst.Pix[i] = lut[v]
	}
	return dst
}

// boxBlur applies a light 3x3 mean filter.
func boxBlur(src *image.Gray) *image.Gray {
	return convolve(src, [9]int{
		1, 1, 1,
		1, 1, 1,
		1, 1, 1,
	}, 9)
}

// sharpen applies the standard 3x3 sharpening kernel.
func sharpen(src *image.Gray) *image.Gray {
	return convolve(src, [9]int{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	}, 1)
}

func convolve(src *image.Gray, k [9]int, div int) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)
	copy(dst.Pix, src.Pix)

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sum := 0
			ki := 0
			for dy := -1; dy <= 1; dy++ {
				row := (y + dy) * src.Stride
				for dx := -1; dx <= 1; dx++ {
					sum += int(src.Pix[row+x+dx]) * k[ki]
					ki++
				}
			}
			sum /= div
			if sum < 0 {
				sum = 0
			} else if sum > 255 {
				sum = 255
			}
			dst.Pix[y*dst.Stride+x] = uint8(sum)
		}
	}
	return dst
}

// otsuThreshold picks the binarization threshold maximizing between-class
// variance.
func otsuThreshold(src *image.Gray) uint8 {
	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}
	total := len(src.Pix)
	if total == 0 {
		return 128
	}

	sum := 0
	for i, c := range hist {
		sum += i * c
	}

	sumB, wB := 0, 0
	var maxVar float64
	best := 128
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += t * hist[t]
		mB := float64(sumB) / float64(wB)
		mF := float64(sum-sumB) / float64(wF)
		v := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if v > maxVar {
			maxVar = v
			best = t
		}
	}
	return uint8(best)
}

func binarize(src *image.Gray, threshold uint8) *image.Gray {
	dst := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if v > threshold {
			dst.Pix[i] = 255
		} else {
			dst.Pix[i] = 0
		}
	}
	return dst
}

func resize(src *image.Gray, factor float64) (*image.Gray, bool) {
	b := src.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	if w <= 0 || h <= 0 || w > 20000 || h > 20000 {
		return src, false
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst, true
}

// deskew estimates the text-line skew by scoring row-projection variance over
// candidate angles and rotates only when the detected skew exceeds half a
// degree. Angles beyond +/-15 degrees are not considered plausible for a
// scanned page.
func deskew(src *image.Gray) (*image.Gray, float64, bool) {
	small := shrinkForScoring(src)
	threshold := otsuThreshold(small)

	bestAngle, bestScore := 0.0, -1.0
	for angle := -15.0; angle <= 15.0; angle += 0.5 {
		score := projectionScore(small, threshold, angle)
		if score > bestScore {
			bestScore = score
			bestAngle = angle
		}
	}
	if math.Abs(bestAngle) <= 0.5 {
		return src, 0, false
	}
	return rotate(src, -bestAngle), bestAngle, true
}

// shrinkForScoring downsamples to keep angle scoring cheap on large scans.
func shrinkForScoring(src *image.Gray) *image.Gray {
	const maxDim = 512
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return src
	}
	scale := float64(maxDim) / float64(max(w, h))
	dst := image.NewGray(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// projectionScore sums squared row densities of dark pixels after a virtual
// rotation by angle degrees. Sharp peaks (text lines aligned with rows) score
// higher than smeared profiles.
func projectionScore(src *image.Gray, threshold uint8, angleDeg float64) float64 {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	rad := angleDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	// generous bucket range to hold rotated y coordinates
	offset := int(math.Abs(sin) * float64(w))
	rows := make([]int, h+2*offset+2)

	for y := 0; y < h; y++ {
		row := y * src.Stride
		for x := 0; x < w; x++ {
			if src.Pix[row+x] < threshold {
				ry := int(float64(x)*sin+float64(y)*cos) + offset
				if ry >= 0 && ry < len(rows) {
					rows[ry]++
				}
			}
		}
	}

	var score float64
	for _, c := range rows {
		score += float64(c) * float64(c)
	}
	return score
}

// rotate rotates around the image center, replicating the background with
// white (paper) rather than black borders.
func rotate(src *image.Gray, angleDeg float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for i := range dst.Pix {
		dst.Pix[i] = 255
	}

	rad := angleDeg * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx, cy := float64(w)/2, float64(h)/2

	// dst(x,y) = src(R^-1 * (x-c) + c)
	m := f64.Aff3{
		cos, -sin, cx - cos*cx + sin*cy,
		sin, cos, cy - sin*cx - cos*cy,
	}
	draw.ApproxBiLinear.Transform(dst, m, src, b, draw.Over, nil)
	return dst
}
