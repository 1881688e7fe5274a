package preprocess

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Bilateral filter parameters matched to the card screenshots this scraper
// produces: a 9px neighborhood with ~75 sigma in both space and intensity
// suppresses JPEG/PNG compression artifacts without softening glyph edges.
const (
	bilateralDiameter   = 9
	bilateralSigmaColor = 75.0
	bilateralSigmaSpace = 75.0
	upscaleFactor       = 2
)

// Run normalizes a raw card screenshot for OCR: grayscale, 2x cubic
// upscale, edge-preserving smoothing, Otsu binarization. Every valid image
// produces some output; there is no error path.
func Run(img image.Image) *image.NRGBA {
	gray := imaging.Grayscale(img)
	w := gray.Bounds().Dx() * upscaleFactor
	h := gray.Bounds().Dy() * upscaleFactor
	up := imaging.Resize(gray, w, h, imaging.CatmullRom)
	smoothed := bilateralFilter(up, bilateralDiameter, bilateralSigmaColor, bilateralSigmaSpace)
	return binarize(smoothed, otsuThreshold(smoothed))
}

// bilateralFilter smooths a grayscale image while keeping strong edges. Each
// output pixel is a weighted mean of its neighborhood, weighted by spatial
// distance and intensity difference.
func bilateralFilter(img *image.NRGBA, diameter int, sigmaColor, sigmaSpace float64) *image.NRGBA {
	if diameter < 3 {
		diameter = 3
	}
	if diameter%2 == 0 {
		diameter++
	}
	radius := diameter / 2
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	out := imaging.New(w, h, color.NRGBA{255, 255, 255, 255})

	// Spatial weights depend only on the offset; intensity weights only on
	// the 0..255 difference. Both are precomputed.
	spatial := make([]float64, diameter*diameter)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*diameter+(dx+radius)] = math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))
		}
	}
	intensity := make([]float64, 256)
	for d := 0; d < 256; d++ {
		intensity[d] = math.Exp(-float64(d*d) / (2 * sigmaColor * sigmaColor))
	}

	gray := grayPlane(img)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := int(gray[y*w+x])
			var sum, norm float64
			for dy := -radius; dy <= radius; dy++ {
				yy := y + dy
				if yy < 0 || yy >= h {
					continue
				}
				for dx := -radius; dx <= radius; dx++ {
					xx := x + dx
					if xx < 0 || xx >= w {
						continue
					}
					v := int(gray[yy*w+xx])
					diff := v - center
					if diff < 0 {
						diff = -diff
					}
					wgt := spatial[(dy+radius)*diameter+(dx+radius)] * intensity[diff]
					sum += wgt * float64(v)
					norm += wgt
				}
			}
			v := uint8(sum/norm + 0.5)
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// otsuThreshold picks the global threshold maximizing between-class variance
// over the grayscale histogram.
func otsuThreshold(img *image.NRGBA) uint8 {
	var hist [256]int
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	gray := grayPlane(img)
	total := w * h
	for _, v := range gray {
		hist[v]++
	}

	var sumAll float64
	for i := 0; i < 256; i++ {
		sumAll += float64(i) * float64(hist[i])
	}

	var sumBg, wBg float64
	var best float64
	var threshold uint8
	for t := 0; t < 256; t++ {
		wBg += float64(hist[t])
		if wBg == 0 {
			continue
		}
		wFg := float64(total) - wBg
		if wFg == 0 {
			break
		}
		sumBg += float64(t) * float64(hist[t])
		meanBg := sumBg / wBg
		meanFg := (sumAll - sumBg) / wFg
		between := wBg * wFg * (meanBg - meanFg) * (meanBg - meanFg)
		if between > best {
			best = between
			threshold = uint8(t)
		}
	}
	return threshold
}

// binarize maps every pixel at or below the threshold to black, the rest to
// white.
func binarize(img *image.NRGBA, threshold uint8) *image.NRGBA {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	gray := grayPlane(img)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8 = 255
			if gray[y*w+x] <= threshold {
				v = 0
			}
			out.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return out
}

// grayPlane flattens an NRGBA image that is already grayscale into one byte
// per pixel.
func grayPlane(img *image.NRGBA) []uint8 {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	plane := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			plane[y*w+x] = row[x*4]
		}
	}
	return plane
}
