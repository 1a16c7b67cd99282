package media

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"
)

// Cover and screenshot rendering policy. Covers are letterboxed onto a dark
// canvas so mixed source aspect ratios still line up in a grid; screenshots
// are only downscaled.
const (
	CoverWidth        = 300
	CoverHeight       = 450
	coverJPEGQuality  = 90
	ScreenshotMaxW    = 1280
	ScreenshotMaxH    = 720
	shotJPEGQuality   = 85
	MaxShotsPerGame   = 5
	MaxThemeImageSize = 5 * 1024 * 1024
)

var coverCanvasColor = color.NRGBA{R: 16, G: 16, B: 16, A: 255}

// BuildCover decodes an image and renders the standard cover JPEG.
func BuildCover(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode cover image: %w", err)
	}

	fitted := imaging.Fit(img, CoverWidth, CoverHeight, imaging.Lanczos)
	canvas := imaging.New(CoverWidth, CoverHeight, coverCanvasColor)
	canvas = imaging.PasteCenter(canvas, fitted)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(coverJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode cover image: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildScreenshot decodes an image and renders the reduced screenshot JPEG.
func BuildScreenshot(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > ScreenshotMaxW || bounds.Dy() > ScreenshotMaxH {
		img = imaging.Fit(img, ScreenshotMaxW, ScreenshotMaxH, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(shotJPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode screenshot image: %w", err)
	}
	return buf.Bytes(), nil
}
