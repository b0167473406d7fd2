//go:build gocv

package imaging

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// DefaultSegmenter returns the OpenCV-backed segmenter when built with the
// gocv tag.
func DefaultSegmenter() Segmenter {
	return GocvSegmenter{}
}

// GocvSegmenter runs the segmentation pipeline through OpenCV. It produces
// the same Segmentation shape as BildSegmenter; pixel values can differ
// slightly because the resampling and blur kernels are OpenCV's.
type GocvSegmenter struct{}

// Segment implements Segmenter.
func (GocvSegmenter) Segment(img image.Image) (*Segmentation, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("cannot segment empty image")
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image to mat: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)

	width := bounds.Dx() * UpscaleFactor
	height := bounds.Dy() * UpscaleFactor

	upscaled := gocv.NewMat()
	defer upscaled.Close()
	gocv.Resize(gray, &upscaled, image.Pt(width, height), 0, 0, gocv.InterpolationCubic)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(upscaled, &blurred, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	smoothed := gocv.NewMat()
	defer smoothed.Close()
	gocv.MedianBlur(blurred, &smoothed, 3)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(smoothed, &thresh, 0, 255, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(thresh, &dilated, kernel)

	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(dilated, &opened, gocv.MorphOpen, kernel)

	contours := gocv.FindContours(opened, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	rects := make([]image.Rectangle, 0, contours.Size())
	for i := 0; i < contours.Size(); i++ {
		rects = append(rects, gocv.BoundingRect(contours.At(i)))
	}
	sortRects(rects)

	binImg, err := thresh.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert threshold mat: %w", err)
	}

	return &Segmentation{
		Binary:     asGray(binImg),
		Width:      width,
		Height:     height,
		Scale:      UpscaleFactor,
		Components: rects,
	}, nil
}

// Patch implements Segmenter.
func (GocvSegmenter) Patch(seg *Segmentation, r image.Rectangle) image.Image {
	return CharacterPatch(seg.Binary, r, PatchPadding)
}

// sortRects orders rectangles by left edge, keeping input order on ties.
func sortRects(rects []image.Rectangle) {
	sort.SliceStable(rects, func(i, j int) bool {
		return rects[i].Min.X < rects[j].Min.X
	})
}
