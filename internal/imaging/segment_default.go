//go:build !gocv

package imaging

// DefaultSegmenter returns the segmenter compiled into this build. Without the
// gocv build tag that is the pure-Go BildSegmenter.
func DefaultSegmenter() Segmenter {
	return BildSegmenter{}
}
