package imaging

import "image"

// Detector mean values, BGR order, per the detection model's training
// pipeline.
var detectorMean = [3]float32{104, 117, 123}

// DetectorTensor packs the image into a mean-subtracted NCHW BGR float32
// buffer of the given size for the face detector.
func DetectorTensor(img image.Image, width, height int) []float32 {
	resized := Resize(img, width, height)
	plane := width * height
	out := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := resized.PixOffset(x, y)
			r := float32(resized.Pix[i+0])
			g := float32(resized.Pix[i+1])
			b := float32(resized.Pix[i+2])
			idx := y*width + x
			out[0*plane+idx] = b - detectorMean[0]
			out[1*plane+idx] = g - detectorMean[1]
			out[2*plane+idx] = r - detectorMean[2]
		}
	}
	return out
}

// EmbedderTensor packs the image into an NHWC RGB float32 buffer normalized
// to (x-127.5)/128 for the embedding network.
func EmbedderTensor(img image.Image, size int) []float32 {
	resized := Resize(img, size, size)
	out := make([]float32, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := resized.PixOffset(x, y)
			idx := (y*size + x) * 3
			out[idx+0] = (float32(resized.Pix[i+0]) - 127.5) / 128
			out[idx+1] = (float32(resized.Pix[i+1]) - 127.5) / 128
			out[idx+2] = (float32(resized.Pix[i+2]) - 127.5) / 128
		}
	}
	return out
}

// SpoofTensor packs the image into an NCHW BGR float32 buffer with raw
// 0-255 channel values for the anti-spoofing networks.
func SpoofTensor(img image.Image, size int) []float32 {
	resized := Resize(img, size, size)
	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := resized.PixOffset(x, y)
			idx := y*size + x
			out[0*plane+idx] = float32(resized.Pix[i+2])
			out[1*plane+idx] = float32(resized.Pix[i+1])
			out[2*plane+idx] = float32(resized.Pix[i+0])
		}
	}
	return out
}
