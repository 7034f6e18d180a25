package shapes

import (
	"errors"
	"image"
	"io/ioutil"

	pigo "github.com/esimov/pigo/core"
)

// FaceDetector turns the faces found in a picture into circular obstacles.
type FaceDetector struct {
	classifier *pigo.Pigo

	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	// MinQuality drops detections scored below it.
	MinQuality float32
}

// NewFaceDetector unpacks a pigo facefinder cascade.
func NewFaceDetector(cascade []byte) (*FaceDetector, error) {
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, errors.New("error unpacking the facefinder cascade file")
	}
	return &FaceDetector{
		classifier:   classifier,
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5,
	}, nil
}

// LoadFaceDetector reads the cascade file at path.
func LoadFaceDetector(path string) (*FaceDetector, error) {
	cascade, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewFaceDetector(cascade)
}

// Detect runs the cascade over img and returns the clustered detections.
func (d *FaceDetector) Detect(img image.Image) []pigo.Detection {
	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()

	cParams := pigo.CascadeParams{
		MinSize:     d.MinSize,
		MaxSize:     d.MaxSize,
		ShiftFactor: d.ShiftFactor,
		ScaleFactor: d.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.IoUThreshold)

	faces := dets[:0]
	for _, det := range dets {
		if det.Q >= d.MinQuality {
			faces = append(faces, det)
		}
	}
	return faces
}

// Obstacles maps every face in img onto a xdim×ydim lattice, with the image
// stretched over the whole lattice and its rows flipped so the top of the
// picture ends up at high y.
func (d *FaceDetector) Obstacles(img image.Image, xdim, ydim int) []image.Point {
	b := img.Bounds()
	return FaceCircles(d.Detect(img), b.Dx(), b.Dy(), xdim, ydim)
}

// FaceCircles converts detections in a w×h picture into circle outlines on a
// xdim×ydim lattice.
func FaceCircles(dets []pigo.Detection, w, h, xdim, ydim int) []image.Point {
	if w <= 0 || h <= 0 {
		return nil
	}
	sx := float64(xdim) / float64(w)
	sy := float64(ydim) / float64(h)

	s := newPointSet()
	for _, det := range dets {
		cx := (float64(det.Col) + 0.5) * sx
		cy := float64(ydim) - (float64(det.Row)+0.5)*sy
		diameter := round(float64(det.Scale) * sx)
		if dy := round(float64(det.Scale) * sy); dy < diameter {
			diameter = dy
		}
		for _, p := range Circle(cx-0.5, cy-0.5, diameter) {
			s.add(p.X, p.Y)
		}
	}
	return Clip(s.pts, xdim, ydim)
}
