package feed

import (
	"image"
	"image/color"
	"strconv"

	"github.com/womat/debug"
	"gocv.io/x/gocv"

	"go.ax8-thermal-camera.gocv-driver/ax8driver"
)

const (
	WINDOW_NAME = "output"
	QUIT_KEY    = 'q'
)

// ProcessFunc transforms a raw frame before it is shown. It may replace the
// contents of mat in place.
type ProcessFunc func(mat *gocv.Mat)

// GrayResize returns a ProcessFunc converting frames to gray at w x h.
func GrayResize(w, h int) ProcessFunc {
	return func(mat *gocv.Mat) {
		gocv.CvtColor(*mat, mat, gocv.ColorBGRToGray)
		gocv.Resize(*mat, mat, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	}
}

// Viewer shows a Feed in a window with the placed spotmeters marked.
type Viewer struct {
	feed  *Feed
	spots []ax8driver.Spot
}

func NewViewer(feed *Feed, spots []ax8driver.Spot) *Viewer {
	return &Viewer{feed: feed, spots: spots}
}

// Show blocks until 'q' is pressed or the stream closes. Run it on its own
// goroutine; it shares nothing with the register driver.
func (v *Viewer) Show(process ProcessFunc) {
	if !v.feed.IsOpened() {
		debug.InfoLog.Print("Stream is not open.")
		return
	}
	window := gocv.NewWindow(WINDOW_NAME)
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if !v.feed.IsOpened() {
			debug.InfoLog.Print("Stream closed.")
			return
		}
		if ok := v.feed.ReadFrame(&frame); !ok {
			continue
		}
		if process != nil {
			process(&frame)
		}
		DrawSpots(&frame, v.spots)
		gocv.PutText(&frame, "Press 'q' to close", image.Pt(5, 15), gocv.FontHersheyPlain, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)
		window.IMShow(frame)
		if key := window.WaitKey(1) & 0xFF; key == QUIT_KEY {
			return
		}
	}
}

// DrawSpots marks each spot on a frame, scaling spotmeter pixel coordinates
// to the frame size.
func DrawSpots(mat *gocv.Mat, spots []ax8driver.Spot) {
	if len(spots) == 0 || mat.Empty() {
		return
	}
	for _, spot := range spots {
		center := FramePoint(spot, mat.Cols(), mat.Rows())
		gocv.Circle(mat, center, 4, color.RGBA{R: 255, G: 0, B: 255, A: 255}, 1)
		gocv.PutText(
			mat,
			strconv.Itoa(spot.Instance),
			image.Pt(center.X+5, center.Y-5),
			gocv.FontHersheyPlain,
			0.9,
			color.RGBA{R: 255, G: 255, B: 0, A: 255},
			1,
		)
	}
}

// FramePoint maps a spot onto a cols x rows frame.
func FramePoint(spot ax8driver.Spot, cols, rows int) image.Point {
	return image.Pt(
		(2*spot.X+1)*cols/(2*ax8driver.FRAME_WIDTH),
		(2*spot.Y+1)*rows/(2*ax8driver.FRAME_HEIGHT),
	)
}
