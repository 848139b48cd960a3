// Package feed opens the AX8 RTSP video stream and shows it in a window.
package feed

import (
	"errors"
	"fmt"
	"sync"

	"github.com/womat/debug"
	"gocv.io/x/gocv"
)

var (
	ENCODINGS        = []string{"avc", "mjpg", "mpeg4"}
	DEFAULT_ENCODING = "avc"
)

// ErrStreamClosed is returned when reading a feed that is not open.
var ErrStreamClosed = errors.New("feed: stream is not open")

// RTSPURL returns the camera stream url. An unknown encoding falls back to avc.
func RTSPURL(host, encoding string, overlay bool) string {
	valid := false
	for _, e := range ENCODINGS {
		if e == encoding {
			valid = true
		}
	}
	if !valid {
		debug.InfoLog.Printf("Encoding %q is invalid. Reverting to %s.", encoding, DEFAULT_ENCODING)
		encoding = DEFAULT_ENCODING
	}
	url := "rtsp://" + host + "/" + encoding
	if !overlay {
		url += "?overlay=off"
	}
	return url
}

// Feed is an RTSP frame source. Frames are read by one consumer at a time.
type Feed struct {
	url     string
	mu      sync.Mutex
	capture *gocv.VideoCapture
}

// Open starts the stream and makes sure a first frame arrives.
func Open(url string) (*Feed, error) {
	f := &Feed{url: url}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Feed) open() error {
	debug.InfoLog.Printf("Opening camera feed at %s", f.url)
	capture, err := gocv.OpenVideoCapture(f.url)
	if err != nil {
		return fmt.Errorf("could not open stream at %s: %w", f.url, err)
	}
	frame := gocv.NewMat()
	defer frame.Close()
	if ok := capture.Read(&frame); !ok || frame.Empty() {
		_ = capture.Close()
		return fmt.Errorf("could not open stream at %s: no frame received", f.url)
	}
	f.capture = capture
	return nil
}

func (f *Feed) URL() string {
	return f.url
}

// IsOpened reports whether frames can be read.
func (f *Feed) IsOpened() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capture != nil && f.capture.IsOpened()
}

// ReadFrame reads the next frame into mat. It returns false when no frame
// is available.
func (f *Feed) ReadFrame(mat *gocv.Mat) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capture == nil {
		return false
	}
	return f.capture.Read(mat) && !mat.Empty()
}

// Toggle closes an open stream or reopens a closed one.
func (f *Feed) Toggle() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capture != nil {
		debug.InfoLog.Print("Closing the feed..")
		err := f.capture.Close()
		f.capture = nil
		return err
	}
	debug.InfoLog.Print("Opening the feed..")
	return f.open()
}

func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capture == nil {
		return nil
	}
	err := f.capture.Close()
	f.capture = nil
	return err
}
