package feed

import (
	"encoding/base64"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gocv.io/x/gocv"

	"go.ax8-thermal-camera.gocv-driver/ax8driver"
)

// PublishSnapshot publishes mat as a base64 encoded jpeg.
func PublishSnapshot(topic string, mat gocv.Mat, mqttClient mqtt.Client) error {
	imgBuf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return err
	}
	defer imgBuf.Close()
	imgBytes := imgBuf.GetBytes()
	var b64bytes []byte = make([]byte, base64.StdEncoding.EncodedLen(len(imgBytes)))
	base64.StdEncoding.Encode(b64bytes, imgBytes)
	token := mqttClient.Publish(topic, 2, false, b64bytes)
	token.Wait()
	return token.Error()
}

// Snapshot reads one frame from feed and publishes it.
func Snapshot(feed *Feed, topic string, spots []ax8driver.Spot, mqttClient mqtt.Client) error {
	frame := gocv.NewMat()
	defer frame.Close()
	if ok := feed.ReadFrame(&frame); !ok {
		return ErrStreamClosed
	}
	DrawSpots(&frame, spots)
	return PublishSnapshot(topic, frame, mqttClient)
}
