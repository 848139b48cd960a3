package ax8driver

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/womat/debug"
)

// ThermalImage holds one temperature per spotmeter pixel, indexed [y][x].
type ThermalImage [FRAME_HEIGHT][FRAME_WIDTH]float64

// ThermalImage sweeps every column of the frame. This takes
// FRAME_WIDTH*FRAME_HEIGHT/5 enable and read round trips.
func (c *Camera) ThermalImage(unit TemperatureUnit) (ThermalImage, error) {
	var img ThermalImage
	for x := 0; x < FRAME_WIDTH; x++ {
		column, err := c.CutlineAlongX(x, unit)
		if err != nil {
			return img, fmt.Errorf("sweeping column %d: %w", x, err)
		}
		for y, v := range column {
			img[y][x] = v
		}
		debug.DebugLog.Printf("Thermal image column %d/%d done", x+1, FRAME_WIDTH)
	}
	return img, nil
}

// Row returns row y of the image as a profile.
func (img *ThermalImage) Row(y int) []float64 {
	return img[y][:]
}

// Column returns column x of the image as a profile.
func (img *ThermalImage) Column(x int) []float64 {
	column := make([]float64, FRAME_HEIGHT)
	for y := range img {
		column[y] = img[y][x]
	}
	return column
}

// ImageStats summarises a ThermalImage.
type ImageStats struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Mean    float64  `json:"mean"`
	Coldest Position `json:"coldest"`
	Hottest Position `json:"hottest"`
}

func (img *ThermalImage) Stats() ImageStats {
	s := ImageStats{Min: img[0][0], Max: img[0][0]}
	var acc float64
	for y, row := range img {
		for x, v := range row {
			acc += v
			if v < s.Min {
				s.Min = v
				s.Coldest = Position{X: x, Y: y}
			}
			if v > s.Max {
				s.Max = v
				s.Hottest = Position{X: x, Y: y}
			}
		}
	}
	s.Mean = acc / (FRAME_WIDTH * FRAME_HEIGHT)
	return s
}

// SaveThermalImageCSV writes the image as y,x,value rows.
func SaveThermalImageCSV(w io.Writer, img *ThermalImage) error {
	csvW := csv.NewWriter(w)
	if err := csvW.Write([]string{"y", "x", "value"}); err != nil {
		return err
	}
	for y, row := range img {
		for x, v := range row {
			err := csvW.Write([]string{
				strconv.Itoa(y),
				strconv.Itoa(x),
				strconv.FormatFloat(v, 'f', 3, 64),
			})
			if err != nil {
				return err
			}
		}
	}
	csvW.Flush()
	return csvW.Error()
}
