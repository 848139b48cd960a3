package server

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"go.ax8-thermal-camera.gocv-driver/ax8driver"
)

// HandleHealth returns data about the health of the service and whether the
// camera still answers.
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request health")

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		cameraErr := app.camera.Do(func(c *ax8driver.Camera) error {
			_, err := c.InternalTemperature()
			return err
		})
		cameraStatus := "ok"
		if cameraErr != nil {
			cameraStatus = cameraErr.Error()
		}

		healthData := struct {
			NumGoroutines   int
			HeapAllocatedMB uint64
			SysMemoryMB     uint64
			Version         string
			ProgLang        string
			HostName        string
			Camera          string
			Time            string
		}{
			NumGoroutines:   runtime.NumGoroutine(),
			HeapAllocatedMB: bToMb(m.Alloc),
			SysMemoryMB:     bToMb(m.Sys),
			Version:         VERSION,
			ProgLang:        runtime.Version(),
			HostName:        host,
			Camera:          cameraStatus,
			Time:            time.Now().Format(time.RFC3339),
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
