package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"go.ax8-thermal-camera.gocv-driver/ax8driver"
)

// App serves the camera session over http.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// camera is shared with the recorder, every handler locks it
	camera *ax8driver.SharedCamera

	// webservices enables routes by name
	webservices map[string]bool
}

// New wires the routes enabled in webservices.
func New(camera *ax8driver.SharedCamera, webservices map[string]bool) *App {
	app := &App{
		web:         fiber.New(fiber.Config{DisableStartupMessage: true}),
		camera:      camera,
		webservices: webservices,
	}
	app.initDefaultRoutes()
	return app
}

// Listen blocks serving requests on addr (host:port).
func (app *App) Listen(addr string) error {
	debug.InfoLog.Printf("Web services listening on %s", addr)
	return app.web.Listen(addr)
}

func (app *App) Shutdown() error {
	return app.web.Shutdown()
}
