package server

// initDefaultRoutes initializes the routes switched on in the configuration.
func (app *App) initDefaultRoutes() {
	api := app.web.Group("/")
	if app.webservices["version"] {
		api.Get("/version", app.HandleVersion())
	}
	if app.webservices["health"] {
		api.Get("/health", app.HandleHealth())
	}
	if app.webservices["temperature"] {
		api.Get("/temperature", app.HandleTemperature())
	}
	if app.webservices["spotmeters"] {
		api.Get("/spotmeters", app.HandleSpotmeterTemperatures())
		api.Get("/spotmeters/positions", app.HandleSpotmeterPositions())
		api.Post("/spotmeters/enable", app.HandleEnable())
		api.Post("/spotmeters/disable", app.HandleDisable())
	}
	if app.webservices["parameters"] {
		api.Get("/parameters", app.HandleGetParameters())
		api.Put("/parameters", app.HandleSetParameters())
	}
	if app.webservices["cutline"] {
		api.Get("/cutline/x/:x", app.HandleCutline("x"))
		api.Get("/cutline/y/:y", app.HandleCutline("y"))
	}
}
