package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"

	"go.ax8-thermal-camera.gocv-driver/ax8driver"
)

type enableRequest struct {
	Spots          []ax8driver.Spot `json:"spots"`
	UseLocalParams *bool            `json:"use_local_params"`
}

type disableRequest struct {
	Instances []int `json:"instances"`
}

type cutlineResponse struct {
	Axis   string                    `json:"axis"`
	Index  int                       `json:"index"`
	Unit   ax8driver.TemperatureUnit `json:"unit"`
	Values []float64                 `json:"values"`
	Stats  ax8driver.ProfileStats    `json:"stats"`
}

// sendError maps driver errors onto http status codes.
func sendError(ctx *fiber.Ctx, err error) error {
	status := http.StatusInternalServerError
	var rangeErr *ax8driver.RangeError
	var codecErr *ax8driver.CodecError
	var transportErr *ax8driver.TransportError
	switch {
	case errors.As(err, &rangeErr), errors.As(err, &codecErr):
		status = http.StatusBadRequest
	case errors.As(err, &transportErr), errors.Is(err, ax8driver.ErrClosed):
		status = http.StatusBadGateway
	}
	debug.ErrorLog.Printf("web request %s: %v", ctx.Path(), err)
	return ctx.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(ctx *fiber.Ctx, err error) error {
	return ctx.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

// instancesQuery parses ?instances=1,2,3; all spotmeters when absent.
func instancesQuery(ctx *fiber.Ctx) ([]int, error) {
	q := ctx.Query("instances")
	if q == "" {
		return ax8driver.SWEEP_INSTANCES[:], nil
	}
	var instances []int
	for _, s := range strings.Split(q, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		instances = append(instances, i)
	}
	return instances, nil
}

func unitQuery(ctx *fiber.Ctx) (ax8driver.TemperatureUnit, error) {
	return ax8driver.ParseTemperatureUnit(ctx.Query("unit", string(ax8driver.CELSIUS)))
}

// HandleTemperature returns the internal camera temperature in Kelvin.
func (app *App) HandleTemperature() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request temperature")

		var kelvin float64
		err := app.camera.Do(func(c *ax8driver.Camera) (err error) {
			kelvin, err = c.InternalTemperature()
			return err
		})
		if err != nil {
			return sendError(ctx, err)
		}
		return ctx.JSON(fiber.Map{"temperature": kelvin, "unit": ax8driver.KELVIN})
	}
}

func (app *App) HandleSpotmeterTemperatures() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request spotmeters")

		instances, err := instancesQuery(ctx)
		if err != nil {
			return badRequest(ctx, err)
		}
		unit, err := unitQuery(ctx)
		if err != nil {
			return badRequest(ctx, err)
		}

		var temps []float64
		err = app.camera.Do(func(c *ax8driver.Camera) (err error) {
			temps, err = c.SpotmeterTemperatures(instances, unit)
			return err
		})
		if err != nil {
			return sendError(ctx, err)
		}
		return ctx.JSON(fiber.Map{"instances": instances, "unit": unit, "values": temps})
	}
}

func (app *App) HandleSpotmeterPositions() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request spotmeter positions")

		instances, err := instancesQuery(ctx)
		if err != nil {
			return badRequest(ctx, err)
		}

		var positions []ax8driver.Position
		err = app.camera.Do(func(c *ax8driver.Camera) (err error) {
			positions, err = c.SpotmeterPositions(instances)
			return err
		})
		if err != nil {
			return sendError(ctx, err)
		}
		return ctx.JSON(fiber.Map{"instances": instances, "positions": positions})
	}
}

func (app *App) HandleEnable() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request enable spotmeters")

		var req enableRequest
		if err := ctx.BodyParser(&req); err != nil {
			return badRequest(ctx, err)
		}
		useLocalParams := true
		if req.UseLocalParams != nil {
			useLocalParams = *req.UseLocalParams
		}

		err := app.camera.Do(func(c *ax8driver.Camera) error {
			return c.EnableSpotmeters(req.Spots, useLocalParams)
		})
		if err != nil {
			return sendError(ctx, err)
		}
		return ctx.JSON(fiber.Map{"enabled": req.Spots})
	}
}

func (app *App) HandleDisable() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request disable spotmeters")

		var req disableRequest
		if err := ctx.BodyParser(&req); err != nil {
			return badRequest(ctx, err)
		}

		err := app.camera.Do(func(c *ax8driver.Camera) error {
			return c.DisableSpotmeters(req.Instances)
		})
		if err != nil {
			return sendError(ctx, err)
		}
		return ctx.JSON(fiber.Map{"disabled": req.Instances})
	}
}

func (app *App) HandleGetParameters() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request parameters")

		var params ax8driver.SpotmeterParameters
		_ = app.camera.Do(func(c *ax8driver.Camera) error {
			params = c.SpotmeterParameters()
			return nil
		})
		return ctx.JSON(params)
	}
}

// HandleSetParameters merges a JSON object of parameters. Unknown keys are
// reported back, not applied.
func (app *App) HandleSetParameters() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Print("web request set parameters")

		var update map[string]float64
		if err := ctx.BodyParser(&update); err != nil {
			return badRequest(ctx, err)
		}

		var ignored []string
		var params ax8driver.SpotmeterParameters
		err := app.camera.Do(func(c *ax8driver.Camera) (err error) {
			ignored, err = c.SetSpotmeterParameters(update)
			params = c.SpotmeterParameters()
			return err
		})
		if err != nil {
			return sendError(ctx, err)
		}
		return ctx.JSON(fiber.Map{"parameters": params, "ignored": ignored})
	}
}

// HandleCutline sweeps the column (axis x) or row (axis y) given in the path.
func (app *App) HandleCutline(axis string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		debug.InfoLog.Printf("web request cutline %s", axis)

		index, err := strconv.Atoi(ctx.Params(axis))
		if err != nil {
			return badRequest(ctx, err)
		}
		unit, err := unitQuery(ctx)
		if err != nil {
			return badRequest(ctx, err)
		}

		var values []float64
		err = app.camera.Do(func(c *ax8driver.Camera) error {
			if axis == "x" {
				out, err := c.CutlineAlongX(index, unit)
				values = out[:]
				return err
			}
			out, err := c.CutlineAlongY(index, unit)
			values = out[:]
			return err
		})
		if err != nil {
			return sendError(ctx, err)
		}
		return ctx.JSON(cutlineResponse{
			Axis:   axis,
			Index:  index,
			Unit:   unit,
			Values: values,
			Stats:  ax8driver.CutlineStats(values),
		})
	}
}
