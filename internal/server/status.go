// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package server

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// statusRoutes exposes the liveness and readiness endpoints under the /-/
// prefix, where the request logger middleware keeps them out of the logs.
func statusRoutes(app *fiber.App, serviceName, version string) {
	status := func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"name":    serviceName,
			"status":  "OK",
			"version": version,
		})
	}

	app.Get("/-/healthz", status)
	app.Get("/-/ready", status)
}
