/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"rendless/internal/assets"
	"rendless/internal/document"
	"rendless/internal/render"
	"rendless/internal/storage"
)

// errSessionNotFound is returned for unknown or expired editor sessions.
var errSessionNotFound = errors.New("session not found")

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, errSessionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, render.ErrUnknownFormat):
		return fiber.StatusBadRequest
	case errors.Is(err, document.ErrMalformedDocument),
		errors.Is(err, render.ErrFontUnavailable),
		errors.Is(err, assets.ErrUnavailable):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

// errorHandler writes every error as {"error": "..."}. Internal errors are
// logged and reported without detail.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := statusOf(err)
	msg := err.Error()
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", slog.String("method", c.Method()), slog.String("path", c.Path()),
			slog.Any("err", err), slog.Any("request_id", c.Locals("requestid")))
		msg = "internal error"
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func badRequest(msg string) error { return fiber.NewError(fiber.StatusBadRequest, msg) }
