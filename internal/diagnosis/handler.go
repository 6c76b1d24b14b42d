package diagnosis

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/medportal/portal-backend/internal/gate"
	"github.com/medportal/portal-backend/internal/metrics"
)

type Handler struct {
	service *Service
	limits  *limiterPool
}

type diagnosisRequest struct {
	Symptoms string `json:"symptoms"`
	History  string `json:"history"`
}

// NewHandler limits each user to rps requests per second with bursts of
// burst. A non-positive rps disables the limit.
func NewHandler(s *Service, rps float64, burst int) *Handler {
	return &Handler{service: s, limits: newLimiterPool(rps, burst)}
}

// Close releases the rate limiter's background sweep.
func (h *Handler) Close() {
	h.limits.Close()
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router, requireUser fiber.Handler) {
	r.Post("/api/v1/diagnosis", requireUser, h.getDiagnosis)
}

func (h *Handler) getDiagnosis(c *fiber.Ctx) error {
	current := gate.CurrentUserFromCtx(c)
	if current == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(diagnosisRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	if strings.TrimSpace(payload.Symptoms) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "symptoms are required"})
	}

	if !h.limits.Allow(current.ID) {
		metrics.Diagnosis("rate_limited")
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"message": "Too many diagnosis requests, please wait a moment"})
	}

	text, err := h.service.GetDiagnosis(c.UserContext(), payload.Symptoms, payload.History)
	if err != nil {
		var u *Unavailable
		if errors.As(err, &u) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": u.Message()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
	}
	return c.JSON(fiber.Map{"diagnosis": text})
}
