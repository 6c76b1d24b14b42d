package diagnosis

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/medportal/portal-backend/internal/user"
)

func makeAppWithDiagnosisHandler(t *testing.T, c *stubCompleter, rps float64, burst int) *fiber.App {
	t.Helper()
	app := fiber.New()
	requireUser := func(c *fiber.Ctx) error {
		id := utils.CopyString(c.Get("X-User-ID"))
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}
		c.Locals(user.CurrentUserKey, &user.User{ID: id, Role: user.RolePatient})
		return c.Next()
	}
	h := NewHandler(NewService(c, "", 0), rps, burst)
	h.RegisterProtectedRoutes(app, requireUser)
	t.Cleanup(h.Close)
	return app
}

func postDiagnosis(t *testing.T, app *fiber.App, userID, body string) (int, map[string]string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/diagnosis", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	out := map[string]string{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	return res.StatusCode, out
}

func TestHandler_Diagnosis(t *testing.T) {
	app := makeAppWithDiagnosisHandler(t, &stubCompleter{out: "Likely viral infection"}, 0, 0)

	if status, _ := postDiagnosis(t, app, "", `{"symptoms":"fever"}`); status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if status, _ := postDiagnosis(t, app, "u1", `{"symptoms":"  "}`); status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 without symptoms, got %d", status)
	}
	status, body := postDiagnosis(t, app, "u1", `{"symptoms":"fever, cough"}`)
	if status != fiber.StatusOK || body["diagnosis"] != "Likely viral infection" {
		t.Fatalf("unexpected response %d %v", status, body)
	}
}

func TestHandler_UnavailableIs503WithFixedMessage(t *testing.T) {
	app := makeAppWithDiagnosisHandler(t, &stubCompleter{err: errors.New("status code: 500")}, 0, 0)

	status, body := postDiagnosis(t, app, "u1", `{"symptoms":"fever"}`)
	if status != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", status)
	}
	if body["message"] != UnavailableMessage {
		t.Fatalf("unexpected message %q", body["message"])
	}
}

func TestHandler_RateLimitedPerUser(t *testing.T) {
	app := makeAppWithDiagnosisHandler(t, &stubCompleter{out: "ok"}, 0.001, 2)

	for i := 0; i < 2; i++ {
		if status, _ := postDiagnosis(t, app, "u1", `{"symptoms":"fever"}`); status != fiber.StatusOK {
			t.Fatalf("request %d within burst: got %d", i, status)
		}
	}
	if status, _ := postDiagnosis(t, app, "u1", `{"symptoms":"fever"}`); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", status)
	}
	if status, _ := postDiagnosis(t, app, "u2", `{"symptoms":"fever"}`); status != fiber.StatusOK {
		t.Fatalf("other users keep their own bucket, got %d", status)
	}
}

func TestLimiterPool_SweepDropsIdleBuckets(t *testing.T) {
	p := newLimiterPool(1, 1)
	defer p.Close()
	p.Allow("a")
	p.Allow("b")
	p.mu.Lock()
	p.m["a"].lastSeen = time.Now().Add(-time.Hour)
	p.mu.Unlock()

	p.sweep(time.Now().Add(-p.ttl))

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.m["a"]; ok {
		t.Fatalf("idle bucket survived sweep")
	}
	if _, ok := p.m["b"]; !ok {
		t.Fatalf("active bucket dropped")
	}
}

func TestLimiterPool_CloseStopsSweep(t *testing.T) {
	p := newLimiterPool(1, 1)
	p.cleanupPeriod = time.Millisecond
	p.Allow("a")

	p.Close()
	p.Close()
	select {
	case <-p.stopped:
	case <-time.After(time.Second):
		t.Fatalf("sweep goroutine still running after Close")
	}
}
