package user

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/golang-jwt/jwt/v4"
)

const testSecret = "test-secret"

// requireFromHeader stands in for the session gate: it loads the user named
// by X-User-ID from repo and rejects the request otherwise.
func requireFromHeader(repo Repository, role Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := utils.CopyString(c.Get("X-User-ID"))
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}
		u, err := repo.GetByID(context.Background(), id)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}
		if role != "" && u.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "forbidden"})
		}
		c.Locals(CurrentUserKey, &u)
		return c.Next()
	}
}

func makeAppWithUserHandler(repo Repository) *fiber.App {
	app := fiber.New()
	h := NewHandler(NewService(repo), testSecret)
	h.RegisterPublicRoutes(app)
	h.RegisterProtectedRoutes(app, requireFromHeader(repo, ""))
	h.RegisterAdminRoutes(app, requireFromHeader(repo, RoleHospitalAdmin))
	return app
}

func seedRepo() *InMemoryRepository {
	return NewInMemoryRepository([]User{
		{ID: "u-7", Email: "j@example.com", Name: "Jenny", Role: RolePatient, Status: StatusOffline, Password: "$2a$10$notarealhash"},
		{ID: "admin-1", Email: "admin@example.com", Name: "Admin", Role: RoleHospitalAdmin, Status: StatusOnline},
	})
}

func TestRoutes_Registered(t *testing.T) {
	app := makeAppWithUserHandler(seedRepo())

	routes := map[string]bool{}
	for _, grp := range app.Stack() {
		for _, r := range grp {
			routes[r.Method+" "+r.Path] = true
		}
	}
	for _, want := range []string{
		"POST /api/v1/sign-in",
		"POST /api/v1/sign-up",
		"GET /api/v1/profile",
		"PATCH /api/v1/profile",
		"PUT /api/v1/profile/status",
		"GET /api/v1/admin/users",
		"PUT /api/v1/admin/users/:id/role",
	} {
		if !routes[want] {
			t.Errorf("expected route %q to be registered", want)
		}
	}
}

func TestProfile_RequiresUserAndHidesPassword(t *testing.T) {
	app := makeAppWithUserHandler(seedRepo())

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/profile", nil))
	if err != nil {
		t.Fatalf("profile request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected unauthorized status, got %d", res.StatusCode)
	}

	req := httptest.NewRequest("GET", "/api/v1/profile", nil)
	req.Header.Set("X-User-ID", "u-7")
	res, err = app.Test(req)
	if err != nil {
		t.Fatalf("authorized profile request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 OK for authorized profile, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	body := string(b)
	if !strings.Contains(body, "j@example.com") {
		t.Fatalf("response body does not contain expected email, got %s", body)
	}
	if strings.Contains(body, "password") {
		t.Fatalf("response body should not expose password field")
	}
}

func TestProfile_PatchAndStatus(t *testing.T) {
	repo := seedRepo()
	app := makeAppWithUserHandler(repo)

	req := httptest.NewRequest("PATCH", "/api/v1/profile", strings.NewReader(`{"name":"Jenny B","phone":"555-0101"}`))
	req.Header.Set("X-User-ID", "u-7")
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("update request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 OK on update, got %d", res.StatusCode)
	}
	u, _ := repo.GetByID(context.Background(), "u-7")
	if u.Name != "Jenny B" || u.Phone == nil || *u.Phone != "555-0101" {
		t.Fatalf("profile not persisted: %+v", u)
	}

	req = httptest.NewRequest("PUT", "/api/v1/profile/status", strings.NewReader(`{"status":"away"}`))
	req.Header.Set("X-User-ID", "u-7")
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 OK on status update, got %d", res.StatusCode)
	}
	u, _ = repo.GetByID(context.Background(), "u-7")
	if u.Status != StatusAway {
		t.Fatalf("status not persisted: %q", u.Status)
	}

	req = httptest.NewRequest("PUT", "/api/v1/profile/status", strings.NewReader(`{"status":"busy"}`))
	req.Header.Set("X-User-ID", "u-7")
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", res.StatusCode)
	}
}

func TestSignUpThenSignIn_IssuesVerifiableToken(t *testing.T) {
	app := makeAppWithUserHandler(seedRepo())

	req := httptest.NewRequest("POST", "/api/v1/sign-up", strings.NewReader(`{"email":"New@Example.com","password":"s3cret!","name":"Pat"}`))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("sign-up failed: %v", err)
	}
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}
	var created User
	if err := json.NewDecoder(res.Body).Decode(&created); err != nil {
		t.Fatalf("decode sign-up response: %v", err)
	}
	if created.Role != RolePatient || created.ID == "" {
		t.Fatalf("unexpected created user: %+v", created)
	}

	req = httptest.NewRequest("POST", "/api/v1/sign-up", strings.NewReader(`{"email":"new@example.com","password":"x","name":"Dup"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", res.StatusCode)
	}

	req = httptest.NewRequest("POST", "/api/v1/sign-in", strings.NewReader(`{"email":"new@example.com","password":"wrong"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong password, got %d", res.StatusCode)
	}

	req = httptest.NewRequest("POST", "/api/v1/sign-in", strings.NewReader(`{"email":"new@example.com","password":"s3cret!"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on sign-in, got %d", res.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode sign-in response: %v", err)
	}

	tok, err := jwt.Parse(body.Token, func(*jwt.Token) (interface{}, error) { return []byte(testSecret), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	if got := tok.Claims.(jwt.MapClaims)["user_id"]; got != created.ID {
		t.Fatalf("user_id claim = %v, want %s", got, created.ID)
	}
}

func TestAdminRoutes_RoleChecked(t *testing.T) {
	repo := seedRepo()
	app := makeAppWithUserHandler(repo)

	req := httptest.NewRequest("GET", "/api/v1/admin/users", nil)
	req.Header.Set("X-User-ID", "u-7")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("patient should be forbidden, got %d", res.StatusCode)
	}

	req = httptest.NewRequest("PUT", "/api/v1/admin/users/u-7/role", strings.NewReader(`{"role":"hospital_admin"}`))
	req.Header.Set("X-User-ID", "admin-1")
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on role change, got %d", res.StatusCode)
	}
	u, _ := repo.GetByID(context.Background(), "u-7")
	if u.Role != RoleHospitalAdmin {
		t.Fatalf("role not persisted: %q", u.Role)
	}

	req = httptest.NewRequest("PUT", "/api/v1/admin/users/missing/role", strings.NewReader(`{"role":"patient"}`))
	req.Header.Set("X-User-ID", "admin-1")
	req.Header.Set("Content-Type", "application/json")
	res, _ = app.Test(req)
	if res.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown user, got %d", res.StatusCode)
	}
}

func TestGetUserIDFromCtx(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		if v := utils.CopyString(c.Get("X-User-ID")); v != "" {
			c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"user_id": v}})
		}
		id, err := GetUserIDFromCtx(c)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(id)
	})

	res, _ := app.Test(httptest.NewRequest("GET", "/", nil))
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", res.StatusCode)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-User-ID", "abc")
	res, _ = app.Test(req)
	b, _ := io.ReadAll(res.Body)
	if string(b) != "abc" {
		t.Fatalf("unexpected id %q", string(b))
	}
}
