package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"

	"github.com/medportal/portal-backend/internal/user"
)

const (
	SignInPath = "/sign-in"
	HomePath   = "/"
)

// UserLookup loads a user by id. *user.Service satisfies it.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Session parses a bearer token signed with secret when one is sent. Requests
// without a valid token pass through untouched; Require decides what they
// may see.
func Session(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: []byte(secret),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Next()
		},
	})
}

// IdentityFromToken is the identity check for one request: the user_id claim
// of the session token, loaded from lookup. A token naming a user that no
// longer exists counts as no session.
func IdentityFromToken(c *fiber.Ctx, lookup UserLookup) IdentityCheck {
	return func(ctx context.Context) (*user.User, error) {
		id, err := user.GetUserIDFromCtx(c)
		if err != nil {
			return nil, nil
		}
		u, err := lookup.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return &u, nil
	}
}

// Require guards a route. role may be empty to admit any signed-in user.
func Require(lookup UserLookup, role user.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		g := New(IdentityFromToken(c, lookup))
		if err := g.Resolve(c.UserContext()); err != nil {
			slog.Warn("identity check failed", "path", c.Path(), "err", err)
		}

		out := Authorize(g, role)
		switch out.Kind {
		case KindLoading:
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"message": "Checking your session, please retry"})
		case KindDenied:
			if out.Reason == AccessDenied {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"message":  "You do not have access to this page",
					"reason":   out.Reason.String(),
					"redirect": HomePath,
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message":  "Please sign in to continue",
				"reason":   out.Reason.String(),
				"redirect": SignInPath,
			})
		}

		c.Locals(user.CurrentUserKey, out.User)
		return c.Next()
	}
}

// CurrentUserFromCtx returns the user Require admitted, or nil.
func CurrentUserFromCtx(c *fiber.Ctx) *user.User {
	u, _ := user.FromCtx(c)
	return u
}
