package middleware

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/photoflare/galleria/app/models"
	"github.com/photoflare/galleria/app/repository"
)

// LocalOwner is the locals key holding the authenticated owner account.
const LocalOwner = "owner_user"

// OwnerAuthMiddleware authenticates the gallery owner via HTTP basic
// credentials. Policy management is an owner surface, not a client one, so
// the access-code middleware does not apply here.
func OwnerAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		email, password, ok := parseBasicAuth(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return unauthorized(c)
		}

		user, err := repository.GetGlobalRepositories().User.GetByEmail(email)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				log.Errorf("[Auth] owner lookup failed: %v", err)
			}
			return unauthorized(c)
		}

		if user.Status != models.STATUS_ACTIVE || !models.CheckPasswordHash(password, user.Password) {
			return unauthorized(c)
		}

		c.Locals(LocalOwner, user)
		return c.Next()
	}
}

func parseBasicAuth(header string) (email, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", "", false
	}
	email, password, ok = strings.Cut(string(decoded), ":")
	return email, password, ok
}

func unauthorized(c *fiber.Ctx) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="galleria"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "UNAUTHORIZED",
		"message": "Owner credentials required",
	})
}

// OwnerFromLocals returns the authenticated owner or nil.
func OwnerFromLocals(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(LocalOwner).(*models.User)
	return user
}
