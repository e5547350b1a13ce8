package gatekeeper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Guard is the bearer token authorization middleware. It verifies the token,
// stores the claims in fiber locals under the configured context key, and
// mirrors them into the request context for downstream code that only sees
// context.Context. Approval state is not rechecked here; a valid token for
// a deleted account is trusted until it expires.
type Guard struct {
	tokens     TokenService
	contextKey string
	authScheme string
	logger     Logger
}

type GuardOption func(*Guard)

func WithGuardLogger(logger Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func NewGuard(tokens TokenService, cfg Config, opts ...GuardOption) *Guard {
	g := &Guard{
		tokens:     tokens,
		contextKey: cfg.GetContextKey(),
		authScheme: cfg.GetAuthScheme(),
		logger:     defLogger{},
	}
	if g.contextKey == "" {
		g.contextKey = "claims"
	}
	if g.authScheme == "" {
		g.authScheme = "Bearer"
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Authenticated requires a valid bearer token.
func (g *Guard) Authenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := g.verify(c)
		if err != nil {
			return err
		}
		g.store(c, claims)
		return c.Next()
	}
}

// AdminOnly requires a valid bearer token carrying the admin role.
func (g *Guard) AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := g.verify(c)
		if err != nil {
			return err
		}
		if !claims.IsAdmin() {
			return ErrForbidden
		}
		g.store(c, claims)
		return c.Next()
	}
}

func (g *Guard) verify(c *fiber.Ctx) (AuthClaims, error) {
	raw, ok := g.tokenFromHeader(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return nil, ErrUnauthenticated
	}

	claims, err := g.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

func (g *Guard) store(c *fiber.Ctx, claims AuthClaims) {
	c.Locals(g.contextKey, claims)
	c.SetUserContext(WithClaimsContext(c.UserContext(), claims))
}

func (g *Guard) tokenFromHeader(header string) (string, bool) {
	l := len(g.authScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], g.authScheme) {
		return strings.TrimSpace(header[l:]), true
	}
	return "", false
}
