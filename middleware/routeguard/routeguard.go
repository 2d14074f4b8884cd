package routeguard

import (
	"net/http"

	gate "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-router"
)

// StateSource exposes the current auth state, usually a *gate.Store
type StateSource interface {
	GetState() gate.AuthState
}

// LoadingPayload is rendered while the auth state is not final
type LoadingPayload struct {
	Loading bool   `json:"loading"`
	Path    string `json:"path"`
}

// Config defines the configuration for the route guard middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// Guard evaluates the access rules
	Guard gate.Guard

	// LoadingHandler renders the neutral loading indicator
	LoadingHandler router.HandlerFunc

	// RedirectHandler sends the user to the path chosen by the guard
	RedirectHandler func(ctx router.Context, path string) error
}

// New creates a middleware admitting only the roles in allowed
func New(source StateSource, allowed gate.RoleSet, config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			decision := cfg.Guard.Check(source.GetState(), allowed)

			switch decision.Outcome {
			case gate.OutcomeLoading:
				return cfg.LoadingHandler(ctx)
			case gate.OutcomeRedirect:
				return cfg.RedirectHandler(ctx, decision.Path)
			default:
				return next(ctx)
			}
		}
	}
}

// ForRoute builds the middleware of a declared protected route
func ForRoute(source StateSource, route gate.ProtectedRoute, config ...Config) router.MiddlewareFunc {
	return New(source, route.Allowed, config...)
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Guard == (gate.Guard{}) {
		cfg.Guard = gate.NewGuard(gate.DefaultRouteTable())
	}

	if cfg.LoadingHandler == nil {
		cfg.LoadingHandler = defaultLoadingHandler
	}

	if cfg.RedirectHandler == nil {
		cfg.RedirectHandler = defaultRedirectHandler
	}

	return cfg
}

func defaultLoadingHandler(ctx router.Context) error {
	return ctx.JSON(http.StatusAccepted, LoadingPayload{
		Loading: true,
		Path:    ctx.Path(),
	})
}

func defaultRedirectHandler(ctx router.Context, path string) error {
	statusCode := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	ctx.SetHeader("Location", path)
	return ctx.NoContent(statusCode)
}
