package shell

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	gate "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-auth-gate/middleware/routeguard"
	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// SessionAdopter takes over tokens handed back by an OAuth redirect.
// provider/gotrue.Client implements it.
type SessionAdopter interface {
	SetSession(ctx context.Context, accessToken, refreshToken string) (*gate.Session, error)
}

// View is the JSON body every handler answers with
type View struct {
	State    gate.AuthState    `json:"state"`
	Location string            `json:"location"`
	Notices  []gate.Notice     `json:"notices,omitempty"`
	Errors   map[string]string `json:"errors,omitempty"`
	Data     any               `json:"data,omitempty"`
}

// Controller exposes the gate actions and the protected dashboards over
// HTTP. One controller serves one gate, the way a browser tab owns one
// client side session.
type Controller struct {
	Debug   bool
	Logger  gate.Logger
	Machine *gate.Machine
	History *gate.History
	Notices *gate.NoticeBoard
	Adopter SessionAdopter
	Routes  gate.RouteTable

	RegisterUser  command.Commander[gate.RegisterUserMessage]
	ResetPassword command.Commander[gate.ResetPasswordMessage]
}

// ControllerOption customizes a Controller
type ControllerOption func(*Controller) *Controller

// WithSessionAdopter enables token adoption on the OAuth callback
func WithSessionAdopter(adopter SessionAdopter) ControllerOption {
	return func(c *Controller) *Controller {
		c.Adopter = adopter
		return c
	}
}

// WithLogger sets the controller logger
func WithLogger(logger gate.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithRouteTable sets the dashboard paths. It must match the table the
// machine and store were built with.
func WithRouteTable(routes gate.RouteTable) ControllerOption {
	return func(c *Controller) *Controller {
		c.Routes = routes
		return c
	}
}

// WithRegisterUserHandler replaces the sign up command handler
func WithRegisterUserHandler(handler command.Commander[gate.RegisterUserMessage]) ControllerOption {
	return func(c *Controller) *Controller {
		c.RegisterUser = handler
		return c
	}
}

// WithResetPasswordHandler replaces the password reset command handler
func WithResetPasswordHandler(handler command.Commander[gate.ResetPasswordMessage]) ControllerOption {
	return func(c *Controller) *Controller {
		c.ResetPassword = handler
		return c
	}
}

// WithDebug adds the raw error to failed responses
func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

// NewController creates a controller for machine. History and notices
// must be the navigator and notifier the machine store runs effects on.
func NewController(machine *gate.Machine, history *gate.History, notices *gate.NoticeBoard, opts ...ControllerOption) *Controller {
	if machine == nil {
		panic("Missing Machine in gate controller...")
	}

	if history == nil {
		panic("Missing History in gate controller...")
	}

	if notices == nil {
		notices = gate.NewNoticeBoard(0)
	}

	c := &Controller{
		Logger:  nopLogger{},
		Machine: machine,
		History: history,
		Notices: notices,
		Routes:  gate.DefaultRouteTable(),

		RegisterUser:  gate.NewRegisterUserHandler(machine),
		ResetPassword: gate.NewResetPasswordHandler(machine),
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

// RegisterRoutes registers the public auth routes and the guarded
// dashboards.
func (c *Controller) RegisterRoutes(app RouteRegistrar) {
	app.Get(gate.PathRoot, c.Root).SetName("root.get")
	app.Get("/state", c.State).SetName("state.get")

	app.Post(gate.PathLogin, c.LoginPost).SetName("sign-in.post")
	app.Post(gate.PathRegister, c.RegisterPost).SetName("register.post")
	app.Post(gate.PathForgotPassword, c.ForgotPasswordPost).SetName("pwd-reset.post")

	app.Get("/auth/oauth/:provider", c.OAuthBegin).SetName("oauth.get")
	app.Get(gate.PathAuthCallback, c.OAuthCallback).SetName("oauth-callback.get")

	app.Get(gate.PathCompleteProfile, c.CompleteProfileShow).SetName("complete-profile.get")
	app.Post(gate.PathCompleteProfile, c.CompleteProfilePost).SetName("complete-profile.post")

	app.Get("/logout", c.LogOut).SetName("sign-out.get")
	app.Post("/logout", c.LogOut).SetName("sign-out.post")

	guard := routeguard.Config{Guard: gate.NewGuard(c.Routes)}
	for _, route := range gate.ProtectedRoutes(c.Routes) {
		app.Get(route.Path, c.Dashboard(route.Path), routeguard.ForRoute(c.Machine.Store(), route, guard)).
			SetName("dashboard" + route.Path + ".get")
	}
}

// Root sends visitors to the login page
func (c *Controller) Root(ctx router.Context) error {
	return redirect(ctx, gate.PathLogin, http.StatusFound)
}

// State renders the current state, location and pending notices
func (c *Controller) State(ctx router.Context) error {
	return c.render(ctx, http.StatusOK, nil, nil)
}

// LoginPost signs in with email and password
func (c *Controller) LoginPost(ctx router.Context) error {
	payload := new(gate.LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("login parse payload", "error", err)
		return c.renderError(ctx, http.StatusBadRequest, err)
	}

	if err := c.Machine.Login(ctx.Context(), payload.Email, payload.Password); err != nil {
		return c.renderError(ctx, StatusFor(err), err)
	}

	return c.render(ctx, http.StatusOK, nil, nil)
}

// RegisterPost signs up a new account
func (c *Controller) RegisterPost(ctx router.Context) error {
	payload := new(gate.RegisterRequest)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("register user parse payload", "error", err)
		return c.renderError(ctx, http.StatusBadRequest, err)
	}

	if err := payload.Validate(); err != nil {
		c.Logger.Warn("register user validate payload", "error", err)
		return c.render(ctx, http.StatusUnprocessableEntity, ValidationErrorsToMap(err), nil)
	}

	metadata := payload.Metadata()
	err := c.RegisterUser.Execute(ctx.Context(), gate.RegisterUserMessage{
		FirstName:   metadata.FirstName,
		LastName:    metadata.LastName,
		Email:       payload.Email,
		PhoneNumber: metadata.PhoneNumber,
		Password:    payload.Password,
	})
	if err != nil {
		return c.renderError(ctx, StatusFor(err), err)
	}

	return c.render(ctx, http.StatusCreated, nil, nil)
}

// ForgotPasswordPost asks for a password reset email
func (c *Controller) ForgotPasswordPost(ctx router.Context) error {
	payload := new(gate.ForgotPasswordRequest)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("forgot password parse payload", "error", err)
		return c.renderError(ctx, http.StatusBadRequest, err)
	}

	if err := c.ResetPassword.Execute(ctx.Context(), gate.ResetPasswordMessage{Email: payload.Email}); err != nil {
		return c.renderError(ctx, StatusFor(err), err)
	}

	return c.render(ctx, http.StatusOK, nil, nil)
}

// OAuthBegin hands the browser over to the external provider
func (c *Controller) OAuthBegin(ctx router.Context) error {
	provider := gate.OAuthProvider(ctx.Param("provider", ""))

	if err := c.Machine.LoginWithOAuth(ctx.Context(), provider); err != nil {
		return c.renderError(ctx, StatusFor(err), err)
	}

	if target := c.History.PendingRedirect(); target != "" {
		return redirect(ctx, target, http.StatusTemporaryRedirect)
	}

	return c.render(ctx, http.StatusOK, nil, nil)
}

// OAuthCallback completes an OAuth sign in. Tokens passed in the query
// are adopted first when an adopter is configured.
func (c *Controller) OAuthCallback(ctx router.Context) error {
	if errCode := ctx.Query("error", ""); errCode != "" {
		c.Logger.Warn("oauth provider returned error", "error", errCode, "description", ctx.Query("error_description", ""))
	}

	if access := ctx.Query("access_token", ""); access != "" && c.Adopter != nil {
		if _, err := c.Adopter.SetSession(ctx.Context(), access, ctx.Query("refresh_token", "")); err != nil {
			c.Logger.Error("oauth callback adopt session", "error", err)
		}
	}

	if err := c.Machine.HandleOAuthCallback(ctx.Context()); err != nil {
		return c.renderError(ctx, StatusFor(err), err)
	}

	return c.render(ctx, http.StatusOK, nil, nil)
}

// CompleteProfileShow returns the prefill of the profile form
func (c *Controller) CompleteProfileShow(ctx router.Context) error {
	c.History.Navigate(gate.PathCompleteProfile)

	prefill, err := c.Machine.PrepareProfileCompletion(ctx.Context())
	if err != nil {
		return c.renderError(ctx, StatusFor(err), err)
	}

	if prefill == nil {
		return c.render(ctx, http.StatusOK, nil, nil)
	}

	return c.render(ctx, http.StatusOK, nil, gate.CompleteProfileRequest{
		FirstName:   prefill.FirstName,
		LastName:    prefill.LastName,
		PhoneNumber: prefill.PhoneNumber,
	})
}

// CompleteProfilePost saves the mandatory profile fields
func (c *Controller) CompleteProfilePost(ctx router.Context) error {
	payload := new(gate.CompleteProfileRequest)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("complete profile parse payload", "error", err)
		return c.renderError(ctx, http.StatusBadRequest, err)
	}

	if err := c.Machine.CompleteProfile(ctx.Context(), payload.Metadata()); err != nil {
		return c.renderError(ctx, StatusFor(err), err)
	}

	return c.render(ctx, http.StatusOK, nil, nil)
}

// LogOut ends the session
func (c *Controller) LogOut(ctx router.Context) error {
	if err := c.Machine.Logout(ctx.Context()); err != nil {
		return c.renderError(ctx, StatusFor(err), err)
	}
	return c.render(ctx, http.StatusOK, nil, nil)
}

// Dashboard renders a protected view. The route guard runs before it.
func (c *Controller) Dashboard(path string) router.HandlerFunc {
	return func(ctx router.Context) error {
		c.History.Navigate(path)
		return c.render(ctx, http.StatusOK, nil, map[string]string{
			"dashboard": path,
		})
	}
}

func redirect(ctx router.Context, path string, status int) error {
	ctx.SetHeader("Location", path)
	return ctx.NoContent(status)
}

func (c *Controller) render(ctx router.Context, status int, errs map[string]string, data any) error {
	return ctx.JSON(status, View{
		State:    c.Machine.State(),
		Location: c.History.Location(),
		Notices:  c.Notices.Drain(),
		Errors:   errs,
		Data:     data,
	})
}

func (c *Controller) renderError(ctx router.Context, status int, err error) error {
	errs := ValidationErrorsToMap(err)
	if len(errs) == 0 {
		errs = map[string]string{"form": gate.UserMessage(err, gate.MsgUnexpected)}
	}
	if c.Debug {
		errs["debug"] = err.Error()
	}
	return c.render(ctx, status, errs, nil)
}

// StatusFor maps a gate error to an HTTP status
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.Category == errors.CategoryConflict {
		return http.StatusConflict
	}

	switch gate.ClassifyError(err) {
	case gate.KindCredential:
		return http.StatusUnauthorized
	case gate.KindValidation:
		return http.StatusUnprocessableEntity
	case gate.KindTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ValidationErrorsToMap flattens ozzo validation errors into field messages
func ValidationErrorsToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return out
	}

	for field, ferr := range verrs {
		if ferr != nil {
			out[field] = ferr.Error()
		}
	}

	return out
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
