package users

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/nyaruka/phonenumbers"
)

// AccountControllerRoutes holds the route templates the controller mounts.
type AccountControllerRoutes struct {
	Register      string
	Login         string
	VerifyEmail   string
	Users         string
	UserByID      string
	UpdateProfile string
	Promote       string
	Unlock        string
}

// AccountController serves the account management REST surface.
type AccountController struct {
	Debug        bool
	Logger       Logger
	Service      *AccountService
	Routes       *AccountControllerRoutes
	ContextKey   string
	ErrorHandler fiber.ErrorHandler
}

// AccountControllerOption mutates the controller during construction.
type AccountControllerOption func(*AccountController) *AccountController

// WithControllerService sets the account service.
func WithControllerService(service *AccountService) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Service = service
		return c
	}
}

// WithControllerLogger sets the logger.
func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerDebug enables request payload dumps.
func WithControllerDebug(debug bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Debug = debug
		return c
	}
}

// WithControllerContextKey sets the fiber Locals key holding validated claims.
func WithControllerContextKey(key string) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

// NewAccountController builds the controller with default routes.
func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:     defLogger{},
		ContextKey: "claims",
		Routes: &AccountControllerRoutes{
			Register:      "/register/",
			Login:         "/login/",
			VerifyEmail:   "/verify-email/:id/:token",
			Users:         "/users/",
			UserByID:      "/users/:id",
			UpdateProfile: "/users/update-profile",
			Promote:       "/users/:id/promote",
			Unlock:        "/users/:id/unlock",
		},
	}
	c.ErrorHandler = c.handleError

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing AccountService in account controller...")
	}

	return c
}

// RegisterPublicRoutes mounts the routes that do not require a bearer token.
func (a *AccountController) RegisterPublicRoutes(app fiber.Router) {
	app.Post(a.Routes.Register, a.RegisterPost).Name("register.post")
	app.Post(a.Routes.Login, a.LoginPost).Name("login.post")
	app.Get(a.Routes.VerifyEmail, a.VerifyEmailGet).Name("verify-email.get")
}

// RegisterProtectedRoutes mounts the routes that expect the JWT middleware
// to have populated claims. The static update-profile path is registered
// before the :id routes so fiber does not capture it as a parameter.
func (a *AccountController) RegisterProtectedRoutes(app fiber.Router) {
	app.Put(a.Routes.UpdateProfile, a.UpdateProfilePut).Name("users.update-profile.put")
	app.Get(a.Routes.Users, a.ListGet).Name("users.list.get")
	app.Post(a.Routes.Users, a.CreatePost).Name("users.create.post")
	app.Get(a.Routes.UserByID, a.UserGet).Name("users.get")
	app.Put(a.Routes.UserByID, a.UserPut).Name("users.put")
	app.Delete(a.Routes.UserByID, a.UserDelete).Name("users.delete")
	app.Patch(a.Routes.Promote, a.PromotePatch).Name("users.promote.patch")
	app.Patch(a.Routes.Unlock, a.UnlockPatch).Name("users.unlock.patch")
}

// RegisterPayload is the self-registration body.
type RegisterPayload struct {
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	Nickname  string `form:"nickname" json:"nickname"`
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Phone     string `form:"phone_number" json:"phone_number"`
}

// Validate will run validation rules
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Nickname, validation.Length(0, 200)),
		validation.Field(&r.FirstName, validation.Length(0, 200)),
		validation.Field(&r.LastName, validation.Length(0, 200)),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
	)
}

func (a *AccountController) RegisterPost(ctx *fiber.Ctx) error {
	payload := new(RegisterPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("register account parse payload: %v", err)
		return a.validationError(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationDetail(ctx, err)
	}

	a.debugPayload("REGISTER", payload)

	record, err := a.Service.Register(ctx.UserContext(), RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		Nickname:  payload.Nickname,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(record.Public())
}

// LoginPayload is the form-encoded credential body.
type LoginPayload struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginPayload)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return a.validationError(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationDetail(ctx, err)
	}

	result, err := a.Service.Login(ctx.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(result)
}

func (a *AccountController) VerifyEmailGet(ctx *fiber.Ctx) error {
	record, err := a.Service.VerifyEmail(ctx.UserContext(), ctx.Params("id"), ctx.Params("token"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(record.Public())
}

func (a *AccountController) ListGet(ctx *fiber.Ctx) error {
	caller := CallerFromFiber(ctx, a.ContextKey)

	page, err := a.Service.List(ctx.UserContext(), caller,
		ctx.QueryInt("page", 1),
		ctx.QueryInt("size", DefaultPageSize),
	)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(page)
}

// CreateAccountPayload is the admin account-creation body.
type CreateAccountPayload struct {
	Email              string `json:"email"`
	Password           string `json:"password"`
	Role               string `json:"role"`
	Nickname           string `json:"nickname"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Phone              string `json:"phone_number"`
	GithubProfileURL   string `json:"github_profile_url"`
	LinkedinProfileURL string `json:"linkedin_profile_url"`
	EmailVerified      bool   `json:"email_verified"`
}

// Validate will run validation rules
func (r CreateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Length(8, 100)),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
		validation.Field(&r.GithubProfileURL, is.URL),
		validation.Field(&r.LinkedinProfileURL, is.URL),
	)
}

func (a *AccountController) CreatePost(ctx *fiber.Ctx) error {
	caller := CallerFromFiber(ctx, a.ContextKey)

	payload := new(CreateAccountPayload)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("create account parse payload: %v", err)
		return a.validationError(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationDetail(ctx, err)
	}

	a.debugPayload("CREATE ACCOUNT", payload)

	record, err := a.Service.CreateAccount(ctx.UserContext(), caller, CreateAccountInput{
		Email:              payload.Email,
		Password:           payload.Password,
		Role:               Role(payload.Role),
		Nickname:           payload.Nickname,
		FirstName:          payload.FirstName,
		LastName:           payload.LastName,
		Phone:              payload.Phone,
		GithubProfileURL:   payload.GithubProfileURL,
		LinkedinProfileURL: payload.LinkedinProfileURL,
		EmailVerified:      payload.EmailVerified,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(record.Public())
}

func (a *AccountController) UserGet(ctx *fiber.Ctx) error {
	caller := CallerFromFiber(ctx, a.ContextKey)

	record, err := a.Service.Get(ctx.UserContext(), caller, ctx.Params("id"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(record.Public())
}

// UpdateAccountPayload carries admin field updates; absent keys leave the
// stored values untouched.
type UpdateAccountPayload struct {
	Email              *string `json:"email"`
	Role               *string `json:"role"`
	Nickname           *string `json:"nickname"`
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Phone              *string `json:"phone_number"`
	GithubProfileURL   *string `json:"github_profile_url"`
	LinkedinProfileURL *string `json:"linkedin_profile_url"`
	Password           *string `json:"password"`
}

// Validate will run validation rules
func (r UpdateAccountPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.By(ValidateOptionalPhoneNumber)),
	)
}

func (a *AccountController) UserPut(ctx *fiber.Ctx) error {
	caller := CallerFromFiber(ctx, a.ContextKey)

	payload := new(UpdateAccountPayload)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("update account parse payload: %v", err)
		return a.validationError(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationDetail(ctx, err)
	}

	a.debugPayload("UPDATE ACCOUNT", payload)

	input := UpdateAccountInput{
		Email:              payload.Email,
		Nickname:           payload.Nickname,
		FirstName:          payload.FirstName,
		LastName:           payload.LastName,
		Phone:              payload.Phone,
		GithubProfileURL:   payload.GithubProfileURL,
		LinkedinProfileURL: payload.LinkedinProfileURL,
		Password:           payload.Password,
	}
	if payload.Role != nil {
		role := Role(*payload.Role)
		input.Role = &role
	}

	record, err := a.Service.Update(ctx.UserContext(), caller, ctx.Params("id"), input)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(record.Public())
}

// UpdateProfilePayload carries owner-initiated profile changes.
type UpdateProfilePayload struct {
	Nickname           *string `json:"nickname"`
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Phone              *string `json:"phone_number"`
	GithubProfileURL   *string `json:"github_profile_url"`
	LinkedinProfileURL *string `json:"linkedin_profile_url"`
	Password           *string `json:"password"`
}

// Validate will run validation rules
func (r UpdateProfilePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.By(ValidateOptionalPhoneNumber)),
	)
}

func (a *AccountController) UpdateProfilePut(ctx *fiber.Ctx) error {
	caller := CallerFromFiber(ctx, a.ContextKey)

	payload := new(UpdateProfilePayload)
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("update profile parse payload: %v", err)
		return a.validationError(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationDetail(ctx, err)
	}

	record, err := a.Service.UpdateOwnProfile(ctx.UserContext(), caller, ProfileUpdateInput{
		Nickname:           payload.Nickname,
		FirstName:          payload.FirstName,
		LastName:           payload.LastName,
		Phone:              payload.Phone,
		GithubProfileURL:   payload.GithubProfileURL,
		LinkedinProfileURL: payload.LinkedinProfileURL,
		Password:           payload.Password,
	})
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(record.Public())
}

func (a *AccountController) UserDelete(ctx *fiber.Ctx) error {
	caller := CallerFromFiber(ctx, a.ContextKey)

	if err := a.Service.Delete(ctx.UserContext(), caller, ctx.Params("id")); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (a *AccountController) PromotePatch(ctx *fiber.Ctx) error {
	caller := CallerFromFiber(ctx, a.ContextKey)

	record, err := a.Service.Promote(ctx.UserContext(), caller, ctx.Params("id"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(record.Public())
}

func (a *AccountController) UnlockPatch(ctx *fiber.Ctx) error {
	caller := CallerFromFiber(ctx, a.ContextKey)

	record, err := a.Service.Unlock(ctx.UserContext(), caller, ctx.Params("id"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(record.Public())
}

// handleError converts categorized errors into the JSON error envelope.
func (a *AccountController) handleError(ctx *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"request error category=%s code=%d text_code=%s: %s",
		richErr.Category, richErr.Code, richErr.TextCode, richErr.Message,
	)

	if a.Debug && len(richErr.Metadata) > 0 {
		a.Logger.Debug("error metadata: %s", print.MaybePrettyJSON(richErr.Metadata))
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	return ctx.Status(status).JSON(fiber.Map{
		"detail": richErr.Message,
		"code":   richErr.TextCode,
	})
}

func (a *AccountController) validationError(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"detail": message,
	})
}

func (a *AccountController) validationDetail(ctx *fiber.Ctx, err error) error {
	detail := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			detail[field] = ferr.Error()
		}
	} else {
		detail["payload"] = err.Error()
	}

	return ctx.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"detail": detail,
	})
}

func (a *AccountController) debugPayload(label string, payload any) {
	if !a.Debug {
		return
	}
	fmt.Printf("======= USERS %s ======\n", label)
	fmt.Println(print.MaybePrettyJSON(payload))
	fmt.Println("=========================")
}

// ValidatePhoneNumber rejects strings that do not parse as a phone number.
// Empty values pass, pair with validation.Required when the field is
// mandatory.
func ValidatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}

	return nil
}

// ValidateOptionalPhoneNumber applies ValidatePhoneNumber to *string fields.
func ValidateOptionalPhoneNumber(value any) error {
	switch v := value.(type) {
	case string:
		return ValidatePhoneNumber(v)
	case *string:
		if v == nil {
			return nil
		}
		return ValidatePhoneNumber(*v)
	default:
		return nil
	}
}
