package gatekeeper

import (
	stderrors "errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
)

// Controller mounts the account lifecycle endpoints on a fiber router and
// translates between JSON envelopes and the workflow.
type Controller struct {
	Debug    bool
	Logger   Logger
	Workflow *Workflow
	Guard    *Guard
}

type ControllerOption func(*Controller)

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) {
		c.Debug = debug
	}
}

func NewController(workflow *Workflow, guard *Guard, opts ...ControllerOption) *Controller {
	ctrl := &Controller{
		Logger:   defLogger{},
		Workflow: workflow,
		Guard:    guard,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ctrl)
		}
	}
	return ctrl
}

// RegisterRoutes mounts the public and guarded endpoints. Callers pass the
// group they want the routes under, e.g. app.Group("/api/auth").
func (ctrl *Controller) RegisterRoutes(router fiber.Router) {
	router.Post("/register", ctrl.Register)
	router.Post("/login", ctrl.Login)

	router.Get("/profile", ctrl.Guard.Authenticated(), ctrl.GetProfile)
	router.Put("/profile", ctrl.Guard.Authenticated(), ctrl.UpdateProfile)

	admin := router.Group("/admin", ctrl.Guard.AdminOnly())
	admin.Get("/pending-approvals", ctrl.PendingApprovals)
	admin.Post("/approve-user", ctrl.ApproveUser)
	admin.Post("/reject-user", ctrl.RejectUser)
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (p LoginPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Password, validation.Required),
	)
}

type ApprovalPayload struct {
	UserID string `json:"userId"`
	Reason string `json:"reason,omitempty"`
}

func (p ApprovalPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.UserID, validation.Required, validation.By(validateUUID)),
	)
}

func validateUUID(value any) error {
	s, _ := value.(string)
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid id", errors.CategoryValidation)
	}
	return nil
}

func (ctrl *Controller) Register(c *fiber.Ctx) error {
	msg := RegisterMessage{}
	if err := c.BodyParser(&msg); err != nil {
		return ctrl.respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest))
	}

	ctrl.debug("register request", msg.Username)

	result, err := ctrl.Workflow.Register(c.UserContext(), msg)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": result.Message,
		"token":   result.Token,
		"user":    result.Account,
	})
}

func (ctrl *Controller) Login(c *fiber.Ctx) error {
	payload := LoginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctrl.respondError(c, err)
	}

	result, err := ctrl.Workflow.Login(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": result.Message,
		"token":   result.Token,
		"user":    result.Account,
	})
}

func (ctrl *Controller) GetProfile(c *fiber.Ctx) error {
	claims, err := ctrl.callerClaims(c)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	accountID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return ctrl.respondError(c, ErrUnauthenticated)
	}

	record, err := ctrl.Workflow.Profile(c.UserContext(), accountID)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Profile retrieved",
		"user":    record,
	})
}

func (ctrl *Controller) UpdateProfile(c *fiber.Ctx) error {
	claims, err := ctrl.callerClaims(c)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	accountID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return ctrl.respondError(c, ErrUnauthenticated)
	}

	update := ProfileUpdate{}
	if err := c.BodyParser(&update); err != nil {
		return ctrl.respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest))
	}

	record, err := ctrl.Workflow.UpdateSelf(c.UserContext(), accountID, update)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": MsgProfileUpdated,
		"user":    record,
	})
}

func (ctrl *Controller) PendingApprovals(c *fiber.Ctx) error {
	claims, err := ctrl.callerClaims(c)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	records, err := ctrl.Workflow.PendingApprovals(c.UserContext(), claims)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Pending approvals retrieved",
		"count":   len(records),
		"users":   records,
	})
}

func (ctrl *Controller) ApproveUser(c *fiber.Ctx) error {
	claims, err := ctrl.callerClaims(c)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	payload := ApprovalPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctrl.respondError(c, err)
	}

	targetID, _ := uuid.Parse(payload.UserID)

	record, err := ctrl.Workflow.Approve(c.UserContext(), claims, targetID, payload.Reason)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": MsgAccountApproved,
		"user":    record,
	})
}

func (ctrl *Controller) RejectUser(c *fiber.Ctx) error {
	claims, err := ctrl.callerClaims(c)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	payload := ApprovalPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return ctrl.respondError(c, errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return ctrl.respondError(c, err)
	}

	targetID, _ := uuid.Parse(payload.UserID)

	reason, err := ctrl.Workflow.Reject(c.UserContext(), claims, targetID, payload.Reason)
	if err != nil {
		return ctrl.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": MsgAccountRejected,
		"reason":  reason,
	})
}

func (ctrl *Controller) callerClaims(c *fiber.Ctx) (AuthClaims, error) {
	claims, ok := ClaimsFromFiber(c, ctrl.Guard.contextKey)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return claims, nil
}

func (ctrl *Controller) respondError(c *fiber.Ctx, err error) error {
	return renderError(c, err, ctrl.Logger)
}

// ErrorHandler maps domain and validation errors to JSON error envelopes.
// Wire it as the fiber app ErrorHandler so guard middleware errors get the
// same treatment as handler errors.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return func(c *fiber.Ctx, err error) error {
		return renderError(c, err, logger)
	}
}

// renderError is the single choke point for error responses. Unknown errors
// become a generic 500; internals never leak to clients.
func renderError(c *fiber.Ctx, err error, logger Logger) error {
	if fields, ok := err.(validation.Errors); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": fields,
		})
	}

	var fiberErr *fiber.Error
	if stderrors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error": fiberErr.Message,
		})
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	if richErr.Code == 0 || richErr.Category == errors.CategoryInternal {
		logger.Error("request failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "An unexpected server error occurred",
		})
	}

	return c.Status(richErr.Code).JSON(fiber.Map{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func (ctrl *Controller) debug(msg string, detail any) {
	if !ctrl.Debug {
		return
	}
	ctrl.Logger.Debug("%s: %s", msg, print.MaybePrettyJSON(detail))
}
