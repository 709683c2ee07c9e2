package http

import (
	apperrors "userdb/internal/shared/errors"
	"userdb/internal/users/usecase"

	"github.com/gofiber/fiber/v2"
)

// UserHTTPHandler handles HTTP requests for the user directory
type UserHTTPHandler struct {
	usecase usecase.UserUsecaseInterface
}

// NewUserHTTPHandler creates a new user directory HTTP handler
func NewUserHTTPHandler(uc usecase.UserUsecaseInterface) *UserHTTPHandler {
	return &UserHTTPHandler{usecase: uc}
}

// SetupUserRoutes sets up the user CRUD routes under the given router
func (h *UserHTTPHandler) SetupUserRoutes(router fiber.Router) {
	router.Post("/", h.CreateUser)
	router.Get("/", h.ListUsers)
	router.Get("/:userID", h.GetUser)
	router.Put("/:userID", h.UpdateUser)
	router.Delete("/:userID", h.DeleteUser)
}

// CreateUser handles user creation
func (h *UserHTTPHandler) CreateUser(c *fiber.Ctx) error {
	var req usecase.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.usecase.CreateUser(c.Context(), req)
	if err != nil {
		if err == usecase.ErrEmailTaken {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "User with this email already exists",
			})
		}
		if apperrors.IsValidation(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// ListUsers handles paginated listing
func (h *UserHTTPHandler) ListUsers(c *fiber.Ctx) error {
	req := usecase.ListUsersRequest{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
		Status: c.Query("status"),
	}

	if req.Page < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "page must be at least 1",
		})
	}

	response, err := h.usecase.ListUsers(c.Context(), req)
	if err != nil {
		if apperrors.IsValidation(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(response)
}

// GetUser handles a single user lookup
func (h *UserHTTPHandler) GetUser(c *fiber.Ctx) error {
	userID := c.Params("userID")

	user, err := h.usecase.GetUser(c.Context(), userID)
	if err != nil {
		if err == usecase.ErrUserNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(user)
}

// UpdateUser handles a partial user update
func (h *UserHTTPHandler) UpdateUser(c *fiber.Ctx) error {
	userID := c.Params("userID")

	var req usecase.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.usecase.UpdateUser(c.Context(), userID, req)
	if err != nil {
		switch err {
		case usecase.ErrUserNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		case usecase.ErrEmailTaken:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "User with this email already exists",
			})
		default:
			if apperrors.IsValidation(err) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	return c.JSON(user)
}

// DeleteUser handles user deletion
func (h *UserHTTPHandler) DeleteUser(c *fiber.Ctx) error {
	userID := c.Params("userID")

	err := h.usecase.DeleteUser(c.Context(), userID)
	if err != nil {
		if err == usecase.ErrUserNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "User not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
	})
}
