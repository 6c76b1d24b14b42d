package post

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/medportal/portal-backend/internal/gate"
	"github.com/medportal/portal-backend/internal/store"
	"github.com/medportal/portal-backend/internal/user"
)

type Handler struct {
	service *Service
}

type createPostRequest struct {
	Content  string  `json:"content"`
	ImageURL *string `json:"image_url,omitempty"`
	VideoURL *string `json:"video_url,omitempty"`
}

type commentRequest struct {
	Content string `json:"content"`
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// RegisterProtectedRoutes mounts the feed behind requireUser.
func (h *Handler) RegisterProtectedRoutes(r fiber.Router, requireUser fiber.Handler) {
	r.Get("/api/v1/posts", requireUser, h.getPosts)
	r.Post("/api/v1/posts", requireUser, h.createPost)
	r.Delete("/api/v1/posts/:id", requireUser, h.deletePost)
	r.Post("/api/v1/posts/:id/comments", requireUser, h.createComment)
	r.Post("/api/v1/posts/:id/like", requireUser, h.likePost)
	r.Delete("/api/v1/posts/:id/like", requireUser, h.unlikePost)
	r.Get("/api/v1/likes", requireUser, h.getLikes)
}

func (h *Handler) getPosts(c *fiber.Ctx) error {
	posts, err := h.service.GetPosts(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

func (h *Handler) createPost(c *fiber.Ctx) error {
	current := gate.CurrentUserFromCtx(c)
	if current == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	payload := new(createPostRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	created, err := h.service.CreatePost(c.UserContext(), current.ID, payload.Content, Media{
		ImageURL: payload.ImageURL,
		VideoURL: payload.VideoURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// deletePost lets authors remove their own posts and hospital admins remove
// any post.
func (h *Handler) deletePost(c *fiber.Ctx) error {
	current := gate.CurrentUserFromCtx(c)
	if current == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	postID, err := postIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid post id"})
	}

	ownerID := current.ID
	if current.Role == user.RoleHospitalAdmin {
		ownerID = ""
	}
	if err := h.service.DeletePost(c.UserContext(), postID, ownerID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) createComment(c *fiber.Ctx) error {
	current := gate.CurrentUserFromCtx(c)
	if current == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	postID, err := postIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid post id"})
	}

	payload := new(commentRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	created, err := h.service.CreateComment(c.UserContext(), current.ID, postID, payload.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) likePost(c *fiber.Ctx) error {
	current := gate.CurrentUserFromCtx(c)
	if current == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	postID, err := postIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid post id"})
	}

	like, err := h.service.LikePost(c.UserContext(), current.ID, postID)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "post already liked"})
		}
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(like)
}

func (h *Handler) unlikePost(c *fiber.Ctx) error {
	current := gate.CurrentUserFromCtx(c)
	if current == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	postID, err := postIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid post id"})
	}

	if err := h.service.UnlikePost(c.UserContext(), current.ID, postID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) getLikes(c *fiber.Ctx) error {
	current := gate.CurrentUserFromCtx(c)
	if current == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}

	ids, err := h.service.LikedPostIDs(c.UserContext(), current.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"post_ids": ids})
}

func postIDParam(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid input"})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "post not found"})
	}
	if status, ok := store.HTTPStatus(err); ok {
		return c.Status(status).JSON(fiber.Map{"message": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": err.Error()})
}
