package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nutrio/nutrio/internal/platform/auth"
)

const (
	AvatarBucket  = "avatars"
	MaxAvatarSize = 5 << 20
)

// avatarTypes maps sniffed content types to file extensions.
var avatarTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

type objectResponse struct {
	Object
	Path string `json:"path"`
	URL  string `json:"url"`
}

type Handler struct {
	store Store
	now   func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// RegisterRoutes mounts the authenticated avatar routes on api and, for
// backends that can stream, the public object route on public.
func (h *Handler) RegisterRoutes(api *echo.Group, public *echo.Group) {
	api.POST("/storage/avatars", h.UploadAvatar)
	api.GET("/storage/avatars", h.ListAvatars)
	api.DELETE("/storage/avatars", h.RemoveAvatars)

	if _, ok := h.store.(Reader); ok && public != nil {
		public.GET("/storage/v1/object/public/:bucket/*", h.ServePublic)
	}
}

func (h *Handler) UploadAvatar(c echo.Context) error {
	uid, err := auth.CurrentUserID(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	if file.Size > MaxAvatarSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds maximum allowed size of %d bytes", MaxAvatarSize))
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, MaxAvatarSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read uploaded file")
	}
	if len(data) > MaxAvatarSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds maximum allowed size of %d bytes", MaxAvatarSize))
	}

	contentType := http.DetectContentType(data)
	ext, ok := avatarTypes[contentType]
	if !ok {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, "avatar must be a PNG, JPEG or WebP image")
	}

	objectPath := fmt.Sprintf("%s/%d.%s", uid, h.now().UnixMilli(), ext)
	obj, err := h.store.Upload(c.Request().Context(), AvatarBucket, objectPath, contentType, bytes.NewReader(data))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusCreated, objectResponse{
		Object: obj,
		Path:   obj.Name,
		URL:    h.store.PublicURL(AvatarBucket, obj.Name),
	})
}

func (h *Handler) ListAvatars(c echo.Context) error {
	uid, err := auth.CurrentUserID(c)
	if err != nil {
		return err
	}

	objs, err := h.store.List(c.Request().Context(), AvatarBucket, uid.String()+"/")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	out := make([]objectResponse, 0, len(objs))
	for _, o := range objs {
		out = append(out, objectResponse{Object: o, Path: o.Name, URL: h.store.PublicURL(AvatarBucket, o.Name)})
	}
	return c.JSON(http.StatusOK, out)
}

// RemoveAvatars deletes every ?path= given. All paths must sit under the
// caller's own prefix.
func (h *Handler) RemoveAvatars(c echo.Context) error {
	uid, err := auth.CurrentUserID(c)
	if err != nil {
		return err
	}

	paths := c.QueryParams()["path"]
	if len(paths) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}

	prefix := uid.String() + "/"
	cleaned := make([]string, 0, len(paths))
	for _, p := range paths {
		cp, err := CleanPath(p)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if !strings.HasPrefix(cp, prefix) {
			return echo.NewHTTPError(http.StatusForbidden, "cannot remove objects outside your folder")
		}
		cleaned = append(cleaned, cp)
	}

	if err := h.store.Remove(c.Request().Context(), AvatarBucket, cleaned...); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ServePublic(c echo.Context) error {
	reader, ok := h.store.(Reader)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "object not found")
	}

	p, err := CleanPath(c.Param("*"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rc, obj, err := reader.Get(c.Request().Context(), c.Param("bucket"), p)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "object not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer rc.Close()

	c.Response().Header().Set("Cache-Control", "public, max-age=3600")
	return c.Stream(http.StatusOK, obj.ContentType, rc)
}
