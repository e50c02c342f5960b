package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core"
	"github.com/trezcool/vitrine/core/media"
)

var errFileRequired = errors.New("a file is required")

type mediaApi struct {
	svc *media.Service
}

func registerMediaAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *media.Service) {
	api := mediaApi{svc: svc}

	var mws []echo.MiddlewareFunc
	if max := svc.MaxSize(); max > 0 {
		// leave room for the multipart envelope
		mws = append(mws, middleware.BodyLimit(fmt.Sprintf("%dK", max>>10+64)))
	}

	mg := g.Group("/media", jwt, adminMiddleware(auth))
	mg.POST("", api.upload, mws...)
	mg.DELETE("", api.destroy)
}

func (api *mediaApi) upload(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewFieldError("file", errFileRequired)
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer src.Close()

	file, err := api.svc.Upload(ctx.Request().Context(), media.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        src,
	})
	if err != nil {
		return errors.Wrap(err, "uploading media")
	}
	return ctx.JSON(http.StatusCreated, file)
}

func (api *mediaApi) destroy(ctx echo.Context) error {
	key := ctx.QueryParam("key")
	if key == "" {
		return core.NewFieldError("key", errors.New("this field is required"))
	}
	if err := api.svc.Delete(ctx.Request().Context(), key); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
