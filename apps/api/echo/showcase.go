package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core/showcase"
)

type showcaseApi struct {
	kind showcase.Kind
	svc  *showcase.Service
	auth *authenticator
}

func registerShowcaseAPI(g *echo.Group, jwt, optionalJWT echo.MiddlewareFunc, auth *authenticator, svc *showcase.Service) {
	admin := adminMiddleware(auth)
	for _, kind := range showcase.Kinds {
		api := showcaseApi{kind: kind, svc: svc, auth: auth}

		kg := g.Group("/" + string(kind))
		kg.GET("", api.query, optionalJWT)
		kg.GET("/:id", api.retrieve, optionalJWT)
		kg.POST("", api.create, jwt, admin)
		kg.PUT("/:id", api.update, jwt, admin)
		kg.DELETE("/:id", api.destroy, jwt, admin)
		kg.DELETE("", api.destroyMultiple, jwt, admin)
	}
}

func (api *showcaseApi) query(ctx echo.Context) error {
	filter := showcase.Filter{
		Search:     ctx.QueryParam("search"),
		ActiveOnly: true,
	}
	if all, _ := strconv.ParseBool(ctx.QueryParam("all")); all && api.auth.isAdminRequest(ctx) {
		filter.ActiveOnly = false
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)
	filter.Ordering = ordering.Orderings

	recs, err := api.svc.List(ctx.Request().Context(), api.kind, filter)
	if err != nil {
		return errors.Wrapf(err, "listing %s", api.kind)
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *showcaseApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Get(ctx.Request().Context(), api.kind, id)
	if err != nil {
		return errors.Wrapf(err, "getting %s", api.kind)
	}
	if !api.auth.isAdminRequest(ctx) && !visible(rec) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *showcaseApi) create(ctx echo.Context) error {
	rec, err := api.svc.New(api.kind)
	if err != nil {
		return err
	}
	if err := ctx.Bind(rec); err != nil {
		return errors.Wrapf(err, "binding to %s", api.kind)
	}
	if err := api.svc.Create(ctx.Request().Context(), rec); err != nil {
		return errors.Wrapf(err, "creating %s", api.kind)
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *showcaseApi) update(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.New(api.kind)
	if err != nil {
		return err
	}
	if err := ctx.Bind(rec); err != nil {
		return errors.Wrapf(err, "binding to %s", api.kind)
	}
	if err := api.svc.Update(ctx.Request().Context(), id, rec); err != nil {
		return errors.Wrapf(err, "updating %s", api.kind)
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *showcaseApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), api.kind, id); err != nil {
		return errors.Wrapf(err, "deleting %s", api.kind)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *showcaseApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err := api.svc.Delete(ctx.Request().Context(), api.kind, query.IDs...); err != nil {
		return errors.Wrapf(err, "deleting %s", api.kind)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// visible reports whether anonymous visitors may see rec.
func visible(rec showcase.Record) bool {
	if !rec.Base().IsActive {
		return false
	}
	if n, ok := rec.(*showcase.ShortNews); ok {
		return !n.Expired(showcase.NowFunc().UTC())
	}
	return true
}
