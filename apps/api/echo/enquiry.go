package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/vitrine/core/enquiry"
)

type enquiryApi struct {
	svc *enquiry.Service
}

func registerEnquiryAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, svc *enquiry.Service) {
	api := enquiryApi{svc: svc}

	eg := g.Group("/contact/enquiries")
	eg.POST("", api.submit, newRateLimiter())

	ag := eg.Group("", jwt, adminMiddleware(auth))
	ag.GET("", api.query)
	ag.DELETE("", api.destroyMultiple)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/read", api.markRead)
	ag.DELETE("/:id", api.destroy)
}

func (api *enquiryApi) submit(ctx echo.Context) error {
	var data enquiry.NewEnquiry
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnquiry")
	}
	if _, err := api.svc.Submit(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "submitting enquiry")
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "Thank you! Your message has been sent."})
}

func (api *enquiryApi) query(ctx echo.Context) error {
	filter := enquiry.QueryFilter{
		Search: ctx.QueryParam("search"),
		IsRead: boolParam(ctx, "is_read"),
	}
	list, err := api.svc.Filter(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying enquiries")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *enquiryApi) retrieve(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting enquiry")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enquiryApi) markRead(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	e, err := api.svc.MarkRead(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "marking enquiry read")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *enquiryApi) destroy(ctx echo.Context) error {
	id, err := pathID(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting enquiry")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *enquiryApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting enquiries")
	}
	return ctx.NoContent(http.StatusNoContent)
}
