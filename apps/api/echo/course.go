package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core/course"
)

type courseApi struct {
	svc      course.Service
	validate *validator.Validate
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{
		svc:      deps.CourseSvc,
		validate: deps.Validate,
	}

	cg := g.Group("/courses", jwt)
	cg.POST("", api.create, instructorMiddleware())
	cg.GET("/:id", api.retrieve)
	cg.POST("/:id/enrollments", api.enroll, learnerMiddleware())
}

// Handlers

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	crs, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enr, err := api.svc.Enroll(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound:
			return errHttpNotFound
		case course.ErrNotPublished:
			return httpError(http.StatusBadRequest, course.ErrNotPublished)
		case course.ErrAlreadyEnrolled:
			return httpError(http.StatusConflict, course.ErrAlreadyEnrolled)
		}
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}
