package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core/assignment"
	"github.com/trezcool/kozi/core/course"
	"github.com/trezcool/kozi/core/submission"
)

type assignmentApi struct {
	svc      assignment.Service
	subSvc   submission.Service
	validate *validator.Validate
}

func registerAssignmentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := assignmentApi{
		svc:      deps.AssignmentSvc,
		subSvc:   deps.SubmissionSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/assignments", jwt)
	ag.POST("", api.create, instructorMiddleware())
	ag.GET("", api.query)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/publish", api.publish, instructorMiddleware())
	ag.POST("/:id/submissions", api.submit, learnerMiddleware())
}

// Handlers

func (api *assignmentApi) create(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	a, err := api.svc.Create(ctx.Request().Context(), claims.Subject, data)
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound:
			return errHttpNotFound
		case assignment.ErrNotCourseOwner:
			return errHttpForbidden
		}
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *assignmentApi) query(ctx echo.Context) error {
	courseID := ctx.QueryParam("course_id")
	assignments, err := api.svc.ListByCourse(ctx.Request().Context(), courseID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *assignmentApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == assignment.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) publish(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	a, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		switch errors.Cause(err) {
		case assignment.ErrNotFound, course.ErrNotFound:
			return errHttpNotFound
		case assignment.ErrNotCourseOwner:
			return errHttpForbidden
		case assignment.ErrNotDraft:
			return httpError(http.StatusConflict, assignment.ErrNotDraft)
		}
		return errors.Wrap(err, "publishing assignment")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *assignmentApi) submit(ctx echo.Context) error {
	var data submission.SubmitAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitAssignment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.subSvc.Submit(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data)
	if err != nil {
		switch cause := errors.Cause(err); cause {
		case assignment.ErrNotFound:
			return errHttpNotFound
		case submission.ErrAssignmentNotPublished,
			submission.ErrNotEnrolled,
			submission.ErrAlreadyGraded,
			submission.ErrDeadlinePassed,
			submission.ErrResubmissionNotAllowed:
			return httpError(http.StatusForbidden, cause)
		}
		return errors.Wrap(err, "submitting assignment")
	}
	return ctx.JSON(http.StatusCreated, sub)
}
