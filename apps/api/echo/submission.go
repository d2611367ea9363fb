package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kozi/core/assignment"
	"github.com/trezcool/kozi/core/submission"
)

type submissionApi struct {
	svc      submission.Service
	validate *validator.Validate
}

func registerSubmissionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := submissionApi{
		svc:      deps.SubmissionSvc,
		validate: deps.Validate,
	}

	sg := g.Group("/submissions", jwt, instructorMiddleware())
	sg.GET("", api.query)
	sg.POST("/:id/grade", api.grade)
	sg.POST("/:id/resubmission-request", api.requestResubmission)
}

// Handlers

func (api *submissionApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	ordering := new(Ordering)
	ordering.Bind(ctx)

	subs, err := api.svc.ListByAssignment(
		ctx.Request().Context(), ctx.QueryParam("assignment_id"), claims.Subject, ordering.Orderings)
	if err != nil {
		switch errors.Cause(err) {
		case assignment.ErrNotFound:
			return errHttpNotFound
		case submission.ErrNotCourseOwner:
			return errHttpForbidden
		}
		return errors.Wrap(err, "querying submissions")
	}
	if subs == nil {
		subs = []submission.Submission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *submissionApi) grade(ctx echo.Context) error {
	var data submission.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.Grade(ctx.Request().Context(), ctx.Param("id"), claims.Subject, data)
	if err != nil {
		switch errors.Cause(err) {
		case submission.ErrNotFound:
			return errHttpNotFound
		case submission.ErrNotCourseOwner:
			return errHttpForbidden
		case submission.ErrAlreadyGraded:
			return httpError(http.StatusConflict, submission.ErrAlreadyGraded)
		}
		return errors.Wrap(err, "grading submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *submissionApi) requestResubmission(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	sub, err := api.svc.RequestResubmission(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		switch errors.Cause(err) {
		case submission.ErrNotFound:
			return errHttpNotFound
		case submission.ErrNotCourseOwner:
			return errHttpForbidden
		}
		return errors.Wrap(err, "requesting resubmission")
	}
	return ctx.JSON(http.StatusOK, sub)
}
