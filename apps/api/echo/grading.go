package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/grading"
	"github.com/trezcool/darasa/core/user"
)

type gradingApi struct {
	opts *Options
}

func registerGradingAPI(g, cg *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := gradingApi{opts: opts}

	cg.GET("/:id/assignments", api.queryAssignments)
	cg.POST("/:id/assignments", api.createAssignment)
	cg.GET("/:id/grades/export", api.exportGrades)

	ag := g.Group("/assignments", jwt)
	ag.GET("/:id/grades", api.grades)
	ag.POST("/:id/grades", api.upsertGrade)
}

type assignmentOut struct {
	grading.Assignment
	// a student's own grade, attached when the requester is not the
	// instructor
	Score    *float64 `json:"score,omitempty"`
	Feedback string   `json:"feedback,omitempty"`
}

// Handlers

func (api *gradingApi) queryAssignments(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	usr, isInstructor, err := requireMember(ctx, api.opts, &c)
	if err != nil {
		return err
	}

	assignments, err := api.opts.GradingSvc.QueryAssignments(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}

	out := make([]assignmentOut, 0, len(assignments))
	for _, a := range assignments {
		o := assignmentOut{Assignment: a}
		if !isInstructor {
			g, err := api.opts.GradingSvc.StudentGrade(ctx.Request().Context(), a.ID, usr.ID)
			if err != nil && errors.Cause(err) != grading.ErrGradeNotFound {
				return errors.Wrap(err, "finding student grade")
			}
			if err == nil {
				o.Score = g.Score
				o.Feedback = g.Feedback
			}
		}
		out = append(out, o)
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *gradingApi) createAssignment(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	var data grading.NewAssignment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	a, err := api.opts.GradingSvc.CreateAssignment(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating assignment")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *gradingApi) fetchAssignment(ctx echo.Context) (grading.Assignment, error) {
	a, err := api.opts.GradingSvc.GetAssignment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == grading.ErrAssignmentNotFound {
			return grading.Assignment{}, errHttpNotFound
		}
		return grading.Assignment{}, errors.Wrap(err, "finding assignment")
	}
	return a, nil
}

func (api *gradingApi) grades(ctx echo.Context) error {
	a, err := api.fetchAssignment(ctx)
	if err != nil {
		return err
	}
	c, err := api.opts.ClassroomSvc.GetByID(ctx.Request().Context(), a.ClassroomID)
	if err != nil {
		return errors.Wrap(err, "finding classroom")
	}
	usr, isInstructor, err := requireMember(ctx, api.opts, &c)
	if err != nil {
		return err
	}

	if isInstructor {
		results, err := api.opts.GradingSvc.AssignmentGrades(ctx.Request().Context(), &a)
		if err != nil {
			return errors.Wrap(err, "listing assignment grades")
		}
		return ctx.JSON(http.StatusOK, results)
	}

	g, err := api.opts.GradingSvc.StudentGrade(ctx.Request().Context(), a.ID, usr.ID)
	if err != nil {
		if errors.Cause(err) == grading.ErrGradeNotFound {
			return ctx.JSON(http.StatusOK, echo.Map{"score": nil})
		}
		return errors.Wrap(err, "finding student grade")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"score": g.Score, "feedback": g.Feedback})
}

func (api *gradingApi) upsertGrade(ctx echo.Context) error {
	a, err := api.fetchAssignment(ctx)
	if err != nil {
		return err
	}
	c, err := api.opts.ClassroomSvc.GetByID(ctx.Request().Context(), a.ClassroomID)
	if err != nil {
		return errors.Wrap(err, "finding classroom")
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	var data grading.GradeInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeInput")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	g, err := api.opts.GradingSvc.UpsertGrade(ctx.Request().Context(), &a, data)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "student not found")
		}
		return errors.Wrap(err, "upserting grade")
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradingApi) exportGrades(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	roster, err := api.opts.ClassroomSvc.Roster(ctx.Request().Context(), &c)
	if err != nil {
		return errors.Wrap(err, "loading roster")
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", "grades.csv"))
	res.WriteHeader(http.StatusOK)
	return api.opts.GradingSvc.ExportGradesCSV(ctx.Request().Context(), c.ID, roster, res)
}
