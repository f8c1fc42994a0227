package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/user"
)

type classroomApi struct {
	opts *Options
}

func registerClassroomAPI(g *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := classroomApi{opts: opts}

	cg := g.Group("/classrooms", jwt)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.POST("/join", api.join)

	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.archive)
	dg.GET("/students", api.roster)
	dg.POST("/students", api.addStudent)
	dg.DELETE("/students/:studentID", api.removeStudent)
	dg.POST("/students/import", api.importRoster)
	dg.GET("/students/export", api.exportRoster)

	registerGradingAPI(g, cg, jwt, opts)
	registerAttendanceAPI(g, cg, jwt, opts)
	registerAnnouncementAPI(g, cg, jwt, opts)
}

// fetchClassroom loads the classroom in the :id path param.
func fetchClassroom(ctx echo.Context, opts *Options) (classroom.Classroom, error) {
	c, err := opts.ClassroomSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			return classroom.Classroom{}, errHttpNotFound
		}
		return classroom.Classroom{}, errors.Wrap(err, "finding classroom")
	}
	return c, nil
}

// requireInstructor ensures the requesting user owns the classroom.
func requireInstructor(ctx echo.Context, opts *Options, c *classroom.Classroom) (user.User, error) {
	usr, err := getContextUser(ctx, opts.UserSvc)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context user")
	}
	if usr.ID != c.InstructorID {
		return user.User{}, errHttpForbidden
	}
	return usr, nil
}

// requireMember ensures the requesting user owns the classroom or is
// enrolled in it. Enrollment goes through the safe accessor so a roster
// with zombie entries never breaks the check.
func requireMember(ctx echo.Context, opts *Options, c *classroom.Classroom) (usr user.User, isInstructor bool, err error) {
	usr, err = getContextUser(ctx, opts.UserSvc)
	if err != nil {
		return user.User{}, false, errors.Wrap(err, "getting context user")
	}
	if usr.ID == c.InstructorID {
		return usr, true, nil
	}
	enrolled, err := opts.ClassroomSvc.IsEnrolled(ctx.Request().Context(), c, usr)
	if err != nil {
		return user.User{}, false, errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return user.User{}, false, errHttpForbidden
	}
	return usr, false, nil
}

// Handlers

func (api *classroomApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if !usr.IsInstructor() && !usr.IsAdmin() {
		return errHttpForbidden
	}

	var data classroom.NewClassroom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClassroom")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	c, err := api.opts.ClassroomSvc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating classroom")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *classroomApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cs, err := api.opts.ClassroomSvc.QueryByMember(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	return ctx.JSON(http.StatusOK, cs)
}

func (api *classroomApi) join(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data JoinRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to JoinRequest")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	c, err := api.opts.ClassroomSvc.Join(ctx.Request().Context(), usr, data.Code)
	if err != nil {
		switch errors.Cause(err) {
		case classroom.ErrBadJoinCode:
			return core.NewValidationError(nil, core.FieldError{Field: "code", Error: classroom.ErrBadJoinCode.Error()})
		case classroom.ErrArchived:
			return core.NewValidationError(nil, core.FieldError{Field: "code", Error: classroom.ErrArchived.Error()})
		}
		return errors.Wrap(err, "joining classroom")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classroomApi) retrieve(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, _, err = requireMember(ctx, api.opts, &c); err != nil {
		return err
	}

	// a dangling instructor cascade-deletes the classroom; report 404
	instructor, err := api.opts.ClassroomSvc.Instructor(ctx.Request().Context(), &c)
	if err != nil {
		if errors.Cause(err) == classroom.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "resolving instructor")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"classroom": c, "instructor": instructor})
}

func (api *classroomApi) update(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	var data classroom.UpdateClassroom
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClassroom")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	c, err = api.opts.ClassroomSvc.Update(ctx.Request().Context(), c.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating classroom")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *classroomApi) archive(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	if _, err = api.opts.ClassroomSvc.Archive(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "archiving classroom")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) roster(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, _, err = requireMember(ctx, api.opts, &c); err != nil {
		return err
	}

	students, err := api.opts.ClassroomSvc.Roster(ctx.Request().Context(), &c)
	if err != nil {
		return errors.Wrap(err, "loading roster")
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classroomApi) addStudent(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	var data user.NewStudent
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	student, err := api.opts.UserSvc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	if err = api.opts.ClassroomSvc.AddStudent(ctx.Request().Context(), &c, student); err != nil {
		return errors.Wrap(err, "adding student to classroom")
	}
	return ctx.JSON(http.StatusCreated, student)
}

func (api *classroomApi) removeStudent(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	if err = api.opts.ClassroomSvc.RemoveStudent(ctx.Request().Context(), &c, ctx.Param("studentID")); err != nil {
		return errors.Wrap(err, "removing student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classroomApi) importRoster(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "no file provided"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	added, err := api.opts.ClassroomSvc.ImportRosterCSV(ctx.Request().Context(), &c, f)
	if err != nil {
		return errors.Wrap(err, "importing roster")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"added": added})
}

func (api *classroomApi) exportRoster(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv")
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", "roster.csv"))
	res.WriteHeader(http.StatusOK)
	return api.opts.ClassroomSvc.ExportRosterCSV(ctx.Request().Context(), &c, res)
}
