package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/user"
)

type attendanceApi struct {
	opts *Options
}

func registerAttendanceAPI(g, cg *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := attendanceApi{opts: opts}

	cg.GET("/:id/attendance/sessions", api.querySessions)
	cg.POST("/:id/attendance/sessions", api.createSession)
	cg.GET("/:id/attendance/export", api.export)

	ag := g.Group("/attendance", jwt)
	ag.POST("/checkin", api.checkIn)
	ag.GET("/sessions/:id", api.sessionDetails)
	ag.PATCH("/sessions/:id", api.updateSession)
	ag.POST("/sessions/:id/manual-checkin", api.manualCheckIn)
}

type sessionOut struct {
	attendance.Session
	HasCheckedIn *bool `json:"has_checked_in,omitempty"`
}

type checkInRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Code      string `json:"code" validate:"required"`
}

// Handlers

func (api *attendanceApi) querySessions(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	usr, isInstructor, err := requireMember(ctx, api.opts, &c)
	if err != nil {
		return err
	}

	sessions, err := api.opts.AttendanceSvc.Query(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying attendance sessions")
	}

	out := make([]sessionOut, 0, len(sessions))
	for i := range sessions {
		o := sessionOut{Session: sessions[i]}
		if !isInstructor {
			// students only see their own check-in state, not the code or
			// the record list
			checked := sessions[i].RecordFor(usr.ID) != nil
			o.HasCheckedIn = &checked
			o.Records = nil
		}
		if !isInstructor || !o.IsOpen {
			// the check-in code is only live while the session is open
			o.Code = ""
		}
		out = append(out, o)
	}
	return ctx.JSON(http.StatusOK, out)
}

func (api *attendanceApi) createSession(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return err
	}

	s, err := api.opts.AttendanceSvc.Create(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "creating attendance session")
	}
	return ctx.JSON(http.StatusCreated, s)
}

func (api *attendanceApi) fetchSession(ctx echo.Context, id string) (attendance.Session, error) {
	s, err := api.opts.AttendanceSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == attendance.ErrNotFound {
			return attendance.Session{}, errHttpNotFound
		}
		return attendance.Session{}, errors.Wrap(err, "finding attendance session")
	}
	return s, nil
}

func (api *attendanceApi) checkIn(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.opts.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data checkInRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to checkInRequest")
	}
	if err = api.opts.Validate.Struct(&data); err != nil {
		return err
	}

	s, err := api.fetchSession(ctx, data.SessionID)
	if err != nil {
		return err
	}

	c, err := api.opts.ClassroomSvc.GetByID(ctx.Request().Context(), s.ClassroomID)
	if err != nil {
		return errors.Wrap(err, "finding classroom")
	}
	enrolled, err := api.opts.ClassroomSvc.IsEnrolled(ctx.Request().Context(), &c, usr)
	if err != nil {
		return errors.Wrap(err, "checking enrollment")
	}
	if !enrolled {
		return echo.NewHTTPError(http.StatusForbidden, "not enrolled in this class")
	}

	if err = api.opts.AttendanceSvc.CheckIn(ctx.Request().Context(), &s, data.Code, usr); err != nil {
		switch errors.Cause(err) {
		case attendance.ErrSessionClosed:
			return echo.NewHTTPError(http.StatusNotFound, attendance.ErrSessionClosed.Error())
		case attendance.ErrBadCode:
			return echo.NewHTTPError(http.StatusBadRequest, attendance.ErrBadCode.Error())
		case attendance.ErrAlreadyCheckedIn:
			return echo.NewHTTPError(http.StatusBadRequest, attendance.ErrAlreadyCheckedIn.Error())
		}
		return errors.Wrap(err, "checking in")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"ok": true})
}

func (api *attendanceApi) requireSessionInstructor(ctx echo.Context, s *attendance.Session) error {
	c, err := api.opts.ClassroomSvc.GetByID(ctx.Request().Context(), s.ClassroomID)
	if err != nil {
		return errors.Wrap(err, "finding classroom")
	}
	_, err = requireInstructor(ctx, api.opts, &c)
	return err
}

func (api *attendanceApi) sessionDetails(ctx echo.Context) error {
	s, err := api.fetchSession(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.requireSessionInstructor(ctx, &s); err != nil {
		return err
	}

	records, err := api.opts.AttendanceSvc.Records(ctx.Request().Context(), &s)
	if err != nil {
		return errors.Wrap(err, "listing session records")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"session": s, "records": records})
}

func (api *attendanceApi) updateSession(ctx echo.Context) error {
	s, err := api.fetchSession(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.requireSessionInstructor(ctx, &s); err != nil {
		return err
	}

	var data attendance.SessionUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionUpdate")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	if err = api.opts.AttendanceSvc.SetOpen(ctx.Request().Context(), &s, *data.IsOpen); err != nil {
		return errors.Wrap(err, "updating attendance session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) manualCheckIn(ctx echo.Context) error {
	s, err := api.fetchSession(ctx, ctx.Param("id"))
	if err != nil {
		return err
	}
	if err = api.requireSessionInstructor(ctx, &s); err != nil {
		return err
	}

	var data attendance.ManualCheckIn
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ManualCheckIn")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	if err = api.opts.AttendanceSvc.ManualCheckIn(ctx.Request().Context(), &s, data); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return echo.NewHTTPError(http.StatusNotFound, "student not found")
		}
		return errors.Wrap(err, "recording manual check-in")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *attendanceApi) export(ctx echo.Context) error {
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
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", "attendance.csv"))
	res.WriteHeader(http.StatusOK)
	return api.opts.AttendanceSvc.ExportCSV(ctx.Request().Context(), c.ID, roster, res)
}
