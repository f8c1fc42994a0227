package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/announcement"
)

type announcementApi struct {
	opts *Options
}

func registerAnnouncementAPI(g, cg *echo.Group, jwt echo.MiddlewareFunc, opts *Options) {
	api := announcementApi{opts: opts}

	cg.GET("/:id/announcements", api.query)
	cg.POST("/:id/announcements", api.create)

	ag := g.Group("/announcements", jwt)
	ag.PUT("/:id", api.update)
	ag.DELETE("/:id", api.destroy)
}

// Handlers

func (api *announcementApi) query(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	if _, _, err = requireMember(ctx, api.opts, &c); err != nil {
		return err
	}

	details, err := api.opts.AnnouncementSvc.Query(ctx.Request().Context(), c.ID)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	return ctx.JSON(http.StatusOK, details)
}

func (api *announcementApi) create(ctx echo.Context) error {
	c, err := fetchClassroom(ctx, api.opts)
	if err != nil {
		return err
	}
	usr, err := requireInstructor(ctx, api.opts, &c)
	if err != nil {
		return err
	}

	var data announcement.NewAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	roster, err := api.opts.ClassroomSvc.Roster(ctx.Request().Context(), &c)
	if err != nil {
		return errors.Wrap(err, "loading roster")
	}

	a, err := api.opts.AnnouncementSvc.Create(ctx.Request().Context(), c.Name, c.ID, usr, roster, data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *announcementApi) fetchOwned(ctx echo.Context) (announcement.Announcement, error) {
	a, err := api.opts.AnnouncementSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == announcement.ErrNotFound {
			return announcement.Announcement{}, errHttpNotFound
		}
		return announcement.Announcement{}, errors.Wrap(err, "finding announcement")
	}

	c, err := api.opts.ClassroomSvc.GetByID(ctx.Request().Context(), a.ClassroomID)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "finding classroom")
	}
	if _, err = requireInstructor(ctx, api.opts, &c); err != nil {
		return announcement.Announcement{}, err
	}
	return a, nil
}

func (api *announcementApi) update(ctx echo.Context) error {
	a, err := api.fetchOwned(ctx)
	if err != nil {
		return err
	}

	var data announcement.UpdateAnnouncement
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}
	if err = data.Validate(api.opts.Validate); err != nil {
		return err
	}

	a, err = api.opts.AnnouncementSvc.Update(ctx.Request().Context(), a.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *announcementApi) destroy(ctx echo.Context) error {
	a, err := api.fetchOwned(ctx)
	if err != nil {
		return err
	}

	if err = api.opts.AnnouncementSvc.Delete(ctx.Request().Context(), a.ID); err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return ctx.NoContent(http.StatusNoContent)
}
