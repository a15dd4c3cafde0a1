package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apierrors "github.com/kiezfinder/kiezfinder/server/internal/errors"
	"github.com/kiezfinder/kiezfinder/store"
)

func (s *APIV1Service) handleListBoroughs(c echo.Context) error {
	if s.Store == nil {
		return writeError(c, apierrors.New(apierrors.ErrCodeServiceUnavailable, "neighborhood data is not configured"))
	}

	find := &store.FindBorough{}
	if tag := c.QueryParam("tag"); tag != "" {
		find.Tag = &tag
	}
	if raw := c.QueryParam("max_rent"); raw != "" {
		maxRent, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return writeError(c, apierrors.New(apierrors.ErrCodeInvalidArgument, "max_rent must be a number"))
		}
		find.MaxRent = &maxRent
	}

	boroughs, err := s.Store.ListBoroughs(c.Request().Context(), find)
	if err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeInternal, "failed to list boroughs", err))
	}
	return c.JSON(http.StatusOK, boroughs)
}

func (s *APIV1Service) handleGetBorough(c echo.Context) error {
	if s.Store == nil {
		return writeError(c, apierrors.New(apierrors.ErrCodeServiceUnavailable, "neighborhood data is not configured"))
	}

	borough, err := s.Store.GetBoroughBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeInternal, "failed to get borough", err))
	}
	if borough == nil {
		return writeError(c, apierrors.New(apierrors.ErrCodeNotFound, "borough not found"))
	}
	return c.JSON(http.StatusOK, borough)
}

func (s *APIV1Service) handleListNeighborhoods(c echo.Context) error {
	if s.Store == nil {
		return writeError(c, apierrors.New(apierrors.ErrCodeServiceUnavailable, "neighborhood data is not configured"))
	}

	find := &store.FindNeighborhood{}
	if boroughSlug := c.QueryParam("borough"); boroughSlug != "" {
		find.BoroughSlug = &boroughSlug
	}
	if raw := c.QueryParam("max_rent"); raw != "" {
		maxRent, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return writeError(c, apierrors.New(apierrors.ErrCodeInvalidArgument, "max_rent must be a number"))
		}
		find.MaxRent = &maxRent
	}

	neighborhoods, err := s.Store.ListNeighborhoods(c.Request().Context(), find)
	if err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeInternal, "failed to list neighborhoods", err))
	}
	return c.JSON(http.StatusOK, neighborhoods)
}

func (s *APIV1Service) handleGetNeighborhood(c echo.Context) error {
	if s.Store == nil {
		return writeError(c, apierrors.New(apierrors.ErrCodeServiceUnavailable, "neighborhood data is not configured"))
	}

	neighborhood, err := s.Store.GetNeighborhoodBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, apierrors.Wrap(apierrors.ErrCodeInternal, "failed to get neighborhood", err))
	}
	if neighborhood == nil {
		return writeError(c, apierrors.New(apierrors.ErrCodeNotFound, "neighborhood not found"))
	}
	return c.JSON(http.StatusOK, neighborhood)
}
