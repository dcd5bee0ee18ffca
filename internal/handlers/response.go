package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/apierr"
	"github.com/spooldock/spooldock/internal/repos"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps a service error to its HTTP disposition. Anything
// that is not an *apierr.Error is treated as internal.
func RespondServiceError(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		RespondError(c, ae.Status, ae.Code, ae)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal", err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondList writes the page and surfaces the unpaged total in a header.
func RespondList(c *gin.Context, payload any, total int64) {
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	RespondOK(c, payload)
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", errors.New("id must be an integer"))
		return 0, false
	}
	return id, true
}

func queryString(c *gin.Context, key string) *string {
	if v, ok := c.GetQuery(key); ok {
		return &v
	}
	return nil
}

func queryInt(c *gin.Context, key string) (*int, error) {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apierr.InvalidArgument("query parameter %q must be an integer", key)
	}
	return &n, nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v, ok := c.GetQuery(key)
	if !ok {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, apierr.InvalidArgument("query parameter %q must be a boolean", key)
	}
	return b, nil
}

func pageFromQuery(c *gin.Context) (repos.Pagination, error) {
	var page repos.Pagination
	if limit, err := queryInt(c, "limit"); err != nil {
		return page, err
	} else if limit != nil {
		if *limit < 0 {
			return page, apierr.InvalidArgument("limit must be >= 0")
		}
		page.Limit = *limit
	}
	if offset, err := queryInt(c, "offset"); err != nil {
		return page, err
	} else if offset != nil {
		if *offset < 0 {
			return page, apierr.InvalidArgument("offset must be >= 0")
		}
		page.Offset = *offset
	}
	return page, nil
}
