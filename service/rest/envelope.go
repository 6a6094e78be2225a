// Package rest is the REST Surface (C8): the query endpoints (and the
// pre-socket auth endpoints C4 needs a transport for) that read from
// and write to the durable log. Every response uses the envelope
// shape from spec §6.
package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"chatserver/tools/errs"
)

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      *envError   `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

type envError struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Details []errs.FieldDetail `json:"details,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

func okPage(c *gin.Context, data any, page Pagination) {
	c.JSON(200, envelope{Success: true, Data: data, Pagination: &page, Timestamp: time.Now().UTC()})
}

func fail(c *gin.Context, err error) {
	ce, ok := err.(*errs.CodeError)
	if !ok {
		ce = errs.New(errs.PersistFailed, "internal error")
	}
	c.JSON(ce.Code.HTTPStatus(), envelope{
		Success:   false,
		Error:     &envError{Code: string(ce.Code), Message: ce.Msg, Details: ce.Details},
		Timestamp: time.Now().UTC(),
	})
}
