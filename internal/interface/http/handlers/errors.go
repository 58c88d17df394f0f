package handlers

import (
	goerrors "errors"
	"net/http"

	"github.com/arkade-os/bridged/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
)

var somethingWentWrong = errors.INTERNAL_ERROR.New("something went wrong")

// WriteError aborts the request with the status matching the error code. Untyped errors are
// reported as internal errors without leaking their message.
func WriteError(c *gin.Context, err error) {
	var structuredErr errors.Error
	if !goerrors.As(err, &structuredErr) {
		c.Error(err) // nolint
		structuredErr = somethingWentWrong
	}
	if structuredErr.Code() == errors.INTERNAL_ERROR.Code {
		structuredErr.Log().WithField("path", c.FullPath()).Error(structuredErr.Error())
	}

	c.AbortWithStatusJSON(
		runtime.HTTPStatusFromCode(structuredErr.GrpcCode()),
		errorResponse{
			Code:     structuredErr.Code(),
			Name:     structuredErr.CodeName(),
			Message:  structuredErr.Error(),
			Metadata: structuredErr.Metadata(),
		},
	)
}

func invalidRequest(c *gin.Context, err error) {
	WriteError(c, errors.INVALID_REQUEST.Wrap(err))
}

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}
