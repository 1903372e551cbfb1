package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleSuccess writes a 200 response.
func HandleSuccess(c *gin.Context, data interface{}, message string) {
	requestID := getRequestID(c)
	c.JSON(http.StatusOK, &Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Code:      http.StatusOK,
		RequestID: requestID,
	})
}

// HandleCreated writes a 201 response.
func HandleCreated(c *gin.Context, data interface{}, message string) {
	requestID := getRequestID(c)
	c.JSON(http.StatusCreated, &Response{
		Success:   true,
		Data:      data,
		Message:   message,
		Code:      http.StatusCreated,
		RequestID: requestID,
	})
}

// HandleNoContent writes a 204 response.
func HandleNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandlePaginated writes a 200 response with paging metadata.
func HandlePaginated(c *gin.Context, data interface{}, pagination Pagination, message string) {
	requestID := getRequestID(c)
	c.JSON(http.StatusOK, &PaginatedResponse{
		Success:    true,
		Data:       data,
		Pagination: pagination,
		Message:    message,
		Code:       http.StatusOK,
		RequestID:  requestID,
	})
}
