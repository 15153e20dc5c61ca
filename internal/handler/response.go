package handler

import "github.com/gin-gonic/gin"

// Response is the envelope every endpoint answers with.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes data wrapped in the success envelope.
func Success(c *gin.Context, code int, data interface{}) {
	c.JSON(code, &Response{Status: "success", Data: data})
}

// Error writes the failure envelope with the given message.
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, &Response{Status: "error", Message: message})
}

// AbortError writes the failure envelope and stops the handler chain.
func AbortError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, &Response{Status: "error", Message: message})
}
