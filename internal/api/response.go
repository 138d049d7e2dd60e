package api

// StandardResponse 표준 API 응답
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse creates a success response
func SuccessResponse(message string, data interface{}) StandardResponse {
	return StandardResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

// ErrorResponse creates an error response
func ErrorResponse(message string) StandardResponse {
	return StandardResponse{
		Status:  "error",
		Message: message,
	}
}
