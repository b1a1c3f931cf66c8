// Package types holds the shared REST response envelopes.
package types

// ErrorDetail carries the error payload of a failed API call.
type ErrorDetail struct {
	Timestamp    string `json:"timestamp"`
	Path         string `json:"path"`
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode"`
	Recoverable  bool   `json:"recoverable"`
}

// ErrorResponse is the standardized error response.
type ErrorResponse struct {
	StatusCode int         `json:"statusCode"`
	IsSuccess  bool        `json:"isSuccess"`
	Error      ErrorDetail `json:"error"`
}

// SuccessResponse is the standardized success response.
type SuccessResponse[T any] struct {
	StatusCode int  `json:"statusCode"`
	IsSuccess  bool `json:"isSuccess"`
	Data       T    `json:"data"`
}
