package handlers

// ErrorResponse is the error body returned by API routes.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
