package response

// ErrorBody is the extras payload of a failed response.
type ErrorBody struct {
	Message string `json:"message"`
}

// ErrorEnvelope is the decoded form of a failed response.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Code    int       `json:"code"`
	Extras  ErrorBody `json:"extras"`
}
