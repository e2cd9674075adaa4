package response

import "dealership/pkg/pagination"

// Response represents a standard API response format
type Response struct {
	Status     string            `json:"status"`      // "success", "partial" or "error"
	StatusCode int               `json:"status_code"` // HTTP status code
	Data       interface{}       `json:"data,omitempty"`
	Error      string            `json:"error,omitempty"`
	Sections   map[string]string `json:"sections,omitempty"` // per-section errors of a partial response
	Pagination *Pagination       `json:"pagination,omitempty"`
	Redirect   string            `json:"redirect,omitempty"` // login route after a 401
}

// Pagination describes one page of a list.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// SuccessWithPagination wraps a page of results
func SuccessWithPagination(statusCode int, data interface{}, page, limit int, total int64) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
		Pagination: &Pagination{Page: page, Limit: limit, Total: total, TotalPages: pagination.TotalPages(total, limit)},
	}
}

// Partial is a 200 whose data may be incomplete; sections maps each failed section to its error.
// With no failed sections it is a plain success.
func Partial(data interface{}, sections map[string]string) Response {
	if len(sections) == 0 {
		return Success(200, data)
	}
	return Response{
		Status:     "partial",
		StatusCode: 200,
		Data:       data,
		Sections:   sections,
	}
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Unauthorized is a 401 telling the front-end where to log in again
func Unauthorized(err, redirect string) Response {
	return Response{
		Status:     "error",
		StatusCode: 401,
		Error:      err,
		Redirect:   redirect,
	}
}
