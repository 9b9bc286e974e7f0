// Package dto defines the JSON envelope shared by every API endpoint.
//
// Success payloads ride in "data", failures in "error", and paginated
// listings attach a "meta" block. Handlers never emit raw JSON bodies.
package dto

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo carries a machine-readable code plus a human-readable message.
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// Meta describes the page window of a list response.
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

const defaultPageSize = 20

// NewMeta computes the page count from the total row count.
func NewMeta(total int64, page, pageSize int) *Meta {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &Meta{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

func NewSuccessResponse(data interface{}) Response {
	return Response{Success: true, Data: data}
}

// NewSuccessResponseWithMeta wraps a list payload together with its page window.
func NewSuccessResponseWithMeta(data interface{}, total int64, page, pageSize int) Response {
	return Response{
		Success: true,
		Data:    data,
		Meta:    NewMeta(total, page, pageSize),
	}
}

func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}
