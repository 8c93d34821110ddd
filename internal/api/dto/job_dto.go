package dto

import "github.com/cuongbtq/booking-core/internal/booking/domain"

// UpdateJobRequest is an admin's edit of a booking; omitted fields are left as is
type UpdateJobRequest struct {
	Status          string  `json:"status"`
	AdminComments   *string `json:"admin_comments"`
	SessionTime     string  `json:"session_time"`
	Due             string  `json:"due"`
	FromLanguageID  int     `json:"from_language_id"`
	Translator      int64   `json:"translator"`
	TranslatorEmail string  `json:"translator_email"`
	Reference       *string `json:"reference"`
}

type DistanceFeedRequest struct {
	Distance        string `json:"distance"`
	Time            string `json:"time"`
	SessionTime     string `json:"session_time"`
	AdminComment    string `json:"admincomment"`
	Flagged         bool   `json:"flagged"`
	ManuallyHandled bool   `json:"manually_handled"`
	ByAdmin         bool   `json:"by_admin"`
}

type HistoryRequest struct {
	Cursor string `form:"cursor"`
}

type HistoryResponse struct {
	Jobs       []domain.Job `json:"jobs"`
	UserType   domain.Role  `json:"user_type"`
	Page       int          `json:"page"`
	Total      int          `json:"total"`
	NumPages   int          `json:"num_pages"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type CreateJobResponse struct {
	Job             *domain.Job `json:"job"`
	NotifiedNow     int         `json:"notified_now"`
	NotifiedDelayed int         `json:"notified_delayed"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
