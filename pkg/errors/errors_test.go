package errors

import (
	"net/http"
	"testing"

	"github.com/google/uuid"

	"blog/domain/blog"
	"blog/domain/shared"
)

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{"post not found", blog.NewPostNotFoundError("x"), CodePostNotFound, http.StatusNotFound},
		{"already published", blog.NewAlreadyPublishedError(uuid.New()), CodeAlreadyPublished, http.StatusUnprocessableEntity},
		{"archived", blog.NewPostArchivedError("edit"), CodePostArchived, http.StatusUnprocessableEntity},
		{"content too short", blog.NewContentTooShortError(10), CodeContentTooShort, http.StatusUnprocessableEntity},
		{"unauthorized action", blog.NewUnauthorizedPostActionError("archive"), CodeForbidden, http.StatusForbidden},
		{"comment not allowed", blog.NewCommentNotAllowedError("archived"), CodeCommentNotAllowed, http.StatusUnprocessableEntity},
		{"comment not found", blog.NewCommentNotFoundError(uuid.New()), CodeCommentNotFound, http.StatusNotFound},
		{"duplicate slug", blog.NewDuplicateSlugError("x"), CodeDuplicateSlug, http.StatusConflict},
		{"validation", shared.NewValidationError("post", "title", "empty"), CodeValidation, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			appErr := MapDomainError(tc.err)
			if appErr.Code != tc.wantCode {
				t.Errorf("code = %s, want %s", appErr.Code, tc.wantCode)
			}
			if got := appErr.HTTPStatusCode(); got != tc.wantStatus {
				t.Errorf("status = %d, want %d", got, tc.wantStatus)
			}
		})
	}
}

func TestMapDomainErrorHidesUnknownErrors(t *testing.T) {
	appErr := MapDomainError(errInternal{})
	if appErr.Code != CodeInternal {
		t.Errorf("code = %s, want internal", appErr.Code)
	}
	if appErr.Message != "internal server error" {
		t.Errorf("internal detail leaked: %q", appErr.Message)
	}
}

type errInternal struct{}

func (errInternal) Error() string { return "connection refused to 10.0.0.5" }

func TestIs(t *testing.T) {
	err := NotFound("missing")
	if !Is(err, CodeNotFound) {
		t.Error("Is must match the code")
	}
	if Is(err, CodeConflict) {
		t.Error("Is must not match a different code")
	}
}
