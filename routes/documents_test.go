package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"knowledge-base-platform/services"

	"github.com/gin-gonic/gin"
)

func TestRespondPipelineError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", services.ErrDocumentNotFound, http.StatusNotFound, "not_found"},
		{"access denied", services.ErrAccessDenied, http.StatusForbidden, "forbidden"},
		{"conflict", services.ErrProcessingConflict, http.StatusConflict, "processing_in_progress"},
		{"unexpected", fmt.Errorf("pipeline blew up"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondPipelineError(c, tc.err)

			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			var body struct {
				ErrorCode string `json:"error_code"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.ErrorCode != tc.code {
				t.Fatalf("error_code = %q, want %q", body.ErrorCode, tc.code)
			}
		})
	}
}
