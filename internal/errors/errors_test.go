package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RunnerError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryParse, SeverityFatal, "failed to parse"),
			expected: "parse (fatal): failed to parse: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.err.Error())
		})
	}
}

func TestRunnerError_WithContext(t *testing.T) {
	err := New(CategoryProcess, SeverityError, "launch failed").
		WithContext("command", "nant").
		WithContext("target", "build")

	require.NotNil(t, err.Context)
	assert.Equal(t, "nant", err.Context["command"])
	assert.Equal(t, "build", err.Context["target"])
}

func TestCategoryThroughWrapping(t *testing.T) {
	base := ParseError("default.build", stderrors.New("unexpected EOF"))
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, IsCategory(wrapped, CategoryParse))
	assert.False(t, IsCategory(wrapped, CategoryConfig))
	assert.Equal(t, CategoryParse, GetCategory(wrapped))
	assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	assert.False(t, IsCategory(nil, CategoryParse))
}

func TestCLIErrorAdapter_ExitCodes(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, adapter.ExitCodeFor(nil))
	assert.Equal(t, 1, adapter.ExitCodeFor(stderrors.New("plain")))
	assert.Equal(t, 2, adapter.ExitCodeFor(TargetNotFound("x", nil)))
	assert.Equal(t, 3, adapter.ExitCodeFor(ParseError("a.build", nil)))
	assert.Equal(t, 7, adapter.ExitCodeFor(ConfigNotFound("nantrunner.yaml")))
	assert.Equal(t, 12, adapter.ExitCodeFor(RunInProgress("build")))
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	verbose := NewCLIErrorAdapter(true, nil)

	cfgErr := ConfigNotFound("nantrunner.yaml")
	assert.Equal(t, "configuration file not found", quiet.FormatError(cfgErr))
	assert.Equal(t, cfgErr.Error(), verbose.FormatError(cfgErr))

	parseErr := ParseError("a.build", stderrors.New("bad token"))
	assert.Equal(t, "parse: failed to parse build script: bad token", quiet.FormatError(parseErr))
	assert.Equal(t, "Error: boom", quiet.FormatError(stderrors.New("boom")))
}

func TestHTTPErrorAdapter_StatusCodes(t *testing.T) {
	adapter := NewHTTPErrorAdapter(nil)

	cases := map[error]int{
		TargetNotFound("deploy", []string{"build"}): http.StatusNotFound,
		RunInProgress("build"):                      http.StatusConflict,
		NoScriptLoaded():                            http.StatusBadRequest,
		ParseError("a.build", nil):                  http.StatusUnprocessableEntity,
		stderrors.New("plain"):                      http.StatusInternalServerError,
	}
	for err, want := range cases {
		rec := httptest.NewRecorder()
		adapter.WriteErrorResponse(rec, err)
		assert.Equal(t, want, rec.Code, err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}
