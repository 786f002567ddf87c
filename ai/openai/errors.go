package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/poiesic/medscribe/core"
)

// langchaingo reports HTTP failures only in the error text.
var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// statusCode extracts the HTTP status of a failed API call, or 0.
func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// classify maps a client error onto the core error taxonomy. Unreachable
// services, rate limiting and server errors become
// core.ErrCapabilityUnavailable. Context errors pass through unchanged.
func classify(service string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	code := statusCode(err)
	if code == http.StatusTooManyRequests || code >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %s returned status %d: %w", core.ErrCapabilityUnavailable, service, code, err)
	}
	var netErr net.Error
	if code == 0 && errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s unreachable: %w", core.ErrCapabilityUnavailable, service, err)
	}
	return fmt.Errorf("%s: %w", service, err)
}

// classifyTranscription is classify with rejected uploads reported as
// unsupported media.
func classifyTranscription(err error) error {
	switch statusCode(err) {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return fmt.Errorf("%w: %w", core.ErrUnsupportedMedia, err)
	}
	return classify("transcription", err)
}
