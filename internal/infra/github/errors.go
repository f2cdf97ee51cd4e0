package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v66/github"

	"github.com/jinford/dev-onboard/internal/core/apperr"
)

// mapError はgo-githubのエラーを解析パイプラインのエラー分類に変換します
func mapError(op string, err error, now time.Time) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return apperr.RateLimited(op, untilReset(rateErr.Rate.Reset.Time, now), err)
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return apperr.RateLimited(op, abuseErr.GetRetryAfter(), err)
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound, http.StatusUnauthorized:
			return apperr.Wrap(apperr.ErrNotFoundOrPrivate, op,
				"repository not found or private; configure GITHUB_TOKEN or a GitHub App for private repositories", err)
		case http.StatusTooManyRequests:
			return apperr.RateLimited(op, 0, err)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func untilReset(reset, now time.Time) time.Duration {
	if reset.IsZero() || !reset.After(now) {
		return 0
	}
	return reset.Sub(now)
}

func isNotFound(err error) bool {
	var respErr *gh.ErrorResponse
	return errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
}
