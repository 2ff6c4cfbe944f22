package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/botdesk/botdesk/pkg/errors"
)

// TokenExpiry reads the exp claim without verifying the signature; the
// backend remains the authority. ok is false when the token has no exp.
func TokenExpiry(token string) (exp time.Time, ok bool, err error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	date, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}
	if date == nil {
		return time.Time{}, false, nil
	}
	return date.Time, true, nil
}

// TokenExpired reports whether token is unreadable or past its exp at now.
func TokenExpired(token string, now time.Time) (bool, error) {
	exp, ok, err := TokenExpiry(token)
	if err != nil {
		return true, err
	}
	return ok && !exp.After(now), nil
}
