package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Dosada05/league-engine/models"
	"github.com/golang-jwt/jwt/v4"
)

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

// actorFromClaims accepts user ids issued as strings or as JSON numbers.
func actorFromClaims(claims jwt.MapClaims) (models.Actor, error) {
	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return models.Actor{}, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	var userID string
	switch v := userIDClaim.(type) {
	case string:
		userID = v
	case float64:
		if v != float64(int64(v)) || v <= 0 {
			return models.Actor{}, fmt.Errorf("invalid user ID value in '%s' claim: %v", jwtClaimUserID, v)
		}
		userID = strconv.FormatInt(int64(v), 10)
	default:
		return models.Actor{}, fmt.Errorf("invalid type for '%s' claim: expected string or number, got %T", jwtClaimUserID, userIDClaim)
	}
	if userID == "" {
		return models.Actor{}, fmt.Errorf("empty '%s' claim", jwtClaimUserID)
	}

	role := models.RolePlayer
	if roleClaim, ok := claims[jwtClaimRole]; ok {
		roleStr, ok := roleClaim.(string)
		if !ok {
			return models.Actor{}, fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, roleClaim)
		}
		switch models.UserRole(roleStr) {
		case models.RoleAdmin, models.RolePlayer:
			role = models.UserRole(roleStr)
		default:
			return models.Actor{}, fmt.Errorf("invalid role value in claim: %q", roleStr)
		}
	}

	return models.Actor{UserID: userID, Role: role}, nil
}

// IssueToken signs an HS256 token for the given actor. Token issuance belongs to the
// identity service; this exists for local tooling and tests.
func IssueToken(secret []byte, actor models.Actor, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		jwtClaimUserID: actor.UserID,
		jwtClaimRole:   string(actor.Role),
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
