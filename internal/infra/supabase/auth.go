package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

// AuthUser is the subset of the Auth user object the API relies on.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// GetUser asks the Auth API who owns accessToken. Rejected tokens map to
// ErrUnauthorized; transport failures map to a backend error.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*AuthUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	body, err := c.execute(ctx, request{method: http.MethodGet, path: "/auth/v1/user", bearer: accessToken})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get user")
		switch statusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, appErrors.ErrUnauthorized
		default:
			return nil, appErrors.Backend(err, "auth.getUser")
		}
	}

	var user AuthUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, appErrors.Backend(fmt.Errorf("decode auth user: %w", err), "auth.getUser")
	}
	span.SetAttributes(attribute.String("user.id", user.ID))
	return &user, nil
}
