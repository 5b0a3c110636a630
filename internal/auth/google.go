package auth

import (
	"context"

	"github.com/hailaprogramare/contest-backend/internal/model"
	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"
)

// GoogleVerifier validates Google-issued ID tokens against the contest's
// OAuth client id and extracts the profile claims the site uses.
type GoogleVerifier struct {
	audience string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{audience: clientID}
}

func (g *GoogleVerifier) Verify(ctx context.Context, credential string) (*model.Identity, error) {
	payload, err := idtoken.Validate(ctx, credential, g.audience)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}

	id := &model.Identity{Sub: payload.Subject}
	if name, ok := payload.Claims["name"].(string); ok {
		id.Name = name
	}
	if email, ok := payload.Claims["email"].(string); ok {
		id.Email = email
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		id.Picture = picture
	}

	if id.Sub == "" {
		return nil, ErrInvalidToken
	}

	return id, nil
}
