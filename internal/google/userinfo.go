package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	oauth2v2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"github.com/teemow/gtoken/internal/instrumentation"
)

// FetchAccountEmail resolves the email of the account that authorized ts
// through the userinfo endpoint. Extra client options are appended after the
// token source, which lets tests point the service at a fake endpoint.
func FetchAccountEmail(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (_ string, err error) {
	ctx, span := instrumentation.StartClientSpan(ctx, "google.userinfo.get")
	defer func() { instrumentation.EndSpan(span, err) }()

	opts = append([]option.ClientOption{option.WithTokenSource(ts)}, opts...)

	svc, err := oauth2v2.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to get user info: %w", err)
	}
	if info.Email == "" {
		return "", fmt.Errorf("userinfo response has no email")
	}
	return info.Email, nil
}
