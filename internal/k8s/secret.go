package k8s

import (
	"context"
	"errors"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ErrSecretKeyMissing is returned when a secret exists but lacks the key.
var ErrSecretKeyMissing = errors.New("secret key not found")

// SecretValue returns the decoded value of key in secret namespace/name.
func (c *Client) SecretValue(ctx context.Context, namespace, name, key string) (string, error) {
	if namespace == "" {
		return "", fmt.Errorf("namespace is required")
	}
	if name == "" {
		return "", fmt.Errorf("secret name is required")
	}

	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return "", fmt.Errorf("secret %s/%s not found: %w", namespace, name, err)
		}
		return "", fmt.Errorf("failed to get secret %s/%s: %w", namespace, name, err)
	}

	if v, ok := secret.Data[key]; ok {
		return string(v), nil
	}
	if v, ok := secret.StringData[key]; ok {
		return v, nil
	}

	return "", fmt.Errorf("%w: %s in %s/%s", ErrSecretKeyMissing, key, namespace, name)
}
