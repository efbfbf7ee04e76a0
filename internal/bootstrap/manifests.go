package bootstrap

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/k8s"
	"github.com/imamik/stagehand/internal/platform/helm"
)

const (
	controlPlaneSelector = "tier=control-plane"
	argoCDServerSelector = "app.kubernetes.io/name=argocd-server"
	backstageSelector    = "app.kubernetes.io/name=backstage"

	// GitHubTokenKey is the key of the token in the GitHub secret.
	GitHubTokenKey = "GITHUB_TOKEN"

	argoCDAdminSecret = "argocd-initial-admin-secret"
	inClusterServer   = "https://kubernetes.default.svc"
)

// ApplicationGVK is the ArgoCD Application kind.
var ApplicationGVK = schema.GroupVersionKind{Group: "argoproj.io", Version: "v1alpha1", Kind: "Application"}

func managedLabels() map[string]string {
	return map[string]string{"app.kubernetes.io/managed-by": "stagehand"}
}

func namespaceSelector(name string) k8s.Selector {
	return k8s.Selector{APIVersion: "v1", Kind: "Namespace", Name: name}
}

func secretSelector(namespace, name string) k8s.Selector {
	return k8s.Selector{APIVersion: "v1", Kind: "Secret", Namespace: namespace, Name: name}
}

func applicationSelector(cfg *config.Config) k8s.Selector {
	return k8s.Selector{
		APIVersion: ApplicationGVK.GroupVersion().String(),
		Kind:       ApplicationGVK.Kind,
		Namespace:  cfg.ArgoCD.Namespace,
		Name:       cfg.Backstage.Application,
	}
}

func namespaceManifest(name string) (*unstructured.Unstructured, error) {
	ns := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{Name: name, Labels: managedLabels()},
	}
	return k8s.ToUnstructured(ns, corev1.SchemeGroupVersion.WithKind("Namespace"))
}

// dockerConfig is the .dockerconfigjson payload.
type dockerConfig struct {
	Auths map[string]dockerAuth `json:"auths"`
}

type dockerAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Auth     string `json:"auth"`
}

// registrySecretManifest builds the image pull secret for the private registry.
func registrySecretManifest(cfg *config.Config) (*unstructured.Unstructured, error) {
	creds := cfg.Credentials
	payload, err := json.Marshal(dockerConfig{Auths: map[string]dockerAuth{
		cfg.Registry.Server: {
			Username: creds.RegistryUsername,
			Password: creds.RegistryPassword,
			Auth:     base64.StdEncoding.EncodeToString([]byte(creds.RegistryUsername + ":" + creds.RegistryPassword)),
		},
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode docker config: %w", err)
	}

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.Registry.SecretName,
			Namespace: cfg.Backstage.Namespace,
			Labels:    managedLabels(),
		},
		Type: corev1.SecretTypeDockerConfigJson,
		Data: map[string][]byte{corev1.DockerConfigJsonKey: payload},
	}
	return k8s.ToUnstructured(secret, corev1.SchemeGroupVersion.WithKind("Secret"))
}

// secretData returns the decoded value of key in a secret manifest.
func secretData(obj *unstructured.Unstructured, key string) (string, error) {
	encoded, found, err := unstructured.NestedString(obj.Object, "data", key)
	if err != nil || !found {
		return "", fmt.Errorf("secret %s has no key %s", obj.GetName(), key)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s in secret %s: %w", key, obj.GetName(), err)
	}
	return string(decoded), nil
}

// githubSecretManifest builds the secret Backstage reads GITHUB_TOKEN from.
func githubSecretManifest(cfg *config.Config) (*unstructured.Unstructured, error) {
	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      config.DefaultGitHubSecretName,
			Namespace: cfg.Backstage.Namespace,
			Labels:    managedLabels(),
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{GitHubTokenKey: []byte(cfg.Credentials.GitHubToken)},
	}
	return k8s.ToUnstructured(secret, corev1.SchemeGroupVersion.WithKind("Secret"))
}

// argoCDValues creates helm values for a single-node demo ArgoCD. The server
// runs without TLS so it can be reached through a plain port-forward.
func argoCDValues(cfg *config.Config) helm.Values {
	values := helm.Values{
		"crds": map[string]any{
			"install": true,
			"keep":    true,
		},
		// Top-level key, see https://github.com/argoproj/argo-helm/issues/3057
		"redisSecretInit": map[string]any{
			"enabled": false,
		},
		"configs": map[string]any{
			"params": map[string]any{
				"server.insecure": true,
			},
		},
		"server": map[string]any{
			"replicas": 1,
			"resources": map[string]any{
				"requests": map[string]any{"cpu": "50m", "memory": "128Mi"},
				"limits":   map[string]any{"memory": "256Mi"},
			},
		},
		"repoServer": map[string]any{
			"replicas": 1,
		},
		"controller": map[string]any{
			"replicas": 1,
		},
		"redis-ha": map[string]any{
			"enabled": false,
		},
		"dex": map[string]any{
			"enabled": false,
		},
		"applicationSet": map[string]any{
			"enabled": false,
		},
		"notifications": map[string]any{
			"enabled": false,
		},
	}

	return helm.Merge(values, cfg.ArgoCD.Values)
}

func argoCDChart(cfg *config.Config) helm.ChartSpec {
	return helm.ChartSpec{
		Release:    cfg.ArgoCD.Release,
		Namespace:  cfg.ArgoCD.Namespace,
		Repository: cfg.ArgoCD.Repository,
		Chart:      cfg.ArgoCD.Chart,
		Version:    cfg.ArgoCD.Version,
		Values:     argoCDValues(cfg),
		Timeout:    cfg.Timeouts.ArgoCD,
	}
}

// application mirrors the parts of the ArgoCD Application schema stagehand sets.
type application struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`
	Spec              applicationSpec `json:"spec"`
}

type applicationSpec struct {
	Project     string                 `json:"project"`
	Source      applicationSource      `json:"source"`
	Destination applicationDestination `json:"destination"`
	SyncPolicy  syncPolicy             `json:"syncPolicy"`
}

type applicationSource struct {
	RepoURL        string      `json:"repoURL"`
	Chart          string      `json:"chart,omitempty"`
	Path           string      `json:"path,omitempty"`
	TargetRevision string      `json:"targetRevision"`
	Helm           *helmSource `json:"helm,omitempty"`
}

type helmSource struct {
	ReleaseName  string         `json:"releaseName,omitempty"`
	ValuesObject map[string]any `json:"valuesObject,omitempty"`
}

type applicationDestination struct {
	Server    string `json:"server"`
	Namespace string `json:"namespace"`
}

type syncPolicy struct {
	Automated   *automatedSync `json:"automated,omitempty"`
	SyncOptions []string       `json:"syncOptions,omitempty"`
	Retry       *syncRetry     `json:"retry,omitempty"`
}

type automatedSync struct {
	Prune    bool `json:"prune"`
	SelfHeal bool `json:"selfHeal"`
}

type syncRetry struct {
	Limit   int64         `json:"limit"`
	Backoff *retryBackoff `json:"backoff,omitempty"`
}

type retryBackoff struct {
	Duration    string `json:"duration"`
	Factor      int64  `json:"factor"`
	MaxDuration string `json:"maxDuration"`
}

// backstageValues wires the secrets created by earlier steps into the
// Backstage chart, then applies the configured values on top.
func backstageValues(cfg *config.Config) map[string]any {
	wired := map[string]any{}
	backstage := map[string]any{}
	if cfg.Credentials.HasGitHubToken() {
		backstage["extraEnvVarsSecrets"] = []any{config.DefaultGitHubSecretName}
	}
	if cfg.Credentials.HasRegistry() {
		backstage["image"] = map[string]any{"pullSecrets": []any{cfg.Registry.SecretName}}
	}
	if len(backstage) > 0 {
		wired["backstage"] = backstage
	}
	return helm.Merge(wired, cfg.Backstage.Values)
}

// applicationManifest builds the ArgoCD Application that delivers Backstage
// with automated sync into its own namespace.
func applicationManifest(cfg *config.Config) (*unstructured.Unstructured, error) {
	source := applicationSource{
		RepoURL:        cfg.Backstage.RepoURL,
		Chart:          cfg.Backstage.Chart,
		Path:           cfg.Backstage.Path,
		TargetRevision: cfg.Backstage.Revision,
	}
	if values := backstageValues(cfg); len(values) > 0 || source.Chart != "" {
		source.Helm = &helmSource{ReleaseName: cfg.Backstage.Application, ValuesObject: values}
	}

	app := &application{
		ObjectMeta: metav1.ObjectMeta{
			Name:      cfg.Backstage.Application,
			Namespace: cfg.ArgoCD.Namespace,
			Labels:    managedLabels(),
		},
		Spec: applicationSpec{
			Project: cfg.Backstage.Project,
			Source:  source,
			Destination: applicationDestination{
				Server:    inClusterServer,
				Namespace: cfg.Backstage.Namespace,
			},
			SyncPolicy: syncPolicy{
				Automated:   &automatedSync{Prune: true, SelfHeal: true},
				SyncOptions: []string{"CreateNamespace=true"},
				Retry: &syncRetry{
					Limit:   5,
					Backoff: &retryBackoff{Duration: "5s", Factor: 2, MaxDuration: "3m"},
				},
			},
		},
	}
	return k8s.ToUnstructured(app, ApplicationGVK)
}
