package minikube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
)

// Binary is the executable looked up in PATH.
const Binary = "minikube"

// Runner executes a command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ClusterSpec shapes the minikube profile created by Create.
type ClusterSpec struct {
	KubernetesVersion string
	Workers           int
	CPUs              int
	Memory            string
	Ingress           bool
}

// Lifecycle creates, inspects and deletes minikube profiles.
type Lifecycle struct {
	spec ClusterSpec
	run  Runner
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithRunner replaces command execution.
func WithRunner(run Runner) Option {
	return func(l *Lifecycle) {
		l.run = run
	}
}

// New creates a Lifecycle for profiles shaped by spec.
func New(spec ClusterSpec, opts ...Option) *Lifecycle {
	l := &Lifecycle{spec: spec, run: execRunner}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type profileList struct {
	Valid   []profile `json:"valid"`
	Invalid []profile `json:"invalid"`
}

type profile struct {
	Name   string `json:"Name"`
	Status string `json:"Status"`
}

// Exists reports whether a valid profile with the given name exists.
func (l *Lifecycle) Exists(ctx context.Context, name string) (bool, error) {
	out, err := l.run(ctx, Binary, "profile", "list", "--output", "json")

	var profiles profileList
	if jsonErr := json.Unmarshal(out, &profiles); jsonErr != nil {
		if err != nil {
			// minikube exits non-zero when no profile exists at all
			if strings.Contains(err.Error(), "No minikube profile") {
				return false, nil
			}
			return false, err
		}
		return false, fmt.Errorf("failed to parse minikube profile list: %w", jsonErr)
	}

	for _, p := range profiles.Valid {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Create starts the profile with the docker driver.
func (l *Lifecycle) Create(ctx context.Context, name string) error {
	args := l.StartArgs(name)
	logr.FromContextOrDiscard(ctx).Info("creating minikube cluster", "name", name, "args", strings.Join(args, " "))

	if _, err := l.run(ctx, Binary, args...); err != nil {
		return fmt.Errorf("minikube start: %w", err)
	}
	return nil
}

// StartArgs returns the arguments passed to "minikube".
func (l *Lifecycle) StartArgs(name string) []string {
	args := []string{"start", "--profile", name, "--driver", "docker", "--nodes", strconv.Itoa(1 + l.spec.Workers)}
	if l.spec.KubernetesVersion != "" {
		args = append(args, "--kubernetes-version", l.spec.KubernetesVersion)
	}
	if l.spec.CPUs > 0 {
		args = append(args, "--cpus", strconv.Itoa(l.spec.CPUs))
	}
	if l.spec.Memory != "" {
		args = append(args, "--memory", l.spec.Memory)
	}
	if l.spec.Ingress {
		args = append(args, "--addons", "ingress")
	}
	return args
}

// Delete removes the profile. A missing profile is not an error.
func (l *Lifecycle) Delete(ctx context.Context, name string) error {
	exists, err := l.Exists(ctx, name)
	if err != nil || !exists {
		return err
	}

	logr.FromContextOrDiscard(ctx).Info("deleting minikube cluster", "name", name)
	if _, err := l.run(ctx, Binary, "delete", "--profile", name); err != nil {
		return fmt.Errorf("minikube delete: %w", err)
	}
	return nil
}

// Kubeconfig extracts the profile's context from the default kubeconfig,
// with certificate files inlined.
func (l *Lifecycle) Kubeconfig(_ context.Context, name string) ([]byte, error) {
	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		clientcmd.NewDefaultClientConfigLoadingRules(),
		&clientcmd.ConfigOverrides{CurrentContext: name},
	)
	raw, err := loader.RawConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	if _, ok := raw.Contexts[name]; !ok {
		return nil, fmt.Errorf("kubeconfig has no context %q", name)
	}

	raw.CurrentContext = name
	if err := clientcmdapi.MinifyConfig(&raw); err != nil {
		return nil, fmt.Errorf("failed to minify kubeconfig: %w", err)
	}
	if err := clientcmdapi.FlattenConfig(&raw); err != nil {
		return nil, fmt.Errorf("failed to flatten kubeconfig: %w", err)
	}
	return clientcmd.Write(raw)
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	// #nosec G204 - name is a fixed binary, args are built from validated config
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
