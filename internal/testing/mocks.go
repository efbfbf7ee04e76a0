package testing

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/stretchr/testify/mock"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/imamik/stagehand/internal/k8s"
	"github.com/imamik/stagehand/internal/platform/helm"
	"github.com/imamik/stagehand/internal/readiness"
)

// MockContainerRuntime is a mock container runtime.
type MockContainerRuntime struct {
	mock.Mock
}

// Available reports whether the runtime answers.
func (m *MockContainerRuntime) Available(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// NewMockContainerRuntime creates a runtime that is always available.
func NewMockContainerRuntime() *MockContainerRuntime {
	m := &MockContainerRuntime{}
	m.On("Available", mock.Anything).Return(nil)
	return m
}

// MockLifecycle is a mock cluster lifecycle. Exists is backed by an in-memory
// set so Create and Delete change what later calls observe.
type MockLifecycle struct {
	mock.Mock
	clusters map[string]bool
}

// NewMockLifecycle creates a lifecycle with no clusters whose operations
// succeed. existing names clusters that are already present.
func NewMockLifecycle(existing ...string) *MockLifecycle {
	m := &MockLifecycle{clusters: make(map[string]bool)}
	for _, name := range existing {
		m.clusters[name] = true
	}
	return m
}

// Exists reports whether the cluster was created and not deleted.
func (m *MockLifecycle) Exists(ctx context.Context, name string) (bool, error) {
	if m.hasExpectation("Exists") {
		args := m.Called(ctx, name)
		return args.Bool(0), args.Error(1)
	}
	return m.clusters[name], nil
}

// Create records the cluster.
func (m *MockLifecycle) Create(ctx context.Context, name string) error {
	if m.hasExpectation("Create") {
		if err := m.Called(ctx, name).Error(0); err != nil {
			return err
		}
	}
	m.clusters[name] = true
	return nil
}

// Delete forgets the cluster.
func (m *MockLifecycle) Delete(ctx context.Context, name string) error {
	if m.hasExpectation("Delete") {
		if err := m.Called(ctx, name).Error(0); err != nil {
			return err
		}
	}
	delete(m.clusters, name)
	return nil
}

// Kubeconfig returns a placeholder kubeconfig.
func (m *MockLifecycle) Kubeconfig(ctx context.Context, name string) ([]byte, error) {
	if m.hasExpectation("Kubeconfig") {
		args := m.Called(ctx, name)
		if args.Get(0) == nil {
			return nil, args.Error(1)
		}
		return args.Get(0).([]byte), args.Error(1)
	}
	return []byte("kubeconfig-" + name), nil
}

func (m *MockLifecycle) hasExpectation(method string) bool {
	for _, call := range m.ExpectedCalls {
		if call.Method == method && call.Repeatability > -1 {
			return true
		}
	}
	return false
}

// MockClusterAPI is a mock in-cluster client. Applied objects are tracked by
// selector so Exists observes earlier applies.
type MockClusterAPI struct {
	mock.Mock
	objects map[string]*unstructured.Unstructured
	applied []*unstructured.Unstructured
}

// NewMockClusterAPI creates a cluster client whose calls succeed. WaitReady,
// SecretValue and PodLogs need expectations.
func NewMockClusterAPI() *MockClusterAPI {
	return &MockClusterAPI{objects: make(map[string]*unstructured.Unstructured)}
}

// Exists reports whether an object matching sel was applied.
func (m *MockClusterAPI) Exists(ctx context.Context, sel k8s.Selector) (bool, error) {
	if m.hasExpectation("Exists") {
		args := m.Called(ctx, sel)
		return args.Bool(0), args.Error(1)
	}
	_, ok := m.objects[sel.String()]
	return ok, nil
}

// Apply records obj.
func (m *MockClusterAPI) Apply(ctx context.Context, obj *unstructured.Unstructured) error {
	if m.hasExpectation("Apply") {
		if err := m.Called(ctx, obj).Error(0); err != nil {
			return err
		}
	}
	m.objects[k8s.SelectorFor(obj).String()] = obj
	m.applied = append(m.applied, obj)
	return nil
}

// Delete forgets objects matching sel.
func (m *MockClusterAPI) Delete(ctx context.Context, sel k8s.Selector) error {
	if m.hasExpectation("Delete") {
		if err := m.Called(ctx, sel).Error(0); err != nil {
			return err
		}
	}
	delete(m.objects, sel.String())
	return nil
}

// WaitReady waits for a probe.
func (m *MockClusterAPI) WaitReady(ctx context.Context, probe readiness.Probe) error {
	args := m.Called(ctx, probe)
	return args.Error(0)
}

// SecretValue returns a secret value. Without an expectation it reads the
// applied or seeded secret.
func (m *MockClusterAPI) SecretValue(ctx context.Context, namespace, name, key string) (string, error) {
	if m.hasExpectation("SecretValue") {
		args := m.Called(ctx, namespace, name, key)
		return args.String(0), args.Error(1)
	}

	sel := k8s.Selector{APIVersion: "v1", Kind: "Secret", Namespace: namespace, Name: name}
	obj, ok := m.objects[sel.String()]
	if !ok {
		return "", fmt.Errorf("secret %s/%s not found", namespace, name)
	}
	encoded, found, _ := unstructured.NestedString(obj.Object, "data", key)
	if !found {
		return "", fmt.Errorf("%w: %s in %s/%s", k8s.ErrSecretKeyMissing, key, namespace, name)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// PodLogs returns pod logs.
func (m *MockClusterAPI) PodLogs(ctx context.Context, namespace, labelSelector string, tailLines int64) (string, error) {
	args := m.Called(ctx, namespace, labelSelector, tailLines)
	return args.String(0), args.Error(1)
}

// Seed marks obj as already present.
func (m *MockClusterAPI) Seed(obj *unstructured.Unstructured) {
	m.objects[k8s.SelectorFor(obj).String()] = obj
}

// Applied returns every object passed to Apply, in order.
func (m *MockClusterAPI) Applied() []*unstructured.Unstructured {
	return m.applied
}

// Object returns the applied object matching sel.
func (m *MockClusterAPI) Object(sel k8s.Selector) (*unstructured.Unstructured, bool) {
	obj, ok := m.objects[sel.String()]
	return obj, ok
}

// WithAllReady makes every readiness probe pass.
func (m *MockClusterAPI) WithAllReady() *MockClusterAPI {
	m.On("WaitReady", mock.Anything, mock.Anything).Return(nil)
	return m
}

func (m *MockClusterAPI) hasExpectation(method string) bool {
	for _, call := range m.ExpectedCalls {
		if call.Method == method && call.Repeatability > -1 {
			return true
		}
	}
	return false
}

// MockChartInstaller is a mock helm client tracking installed releases.
type MockChartInstaller struct {
	mock.Mock
	releases map[string]helm.ChartSpec
	installs []helm.ChartSpec
}

// NewMockChartInstaller creates an installer whose operations succeed.
func NewMockChartInstaller() *MockChartInstaller {
	return &MockChartInstaller{releases: make(map[string]helm.ChartSpec)}
}

// ReleaseExists reports whether the release was installed.
func (m *MockChartInstaller) ReleaseExists(ctx context.Context, namespace, name string) (bool, error) {
	if m.hasExpectation("ReleaseExists") {
		args := m.Called(ctx, namespace, name)
		return args.Bool(0), args.Error(1)
	}
	_, ok := m.releases[namespace+"/"+name]
	return ok, nil
}

// InstallOrUpgrade records the release.
func (m *MockChartInstaller) InstallOrUpgrade(ctx context.Context, spec helm.ChartSpec) error {
	if m.hasExpectation("InstallOrUpgrade") {
		if err := m.Called(ctx, spec).Error(0); err != nil {
			return err
		}
	}
	m.releases[spec.Namespace+"/"+spec.Release] = spec
	m.installs = append(m.installs, spec)
	return nil
}

// Uninstall forgets the release.
func (m *MockChartInstaller) Uninstall(ctx context.Context, namespace, name string) error {
	if m.hasExpectation("Uninstall") {
		if err := m.Called(ctx, namespace, name).Error(0); err != nil {
			return err
		}
	}
	delete(m.releases, namespace+"/"+name)
	return nil
}

// Installs returns every spec passed to InstallOrUpgrade, in order.
func (m *MockChartInstaller) Installs() []helm.ChartSpec {
	return m.installs
}

func (m *MockChartInstaller) hasExpectation(method string) bool {
	for _, call := range m.ExpectedCalls {
		if call.Method == method && call.Repeatability > -1 {
			return true
		}
	}
	return false
}
