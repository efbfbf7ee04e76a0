package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/platform/docker"
	stagehandtesting "github.com/imamik/stagehand/internal/testing"
	"github.com/imamik/stagehand/internal/util/prerequisites"
)

func saveAndRestoreDoctorFactories(t *testing.T) {
	t.Helper()
	origDockerInfo := dockerInfo
	origCheckTools := checkTools
	origServerVersion := serverVersion
	t.Cleanup(func() {
		dockerInfo = origDockerInfo
		checkTools = origCheckTools
		serverVersion = origServerVersion
	})
	serverVersion = func(context.Context, []byte) (string, error) {
		t.Fatal("unexpected server version lookup")
		return "", nil
	}
}

func TestDoctor_AllChecksPass(t *testing.T) {
	env := setupHandlerTest(t, stagehandtesting.MinimalConfig(), stagehandtesting.NewClusterFixture())
	saveAndRestoreDoctorFactories(t)

	dockerInfo = func(context.Context) (docker.Info, error) {
		return docker.Info{Version: "27.3.1", APIVersion: "1.47", OS: "linux", Arch: "amd64"}, nil
	}
	checkTools = func(context.Context, string) *prerequisites.CheckResults {
		return &prerequisites.CheckResults{Results: []prerequisites.CheckResult{
			{Tool: prerequisites.Tool{Name: "kubectl"}, Found: true, Version: "v1.35.0"},
			{Tool: prerequisites.Tool{Name: "argocd", Description: "ArgoCD CLI"}},
		}, Missing: []prerequisites.Tool{{Name: "argocd"}}}
	}

	require.NoError(t, Doctor(context.Background(), ""))

	out := env.stdout.String()
	assert.Contains(t, out, "docker 27.3.1 (API 1.47, linux/amd64)")
	assert.Contains(t, out, "kubectl")
	assert.Contains(t, out, "optional: ArgoCD CLI")
	assert.Contains(t, out, "not created yet")
	assert.Contains(t, out, "All required checks passed.")
}

func TestDoctor_ExistingCluster(t *testing.T) {
	cfg := stagehandtesting.MinimalConfig()

	setup := func(t *testing.T) (*handlerEnv, *stagehandtesting.ClusterFixture) {
		f := stagehandtesting.NewClusterFixture()
		require.NoError(t, f.Lifecycle.Create(context.Background(), cfg.ClusterName))
		env := setupHandlerTest(t, cfg, f)
		saveAndRestoreDoctorFactories(t)
		dockerInfo = func(context.Context) (docker.Info, error) { return docker.Info{Version: "27"}, nil }
		checkTools = func(context.Context, string) *prerequisites.CheckResults { return &prerequisites.CheckResults{} }
		return env, f
	}

	t.Run("reports server version", func(t *testing.T) {
		env, _ := setup(t)
		var gotKubeconfig []byte
		serverVersion = func(_ context.Context, kubeconfig []byte) (string, error) {
			gotKubeconfig = kubeconfig
			return "v1.35.0", nil
		}

		require.NoError(t, Doctor(context.Background(), ""))
		assert.Equal(t, []byte("kubeconfig-"+cfg.ClusterName), gotKubeconfig)
		assert.Contains(t, env.stdout.String(), "Kubernetes v1.35.0")
	})

	t.Run("unreachable API server fails", func(t *testing.T) {
		env, _ := setup(t)
		serverVersion = func(context.Context, []byte) (string, error) {
			return "", errors.New("connection refused")
		}

		err := Doctor(context.Background(), "")
		assert.ErrorIs(t, err, ErrDoctorFailed)
		assert.Contains(t, env.stdout.String(), "API server unreachable: connection refused")
	})

	t.Run("unknown cluster state does not fail", func(t *testing.T) {
		env, f := setup(t)
		f.Lifecycle.On("Exists", mock.Anything, cfg.ClusterName).Return(false, errors.New("docker down"))

		require.NoError(t, Doctor(context.Background(), ""))
		assert.Contains(t, env.stdout.String(), "state unknown: docker down")
	})
}

func TestDoctor_Failures(t *testing.T) {
	t.Run("runtime unavailable", func(t *testing.T) {
		env := setupHandlerTest(t, stagehandtesting.MinimalConfig(), stagehandtesting.NewClusterFixture())
		saveAndRestoreDoctorFactories(t)
		dockerInfo = func(context.Context) (docker.Info, error) { return docker.Info{}, docker.ErrUnavailable }
		checkTools = func(context.Context, string) *prerequisites.CheckResults { return &prerequisites.CheckResults{} }

		err := Doctor(context.Background(), "")
		assert.ErrorIs(t, err, ErrDoctorFailed)
		assert.Contains(t, env.stdout.String(), "[FAIL] docker")
	})

	t.Run("required tool missing", func(t *testing.T) {
		setupHandlerTest(t, stagehandtesting.MinimalConfig(), stagehandtesting.NewClusterFixture())
		saveAndRestoreDoctorFactories(t)
		dockerInfo = func(context.Context) (docker.Info, error) { return docker.Info{Version: "27"}, nil }
		minikube := prerequisites.Tool{Name: "minikube", Required: true, InstallURL: "https://minikube.sigs.k8s.io/docs/start/"}
		checkTools = func(context.Context, string) *prerequisites.CheckResults {
			return &prerequisites.CheckResults{
				Results: []prerequisites.CheckResult{{Tool: minikube}},
				Missing: []prerequisites.Tool{minikube},
			}
		}

		err := Doctor(context.Background(), "")
		require.ErrorIs(t, err, ErrDoctorFailed)
		assert.Contains(t, err.Error(), "minikube")
	})

	t.Run("config error", func(t *testing.T) {
		setupHandlerTest(t, stagehandtesting.MinimalConfig(), stagehandtesting.NewClusterFixture())
		loadConfig = func(string) (*config.Config, error) { return nil, errors.New("bad yaml") }

		err := Doctor(context.Background(), "")
		assert.ErrorContains(t, err, "failed to load config")
	})
}
