package minikube

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"
)

type call struct {
	name string
	args string
}

type fakeRunner struct {
	calls   []call
	outputs map[string]string
	errs    map[string]error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	joined := strings.Join(args, " ")
	f.calls = append(f.calls, call{name: name, args: joined})
	return []byte(f.outputs[args[0]]), f.errs[args[0]]
}

func TestLifecycle_Exists(t *testing.T) {
	ctx := context.Background()

	t.Run("valid profile", func(t *testing.T) {
		runner := &fakeRunner{outputs: map[string]string{
			"profile": `{"invalid":[],"valid":[{"Name":"stagehand","Status":"Running"}]}`,
		}}
		ok, err := New(ClusterSpec{}, WithRunner(runner.run)).Exists(ctx, "stagehand")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "profile list --output json", runner.calls[0].args)
	})

	t.Run("invalid profile does not count", func(t *testing.T) {
		runner := &fakeRunner{outputs: map[string]string{
			"profile": `{"invalid":[{"Name":"stagehand"}],"valid":[]}`,
		}}
		ok, err := New(ClusterSpec{}, WithRunner(runner.run)).Exists(ctx, "stagehand")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("no profiles at all", func(t *testing.T) {
		runner := &fakeRunner{errs: map[string]error{
			"profile": errors.New("minikube profile list: exit status 85: No minikube profile was found."),
		}}
		ok, err := New(ClusterSpec{}, WithRunner(runner.run)).Exists(ctx, "stagehand")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("command failure", func(t *testing.T) {
		runner := &fakeRunner{errs: map[string]error{"profile": errors.New("executable file not found")}}
		_, err := New(ClusterSpec{}, WithRunner(runner.run)).Exists(ctx, "stagehand")
		assert.Error(t, err)
	})
}

func TestLifecycle_StartArgs(t *testing.T) {
	lc := New(ClusterSpec{KubernetesVersion: "v1.33.1", Workers: 2, CPUs: 4, Memory: "8g", Ingress: true})

	assert.Equal(t, []string{
		"start", "--profile", "stagehand", "--driver", "docker", "--nodes", "3",
		"--kubernetes-version", "v1.33.1", "--cpus", "4", "--memory", "8g", "--addons", "ingress",
	}, lc.StartArgs("stagehand"))

	assert.Equal(t, []string{"start", "--profile", "demo", "--driver", "docker", "--nodes", "1"},
		New(ClusterSpec{}).StartArgs("demo"))
}

func TestLifecycle_CreateDelete(t *testing.T) {
	ctx := context.Background()
	runner := &fakeRunner{outputs: map[string]string{
		"profile": `{"valid":[{"Name":"stagehand"}]}`,
	}}
	lc := New(ClusterSpec{}, WithRunner(runner.run))

	require.NoError(t, lc.Create(ctx, "stagehand"))
	require.NoError(t, lc.Delete(ctx, "stagehand"))

	require.Len(t, runner.calls, 3)
	assert.Equal(t, Binary, runner.calls[0].name)
	assert.True(t, strings.HasPrefix(runner.calls[0].args, "start --profile stagehand"))
	assert.Equal(t, "delete --profile stagehand", runner.calls[2].args)
}

func TestLifecycle_CreateFailure(t *testing.T) {
	runner := &fakeRunner{errs: map[string]error{"start": errors.New("insufficient memory")}}
	err := New(ClusterSpec{}, WithRunner(runner.run)).Create(context.Background(), "stagehand")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minikube start: insufficient memory")
}

func TestLifecycle_DeleteMissingIsNoop(t *testing.T) {
	runner := &fakeRunner{outputs: map[string]string{"profile": `{"valid":[]}`}}
	require.NoError(t, New(ClusterSpec{}, WithRunner(runner.run)).Delete(context.Background(), "stagehand"))
	assert.Len(t, runner.calls, 1)
}

func TestLifecycle_Kubeconfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(`apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://192.168.49.2:8443
  name: stagehand
- cluster:
    server: https://10.0.0.1:6443
  name: other
contexts:
- context:
    cluster: stagehand
    user: stagehand
  name: stagehand
- context:
    cluster: other
    user: other
  name: other
current-context: other
users:
- name: stagehand
  user:
    token: minikube-token
- name: other
  user:
    token: other-token
`), 0o600))
	t.Setenv("KUBECONFIG", path)

	lc := New(ClusterSpec{})
	data, err := lc.Kubeconfig(context.Background(), "stagehand")
	require.NoError(t, err)

	cfg, err := clientcmd.Load(data)
	require.NoError(t, err)
	assert.Equal(t, "stagehand", cfg.CurrentContext)
	assert.Len(t, cfg.Clusters, 1)
	assert.Equal(t, "https://192.168.49.2:8443", cfg.Clusters["stagehand"].Server)
	assert.NotContains(t, string(data), "other-token")

	_, err = lc.Kubeconfig(context.Background(), "missing")
	assert.Error(t, err)
}
