package k8s

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// DefaultFieldManager identifies stagehand in managedFields.
const DefaultFieldManager = "stagehand"

// Selector identifies a single object (Name set) or a set of objects
// (LabelSelector set) of one kind.
type Selector struct {
	APIVersion    string
	Kind          string
	Namespace     string
	Name          string
	LabelSelector string
}

// GroupVersionKind parses APIVersion and Kind.
func (s Selector) GroupVersionKind() (schema.GroupVersionKind, error) {
	gv, err := schema.ParseGroupVersion(s.APIVersion)
	if err != nil {
		return schema.GroupVersionKind{}, fmt.Errorf("invalid apiVersion %q: %w", s.APIVersion, err)
	}
	return gv.WithKind(s.Kind), nil
}

func (s Selector) String() string {
	target := s.Name
	if target == "" {
		target = "[" + s.LabelSelector + "]"
	}
	if s.Namespace != "" {
		target = s.Namespace + "/" + target
	}
	return s.Kind + " " + target
}

// resettable is implemented by REST mappers that cache discovery.
type resettable interface {
	Reset()
}

// Client talks to one cluster through typed and dynamic clients.
type Client struct {
	clientset     kubernetes.Interface
	dynamicClient dynamic.Interface
	mapper        meta.RESTMapper
	fieldManager  string
}

// NewFromKubeconfig creates a Client from kubeconfig bytes.
// This avoids the need to write kubeconfig to a temporary file.
func NewFromKubeconfig(kubeconfig []byte) (*Client, error) {
	// Create REST config directly from kubeconfig bytes
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}

	// Create typed clientset for pods, secrets and logs
	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes clientset: %w", err)
	}

	// Create dynamic client for applying arbitrary manifests
	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}

	// Deferred mapper so CRDs installed by a chart become visible after Reset
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(discoveryClient))

	return &Client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
		fieldManager:  DefaultFieldManager,
	}, nil
}

// NewFromClients creates a Client from pre-configured clients.
// This is useful for testing with fake clients.
func NewFromClients(
	clientset kubernetes.Interface,
	dynamicClient dynamic.Interface,
	mapper meta.RESTMapper,
) *Client {
	return &Client{
		clientset:     clientset,
		dynamicClient: dynamicClient,
		mapper:        mapper,
		fieldManager:  DefaultFieldManager,
	}
}

// ResetMapper drops cached discovery so newly registered kinds resolve.
func (c *Client) ResetMapper() {
	if r, ok := c.mapper.(resettable); ok {
		r.Reset()
	}
}

// ServerVersion returns the API server's git version.
func (c *Client) ServerVersion(_ context.Context) (string, error) {
	info, err := c.clientset.Discovery().ServerVersion()
	if err != nil {
		return "", fmt.Errorf("failed to get server version: %w", err)
	}
	return info.GitVersion, nil
}

// resourceFor maps a GVK to its dynamic resource interface.
func (c *Client) resourceFor(gvk schema.GroupVersionKind, namespace string) (dynamic.ResourceInterface, error) {
	mapping, err := c.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to get REST mapping for %v: %w", gvk, err)
	}

	resource := c.dynamicClient.Resource(mapping.Resource)
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		if namespace == "" {
			namespace = "default"
		}
		return resource.Namespace(namespace), nil
	}
	return resource, nil
}
