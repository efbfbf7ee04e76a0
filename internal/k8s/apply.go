package k8s

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
)

// Exists reports whether the object named by sel exists or, for a label
// selector, whether at least one matching object exists. A kind the API
// server does not know yet is reported as absent, and cached discovery is
// dropped so the Apply that follows sees CRDs installed since.
func (c *Client) Exists(ctx context.Context, sel Selector) (bool, error) {
	gvk, err := sel.GroupVersionKind()
	if err != nil {
		return false, err
	}

	resource, err := c.resourceFor(gvk, sel.Namespace)
	if err != nil {
		if meta.IsNoMatchError(err) {
			c.ResetMapper()
			return false, nil
		}
		return false, err
	}

	if sel.Name != "" {
		_, err = resource.Get(ctx, sel.Name, metav1.GetOptions{})
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to get %s: %w", sel, err)
		}
		return true, nil
	}

	list, err := resource.List(ctx, metav1.ListOptions{LabelSelector: sel.LabelSelector, Limit: 1})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to list %s: %w", sel, err)
	}
	return len(list.Items) > 0, nil
}

// Apply applies a single object using Server-Side Apply. When the kind is not
// in cached discovery, the REST mapper is reset and the mapping resolved once
// more before giving up.
func (c *Client) Apply(ctx context.Context, obj *unstructured.Unstructured) error {
	// Get GVK from the object
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" {
		return fmt.Errorf("object has no kind set")
	}

	resource, err := c.resourceFor(gvk, obj.GetNamespace())
	if meta.IsNoMatchError(err) {
		c.ResetMapper()
		resource, err = c.resourceFor(gvk, obj.GetNamespace())
	}
	if err != nil {
		return err
	}

	// Convert object to JSON for the patch
	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal object to JSON: %w", err)
	}

	force := true
	_, err = resource.Patch(ctx, obj.GetName(), types.ApplyPatchType, data, metav1.PatchOptions{
		FieldManager: c.fieldManager,
		Force:        &force,
	})
	if err != nil {
		return fmt.Errorf("server-side apply of %s %s failed: %w", gvk.Kind, obj.GetName(), err)
	}

	logr.FromContextOrDiscard(ctx).V(1).Info("applied",
		"kind", gvk.Kind, "name", obj.GetName(), "namespace", obj.GetNamespace())
	return nil
}

// Delete removes the object named by sel, returning nil if it is already gone.
func (c *Client) Delete(ctx context.Context, sel Selector) error {
	if sel.Name == "" {
		return fmt.Errorf("delete requires a name: %s", sel)
	}

	gvk, err := sel.GroupVersionKind()
	if err != nil {
		return err
	}

	resource, err := c.resourceFor(gvk, sel.Namespace)
	if err != nil {
		if meta.IsNoMatchError(err) {
			return nil
		}
		return err
	}

	err = resource.Delete(ctx, sel.Name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete %s: %w", sel, err)
	}
	return nil
}

// ToUnstructured converts a typed object, or any struct with json tags, into
// an unstructured one with gvk set.
func ToUnstructured(obj any, gvk schema.GroupVersionKind) (*unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", gvk.Kind, err)
	}

	u := &unstructured.Unstructured{Object: content}
	u.SetGroupVersionKind(gvk)
	// Typed objects serialize a null creationTimestamp.
	unstructured.RemoveNestedField(u.Object, "metadata", "creationTimestamp")
	unstructured.RemoveNestedField(u.Object, "status")
	return u, nil
}

// SelectorFor returns the selector naming obj.
func SelectorFor(obj *unstructured.Unstructured) Selector {
	return Selector{
		APIVersion: obj.GetAPIVersion(),
		Kind:       obj.GetKind(),
		Namespace:  obj.GetNamespace(),
		Name:       obj.GetName(),
	}
}
