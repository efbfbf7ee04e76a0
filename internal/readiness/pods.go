package readiness

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// PodsReady returns a Check that holds when at least one pod matches the probe
// selector and every matching pod is Running with condition Ready=True.
func PodsReady(clientset kubernetes.Interface, probe Probe) Check {
	return func(ctx context.Context) (bool, error) {
		pods, err := clientset.CoreV1().Pods(probe.Namespace).List(ctx, metav1.ListOptions{
			LabelSelector: probe.LabelSelector,
		})
		if err != nil {
			return false, fmt.Errorf("list pods %s: %w", probe, err)
		}

		if len(pods.Items) == 0 {
			return false, ErrNotFound
		}

		for i := range pods.Items {
			if !IsPodReady(&pods.Items[i]) {
				return false, nil
			}
		}

		return true, nil
	}
}

// IsPodReady checks if a pod is running and reports Ready=True.
func IsPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}

	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}

	return false
}
