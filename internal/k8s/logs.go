package k8s

import (
	"context"
	"fmt"
	"io"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// maxLogBytes caps the log output read per container.
const maxLogBytes = 64 * 1024

// PodLogs returns the last tailLines of every container of every pod matching
// labelSelector in namespace, each block headed by "==> pod/container <==".
// Containers whose logs cannot be read are reported inline.
func (c *Client) PodLogs(ctx context.Context, namespace, labelSelector string, tailLines int64) (string, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return "", fmt.Errorf("failed to list pods %s/%s: %w", namespace, labelSelector, err)
	}

	if len(pods.Items) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for i := range pods.Items {
		pod := &pods.Items[i]
		for _, container := range pod.Spec.Containers {
			fmt.Fprintf(&sb, "==> %s/%s <==\n", pod.Name, container.Name)
			logs := c.containerLogs(ctx, pod, container.Name, tailLines)
			sb.WriteString(logs)
			if !strings.HasSuffix(logs, "\n") {
				sb.WriteString("\n")
			}
		}
	}

	return sb.String(), nil
}

func (c *Client) containerLogs(ctx context.Context, pod *corev1.Pod, container string, tailLines int64) string {
	opts := &corev1.PodLogOptions{Container: container}
	if tailLines > 0 {
		opts.TailLines = &tailLines
	}

	stream, err := c.clientset.CoreV1().Pods(pod.Namespace).GetLogs(pod.Name, opts).Stream(ctx)
	if err != nil {
		return fmt.Sprintf("(logs unavailable: %v)\n", err)
	}
	defer func() { _ = stream.Close() }()

	data, err := io.ReadAll(io.LimitReader(stream, maxLogBytes))
	if err != nil {
		return fmt.Sprintf("(failed to read logs: %v)\n", err)
	}
	return string(data)
}
