//go:build kind

package kind

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/imamik/stagehand/internal/bootstrap"
	"github.com/imamik/stagehand/internal/config"
	"github.com/imamik/stagehand/internal/k8s"
	"github.com/imamik/stagehand/internal/platform/helm"
	"github.com/imamik/stagehand/internal/provisioning"
	"github.com/imamik/stagehand/internal/readiness"
)

func connectReal(_ context.Context, kubeconfig []byte) (bootstrap.ClusterAPI, bootstrap.ChartInstaller, error) {
	cluster, err := k8s.NewFromKubeconfig(kubeconfig)
	if err != nil {
		return nil, nil, err
	}
	return cluster, helm.NewClient(kubeconfig), nil
}

func e2eConfig() *config.Config {
	cfg := config.Default()
	cfg.ClusterName = clusterName
	cfg.Timeouts = config.LoadTimeouts()
	return cfg
}

var _ = Describe("Cluster client", func() {
	const namespace = "stagehand-e2e"

	nsSelector := k8s.Selector{APIVersion: "v1", Kind: "Namespace", Name: namespace}

	AfterEach(func() {
		_ = fw.Client.Delete(ctx, nsSelector)
	})

	It("applies a namespace idempotently and reports it as existing", func() {
		ns := &unstructured.Unstructured{}
		ns.SetAPIVersion("v1")
		ns.SetKind("Namespace")
		ns.SetName(namespace)

		Expect(fw.Client.Apply(ctx, ns)).To(Succeed())
		Expect(fw.Client.Apply(ctx, ns)).To(Succeed())

		Eventually(func() (bool, error) {
			return fw.Client.Exists(ctx, nsSelector)
		}, 30*time.Second, time.Second).Should(BeTrue())
	})

	It("waits for the control plane pods", func() {
		err := fw.Client.WaitReady(ctx, readiness.Probe{
			Namespace:     "kube-system",
			LabelSelector: "tier=control-plane",
			Timeout:       2 * time.Minute,
			PollInterval:  2 * time.Second,
		})
		Expect(err).NotTo(HaveOccurred(), fw.Diagnostics(ctx, "kube-system", "tier=control-plane"))
	})

	It("times out on a selector that matches nothing", func() {
		err := fw.Client.WaitReady(ctx, readiness.Probe{
			Namespace:     "kube-system",
			LabelSelector: "app=does-not-exist",
			Timeout:       3 * time.Second,
			PollInterval:  500 * time.Millisecond,
		})
		Expect(err).To(MatchError(readiness.ErrTimeout))
	})
})

var _ = Describe("Bootstrapper", func() {
	It("reports the existing cluster in status", func() {
		b := bootstrap.New(e2eConfig(), fw.Runtime, fw.Lifecycle, connectReal)

		presence, err := b.Status(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(presence).NotTo(BeEmpty())
		Expect(presence[0].Name).To(Equal(bootstrap.StepCluster))
		Expect(presence[0].Exists).To(BeTrue())
	})

	It("aborts without changes when the cluster exists and the policy is abort", func() {
		b := bootstrap.New(e2eConfig(), fw.Runtime, fw.Lifecycle, connectReal,
			bootstrap.WithSequencerOptions(provisioning.WithConflictPolicy(provisioning.ConflictAbort)))

		report, err := b.Up(ctx)
		Expect(provisioning.IsAborted(err)).To(BeTrue())
		Expect(report.Steps[0].State).To(Equal(provisioning.StateAborted))
		for _, s := range report.Steps[1:] {
			Expect(s.State).To(Equal(provisioning.StatePending), s.Name)
		}
	})

	Context("full environment", Ordered, func() {
		BeforeAll(func() {
			if os.Getenv("STAGEHAND_E2E_FULL") == "" {
				Skip("set STAGEHAND_E2E_FULL to install ArgoCD and Backstage")
			}
		})

		AfterAll(func() {
			b := bootstrap.New(e2eConfig(), fw.Runtime, fw.Lifecycle, connectReal)
			Expect(b.Down(ctx, true)).To(Succeed())
		})

		It("brings the environment up", func() {
			b := bootstrap.New(e2eConfig(), fw.Runtime, fw.Lifecycle, connectReal)

			report, err := b.Up(ctx)
			if err != nil && report != nil {
				if failed := report.Failed(); failed != nil {
					logs, _ := b.Diagnose(ctx, *failed)
					GinkgoWriter.Println(logs)
				}
			}
			Expect(err).NotTo(HaveOccurred())
			for _, s := range report.Steps {
				Expect(s.State).To(Equal(provisioning.StateReady), s.Name)
			}

			info, err := b.Access(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.ArgoCDPassword).NotTo(BeEmpty())
		})

		It("skips every step on the second run", func() {
			b := bootstrap.New(e2eConfig(), fw.Runtime, fw.Lifecycle, connectReal)

			report, err := b.Up(ctx)
			Expect(err).NotTo(HaveOccurred())
			applied, skipped := report.Counts()
			Expect(applied).To(BeZero())
			Expect(skipped).To(Equal(len(report.Steps)))
		})
	})
})
