package wizard

import "github.com/charmbracelet/huh"

// Source kinds for the Backstage application.
const (
	SourceHelm = "helm"
	SourceGit  = "git"
)

// ProviderOptions lists the supported local cluster providers.
var ProviderOptions = []huh.Option[string]{
	huh.NewOption("kind (Kubernetes in Docker)", "kind"),
	huh.NewOption("minikube", "minikube"),
}

// WorkerCountOptions lists selectable worker counts.
var WorkerCountOptions = []huh.Option[int]{
	huh.NewOption("0 (control plane only)", 0),
	huh.NewOption("1", 1),
	huh.NewOption("2", 2),
	huh.NewOption("3", 3),
}

// SourceOptions lists where Backstage is delivered from.
var SourceOptions = []huh.Option[string]{
	huh.NewOption("Helm chart repository", SourceHelm),
	huh.NewOption("Git repository path", SourceGit),
}

// ConflictOptions lists what to do when the cluster already exists.
var ConflictOptions = []huh.Option[string]{
	huh.NewOption("Reuse the existing cluster", "continue"),
	huh.NewOption("Ask every time", "ask"),
	huh.NewOption("Stop without changes", "abort"),
	huh.NewOption("Delete and recreate it", "recreate"),
}
