// Package helm installs and removes Helm releases using kubeconfig bytes held
// in memory. It backs the argocd step of the bootstrap plan.
package helm
