// Package bootstrap assembles the ordered steps that bring up a local cluster
// running Backstage through ArgoCD and runs them with the provisioning
// sequencer.
//
// Every external system is reached through a small interface so the plan can
// be exercised against mocks:
//
//	ContainerRuntime  docker daemon reachability
//	Lifecycle         kind or minikube cluster create/delete/kubeconfig
//	ClusterAPI        existence checks, server-side apply, readiness waits
//	ChartInstaller    helm releases
//
// The ClusterAPI and ChartInstaller need a kubeconfig, which only exists once
// the cluster step has run; they are connected lazily through a Connector.
package bootstrap
