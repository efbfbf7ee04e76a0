// Package minikube manages local clusters by driving the minikube CLI.
// Minikube has no Go API, so every operation shells out through a Runner.
package minikube
