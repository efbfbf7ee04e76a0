// Package testing provides test utilities, builders, and fixtures for unit and integration tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ConfigBuilder: Fluent builder for creating test configurations
//   - ClusterFixture: Collaborator mocks for a bootstrap run
//   - MockLifecycle, MockClusterAPI, MockChartInstaller: stateful testify mocks
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithClusterName("demo").
//	    WithGitHubToken("ghp_test").
//	    Build()
//
//	fixture := testing.NewClusterFixture().SuccessfulBootstrap()
package testing
