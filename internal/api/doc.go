// Package api holds the types shared by every part of conductor: service
// identity and observed state, intents, scopes and layers, and the
// collaborator interfaces the orchestration core is written against.
//
// The package has no dependencies on other conductor packages. Concrete
// implementations live elsewhere:
//
//   - ServiceAPI: internal/remote (HTTP) and internal/testing/mock (in-memory)
//   - SpecStore: internal/workspace
//   - StatusAdapter and Refresher: supplied by the embedding application,
//     with no-op defaults here
//
// NotFoundError carries special meaning. While confirming a STOP or a DELETE
// it signals that the desired postcondition already holds, so workflows
// treat it as success rather than as a failure.
package api
