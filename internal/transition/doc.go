// Package transition drives a single service through one lifecycle
// transition and reports exactly one terminal Result.
//
// START and STOP issue the command and then poll the remote API until the
// target state is observed, re-issuing both on every attempt. DELETE
// removes the object and lists its group until the name is gone. CREATE is
// skipped when an object with the same name already exists. UPDATE is a
// single synchronous call.
//
// A not-found answer during STOP or DELETE means the desired end state
// already holds and counts as success.
package transition
