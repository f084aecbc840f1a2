// Package workspace stores workspace definitions as YAML files.
//
// Each workspace lives in <dir>/<name>.yaml:
//
//	name: ws1
//	group: workspace
//	zookeeper:
//	  clientPort: 2181
//	broker:
//	  xmx: 2048
//	worker:
//	  freePorts: [5000, 5001]
//
// FileStore implements api.SpecStore: GetSpecFor hands out the spec used to
// create a missing service, and UpdateSettings merges the settings of a
// successful restart back into the file. Watch keeps the in-memory cache in
// sync with edits made outside the process.
package workspace
