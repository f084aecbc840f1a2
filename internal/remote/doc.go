// Package remote implements api.ServiceAPI over the configurator's REST API.
//
// A 404 answer becomes an *api.NotFoundError so the transition workflow can
// treat it as the idempotence signal of STOP and DELETE. Any other non-2xx
// answer becomes an *api.RemoteError carrying the status code and the
// "message" of the error body.
package remote
