// Package proxy implements the client proxy of spec §4.6: it opens and
// maintains a session against the cluster, routes commands to the
// leader, serves queries per a consistency mode, and retries past
// no-leader / transport failures with a capped exponential backoff.
//
// No backoff library appears anywhere in the retrieved corpus, so the
// retry loop here is hand-rolled on time.Timer rather than imported
// (see DESIGN.md).
package proxy
