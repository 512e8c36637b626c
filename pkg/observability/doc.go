/*
Package observability provides Prometheus metrics for the simulator environment
and the experience recorder.

Metrics plugs into the environment through domain.LifecycleHooks and into the
recorder as a session.Observer.
*/
package observability
