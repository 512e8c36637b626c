/*
Package session implements the experience recorder used at episode end.

A Recorder is the single owner of the episode counter and the buffer of
experiences collected while an episode runs. HTTP handlers receive it by
reference instead of sharing process-wide state, and recorder replicas that
share one store can serialise their saves through a distributed locker.
*/
package session
