/*
Package ports defines the driven ports (interfaces) of the simulator environment.

These interfaces decouple the episode lifecycle from concrete process control,
transport and storage, so each can be swapped or faked in tests.

# Key Interfaces

  - Supervisor: Starts and terminates the external simulator process.
  - Stepper: Performs one step round trip against the control plane.
  - ExperienceStore: Persists the experiences buffered during an episode.
  - DistributedLocker: Provides distributed locking for recorders sharing a store.
*/
package ports
